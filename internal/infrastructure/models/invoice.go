package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

type Invoice struct {
	ID              uuid.UUID   `gorm:"type:uuid;primaryKey"`
	UserID          string      `gorm:"type:varchar(64);not null;index"`
	Amount          float64     `gorm:"not null"`
	Address         string      `gorm:"type:varchar(128);not null;index"`
	DerivationIndex null.Int64  `gorm:"column:derivation_index"`
	FromAddress     null.String `gorm:"type:varchar(128)"`
	PaidAmount      float64     `gorm:"not null;default:0"`
	PaidAt          null.Time
	ExpiresAt       time.Time `gorm:"not null;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Invoice) TableName() string { return "invoices" }
