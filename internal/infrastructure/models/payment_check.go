package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentCheck struct {
	InvoiceID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	NextCheck  time.Time `gorm:"not null;index"`
	CheckStart time.Time `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (PaymentCheck) TableName() string { return "payment_checks" }
