package models

import (
	"time"

	"github.com/google/uuid"
)

type UsedTxid struct {
	Txid      string    `gorm:"type:varchar(128);primaryKey"`
	InvoiceID uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time
}

func (UsedTxid) TableName() string { return "used_txids" }
