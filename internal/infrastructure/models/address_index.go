package models

import "time"

// AddressIndex is a single-row counter of the next free derivation index.
type AddressIndex struct {
	ID        int   `gorm:"primaryKey"`
	NextIndex int64 `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

func (AddressIndex) TableName() string { return "address_index" }
