package models

import "time"

type Referral struct {
	UserID       string `gorm:"type:varchar(64);primaryKey"`
	InviterID    string `gorm:"type:varchar(64);not null;index"`
	PaidRewarded bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
}

func (Referral) TableName() string { return "referrals" }

type PremiumAccount struct {
	UserID    string    `gorm:"type:varchar(64);primaryKey"`
	ExpiresAt time.Time `gorm:"not null"`
	UpdatedAt time.Time
}

func (PremiumAccount) TableName() string { return "premium_accounts" }
