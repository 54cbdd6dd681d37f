package entities

import "time"

// Referral links an invited user to their inviter. PaidRewarded flips once
// the inviter has been credited for this user's first paid invoice.
type Referral struct {
	UserID       string    `json:"userId"`
	InviterID    string    `json:"inviterId"`
	PaidRewarded bool      `json:"paidRewarded"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PremiumAccount tracks a user's premium entitlement window
type PremiumAccount struct {
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DaysLeft returns whole premium days remaining, zero when lapsed
func (p *PremiumAccount) DaysLeft() int {
	left := time.Until(p.ExpiresAt)
	if left <= 0 {
		return 0
	}
	return int(left.Hours() / 24)
}
