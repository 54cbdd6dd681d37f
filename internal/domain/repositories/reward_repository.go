package repositories

import "context"

// ReferralRepository tracks inviter relationships and whether the one-time
// paid-invoice reward was already granted.
type ReferralRepository interface {
	GetInviter(ctx context.Context, userID string) (string, error)
	WasPaidRewarded(ctx context.Context, userID string) (bool, error)
	MarkPaidRewarded(ctx context.Context, userID string) error
}

// PremiumRepository is the premium entitlement ledger
type PremiumRepository interface {
	ExtendPremium(ctx context.Context, userID string, days int) error
	GetDaysLeft(ctx context.Context, userID string) (int, error)
}
