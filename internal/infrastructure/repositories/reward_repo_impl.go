package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	domainerrors "pay-watch.backend/internal/domain/errors"
	"pay-watch.backend/internal/infrastructure/models"
)

// ReferralRepositoryImpl implements ReferralRepository
type ReferralRepositoryImpl struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) *ReferralRepositoryImpl {
	return &ReferralRepositoryImpl{db: db}
}

func (r *ReferralRepositoryImpl) GetInviter(ctx context.Context, userID string) (string, error) {
	var m models.Referral
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domainerrors.ErrNotFound
		}
		return "", err
	}
	return m.InviterID, nil
}

func (r *ReferralRepositoryImpl) WasPaidRewarded(ctx context.Context, userID string) (bool, error) {
	var m models.Referral
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return m.PaidRewarded, nil
}

func (r *ReferralRepositoryImpl) MarkPaidRewarded(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Model(&models.Referral{}).
		Where("user_id = ?", userID).
		Update("paid_rewarded", true).Error
}

// PremiumRepositoryImpl implements PremiumRepository
type PremiumRepositoryImpl struct {
	db *gorm.DB
}

func NewPremiumRepository(db *gorm.DB) *PremiumRepositoryImpl {
	return &PremiumRepositoryImpl{db: db}
}

// ExtendPremium adds days on top of the current expiry, or on top of now
// for lapsed/new accounts.
func (r *PremiumRepositoryImpl) ExtendPremium(ctx context.Context, userID string, days int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		var m models.PremiumAccount
		err := tx.Where("user_id = ?", userID).First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			m = models.PremiumAccount{UserID: userID, ExpiresAt: now}
		} else if err != nil {
			return err
		}

		base := m.ExpiresAt
		if base.Before(now) {
			base = now
		}
		m.ExpiresAt = base.AddDate(0, 0, days)
		m.UpdatedAt = now

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"expires_at", "updated_at"}),
		}).Create(&m).Error
	})
}

func (r *PremiumRepositoryImpl) GetDaysLeft(ctx context.Context, userID string) (int, error) {
	var m models.PremiumAccount
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	left := time.Until(m.ExpiresAt)
	if left <= 0 {
		return 0, nil
	}
	return int(left.Hours() / 24), nil
}
