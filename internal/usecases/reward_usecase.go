package usecases

import (
	"context"
	"errors"
	"math"
	"strconv"

	"go.uber.org/zap"
	"pay-watch.backend/internal/domain/entities"
	domainerrors "pay-watch.backend/internal/domain/errors"
	"pay-watch.backend/internal/domain/repositories"
	"pay-watch.backend/internal/notify"
	"pay-watch.backend/pkg/logger"
)

const premiumDaysPerInvoice = 30

// CalcPremiumDays converts a paid invoice into premium days, proportional
// to the fraction actually paid and capped at one full invoice's worth.
func CalcPremiumDays(invoiceAmount, paidAmount float64) int {
	if invoiceAmount <= 0 || paidAmount <= 0 {
		return 0
	}
	days := int(math.Ceil(premiumDaysPerInvoice * paidAmount / invoiceAmount))
	if days > premiumDaysPerInvoice {
		days = premiumDaysPerInvoice
	}
	return days
}

// RewardUsecase grants premium time for paid invoices and the one-time
// referral reward to the payer's inviter.
type RewardUsecase struct {
	referralRepo repositories.ReferralRepository
	premiumRepo  repositories.PremiumRepository
	notifier     notify.Notifier
}

// NewRewardUsecase creates a new reward usecase
func NewRewardUsecase(
	referralRepo repositories.ReferralRepository,
	premiumRepo repositories.PremiumRepository,
	notifier notify.Notifier,
) *RewardUsecase {
	return &RewardUsecase{
		referralRepo: referralRepo,
		premiumRepo:  premiumRepo,
		notifier:     notifier,
	}
}

// GrantPaymentRewards extends the payer's premium for a settled invoice and,
// when the payer was invited and the referral reward is still outstanding,
// extends the inviter by the same number of days exactly once. Notification
// failures are logged, never propagated.
func (u *RewardUsecase) GrantPaymentRewards(ctx context.Context, invoice *entities.Invoice) (int, error) {
	days := CalcPremiumDays(invoice.Amount, invoice.PaidAmount)
	if days == 0 {
		return 0, nil
	}

	if err := u.premiumRepo.ExtendPremium(ctx, invoice.UserID, days); err != nil {
		return 0, err
	}
	u.send(ctx, invoice.UserID, notify.TemplateVerifySuccess, map[string]string{
		"days": strconv.Itoa(days),
	})

	inviter, err := u.referralRepo.GetInviter(ctx, invoice.UserID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return days, nil
		}
		return days, err
	}

	rewarded, err := u.referralRepo.WasPaidRewarded(ctx, invoice.UserID)
	if err != nil {
		return days, err
	}
	if rewarded {
		return days, nil
	}

	if err := u.premiumRepo.ExtendPremium(ctx, inviter, days); err != nil {
		return days, err
	}
	if err := u.referralRepo.MarkPaidRewarded(ctx, invoice.UserID); err != nil {
		return days, err
	}
	u.send(ctx, inviter, notify.TemplateReferralPaid, map[string]string{
		"days": strconv.Itoa(days),
	})
	return days, nil
}

// DaysLeft returns the user's remaining premium days
func (u *RewardUsecase) DaysLeft(ctx context.Context, userID string) (int, error) {
	return u.premiumRepo.GetDaysLeft(ctx, userID)
}

func (u *RewardUsecase) send(ctx context.Context, userID, template string, args map[string]string) {
	if err := u.notifier.Send(ctx, userID, template, args); err != nil {
		logger.Warn(ctx, "notification delivery failed",
			zap.String("user_id", userID),
			zap.String("template", template),
			zap.Error(err))
	}
}
