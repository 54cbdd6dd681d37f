package notify

import (
	"context"

	"go.uber.org/zap"
	"pay-watch.backend/pkg/logger"
)

// Template identifiers for user-facing notifications.
const (
	TemplateInvoiceExpired    = "invoice.expired"
	TemplatePaymentReminder   = "payment.reminder"
	TemplatePaymentPartial    = "payment.partial"
	TemplateUnexpectedAddress = "payment.unexpectedAddress"
	TemplateVerifySuccess     = "verify.success"
	TemplateReferralPaid      = "referral.paid"
)

// Notifier delivers a templated message to a user. Delivery transport is
// the caller's choice; failures must not abort payment processing.
type Notifier interface {
	Send(ctx context.Context, userID string, templateID string, args map[string]string) error
}

// LogNotifier writes notifications to the structured log. It stands in for
// a real delivery channel in development and tests.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, userID string, templateID string, args map[string]string) error {
	fields := []zap.Field{
		zap.String("user_id", userID),
		zap.String("template", templateID),
	}
	for k, v := range args {
		fields = append(fields, zap.String("arg_"+k, v))
	}
	logger.Info(ctx, "notification sent", fields...)
	return nil
}
