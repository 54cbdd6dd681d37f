package jobs

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"pay-watch.backend/internal/config"
	"pay-watch.backend/internal/domain/entities"
	domainerrors "pay-watch.backend/internal/domain/errors"
	"pay-watch.backend/internal/domain/repositories"
	"pay-watch.backend/internal/notify"
	"pay-watch.backend/internal/usecases"
	"pay-watch.backend/pkg/logger"
	"pay-watch.backend/pkg/metrics"
)

// Reconciler is the slice of the payment reconciler the scheduler drives.
type Reconciler interface {
	CheckPayment(ctx context.Context, invoice *entities.Invoice, checkStart time.Time) (*usecases.PaymentCheckResult, error)
}

// RewardGranter applies paid-invoice side effects.
type RewardGranter interface {
	GrantPaymentRewards(ctx context.Context, invoice *entities.Invoice) (int, error)
}

// CheckScheduler drives the per-invoice polling loop. Each watched invoice
// owns one check timer and at most one reminder timer; the timer maps are
// only mutated under the mutex. Next-check times are persisted so the
// schedule survives restarts.
//
// The check-window start is fixed when a payment is first watched and is
// carried unchanged across reschedules and partial-payment rollovers; it is
// both the anti-replay floor for transaction scanning and the reference
// point for the 24h hard stop.
type CheckScheduler struct {
	invoiceRepo repositories.InvoiceRepository
	checkRepo   repositories.PaymentCheckRepository
	reconciler  Reconciler
	rewards     RewardGranter
	notifier    notify.Notifier
	cfg         config.PaymentConfig

	mu        sync.Mutex
	checks    map[uuid.UUID]*time.Timer
	reminders map[uuid.UUID]*time.Timer
	stopped   bool
}

// NewCheckScheduler creates a new check scheduler
func NewCheckScheduler(
	invoiceRepo repositories.InvoiceRepository,
	checkRepo repositories.PaymentCheckRepository,
	reconciler Reconciler,
	rewards RewardGranter,
	notifier notify.Notifier,
	cfg config.PaymentConfig,
) *CheckScheduler {
	return &CheckScheduler{
		invoiceRepo: invoiceRepo,
		checkRepo:   checkRepo,
		reconciler:  reconciler,
		rewards:     rewards,
		notifier:    notifier,
		cfg:         cfg,
		checks:      make(map[uuid.UUID]*time.Timer),
		reminders:   make(map[uuid.UUID]*time.Timer),
	}
}

// Schedule starts watching an invoice. The first check fires after a
// jittered delay; a one-shot reminder is armed unless one already exists
// for this invoice.
func (s *CheckScheduler) Schedule(ctx context.Context, invoice *entities.Invoice, checkStart time.Time) error {
	delay := s.jitter()
	check := &entities.PaymentCheck{
		InvoiceID:  invoice.ID,
		NextCheck:  time.Now().Add(delay),
		CheckStart: checkStart,
	}
	if err := s.checkRepo.Upsert(ctx, check); err != nil {
		return err
	}
	s.armCheck(invoice.ID, checkStart, delay)
	s.armReminder(invoice.ID)
	logger.Info(ctx, "payment check scheduled",
		zap.String("invoice_id", invoice.ID.String()),
		zap.Duration("delay", delay))
	return nil
}

// ResumePending rebuilds timers from persisted check rows after a restart.
// Rows whose invoice is gone, already paid, sender-less, or past its
// nominal expiry are dropped. Surviving rows honor the persisted next-check
// time rather than drawing fresh jitter.
func (s *CheckScheduler) ResumePending(ctx context.Context) error {
	rows, err := s.checkRepo.List(ctx)
	if err != nil {
		return err
	}
	resumed := 0
	for _, row := range rows {
		invoice, err := s.invoiceRepo.GetByID(ctx, row.InvoiceID)
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				s.dropRow(ctx, row.InvoiceID)
				continue
			}
			return err
		}
		if invoice.PaidAt.Valid || !invoice.FromAddress.Valid || time.Now().After(invoice.ExpiresAt) {
			s.dropRow(ctx, row.InvoiceID)
			continue
		}
		delay := time.Until(row.NextCheck)
		if delay < 0 {
			delay = 0
		}
		s.armCheck(row.InvoiceID, row.CheckStart, delay)
		s.armReminder(row.InvoiceID)
		resumed++
	}
	logger.Info(ctx, "pending payment checks resumed", zap.Int("count", resumed))
	return nil
}

// Stop cancels every timer and refuses new arms. Persisted rows are left
// intact for the next ResumePending.
func (s *CheckScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, t := range s.checks {
		t.Stop()
		delete(s.checks, id)
	}
	for id, t := range s.reminders {
		t.Stop()
		delete(s.reminders, id)
	}
}

func (s *CheckScheduler) wake(id uuid.UUID, checkStart time.Time) {
	ctx := context.Background()
	s.clearCheck(id)

	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			// External deletion wins.
			s.dropRow(ctx, id)
			s.clearReminder(id)
			return
		}
		logger.Error(ctx, "failed to reload invoice for check", zap.Error(err),
			zap.String("invoice_id", id.String()))
		s.reschedule(ctx, id, checkStart)
		return
	}

	if time.Since(checkStart) > s.cfg.HardStop {
		metrics.ChecksExpired.Inc()
		s.send(ctx, invoice.UserID, notify.TemplateInvoiceExpired, nil)
		s.dropRow(ctx, id)
		s.clearReminder(id)
		return
	}

	result, err := s.reconciler.CheckPayment(ctx, invoice, checkStart)
	if err != nil {
		metrics.CheckErrors.Inc()
		logger.Error(ctx, "payment check failed", zap.Error(err),
			zap.String("invoice_id", id.String()))
		s.reschedule(ctx, id, checkStart)
		return
	}

	if len(result.UnexpectedSenders) > 0 && invoice.FromAddress.Valid {
		s.send(ctx, invoice.UserID, notify.TemplateUnexpectedAddress, map[string]string{
			"addresses": strings.Join(result.UnexpectedSenders, ", "),
			"from":      invoice.FromAddress.String,
		})
	}

	switch {
	case result.Invoice != nil && result.Invoice.PaidAt.Valid:
		if _, err := s.rewards.GrantPaymentRewards(ctx, result.Invoice); err != nil {
			logger.Error(ctx, "failed to grant payment rewards", zap.Error(err),
				zap.String("invoice_id", result.Invoice.ID.String()))
		}
		s.dropRow(ctx, id)
		s.clearReminder(id)

	case result.Invoice != nil && result.Invoice.ID != invoice.ID:
		// Superseded by a rollover invoice; the replacement inherits the
		// original check-window start.
		s.send(ctx, invoice.UserID, notify.TemplatePaymentPartial, map[string]string{
			"amount":  strconv.FormatFloat(result.Invoice.Amount, 'f', 8, 64),
			"address": result.Invoice.Address,
		})
		s.dropRow(ctx, id)
		s.clearReminder(id)
		if err := s.Schedule(ctx, result.Invoice, checkStart); err != nil {
			logger.Error(ctx, "failed to schedule rollover invoice", zap.Error(err),
				zap.String("invoice_id", result.Invoice.ID.String()))
		}

	default:
		s.reschedule(ctx, id, checkStart)
	}
}

func (s *CheckScheduler) remind(id uuid.UUID) {
	ctx := context.Background()
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return
	}
	if invoice.Status() == entities.InvoiceStatusPending {
		s.send(ctx, invoice.UserID, notify.TemplatePaymentReminder, map[string]string{
			"amount":  strconv.FormatFloat(invoice.Amount, 'f', 8, 64),
			"address": invoice.Address,
		})
	}
}

func (s *CheckScheduler) reschedule(ctx context.Context, id uuid.UUID, checkStart time.Time) {
	delay := s.jitter()
	check := &entities.PaymentCheck{
		InvoiceID:  id,
		NextCheck:  time.Now().Add(delay),
		CheckStart: checkStart,
	}
	if err := s.checkRepo.Upsert(ctx, check); err != nil {
		logger.Error(ctx, "failed to persist next check time", zap.Error(err),
			zap.String("invoice_id", id.String()))
	}
	s.armCheck(id, checkStart, delay)
}

func (s *CheckScheduler) armCheck(id uuid.UUID, checkStart time.Time, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if t, ok := s.checks[id]; ok {
		t.Stop()
	}
	s.checks[id] = time.AfterFunc(delay, func() { s.wake(id, checkStart) })
}

// armReminder arms the one-shot reminder. An existing entry, fired or not,
// means the invoice already had its reminder.
func (s *CheckScheduler) armReminder(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if _, ok := s.reminders[id]; ok {
		return
	}
	s.reminders[id] = time.AfterFunc(s.cfg.ReminderDelay, func() { s.remind(id) })
}

func (s *CheckScheduler) clearCheck(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.checks, id)
}

func (s *CheckScheduler) clearReminder(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.reminders[id]; ok {
		t.Stop()
		delete(s.reminders, id)
	}
}

func (s *CheckScheduler) dropRow(ctx context.Context, id uuid.UUID) {
	if err := s.checkRepo.Delete(ctx, id); err != nil {
		logger.Error(ctx, "failed to delete payment check row", zap.Error(err),
			zap.String("invoice_id", id.String()))
	}
}

func (s *CheckScheduler) send(ctx context.Context, userID, template string, args map[string]string) {
	if err := s.notifier.Send(ctx, userID, template, args); err != nil {
		logger.Warn(ctx, "notification delivery failed",
			zap.String("user_id", userID),
			zap.String("template", template),
			zap.Error(err))
	}
}

// jitter draws base + uniform(0, jitter) to spread polling load.
func (s *CheckScheduler) jitter() time.Duration {
	d := s.cfg.CheckBaseDelay
	if s.cfg.CheckJitter > 0 {
		d += time.Duration(rand.Int63n(int64(s.cfg.CheckJitter)))
	}
	return d
}
