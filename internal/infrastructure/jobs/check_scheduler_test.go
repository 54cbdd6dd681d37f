package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"pay-watch.backend/internal/config"
	"pay-watch.backend/internal/domain/entities"
	domainerrors "pay-watch.backend/internal/domain/errors"
	"pay-watch.backend/internal/notify"
	"pay-watch.backend/internal/usecases"
	"pay-watch.backend/pkg/logger"
)

func init() {
	logger.Init("development")
}

type mockInvoiceRepo struct{ mock.Mock }

func (m *mockInvoiceRepo) Create(ctx context.Context, invoice *entities.Invoice) error {
	return m.Called(ctx, invoice).Error(0)
}

func (m *mockInvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*entities.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) GetPendingByAddress(ctx context.Context, address string) (*entities.Invoice, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Invoice), args.Error(1)
}

func (m *mockInvoiceRepo) MarkPaid(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockInvoiceRepo) AddPaidAmount(ctx context.Context, id uuid.UUID, delta float64) error {
	return m.Called(ctx, id, delta).Error(0)
}

func (m *mockInvoiceRepo) SetFromAddress(ctx context.Context, id uuid.UUID, address string) error {
	return m.Called(ctx, id, address).Error(0)
}

type mockCheckRepo struct{ mock.Mock }

func (m *mockCheckRepo) Upsert(ctx context.Context, check *entities.PaymentCheck) error {
	return m.Called(ctx, check).Error(0)
}

func (m *mockCheckRepo) Delete(ctx context.Context, invoiceID uuid.UUID) error {
	return m.Called(ctx, invoiceID).Error(0)
}

func (m *mockCheckRepo) List(ctx context.Context) ([]*entities.PaymentCheck, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PaymentCheck), args.Error(1)
}

type mockReconciler struct{ mock.Mock }

func (m *mockReconciler) CheckPayment(ctx context.Context, invoice *entities.Invoice, checkStart time.Time) (*usecases.PaymentCheckResult, error) {
	args := m.Called(ctx, invoice, checkStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecases.PaymentCheckResult), args.Error(1)
}

type mockRewards struct{ mock.Mock }

func (m *mockRewards) GrantPaymentRewards(ctx context.Context, invoice *entities.Invoice) (int, error) {
	args := m.Called(ctx, invoice)
	return args.Int(0), args.Error(1)
}

// recordingNotifier collects sent templates without testify choreography.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *recordingNotifier) Send(ctx context.Context, userID, templateID string, args map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, templateID)
	return nil
}

func (n *recordingNotifier) templates() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}

func (n *recordingNotifier) count(template string) int {
	c := 0
	for _, s := range n.templates() {
		if s == template {
			c++
		}
	}
	return c
}

func fastConfig() config.PaymentConfig {
	return config.PaymentConfig{
		Tolerance:      0.1,
		InvoiceExpiry:  time.Hour,
		CheckBaseDelay: 10 * time.Millisecond,
		CheckJitter:    5 * time.Millisecond,
		ReminderDelay:  time.Hour,
		HardStop:       24 * time.Hour,
	}
}

func watchedInvoice() *entities.Invoice {
	return &entities.Invoice{
		ID:          uuid.New(),
		UserID:      "user-1",
		Amount:      0.001,
		Address:     "bc1qus",
		FromAddress: null.StringFrom("bc1qsender"),
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func waitFor(t *testing.T, done <-chan struct{}, msg string) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal(msg)
	}
}

func TestScheduler_PaidInvoiceClearsState(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepo)
	checkRepo := new(mockCheckRepo)
	reconciler := new(mockReconciler)
	rewards := new(mockRewards)
	notifier := &recordingNotifier{}

	inv := watchedInvoice()
	paid := *inv
	paid.PaidAmount = 0.001
	paid.PaidAt = null.TimeFrom(time.Now())

	checkRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	invoiceRepo.On("GetByID", mock.Anything, inv.ID).Return(inv, nil)
	reconciler.On("CheckPayment", mock.Anything, inv, mock.Anything).
		Return(&usecases.PaymentCheckResult{Invoice: &paid}, nil)
	rewards.On("GrantPaymentRewards", mock.Anything, &paid).Return(30, nil)

	done := make(chan struct{})
	checkRepo.On("Delete", mock.Anything, inv.ID).Run(func(mock.Arguments) { close(done) }).Return(nil)

	s := NewCheckScheduler(invoiceRepo, checkRepo, reconciler, rewards, notifier, fastConfig())
	defer s.Stop()

	require.NoError(t, s.Schedule(context.Background(), inv, time.Now()))
	waitFor(t, done, "check row was never deleted after payment")
	rewards.AssertExpectations(t)
}

func TestScheduler_SupersededReschedulesReplacement(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepo)
	checkRepo := new(mockCheckRepo)
	reconciler := new(mockReconciler)
	rewards := new(mockRewards)
	notifier := &recordingNotifier{}

	inv := watchedInvoice()
	replacement := watchedInvoice()
	checkStart := time.Now().Add(-10 * time.Minute)

	var upserts []*entities.PaymentCheck
	var upsertMu sync.Mutex
	checkRepo.On("Upsert", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			upsertMu.Lock()
			upserts = append(upserts, args.Get(1).(*entities.PaymentCheck))
			upsertMu.Unlock()
		}).Return(nil)

	invoiceRepo.On("GetByID", mock.Anything, inv.ID).Return(inv, nil)
	reconciler.On("CheckPayment", mock.Anything, inv, mock.Anything).
		Return(&usecases.PaymentCheckResult{Invoice: replacement}, nil)

	// The replacement's own checks fire during the test window.
	invoiceRepo.On("GetByID", mock.Anything, replacement.ID).Return(replacement, nil)
	reconciler.On("CheckPayment", mock.Anything, replacement, mock.Anything).
		Return(&usecases.PaymentCheckResult{}, nil)

	done := make(chan struct{})
	checkRepo.On("Delete", mock.Anything, inv.ID).Run(func(mock.Arguments) { close(done) }).Return(nil)

	s := NewCheckScheduler(invoiceRepo, checkRepo, reconciler, rewards, notifier, fastConfig())
	defer s.Stop()

	require.NoError(t, s.Schedule(context.Background(), inv, checkStart))
	waitFor(t, done, "superseded invoice's check row was never deleted")

	// The replacement is scheduled with the original check-window start.
	assert.Eventually(t, func() bool {
		upsertMu.Lock()
		defer upsertMu.Unlock()
		for _, c := range upserts {
			if c.InvoiceID == replacement.ID {
				return c.CheckStart.Equal(checkStart)
			}
		}
		return false
	}, 3*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return notifier.count(notify.TemplatePaymentPartial) == 1
	}, 3*time.Second, 5*time.Millisecond)
}

func TestScheduler_HardStopExpiresInvoice(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepo)
	checkRepo := new(mockCheckRepo)
	reconciler := new(mockReconciler)
	notifier := &recordingNotifier{}

	inv := watchedInvoice()
	checkRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	invoiceRepo.On("GetByID", mock.Anything, inv.ID).Return(inv, nil)

	done := make(chan struct{})
	checkRepo.On("Delete", mock.Anything, inv.ID).Run(func(mock.Arguments) { close(done) }).Return(nil)

	s := NewCheckScheduler(invoiceRepo, checkRepo, reconciler, new(mockRewards), notifier, fastConfig())
	defer s.Stop()

	// The check window started 25 hours ago, past the 24h hard stop.
	require.NoError(t, s.Schedule(context.Background(), inv, time.Now().Add(-25*time.Hour)))
	waitFor(t, done, "hard-stopped invoice's check row was never deleted")

	reconciler.AssertNotCalled(t, "CheckPayment", mock.Anything, mock.Anything, mock.Anything)
	assert.Eventually(t, func() bool {
		return notifier.count(notify.TemplateInvoiceExpired) == 1
	}, 3*time.Second, 5*time.Millisecond)
}

func TestScheduler_MissingInvoiceClearsState(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepo)
	checkRepo := new(mockCheckRepo)
	reconciler := new(mockReconciler)

	id := uuid.New()
	inv := watchedInvoice()
	inv.ID = id

	checkRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	invoiceRepo.On("GetByID", mock.Anything, id).Return(nil, domainerrors.ErrNotFound)

	done := make(chan struct{})
	checkRepo.On("Delete", mock.Anything, id).Run(func(mock.Arguments) { close(done) }).Return(nil)

	s := NewCheckScheduler(invoiceRepo, checkRepo, reconciler, new(mockRewards), &recordingNotifier{}, fastConfig())
	defer s.Stop()

	require.NoError(t, s.Schedule(context.Background(), inv, time.Now()))
	waitFor(t, done, "missing invoice's check row was never deleted")
	reconciler.AssertNotCalled(t, "CheckPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduler_CheckErrorReschedules(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepo)
	checkRepo := new(mockCheckRepo)
	reconciler := new(mockReconciler)

	inv := watchedInvoice()
	invoiceRepo.On("GetByID", mock.Anything, inv.ID).Return(inv, nil)
	reconciler.On("CheckPayment", mock.Anything, inv, mock.Anything).
		Return(nil, errors.New("all providers down"))

	// First Upsert on Schedule, second on the error reschedule.
	upserted := make(chan struct{}, 8)
	checkRepo.On("Upsert", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { upserted <- struct{}{} }).Return(nil)

	s := NewCheckScheduler(invoiceRepo, checkRepo, reconciler, new(mockRewards), &recordingNotifier{}, fastConfig())
	defer s.Stop()

	require.NoError(t, s.Schedule(context.Background(), inv, time.Now()))
	waitFor(t, upserted, "initial schedule never persisted")
	waitFor(t, upserted, "failed check was not rescheduled")
	checkRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestScheduler_ReminderFiresOnceWhilePending(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepo)
	checkRepo := new(mockCheckRepo)
	reconciler := new(mockReconciler)
	notifier := &recordingNotifier{}

	inv := watchedInvoice()
	cfg := fastConfig()
	cfg.CheckBaseDelay = time.Hour // keep checks out of the way
	cfg.CheckJitter = 0
	cfg.ReminderDelay = 15 * time.Millisecond

	checkRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	invoiceRepo.On("GetByID", mock.Anything, inv.ID).Return(inv, nil)

	s := NewCheckScheduler(invoiceRepo, checkRepo, reconciler, new(mockRewards), notifier, cfg)
	defer s.Stop()

	require.NoError(t, s.Schedule(context.Background(), inv, time.Now()))
	// Scheduling again must not arm a second reminder.
	require.NoError(t, s.Schedule(context.Background(), inv, time.Now()))

	assert.Eventually(t, func() bool {
		return notifier.count(notify.TemplatePaymentReminder) == 1
	}, 3*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, notifier.count(notify.TemplatePaymentReminder))
}

func TestResumePending_DropsStaleRows(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepo)
	checkRepo := new(mockCheckRepo)
	reconciler := new(mockReconciler)

	healthy := watchedInvoice()
	paidInv := watchedInvoice()
	paidInv.PaidAt = null.TimeFrom(time.Now())
	senderless := watchedInvoice()
	senderless.FromAddress = null.String{}
	expired := watchedInvoice()
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	missingID := uuid.New()

	rows := []*entities.PaymentCheck{
		{InvoiceID: healthy.ID, NextCheck: time.Now().Add(time.Hour), CheckStart: time.Now().Add(-time.Hour)},
		{InvoiceID: paidInv.ID, NextCheck: time.Now(), CheckStart: time.Now()},
		{InvoiceID: senderless.ID, NextCheck: time.Now(), CheckStart: time.Now()},
		{InvoiceID: expired.ID, NextCheck: time.Now(), CheckStart: time.Now()},
		{InvoiceID: missingID, NextCheck: time.Now(), CheckStart: time.Now()},
	}

	checkRepo.On("List", mock.Anything).Return(rows, nil)
	invoiceRepo.On("GetByID", mock.Anything, healthy.ID).Return(healthy, nil)
	invoiceRepo.On("GetByID", mock.Anything, paidInv.ID).Return(paidInv, nil)
	invoiceRepo.On("GetByID", mock.Anything, senderless.ID).Return(senderless, nil)
	invoiceRepo.On("GetByID", mock.Anything, expired.ID).Return(expired, nil)
	invoiceRepo.On("GetByID", mock.Anything, missingID).Return(nil, domainerrors.ErrNotFound)
	checkRepo.On("Delete", mock.Anything, paidInv.ID).Return(nil)
	checkRepo.On("Delete", mock.Anything, senderless.ID).Return(nil)
	checkRepo.On("Delete", mock.Anything, expired.ID).Return(nil)
	checkRepo.On("Delete", mock.Anything, missingID).Return(nil)

	s := NewCheckScheduler(invoiceRepo, checkRepo, reconciler, new(mockRewards), &recordingNotifier{}, fastConfig())
	defer s.Stop()

	require.NoError(t, s.ResumePending(context.Background()))
	checkRepo.AssertExpectations(t)
	// The healthy row keeps its persisted wake time, an hour out.
	reconciler.AssertNotCalled(t, "CheckPayment", mock.Anything, mock.Anything, mock.Anything)
	checkRepo.AssertNotCalled(t, "Delete", mock.Anything, healthy.ID)
}

func TestResumePending_OverdueRowFiresImmediately(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepo)
	checkRepo := new(mockCheckRepo)
	reconciler := new(mockReconciler)

	inv := watchedInvoice()
	checkStart := time.Now().Add(-2 * time.Hour)
	rows := []*entities.PaymentCheck{
		// Next check committed for five minutes ago: fire now, not at a
		// fresh jittered delay.
		{InvoiceID: inv.ID, NextCheck: time.Now().Add(-5 * time.Minute), CheckStart: checkStart},
	}

	checkRepo.On("List", mock.Anything).Return(rows, nil)
	checkRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	invoiceRepo.On("GetByID", mock.Anything, inv.ID).Return(inv, nil)

	checked := make(chan struct{})
	reconciler.On("CheckPayment", mock.Anything, inv, mock.Anything).
		Run(func(mock.Arguments) { close(checked) }).
		Return(&usecases.PaymentCheckResult{}, nil).Once()
	reconciler.On("CheckPayment", mock.Anything, inv, mock.Anything).
		Return(&usecases.PaymentCheckResult{}, nil)

	s := NewCheckScheduler(invoiceRepo, checkRepo, reconciler, new(mockRewards), &recordingNotifier{}, fastConfig())
	defer s.Stop()

	require.NoError(t, s.ResumePending(context.Background()))
	waitFor(t, checked, "overdue check never fired after resume")
}

func TestScheduler_StopPreventsFurtherWakes(t *testing.T) {
	invoiceRepo := new(mockInvoiceRepo)
	checkRepo := new(mockCheckRepo)
	reconciler := new(mockReconciler)

	inv := watchedInvoice()
	cfg := fastConfig()
	cfg.CheckBaseDelay = 50 * time.Millisecond
	cfg.CheckJitter = 0

	checkRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	s := NewCheckScheduler(invoiceRepo, checkRepo, reconciler, new(mockRewards), &recordingNotifier{}, cfg)
	require.NoError(t, s.Schedule(context.Background(), inv, time.Now()))
	s.Stop()

	time.Sleep(100 * time.Millisecond)
	invoiceRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	reconciler.AssertNotCalled(t, "CheckPayment", mock.Anything, mock.Anything, mock.Anything)
}
