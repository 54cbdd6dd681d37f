package usecases

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"pay-watch.backend/internal/domain/entities"
)

// MockInvoiceRepository is a mock implementation of InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) Create(ctx context.Context, invoice *entities.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) GetPendingByAddress(ctx context.Context, address string) (*entities.Invoice, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockInvoiceRepository) AddPaidAmount(ctx context.Context, id uuid.UUID, delta float64) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SetFromAddress(ctx context.Context, id uuid.UUID, address string) error {
	args := m.Called(ctx, id, address)
	return args.Error(0)
}

// MockTxidRepository is a mock implementation of TxidRepository
type MockTxidRepository struct {
	mock.Mock
}

func (m *MockTxidRepository) Record(ctx context.Context, invoiceID uuid.UUID, txid string) error {
	args := m.Called(ctx, invoiceID, txid)
	return args.Error(0)
}

func (m *MockTxidRepository) IsUsed(ctx context.Context, txid string) (bool, error) {
	args := m.Called(ctx, txid)
	return args.Bool(0), args.Error(1)
}

// MockAddressIndexRepository is a mock implementation of AddressIndexRepository
type MockAddressIndexRepository struct {
	mock.Mock
}

func (m *MockAddressIndexRepository) Reserve(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockPaymentCheckRepository is a mock implementation of PaymentCheckRepository
type MockPaymentCheckRepository struct {
	mock.Mock
}

func (m *MockPaymentCheckRepository) Upsert(ctx context.Context, check *entities.PaymentCheck) error {
	args := m.Called(ctx, check)
	return args.Error(0)
}

func (m *MockPaymentCheckRepository) Delete(ctx context.Context, invoiceID uuid.UUID) error {
	args := m.Called(ctx, invoiceID)
	return args.Error(0)
}

func (m *MockPaymentCheckRepository) List(ctx context.Context) ([]*entities.PaymentCheck, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.PaymentCheck), args.Error(1)
}

// MockReferralRepository is a mock implementation of ReferralRepository
type MockReferralRepository struct {
	mock.Mock
}

func (m *MockReferralRepository) GetInviter(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockReferralRepository) WasPaidRewarded(ctx context.Context, userID string) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferralRepository) MarkPaidRewarded(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockPremiumRepository is a mock implementation of PremiumRepository
type MockPremiumRepository struct {
	mock.Mock
}

func (m *MockPremiumRepository) ExtendPremium(ctx context.Context, userID string, days int) error {
	args := m.Called(ctx, userID, days)
	return args.Error(0)
}

func (m *MockPremiumRepository) GetDaysLeft(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

// MockPriceOracle is a mock implementation of PriceOracle
type MockPriceOracle struct {
	mock.Mock
}

func (m *MockPriceOracle) SpotPriceUSD(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

// MockChainReader is a mock implementation of ChainReader
type MockChainReader struct {
	mock.Mock
}

func (m *MockChainReader) AddressTransactions(ctx context.Context, address string) []entities.ChainTransaction {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]entities.ChainTransaction)
}

func (m *MockChainReader) TransactionByID(ctx context.Context, txid string) *entities.ChainTransaction {
	args := m.Called(ctx, txid)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*entities.ChainTransaction)
}

func (m *MockChainReader) AddressBalance(ctx context.Context, address string) float64 {
	args := m.Called(ctx, address)
	return args.Get(0).(float64)
}

// MockInvoiceCreator is a mock implementation of the rollover creator
type MockInvoiceCreator struct {
	mock.Mock
}

func (m *MockInvoiceCreator) CreateInvoice(ctx context.Context, userID string, amountUSD float64) (*entities.Invoice, error) {
	args := m.Called(ctx, userID, amountUSD)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Invoice), args.Error(1)
}

// MockNotifier is a mock implementation of notify.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, userID string, templateID string, args map[string]string) error {
	ret := m.Called(ctx, userID, templateID, args)
	return ret.Error(0)
}
