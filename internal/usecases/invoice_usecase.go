package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"pay-watch.backend/internal/config"
	"pay-watch.backend/internal/domain/entities"
	domainerrors "pay-watch.backend/internal/domain/errors"
	"pay-watch.backend/internal/domain/repositories"
	"pay-watch.backend/pkg/hdwallet"
	"pay-watch.backend/pkg/utils"
)

// InvoiceUsecase quotes USD amounts into BTC invoices and assigns each one
// a receiving address.
type InvoiceUsecase struct {
	invoiceRepo repositories.InvoiceRepository
	indexRepo   repositories.AddressIndexRepository
	oracle      PriceOracle
	wallet      config.WalletConfig
	expiry      time.Duration
}

// NewInvoiceUsecase creates a new invoice usecase
func NewInvoiceUsecase(
	invoiceRepo repositories.InvoiceRepository,
	indexRepo repositories.AddressIndexRepository,
	oracle PriceOracle,
	wallet config.WalletConfig,
	expiry time.Duration,
) *InvoiceUsecase {
	return &InvoiceUsecase{
		invoiceRepo: invoiceRepo,
		indexRepo:   indexRepo,
		oracle:      oracle,
		wallet:      wallet,
		expiry:      expiry,
	}
}

// CreateInvoice quotes amountUSD into BTC at the current spot price and
// persists a pending invoice. When an extended public key is configured a
// fresh child address is derived; otherwise the static fallback address is
// used for every invoice.
func (u *InvoiceUsecase) CreateInvoice(ctx context.Context, userID string, amountUSD float64) (*entities.Invoice, error) {
	if userID == "" {
		return nil, domainerrors.BadRequest("user id is required")
	}
	if amountUSD <= 0 {
		return nil, domainerrors.BadRequest("amount must be positive")
	}

	price, err := u.oracle.SpotPriceUSD(ctx)
	if err != nil {
		return nil, err
	}
	amountBTC := utils.RoundBTC(amountUSD / price)

	address, index, err := u.receivingAddress(ctx)
	if err != nil {
		return nil, err
	}

	invoice := &entities.Invoice{
		ID:              uuid.New(),
		UserID:          userID,
		Amount:          amountBTC,
		Address:         address,
		DerivationIndex: index,
		ExpiresAt:       time.Now().Add(u.expiry),
	}
	if err := u.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// GetInvoice returns the invoice by id
func (u *InvoiceUsecase) GetInvoice(ctx context.Context, id uuid.UUID) (*entities.Invoice, error) {
	return u.invoiceRepo.GetByID(ctx, id)
}

// AttachSender records the address the payer will send from. Only pending
// invoices can be watched.
func (u *InvoiceUsecase) AttachSender(ctx context.Context, id uuid.UUID, fromAddress string) (*entities.Invoice, error) {
	if fromAddress == "" {
		return nil, domainerrors.BadRequest("from address is required")
	}
	invoice, err := u.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice.Terminal() {
		return nil, domainerrors.BadRequest("invoice is no longer pending")
	}
	if err := u.invoiceRepo.SetFromAddress(ctx, id, fromAddress); err != nil {
		return nil, err
	}
	invoice.FromAddress = null.StringFrom(fromAddress)
	return invoice, nil
}

func (u *InvoiceUsecase) receivingAddress(ctx context.Context) (string, null.Int64, error) {
	if u.wallet.ExtendedPublicKey == "" {
		if u.wallet.FallbackAddress == "" {
			return "", null.Int64{}, domainerrors.ErrNoWalletAddress
		}
		return u.wallet.FallbackAddress, null.Int64{}, nil
	}

	index, err := u.indexRepo.Reserve(ctx)
	if err != nil {
		return "", null.Int64{}, err
	}
	address, err := hdwallet.DeriveAddress(u.wallet.ExtendedPublicKey, uint32(index))
	if err != nil {
		return "", null.Int64{}, err
	}
	return address, null.Int64From(index), nil
}
