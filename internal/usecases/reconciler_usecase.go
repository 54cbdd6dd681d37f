package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"pay-watch.backend/internal/domain/entities"
	domainerrors "pay-watch.backend/internal/domain/errors"
	"pay-watch.backend/internal/domain/repositories"
	"pay-watch.backend/pkg/logger"
	"pay-watch.backend/pkg/metrics"
)

// invoiceCreator is the slice of InvoiceUsecase the reconciler needs for
// partial-payment rollovers.
type invoiceCreator interface {
	CreateInvoice(ctx context.Context, userID string, amountUSD float64) (*entities.Invoice, error)
}

// PaymentCheckResult is the outcome of one reconciliation pass. Invoice is
// the updated invoice when paid, the replacement invoice after a partial
// rollover, or nil when nothing changed. UnexpectedSenders lists addresses
// that paid the invoice address but are not the expected sender.
type PaymentCheckResult struct {
	Invoice           *entities.Invoice
	UnexpectedSenders []string
}

// ReconcilerUsecase matches observed chain transactions against pending
// invoices and settles them.
type ReconcilerUsecase struct {
	invoiceRepo repositories.InvoiceRepository
	txidRepo    repositories.TxidRepository
	chain       ChainReader
	oracle      PriceOracle
	invoices    invoiceCreator
	tolerance   float64
}

// NewReconcilerUsecase creates a new reconciler usecase
func NewReconcilerUsecase(
	invoiceRepo repositories.InvoiceRepository,
	txidRepo repositories.TxidRepository,
	chain ChainReader,
	oracle PriceOracle,
	invoices invoiceCreator,
	tolerance float64,
) *ReconcilerUsecase {
	return &ReconcilerUsecase{
		invoiceRepo: invoiceRepo,
		txidRepo:    txidRepo,
		chain:       chain,
		oracle:      oracle,
		invoices:    invoices,
		tolerance:   tolerance,
	}
}

// CheckPayment sums transactions from the expected sender to the invoice
// address, ignoring anything timestamped before checkStart and any txid
// already credited. An invoice is settled once the sum reaches the
// tolerance threshold. A partial payment rolls the remainder, re-quoted at
// the current spot price, into a replacement invoice that inherits the
// expected sender.
func (u *ReconcilerUsecase) CheckPayment(ctx context.Context, invoice *entities.Invoice, checkStart time.Time) (*PaymentCheckResult, error) {
	metrics.ChecksRun.Inc()

	var received float64
	var creditedTxids []string
	unexpected := make(map[string]struct{})

	// Availability signal only; paid determination comes from the
	// per-transaction scan below.
	balance := u.chain.AddressBalance(ctx, invoice.Address)
	logger.Debug(ctx, "reconciling invoice",
		zap.String("invoice_id", invoice.ID.String()),
		zap.Float64("address_balance", balance))

	if invoice.FromAddress.Valid {
		txs := u.chain.AddressTransactions(ctx, invoice.Address)
		for _, tx := range txs {
			if !tx.Timestamp.IsZero() && tx.Timestamp.Before(checkStart) {
				continue
			}
			out, ok := tx.OutputTo(invoice.Address)
			if !ok {
				continue
			}
			if !tx.HasInputFrom(invoice.FromAddress.String) {
				for _, a := range tx.InputAddresses {
					unexpected[a] = struct{}{}
				}
				continue
			}
			if tx.Txid == "" {
				continue
			}
			used, err := u.txidRepo.IsUsed(ctx, tx.Txid)
			if err != nil {
				return nil, err
			}
			if used {
				continue
			}
			received += out.Value
			creditedTxids = append(creditedTxids, tx.Txid)
		}
	}

	if received > invoice.PaidAmount {
		if err := u.invoiceRepo.AddPaidAmount(ctx, invoice.ID, received-invoice.PaidAmount); err != nil {
			return nil, err
		}
	}

	result := &PaymentCheckResult{UnexpectedSenders: senderList(unexpected)}

	if received >= u.threshold(invoice) {
		if err := u.settle(ctx, invoice, creditedTxids); err != nil {
			return nil, err
		}
		updated, err := u.invoiceRepo.GetByID(ctx, invoice.ID)
		if err != nil {
			return nil, err
		}
		result.Invoice = updated
		return result, nil
	}

	remaining := invoice.Amount - received
	if remaining > 0 {
		replacement, err := u.rollover(ctx, invoice, remaining)
		if err != nil {
			return nil, err
		}
		result.Invoice = replacement
	}
	return result, nil
}

// VerifyPaymentByTxid settles an invoice from a single user-supplied txid.
// The transaction must pay a pending invoice address, match the expected
// sender when one is set, and carry at least the tolerance threshold in a
// single output.
func (u *ReconcilerUsecase) VerifyPaymentByTxid(ctx context.Context, txid string) (*entities.Invoice, error) {
	if txid == "" {
		return nil, domainerrors.BadRequest("txid is required")
	}
	used, err := u.txidRepo.IsUsed(ctx, txid)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, domainerrors.ErrTxAlreadyUsed
	}

	tx := u.chain.TransactionByID(ctx, txid)
	if tx == nil {
		return nil, domainerrors.ErrNotFound
	}

	invoice, out, err := u.matchPendingInvoice(ctx, tx)
	if err != nil {
		return nil, err
	}
	if invoice.FromAddress.Valid && !tx.HasInputFrom(invoice.FromAddress.String) {
		return nil, domainerrors.ErrSenderMismatch
	}

	if out.Value > invoice.PaidAmount {
		if err := u.invoiceRepo.AddPaidAmount(ctx, invoice.ID, out.Value-invoice.PaidAmount); err != nil {
			return nil, err
		}
	}

	if out.Value < u.threshold(invoice) {
		return nil, domainerrors.ErrInsufficientFunds
	}

	if !invoice.FromAddress.Valid && len(tx.InputAddresses) > 0 {
		if err := u.invoiceRepo.SetFromAddress(ctx, invoice.ID, tx.InputAddresses[0]); err != nil {
			return nil, err
		}
	}
	if err := u.settle(ctx, invoice, []string{tx.Txid}); err != nil {
		return nil, err
	}
	return u.invoiceRepo.GetByID(ctx, invoice.ID)
}

func (u *ReconcilerUsecase) matchPendingInvoice(ctx context.Context, tx *entities.ChainTransaction) (*entities.Invoice, entities.TxOutput, error) {
	for _, out := range tx.Outputs {
		invoice, err := u.invoiceRepo.GetPendingByAddress(ctx, out.Address)
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				continue
			}
			return nil, entities.TxOutput{}, err
		}
		return invoice, out, nil
	}
	return nil, entities.TxOutput{}, domainerrors.ErrNoMatchingInvoice
}

func (u *ReconcilerUsecase) settle(ctx context.Context, invoice *entities.Invoice, txids []string) error {
	if err := u.invoiceRepo.MarkPaid(ctx, invoice.ID); err != nil {
		return err
	}
	for _, txid := range txids {
		if err := u.txidRepo.Record(ctx, invoice.ID, txid); err != nil {
			return err
		}
	}
	metrics.InvoicesPaid.Inc()
	return nil
}

func (u *ReconcilerUsecase) rollover(ctx context.Context, invoice *entities.Invoice, remainingBTC float64) (*entities.Invoice, error) {
	price, err := u.oracle.SpotPriceUSD(ctx)
	if err != nil {
		return nil, err
	}
	replacement, err := u.invoices.CreateInvoice(ctx, invoice.UserID, remainingBTC*price)
	if err != nil {
		return nil, err
	}
	if invoice.FromAddress.Valid {
		if err := u.invoiceRepo.SetFromAddress(ctx, replacement.ID, invoice.FromAddress.String); err != nil {
			return nil, err
		}
		replacement.FromAddress = null.StringFrom(invoice.FromAddress.String)
	}
	metrics.InvoiceRollovers.Inc()
	return replacement, nil
}

func (u *ReconcilerUsecase) threshold(invoice *entities.Invoice) float64 {
	return invoice.Amount * (1 - u.tolerance)
}

func senderList(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	return out
}
