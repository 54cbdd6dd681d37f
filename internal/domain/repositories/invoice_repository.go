package repositories

import (
	"context"

	"github.com/google/uuid"
	"pay-watch.backend/internal/domain/entities"
)

// InvoiceRepository interface
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entities.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Invoice, error)
	// GetPendingByAddress returns the open (unpaid, unexpired) invoice
	// receiving at the given address, if any.
	GetPendingByAddress(ctx context.Context, address string) (*entities.Invoice, error)
	MarkPaid(ctx context.Context, id uuid.UUID) error
	// AddPaidAmount increments the accumulated paid amount by delta.
	AddPaidAmount(ctx context.Context, id uuid.UUID, delta float64) error
	SetFromAddress(ctx context.Context, id uuid.UUID, address string) error
}

// TxidRepository records which chain transactions have already been
// credited to an invoice. Record is idempotent.
type TxidRepository interface {
	Record(ctx context.Context, invoiceID uuid.UUID, txid string) error
	IsUsed(ctx context.Context, txid string) (bool, error)
}

// AddressIndexRepository reserves derivation indices. Reserve is atomic and
// process-wide monotonic; two concurrent calls never observe the same index.
type AddressIndexRepository interface {
	Reserve(ctx context.Context) (int64, error)
}
