package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// InvoiceStatus represents the derived status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "pending"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusExpired InvoiceStatus = "expired"
)

// Invoice is a request for a specific BTC amount to a specific receiving
// address. Amounts are BTC-denominated floats with 8 decimal places.
type Invoice struct {
	ID              uuid.UUID   `json:"id"`
	UserID          string      `json:"userId"`
	Amount          float64     `json:"amount"`
	Address         string      `json:"address"`
	DerivationIndex null.Int64  `json:"derivationIndex,omitempty"` // null when the static fallback address was used
	FromAddress     null.String `json:"fromAddress,omitempty"`     // expected sender, unset until first observed
	PaidAmount      float64     `json:"paidAmount"`
	PaidAt          null.Time   `json:"paidAt,omitempty"`
	ExpiresAt       time.Time   `json:"expiresAt"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// Status derives the invoice status. Paid wins over expired: a payment
// observed before expiry stays paid.
func (i *Invoice) Status() InvoiceStatus {
	if i.PaidAt.Valid {
		return InvoiceStatusPaid
	}
	if time.Now().After(i.ExpiresAt) {
		return InvoiceStatusExpired
	}
	return InvoiceStatusPending
}

// Terminal reports whether the invoice can no longer change state
func (i *Invoice) Terminal() bool {
	return i.Status() != InvoiceStatusPending
}
