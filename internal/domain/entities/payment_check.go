package entities

import (
	"time"

	"github.com/google/uuid"
)

// PaymentCheck is the persisted scheduling row for one open invoice.
// CheckStart is the floor below which chain transactions are ignored; it is
// fixed at first scheduling and carried across partial-payment rollovers.
type PaymentCheck struct {
	InvoiceID  uuid.UUID `json:"invoiceId"`
	NextCheck  time.Time `json:"nextCheck"`
	CheckStart time.Time `json:"checkStart"`
}
