package repositories

import (
	"context"

	"github.com/google/uuid"
	"pay-watch.backend/internal/domain/entities"
)

// PaymentCheckRepository interface
type PaymentCheckRepository interface {
	Upsert(ctx context.Context, check *entities.PaymentCheck) error
	Delete(ctx context.Context, invoiceID uuid.UUID) error
	List(ctx context.Context) ([]*entities.PaymentCheck, error)
}
