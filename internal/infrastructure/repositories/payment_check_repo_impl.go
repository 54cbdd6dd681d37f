package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"pay-watch.backend/internal/domain/entities"
	"pay-watch.backend/internal/infrastructure/models"
)

// PaymentCheckRepositoryImpl implements PaymentCheckRepository
type PaymentCheckRepositoryImpl struct {
	db *gorm.DB
}

func NewPaymentCheckRepository(db *gorm.DB) *PaymentCheckRepositoryImpl {
	return &PaymentCheckRepositoryImpl{db: db}
}

func (r *PaymentCheckRepositoryImpl) Upsert(ctx context.Context, check *entities.PaymentCheck) error {
	now := time.Now()
	m := &models.PaymentCheck{
		InvoiceID:  check.InvoiceID,
		NextCheck:  check.NextCheck,
		CheckStart: check.CheckStart,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "invoice_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"next_check", "check_start", "updated_at"}),
	}).Create(m).Error
}

func (r *PaymentCheckRepositoryImpl) Delete(ctx context.Context, invoiceID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Delete(&models.PaymentCheck{}).Error
}

func (r *PaymentCheckRepositoryImpl) List(ctx context.Context) ([]*entities.PaymentCheck, error) {
	var ms []models.PaymentCheck
	if err := r.db.WithContext(ctx).Order("next_check ASC").Find(&ms).Error; err != nil {
		return nil, err
	}

	var checks []*entities.PaymentCheck
	for _, m := range ms {
		checks = append(checks, &entities.PaymentCheck{
			InvoiceID:  m.InvoiceID,
			NextCheck:  m.NextCheck,
			CheckStart: m.CheckStart,
		})
	}
	return checks, nil
}
