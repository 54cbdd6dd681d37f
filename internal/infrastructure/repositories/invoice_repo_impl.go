package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"pay-watch.backend/internal/domain/entities"
	domainerrors "pay-watch.backend/internal/domain/errors"
	"pay-watch.backend/internal/infrastructure/models"
)

// InvoiceRepositoryImpl implements InvoiceRepository
type InvoiceRepositoryImpl struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepositoryImpl {
	return &InvoiceRepositoryImpl{db: db}
}

func (r *InvoiceRepositoryImpl) Create(ctx context.Context, inv *entities.Invoice) error {
	now := time.Now()
	m := &models.Invoice{
		ID:              inv.ID,
		UserID:          inv.UserID,
		Amount:          inv.Amount,
		Address:         inv.Address,
		DerivationIndex: inv.DerivationIndex,
		FromAddress:     inv.FromAddress,
		PaidAmount:      inv.PaidAmount,
		PaidAt:          inv.PaidAt,
		ExpiresAt:       inv.ExpiresAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	inv.CreatedAt = m.CreatedAt
	inv.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *InvoiceRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Invoice, error) {
	var m models.Invoice
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *InvoiceRepositoryImpl) GetPendingByAddress(ctx context.Context, address string) (*entities.Invoice, error) {
	var m models.Invoice
	err := r.db.WithContext(ctx).
		Where("address = ? AND paid_at IS NULL AND expires_at > ?", address, time.Now()).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *InvoiceRepositoryImpl) MarkPaid(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ? AND paid_at IS NULL", id).
		Updates(map[string]interface{}{
			"paid_at":    now,
			"updated_at": now,
		}).Error
}

func (r *InvoiceRepositoryImpl) AddPaidAmount(ctx context.Context, id uuid.UUID, delta float64) error {
	return r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"paid_amount": gorm.Expr("paid_amount + ?", delta),
			"updated_at":  time.Now(),
		}).Error
}

func (r *InvoiceRepositoryImpl) SetFromAddress(ctx context.Context, id uuid.UUID, address string) error {
	return r.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"from_address": address,
			"updated_at":   time.Now(),
		}).Error
}

func (r *InvoiceRepositoryImpl) toEntity(m *models.Invoice) *entities.Invoice {
	return &entities.Invoice{
		ID:              m.ID,
		UserID:          m.UserID,
		Amount:          m.Amount,
		Address:         m.Address,
		DerivationIndex: m.DerivationIndex,
		FromAddress:     m.FromAddress,
		PaidAmount:      m.PaidAmount,
		PaidAt:          m.PaidAt,
		ExpiresAt:       m.ExpiresAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
