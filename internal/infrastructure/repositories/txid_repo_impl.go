package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"pay-watch.backend/internal/infrastructure/models"
)

// TxidRepositoryImpl implements TxidRepository
type TxidRepositoryImpl struct {
	db *gorm.DB
}

func NewTxidRepository(db *gorm.DB) *TxidRepositoryImpl {
	return &TxidRepositoryImpl{db: db}
}

// Record is idempotent: recording a txid that is already consumed is a
// no-op, so overlapping reconciliation passes cannot double-count.
func (r *TxidRepositoryImpl) Record(ctx context.Context, invoiceID uuid.UUID, txid string) error {
	m := &models.UsedTxid{Txid: txid, InvoiceID: invoiceID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "txid"}},
		DoNothing: true,
	}).Create(m).Error
}

func (r *TxidRepositoryImpl) IsUsed(ctx context.Context, txid string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UsedTxid{}).
		Where("txid = ?", txid).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
