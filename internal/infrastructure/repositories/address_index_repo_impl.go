package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"pay-watch.backend/internal/infrastructure/models"
)

// AddressIndexRepositoryImpl implements AddressIndexRepository on a
// single-row counter table.
type AddressIndexRepositoryImpl struct {
	db *gorm.DB
}

func NewAddressIndexRepository(db *gorm.DB) *AddressIndexRepositoryImpl {
	return &AddressIndexRepositoryImpl{db: db}
}

const counterRowID = 1

var errIndexContended = errors.New("address index counter contended")

// Reserve returns the next free derivation index and advances the counter.
// The increment is guarded by a compare-and-swap on the previous value so
// two concurrent invoice creations can never be handed the same index.
func (r *AddressIndexRepositoryImpl) Reserve(ctx context.Context) (int64, error) {
	for {
		reserved, err := r.tryReserve(ctx)
		if errors.Is(err, errIndexContended) {
			continue
		}
		return reserved, err
	}
}

func (r *AddressIndexRepositoryImpl) tryReserve(ctx context.Context) (int64, error) {
	var reserved int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.AddressIndex
		err := tx.Where("id = ?", counterRowID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = models.AddressIndex{ID: counterRowID, NextIndex: 0, UpdatedAt: time.Now()}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		res := tx.Model(&models.AddressIndex{}).
			Where("id = ? AND next_index = ?", counterRowID, row.NextIndex).
			Updates(map[string]interface{}{
				"next_index": row.NextIndex + 1,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errIndexContended
		}

		reserved = row.NextIndex
		return nil
	})
	return reserved, err
}
