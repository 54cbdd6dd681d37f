package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxidRepo_RecordAndIsUsed(t *testing.T) {
	db := newTestDB(t)
	createUsedTxidTable(t, db)
	repo := NewTxidRepository(db)
	ctx := context.Background()

	used, err := repo.IsUsed(ctx, "tx-1")
	require.NoError(t, err)
	assert.False(t, used)

	require.NoError(t, repo.Record(ctx, uuid.New(), "tx-1"))

	used, err = repo.IsUsed(ctx, "tx-1")
	require.NoError(t, err)
	assert.True(t, used)
}

func TestTxidRepo_RecordIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	createUsedTxidTable(t, db)
	repo := NewTxidRepository(db)
	ctx := context.Background()

	first := uuid.New()
	require.NoError(t, repo.Record(ctx, first, "tx-dup"))
	// A second record for the same txid, even for another invoice, is a no-op.
	assert.NoError(t, repo.Record(ctx, uuid.New(), "tx-dup"))

	var count int64
	require.NoError(t, db.Table("used_txids").Where("txid = ?", "tx-dup").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var invoiceID string
	require.NoError(t, db.Table("used_txids").Where("txid = ?", "tx-dup").Select("invoice_id").Scan(&invoiceID).Error)
	assert.Equal(t, first.String(), invoiceID)
}
