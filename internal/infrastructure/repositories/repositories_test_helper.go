package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createInvoiceTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE invoices (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		amount REAL NOT NULL,
		address TEXT NOT NULL,
		derivation_index INTEGER,
		from_address TEXT,
		paid_amount REAL NOT NULL DEFAULT 0,
		paid_at DATETIME,
		expires_at DATETIME NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createPaymentCheckTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE payment_checks (
		invoice_id TEXT PRIMARY KEY,
		next_check DATETIME NOT NULL,
		check_start DATETIME NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createUsedTxidTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE used_txids (
		txid TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL,
		created_at DATETIME
	);`)
}

func createAddressIndexTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE address_index (
		id INTEGER PRIMARY KEY,
		next_index INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME
	);`)
}

func createRewardTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE referrals (
		user_id TEXT PRIMARY KEY,
		inviter_id TEXT NOT NULL,
		paid_rewarded BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE premium_accounts (
		user_id TEXT PRIMARY KEY,
		expires_at DATETIME NOT NULL,
		updated_at DATETIME
	);`)
}
