package usecases

import (
	"context"

	"pay-watch.backend/internal/domain/entities"
)

// PriceOracle quotes the current BTC/USD spot price.
type PriceOracle interface {
	SpotPriceUSD(ctx context.Context) (float64, error)
}

// ChainReader serves normalized chain data for an address or transaction.
// Implementations never surface provider errors; a failed lookup is an
// empty list, a nil transaction, or a zero balance.
type ChainReader interface {
	AddressTransactions(ctx context.Context, address string) []entities.ChainTransaction
	TransactionByID(ctx context.Context, txid string) *entities.ChainTransaction
	AddressBalance(ctx context.Context, address string) float64
}
