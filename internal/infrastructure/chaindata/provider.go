package chaindata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"pay-watch.backend/internal/domain/entities"
)

// TxLister lists transactions involving an address
type TxLister interface {
	Name() string
	ListTransactions(ctx context.Context, address string) ([]entities.ChainTransaction, error)
}

// TxFetcher fetches a single transaction by id
type TxFetcher interface {
	Name() string
	FetchTransaction(ctx context.Context, txid string) (*entities.ChainTransaction, error)
}

// BalanceQuerier reports the total value ever received by an address, in BTC
type BalanceQuerier interface {
	Name() string
	TotalReceived(ctx context.Context, address string) (float64, error)
}

// fetchJSON performs a GET and decodes the body into v. Every provider call
// goes through here; the context carries the per-call timeout.
func fetchJSON(ctx context.Context, client *http.Client, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
