package chaindata

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"pay-watch.backend/internal/domain/entities"
	"pay-watch.backend/pkg/logger"
	"pay-watch.backend/pkg/metrics"
)

// Aggregator fans a query out to every configured provider concurrently and
// folds the answers. Listing and single-transaction lookups take the first
// well-formed response in provider order (providers are listed highest
// reliability first); balance takes the maximum across providers, which
// guards against a provider lagging in indexing. A failing provider only
// loses its own vote.
type Aggregator struct {
	listers  []TxLister
	fetchers []TxFetcher
	balances []BalanceQuerier
	timeout  time.Duration
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithProviders replaces the default provider set (used in tests)
func WithProviders(listers []TxLister, fetchers []TxFetcher, balances []BalanceQuerier) Option {
	return func(a *Aggregator) {
		a.listers = listers
		a.fetchers = fetchers
		a.balances = balances
	}
}

// NewAggregator builds an aggregator over the default public explorers.
func NewAggregator(timeout time.Duration, opts ...Option) *Aggregator {
	client := &http.Client{}
	blockstream := NewEsploraProvider("blockstream", "https://blockstream.info/api", client)
	mempoolSpace := NewEsploraProvider("mempool.space", "https://mempool.space/api", client)
	blockcypher := NewBlockCypherProvider("https://api.blockcypher.com/v1/btc/main", client)
	sochain := NewSoChainProvider("https://sochain.com/api/v2", client)

	a := &Aggregator{
		listers:  []TxLister{blockstream, mempoolSpace, blockcypher},
		fetchers: []TxFetcher{blockstream, mempoolSpace, blockcypher, sochain},
		balances: []BalanceQuerier{blockstream, mempoolSpace, blockcypher, sochain},
		timeout:  timeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddressTransactions returns the first provider's normalized transaction
// list; an empty list when every provider fails.
func (a *Aggregator) AddressTransactions(ctx context.Context, address string) []entities.ChainTransaction {
	results := make([][]entities.ChainTransaction, len(a.listers))
	errs := make([]error, len(a.listers))

	var g errgroup.Group
	for i, p := range a.listers {
		i, p := i, p
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			results[i], errs[i] = p.ListTransactions(callCtx, address)
			a.observe(ctx, p.Name(), errs[i])
			return nil
		})
	}
	_ = g.Wait() // provider goroutines never return errors

	for i := range results {
		if errs[i] == nil {
			return results[i]
		}
	}
	return []entities.ChainTransaction{}
}

// TransactionByID returns the first provider's normalized transaction, or
// nil when every provider fails or none knows the txid.
func (a *Aggregator) TransactionByID(ctx context.Context, txid string) *entities.ChainTransaction {
	results := make([]*entities.ChainTransaction, len(a.fetchers))
	errs := make([]error, len(a.fetchers))

	var g errgroup.Group
	for i, p := range a.fetchers {
		i, p := i, p
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			results[i], errs[i] = p.FetchTransaction(callCtx, txid)
			a.observe(ctx, p.Name(), errs[i])
			return nil
		})
	}
	_ = g.Wait()

	for i := range results {
		if errs[i] == nil && results[i] != nil {
			return results[i]
		}
	}
	return nil
}

// AddressBalance returns the maximum total-received candidate across
// providers, 0 when none responds.
func (a *Aggregator) AddressBalance(ctx context.Context, address string) float64 {
	results := make([]float64, len(a.balances))
	errs := make([]error, len(a.balances))

	var g errgroup.Group
	for i, p := range a.balances {
		i, p := i, p
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()
			results[i], errs[i] = p.TotalReceived(callCtx, address)
			a.observe(ctx, p.Name(), errs[i])
			return nil
		})
	}
	_ = g.Wait()

	var best float64
	for i := range results {
		if errs[i] == nil && results[i] > best {
			best = results[i]
		}
	}
	return best
}

func (a *Aggregator) observe(ctx context.Context, provider string, err error) {
	metrics.ObserveProviderCall(provider, err)
	if err != nil {
		logger.Debug(ctx, "chain data provider abstained",
			zap.String("provider", provider), zap.Error(err))
	}
}
