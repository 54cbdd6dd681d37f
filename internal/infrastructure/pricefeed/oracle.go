package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	domainerrors "pay-watch.backend/internal/domain/errors"
	"pay-watch.backend/pkg/logger"
	"pay-watch.backend/pkg/metrics"
	"pay-watch.backend/pkg/redis"
)

// Endpoint is one spot price source with its own parse rule
type Endpoint struct {
	Name  string
	URL   string
	Parse func(body []byte) (float64, error)
}

// Oracle fetches the BTC/USD spot price from several independent endpoints
// in parallel and averages whatever parses. A single endpoint is never
// trusted alone and a single failure never matters.
type Oracle struct {
	endpoints []Endpoint
	client    *http.Client
	timeout   time.Duration
	cacheTTL  time.Duration
}

const cacheKey = "pricefeed:btc_usd"

// Option configures an Oracle
type Option func(*Oracle)

// WithEndpoints replaces the default endpoint set (used in tests)
func WithEndpoints(endpoints []Endpoint) Option {
	return func(o *Oracle) { o.endpoints = endpoints }
}

// WithCacheTTL sets the redis cache TTL; zero disables caching
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *Oracle) { o.cacheTTL = ttl }
}

// NewOracle builds an oracle over the default public price endpoints.
func NewOracle(timeout time.Duration, opts ...Option) *Oracle {
	o := &Oracle{
		endpoints: defaultEndpoints(),
		client:    &http.Client{},
		timeout:   timeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SpotPriceUSD returns the mean BTC/USD price over all endpoints that
// answered with a usable number. Endpoints that time out, error, or return
// something non-numeric are dropped silently. ErrNoPriceAvailable is
// returned only when every endpoint failed.
func (o *Oracle) SpotPriceUSD(ctx context.Context) (float64, error) {
	if price, ok := o.cachedPrice(ctx); ok {
		return price, nil
	}

	prices := make([]float64, len(o.endpoints))
	valid := make([]bool, len(o.endpoints))

	var g errgroup.Group
	for i, ep := range o.endpoints {
		i, ep := i, ep
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, o.timeout)
			defer cancel()

			price, err := o.fetchOne(callCtx, ep)
			metrics.ObserveProviderCall(ep.Name, err)
			if err != nil {
				logger.Debug(ctx, "price endpoint abstained",
					zap.String("endpoint", ep.Name), zap.Error(err))
				return nil
			}
			prices[i] = price
			valid[i] = true
			return nil
		})
	}
	_ = g.Wait() // endpoint goroutines never return errors

	var sum float64
	var count int
	for i := range prices {
		if valid[i] {
			sum += prices[i]
			count++
		}
	}
	if count == 0 {
		return 0, domainerrors.ErrNoPriceAvailable
	}

	price := sum / float64(count)
	o.storePrice(ctx, price)
	return price, nil
}

func (o *Oracle) fetchOne(ctx context.Context, ep Endpoint) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.URL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, ep.Name)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, err
	}
	price, err := ep.Parse(body)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, fmt.Errorf("non-positive price from %s", ep.Name)
	}
	return price, nil
}

func (o *Oracle) cachedPrice(ctx context.Context) (float64, bool) {
	if o.cacheTTL <= 0 || !redis.Available() {
		return 0, false
	}
	raw, err := redis.Get(ctx, cacheKey)
	if err != nil {
		return 0, false
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || price <= 0 {
		return 0, false
	}
	return price, true
}

func (o *Oracle) storePrice(ctx context.Context, price float64) {
	if o.cacheTTL <= 0 || !redis.Available() {
		return
	}
	if err := redis.Set(ctx, cacheKey, strconv.FormatFloat(price, 'f', -1, 64), o.cacheTTL); err != nil {
		logger.Warn(ctx, "failed to cache spot price", zap.Error(err))
	}
}

// ParsePath walks a decoded JSON document by object keys and array indices
// and returns the numeric leaf, accepting both JSON numbers and numeric
// strings since exchanges disagree on which to serve.
func ParsePath(body []byte, path ...interface{}) (float64, error) {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return 0, err
	}
	cur := doc
	for _, step := range path {
		switch key := step.(type) {
		case string:
			obj, ok := cur.(map[string]interface{})
			if !ok {
				return 0, fmt.Errorf("expected object at %v", step)
			}
			cur = obj[key]
		case int:
			arr, ok := cur.([]interface{})
			if !ok || key >= len(arr) {
				return 0, fmt.Errorf("expected array at %v", step)
			}
			cur = arr[key]
		}
	}
	switch v := cur.(type) {
	case float64:
		return v, nil
	case string:
		return strconv.ParseFloat(v, 64)
	default:
		return 0, fmt.Errorf("value at path is not numeric")
	}
}

func defaultEndpoints() []Endpoint {
	return []Endpoint{
		{
			Name: "coingecko",
			URL:  "https://api.coingecko.com/api/v3/simple/price?ids=bitcoin&vs_currencies=usd",
			Parse: func(b []byte) (float64, error) {
				return ParsePath(b, "bitcoin", "usd")
			},
		},
		{
			Name: "coinbase",
			URL:  "https://api.coinbase.com/v2/prices/BTC-USD/spot",
			Parse: func(b []byte) (float64, error) {
				return ParsePath(b, "data", "amount")
			},
		},
		{
			Name: "binance",
			URL:  "https://api.binance.com/api/v3/ticker/price?symbol=BTCUSDT",
			Parse: func(b []byte) (float64, error) {
				return ParsePath(b, "price")
			},
		},
		{
			Name: "bitstamp",
			URL:  "https://www.bitstamp.net/api/v2/ticker/btcusd/",
			Parse: func(b []byte) (float64, error) {
				return ParsePath(b, "last")
			},
		},
		{
			Name: "kraken",
			URL:  "https://api.kraken.com/0/public/Ticker?pair=XBTUSD",
			Parse: func(b []byte) (float64, error) {
				return ParsePath(b, "result", "XXBTZUSD", "c", 0)
			},
		},
		{
			Name: "okx",
			URL:  "https://www.okx.com/api/v5/market/ticker?instId=BTC-USDT",
			Parse: func(b []byte) (float64, error) {
				return ParsePath(b, "data", 0, "last")
			},
		},
		{
			Name: "cryptocompare",
			URL:  "https://min-api.cryptocompare.com/data/price?fsym=BTC&tsyms=USD",
			Parse: func(b []byte) (float64, error) {
				return ParsePath(b, "USD")
			},
		},
		{
			Name: "coinpaprika",
			URL:  "https://api.coinpaprika.com/v1/tickers/btc-bitcoin",
			Parse: func(b []byte) (float64, error) {
				return ParsePath(b, "quotes", "USD", "price")
			},
		},
		{
			Name: "coincap",
			URL:  "https://api.coincap.io/v2/assets/bitcoin",
			Parse: func(b []byte) (float64, error) {
				return ParsePath(b, "data", "priceUsd")
			},
		},
	}
}
