package chaindata_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pay-watch.backend/internal/infrastructure/chaindata"
)

func TestBlockCypherNormalization(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/addrs/bc1qus/full", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"txs":[{
			"hash": "bc-tx",
			"confirmed": "2023-11-14T22:15:00Z",
			"outputs": [
				{"addresses": ["bc1qus"], "value": 95000},
				{"addresses": [], "value": 1}
			],
			"inputs": [{"addresses": ["bc1qsender"]}]
		}]}`))
	})
	mux.HandleFunc("/addrs/bc1qus/balance", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total_received": 95000}`))
	})
	mux.HandleFunc("/txs/bc-tx", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"hash": "bc-tx",
			"received": "2023-11-14T22:10:00Z",
			"outputs": [{"addresses": ["bc1qus"], "value": 95000}],
			"inputs": [{"addresses": ["bc1qsender"]}]
		}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := chaindata.NewBlockCypherProvider(srv.URL, srv.Client())
	ctx := context.Background()

	txs, err := p.ListTransactions(ctx, "bc1qus")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "bc-tx", txs[0].Txid)
	assert.Equal(t, time.Date(2023, 11, 14, 22, 15, 0, 0, time.UTC), txs[0].Timestamp)
	// Outputs without addresses are dropped during normalization.
	require.Len(t, txs[0].Outputs, 1)
	assert.InDelta(t, 0.00095, txs[0].Outputs[0].Value, 1e-12)
	assert.Equal(t, []string{"bc1qsender"}, txs[0].InputAddresses)

	tx, err := p.FetchTransaction(ctx, "bc-tx")
	require.NoError(t, err)
	// Unconfirmed transactions fall back to the received timestamp.
	assert.Equal(t, time.Date(2023, 11, 14, 22, 10, 0, 0, time.UTC), tx.Timestamp)

	balance, err := p.TotalReceived(ctx, "bc1qus")
	require.NoError(t, err)
	assert.InDelta(t, 0.00095, balance, 1e-12)
}

func TestSoChainNormalization(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/get_tx/BTC/so-tx", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","data":{
			"txid": "so-tx",
			"time": 1700000100,
			"outputs": [
				{"address": "bc1qus", "value": "0.00095000"},
				{"address": "bc1qchange", "value": "not-a-number"}
			],
			"inputs": [{"address": "bc1qsender"}]
		}}`))
	})
	mux.HandleFunc("/get_address_balance/BTC/bc1qus", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","data":{"confirmed_balance":"0.00100000"}}`))
	})
	mux.HandleFunc("/get_tx/BTC/unknown", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"fail","data":{}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := chaindata.NewSoChainProvider(srv.URL, srv.Client())
	ctx := context.Background()

	tx, err := p.FetchTransaction(ctx, "so-tx")
	require.NoError(t, err)
	assert.Equal(t, "so-tx", tx.Txid)
	assert.Equal(t, time.Unix(1700000100, 0).Unix(), tx.Timestamp.Unix())
	// The unparseable output is dropped, the valid one survives.
	require.Len(t, tx.Outputs, 1)
	assert.InDelta(t, 0.00095, tx.Outputs[0].Value, 1e-12)
	assert.Equal(t, []string{"bc1qsender"}, tx.InputAddresses)

	_, err = p.FetchTransaction(ctx, "unknown")
	assert.Error(t, err)

	balance, err := p.TotalReceived(ctx, "bc1qus")
	require.NoError(t, err)
	assert.InDelta(t, 0.001, balance, 1e-12)
}
