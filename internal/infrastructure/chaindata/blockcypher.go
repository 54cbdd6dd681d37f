package chaindata

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"pay-watch.backend/internal/domain/entities"
	"pay-watch.backend/pkg/utils"
)

// BlockCypherProvider adapts the BlockCypher v1 BTC API.
type BlockCypherProvider struct {
	baseURL string
	client  *http.Client
}

func NewBlockCypherProvider(baseURL string, client *http.Client) *BlockCypherProvider {
	return &BlockCypherProvider{baseURL: baseURL, client: client}
}

func (p *BlockCypherProvider) Name() string { return "blockcypher" }

type blockcypherTx struct {
	Hash      string    `json:"hash"`
	Confirmed time.Time `json:"confirmed"`
	Received  time.Time `json:"received"`
	Outputs   []struct {
		Addresses []string `json:"addresses"`
		Value     int64    `json:"value"`
	} `json:"outputs"`
	Inputs []struct {
		Addresses []string `json:"addresses"`
	} `json:"inputs"`
}

func (t *blockcypherTx) normalize() entities.ChainTransaction {
	tx := entities.ChainTransaction{Txid: t.Hash}
	switch {
	case !t.Confirmed.IsZero():
		tx.Timestamp = t.Confirmed
	case !t.Received.IsZero():
		tx.Timestamp = t.Received
	}
	for _, o := range t.Outputs {
		if len(o.Addresses) == 0 {
			continue
		}
		tx.Outputs = append(tx.Outputs, entities.TxOutput{
			Address: o.Addresses[0],
			Value:   utils.SatsToBTC(o.Value),
		})
	}
	for _, i := range t.Inputs {
		if len(i.Addresses) > 0 {
			tx.InputAddresses = append(tx.InputAddresses, i.Addresses[0])
		}
	}
	return tx
}

func (p *BlockCypherProvider) ListTransactions(ctx context.Context, address string) ([]entities.ChainTransaction, error) {
	var raw struct {
		Txs []blockcypherTx `json:"txs"`
	}
	url := fmt.Sprintf("%s/addrs/%s/full?limit=50", p.baseURL, address)
	if err := fetchJSON(ctx, p.client, url, &raw); err != nil {
		return nil, err
	}

	txs := make([]entities.ChainTransaction, 0, len(raw.Txs))
	for i := range raw.Txs {
		txs = append(txs, raw.Txs[i].normalize())
	}
	return txs, nil
}

func (p *BlockCypherProvider) FetchTransaction(ctx context.Context, txid string) (*entities.ChainTransaction, error) {
	var raw blockcypherTx
	url := fmt.Sprintf("%s/txs/%s", p.baseURL, txid)
	if err := fetchJSON(ctx, p.client, url, &raw); err != nil {
		return nil, err
	}
	if raw.Hash == "" {
		return nil, fmt.Errorf("blockcypher returned malformed transaction %s", txid)
	}
	tx := raw.normalize()
	return &tx, nil
}

func (p *BlockCypherProvider) TotalReceived(ctx context.Context, address string) (float64, error) {
	var raw struct {
		TotalReceived int64 `json:"total_received"`
	}
	url := fmt.Sprintf("%s/addrs/%s/balance", p.baseURL, address)
	if err := fetchJSON(ctx, p.client, url, &raw); err != nil {
		return 0, err
	}
	return utils.SatsToBTC(raw.TotalReceived), nil
}
