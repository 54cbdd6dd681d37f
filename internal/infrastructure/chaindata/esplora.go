package chaindata

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"pay-watch.backend/internal/domain/entities"
	"pay-watch.backend/pkg/utils"
)

// EsploraProvider speaks the Esplora REST API served by both
// blockstream.info and mempool.space.
type EsploraProvider struct {
	name    string
	baseURL string
	client  *http.Client
}

func NewEsploraProvider(name, baseURL string, client *http.Client) *EsploraProvider {
	return &EsploraProvider{name: name, baseURL: baseURL, client: client}
}

func (p *EsploraProvider) Name() string { return p.name }

type esploraTx struct {
	Txid   string `json:"txid"`
	Status struct {
		BlockTime int64 `json:"block_time"`
	} `json:"status"`
	Vout []struct {
		ScriptpubkeyAddress string `json:"scriptpubkey_address"`
		Value               int64  `json:"value"`
	} `json:"vout"`
	Vin []struct {
		Prevout struct {
			ScriptpubkeyAddress string `json:"scriptpubkey_address"`
		} `json:"prevout"`
	} `json:"vin"`
}

func (t *esploraTx) normalize() entities.ChainTransaction {
	tx := entities.ChainTransaction{Txid: t.Txid}
	if t.Status.BlockTime > 0 {
		tx.Timestamp = time.Unix(t.Status.BlockTime, 0)
	}
	for _, o := range t.Vout {
		tx.Outputs = append(tx.Outputs, entities.TxOutput{
			Address: o.ScriptpubkeyAddress,
			Value:   utils.SatsToBTC(o.Value),
		})
	}
	for _, i := range t.Vin {
		if i.Prevout.ScriptpubkeyAddress != "" {
			tx.InputAddresses = append(tx.InputAddresses, i.Prevout.ScriptpubkeyAddress)
		}
	}
	return tx
}

func (p *EsploraProvider) ListTransactions(ctx context.Context, address string) ([]entities.ChainTransaction, error) {
	var raw []esploraTx
	url := fmt.Sprintf("%s/address/%s/txs", p.baseURL, address)
	if err := fetchJSON(ctx, p.client, url, &raw); err != nil {
		return nil, err
	}

	txs := make([]entities.ChainTransaction, 0, len(raw))
	for i := range raw {
		txs = append(txs, raw[i].normalize())
	}
	return txs, nil
}

func (p *EsploraProvider) FetchTransaction(ctx context.Context, txid string) (*entities.ChainTransaction, error) {
	var raw esploraTx
	url := fmt.Sprintf("%s/tx/%s", p.baseURL, txid)
	if err := fetchJSON(ctx, p.client, url, &raw); err != nil {
		return nil, err
	}
	if raw.Txid == "" {
		return nil, fmt.Errorf("%s returned malformed transaction %s", p.name, txid)
	}
	tx := raw.normalize()
	return &tx, nil
}

func (p *EsploraProvider) TotalReceived(ctx context.Context, address string) (float64, error) {
	var raw struct {
		ChainStats struct {
			FundedTxoSum int64 `json:"funded_txo_sum"`
		} `json:"chain_stats"`
		MempoolStats struct {
			FundedTxoSum int64 `json:"funded_txo_sum"`
		} `json:"mempool_stats"`
	}
	url := fmt.Sprintf("%s/address/%s", p.baseURL, address)
	if err := fetchJSON(ctx, p.client, url, &raw); err != nil {
		return 0, err
	}
	return utils.SatsToBTC(raw.ChainStats.FundedTxoSum + raw.MempoolStats.FundedTxoSum), nil
}
