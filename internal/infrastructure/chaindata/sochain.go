package chaindata

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"pay-watch.backend/internal/domain/entities"
)

// SoChainProvider adapts the SoChain v2 API. SoChain has no address
// transaction listing cheap enough to poll, so it only backs the
// transaction-by-id and balance operations.
type SoChainProvider struct {
	baseURL string
	client  *http.Client
}

func NewSoChainProvider(baseURL string, client *http.Client) *SoChainProvider {
	return &SoChainProvider{baseURL: baseURL, client: client}
}

func (p *SoChainProvider) Name() string { return "sochain" }

func (p *SoChainProvider) FetchTransaction(ctx context.Context, txid string) (*entities.ChainTransaction, error) {
	var raw struct {
		Status string `json:"status"`
		Data   struct {
			Txid    string `json:"txid"`
			Time    int64  `json:"time"`
			Outputs []struct {
				Address string `json:"address"`
				Value   string `json:"value"`
			} `json:"outputs"`
			Inputs []struct {
				Address string `json:"address"`
			} `json:"inputs"`
		} `json:"data"`
	}
	url := fmt.Sprintf("%s/get_tx/BTC/%s", p.baseURL, txid)
	if err := fetchJSON(ctx, p.client, url, &raw); err != nil {
		return nil, err
	}
	if raw.Status != "success" || raw.Data.Txid == "" {
		return nil, fmt.Errorf("sochain returned no transaction for %s", txid)
	}

	tx := entities.ChainTransaction{Txid: raw.Data.Txid}
	if raw.Data.Time > 0 {
		tx.Timestamp = time.Unix(raw.Data.Time, 0)
	}
	for _, o := range raw.Data.Outputs {
		value, err := strconv.ParseFloat(o.Value, 64)
		if err != nil {
			continue
		}
		tx.Outputs = append(tx.Outputs, entities.TxOutput{Address: o.Address, Value: value})
	}
	for _, i := range raw.Data.Inputs {
		if i.Address != "" {
			tx.InputAddresses = append(tx.InputAddresses, i.Address)
		}
	}
	return &tx, nil
}

func (p *SoChainProvider) TotalReceived(ctx context.Context, address string) (float64, error) {
	var raw struct {
		Status string `json:"status"`
		Data   struct {
			ConfirmedBalance string `json:"confirmed_balance"`
		} `json:"data"`
	}
	url := fmt.Sprintf("%s/get_address_balance/BTC/%s", p.baseURL, address)
	if err := fetchJSON(ctx, p.client, url, &raw); err != nil {
		return 0, err
	}
	if raw.Status != "success" {
		return 0, fmt.Errorf("sochain returned no balance for %s", address)
	}
	return strconv.ParseFloat(raw.Data.ConfirmedBalance, 64)
}
