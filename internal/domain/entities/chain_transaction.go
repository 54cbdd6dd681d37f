package entities

import "time"

// TxOutput is a single output of a chain transaction, value in BTC
type TxOutput struct {
	Address string  `json:"address"`
	Value   float64 `json:"value"`
}

// ChainTransaction is the normalized view of a bitcoin transaction as
// reported by a block explorer. Provider adapters map their wire formats
// into this shape at the aggregator boundary; nothing downstream sees raw
// provider JSON.
type ChainTransaction struct {
	Txid           string     `json:"txid"`
	Timestamp      time.Time  `json:"timestamp"`
	Outputs        []TxOutput `json:"outputs"`
	InputAddresses []string   `json:"inputAddresses"`
}

// OutputTo returns the first output paying the given address, if any
func (t *ChainTransaction) OutputTo(address string) (TxOutput, bool) {
	for _, o := range t.Outputs {
		if o.Address == address {
			return o, true
		}
	}
	return TxOutput{}, false
}

// HasInputFrom reports whether any input spends from the given address
func (t *ChainTransaction) HasInputFrom(address string) bool {
	for _, a := range t.InputAddresses {
		if a == address {
			return true
		}
	}
	return false
}
