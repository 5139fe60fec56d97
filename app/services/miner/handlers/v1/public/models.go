package public

import (
	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/ardanlabs/blockminer/foundation/blockchain/signature"
)

type tx struct {
	ID     signature.Hash `json:"txid"`
	Fee    uint64         `json:"fee"`
	Size   int            `json:"size"`
	Valid  bool           `json:"valid"`
	Reason string         `json:"reason,omitempty"`
	Tx     database.Tx    `json:"tx"`
}

func toTx(e database.MempoolEntry) tx {
	t := tx{
		ID:    e.ID,
		Fee:   e.Fee,
		Size:  e.Size,
		Valid: e.Err == nil,
		Tx:    e.Tx,
	}

	if e.Err != nil {
		t.Reason = e.Err.Error()
	}

	return t
}

type malformed struct {
	Source string `json:"source"`
	Field  string `json:"field,omitempty"`
	Error  string `json:"error"`
}

type block struct {
	database.BlockData
	Beneficiary string `json:"beneficiary"`
}
