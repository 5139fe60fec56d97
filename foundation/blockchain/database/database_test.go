package database_test

import (
	"testing"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/ardanlabs/blockminer/foundation/blockchain/signature"
	"github.com/davecgh/go-spew/spew"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// index is a resolver over a set of transactions known to a test.
type index map[signature.Hash]database.Tx

func newIndex(t *testing.T, txs ...database.Tx) index {
	idx := make(index)
	for _, tx := range txs {
		id, err := tx.ID()
		if err != nil {
			t.Fatalf("Should be able to compute the id: %s", err)
		}
		idx[id] = tx
	}
	return idx
}

func (idx index) ResolveOutput(op database.OutPoint) (database.TxOut, bool) {
	tx, exists := idx[op.TxID]
	if !exists || int(op.Index) >= len(tx.Outputs) {
		return database.TxOut{}, false
	}
	return tx.Outputs[op.Index], true
}

// funding constructs a transaction whose outputs carry the specified values.
func funding(seed string, values ...uint64) database.Tx {
	tx := database.Tx{
		Version: database.TxVersion,
		Inputs: []database.TxIn{
			{PrevOut: database.OutPoint{TxID: signature.Sum([]byte(seed))}},
		},
	}

	for _, v := range values {
		tx.Outputs = append(tx.Outputs, database.TxOut{Value: v, Script: database.Script(`"` + seed + `"`)})
	}

	return tx
}

// spend constructs a transaction spending the specified outputs of a
// funding transaction.
func spend(t *testing.T, from database.Tx, indexes []uint32, values ...uint64) database.Tx {
	id, err := from.ID()
	if err != nil {
		t.Fatalf("Should be able to compute the id: %s", err)
	}

	tx := database.Tx{Version: database.TxVersion}
	for _, i := range indexes {
		tx.Inputs = append(tx.Inputs, database.TxIn{PrevOut: database.OutPoint{TxID: id, Index: i}})
	}
	for _, v := range values {
		tx.Outputs = append(tx.Outputs, database.TxOut{Value: v, Script: database.Script(`"payee"`)})
	}

	return tx
}

func dump(t *testing.T, v any) {
	t.Log(spew.Sdump(v))
}
