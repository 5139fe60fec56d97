package mempool_test

import (
	"errors"
	"testing"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/ardanlabs/blockminer/foundation/blockchain/mempool"
	"github.com/ardanlabs/blockminer/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/blockminer/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// funding constructs a transaction whose outputs carry the specified values.
// Its own input is not in the pool so it is never valid itself.
func funding(seed string, values ...uint64) database.Tx {
	tx := database.Tx{
		Version: database.TxVersion,
		Inputs: []database.TxIn{
			{PrevOut: database.OutPoint{TxID: signature.Sum([]byte(seed))}},
		},
	}

	for _, v := range values {
		tx.Outputs = append(tx.Outputs, database.TxOut{Value: v})
	}

	return tx
}

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

func mustID(t *testing.T, tx database.Tx) signature.Hash {
	id, err := tx.ID()
	if err != nil {
		t.Fatalf("Should be able to compute the id: %s", err)
	}
	return id
}

func mustSize(t *testing.T, tx database.Tx) int {
	size, err := tx.Size()
	if err != nil {
		t.Fatalf("Should be able to compute the size: %s", err)
	}
	return size
}

// =============================================================================

func TestCRUD(t *testing.T) {
	fund := funding("crud", 10, 20, 30)
	txs := []database.Tx{
		spend(t, fund, []uint32{0}, 9),
		spend(t, fund, []uint32{1}, 18),
		spend(t, fund, []uint32{2}, 27),
	}

	t.Log("Given the need to validate mempool api.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling a set of transaction.", testID)
		{
			mp, err := mempool.New()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct the mempool: %s", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to construct the mempool.", success, testID)

			for _, tx := range append([]database.Tx{fund}, txs...) {
				if _, err := mp.Upsert(tx); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to add new transaction: %s", failed, testID, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould be able to add new transactions.", success, testID)

			n, err := mp.Upsert(txs[0])
			if err != nil || n != 4 {
				t.Fatalf("\t%s\tTest %d:\tShould keep one copy of the same transaction, count %d.", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould keep one copy of the same transaction.", success, testID)

			out, exists := mp.ResolveOutput(database.OutPoint{TxID: mustID(t, fund), Index: 2})
			if !exists || out.Value != 30 {
				t.Fatalf("\t%s\tTest %d:\tShould be able to resolve an output.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to resolve an output.", success, testID)

			if _, exists := mp.ResolveOutput(database.OutPoint{TxID: mustID(t, fund), Index: 3}); exists {
				t.Fatalf("\t%s\tTest %d:\tShould not resolve an output index out of range.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not resolve an output index out of range.", success, testID)

			entries := mp.Entries()
			for i := 1; i < len(entries); i++ {
				if string(entries[i-1].ID[:]) >= string(entries[i].ID[:]) {
					t.Fatalf("\t%s\tTest %d:\tShould get back the entries in id order.", failed, testID)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould get back the entries in id order.", success, testID)

			for _, e := range entries {
				if e.ID == mustID(t, fund) {
					if !errors.Is(e.Err, database.ErrValueConservation) {
						t.Fatalf("\t%s\tTest %d:\tShould mark the funding transaction as invalid, got %v.", failed, testID, e.Err)
					}
					continue
				}
				if e.Err != nil || (e.Fee != 1 && e.Fee != 2 && e.Fee != 3) {
					t.Fatalf("\t%s\tTest %d:\tShould attach the fee to the entry, got %d %v.", failed, testID, e.Fee, e.Err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould attach the validation outcome to each entry.", success, testID)

			mp.Delete(mustID(t, txs[1]))
			if mp.Count() != 3 {
				t.Fatalf("\t%s\tTest %d:\tShould be able to remove a transaction.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to remove a transaction.", success, testID)

			mp.Truncate()
			if mp.Count() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould be able to truncate mempool.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to truncate mempool.", success, testID)
		}
	}
}

func TestBuild(t *testing.T) {
	fund := funding("build", 10)
	tx := spend(t, fund, []uint32{0}, 4)

	records := []database.Record{
		database.NewRecord("fund.json", fund),
		database.ParseRecord("bad.json", []byte(`{"version":1}`)),
		database.NewRecord("tx.json", tx),
		database.NewRecord("again.json", tx),
	}

	var events int
	ev := func(v string, args ...any) { events++ }

	mp, malformed, err := mempool.Build(selector.StrategyID, records, ev)
	if err != nil {
		t.Fatalf("Should be able to build the mempool: %s", err)
	}

	if mp.Count() != 2 {
		t.Fatalf("Should keep one copy per id, got %d", mp.Count())
	}

	if len(malformed) != 1 || malformed[0].Source != "bad.json" {
		t.Fatalf("Should return the malformed record, got %d", len(malformed))
	}

	if events == 0 {
		t.Fatalf("Should report the build through the event handler.")
	}

	if _, _, err := mempool.Build("tip", records, ev); !errors.Is(err, mempool.ErrUnknownStrategy) {
		t.Fatalf("Should reject an unknown strategy, got %v", err)
	}
}

func TestPickBest(t *testing.T) {
	fund := funding("pick", 100, 100, 100, 100)

	low := spend(t, fund, []uint32{0}, 99)  // fee 1
	mid := spend(t, fund, []uint32{1}, 90)  // fee 10
	high := spend(t, fund, []uint32{2}, 50) // fee 50
	dup := spend(t, fund, []uint32{2}, 60)  // fee 40, spends the same output as high
	bad := spend(t, fund, []uint32{3}, 200) // outputs exceed inputs

	size := mustSize(t, low)

	type table struct {
		name     string
		strategy string
		policy   mempool.Policy
		include  []database.Tx
		fees     uint64
		rejected map[signature.Hash]error
	}

	tt := []table{
		{
			name:     "fee order without limits",
			strategy: selector.StrategyFee,
			include:  []database.Tx{high, mid, low},
			fees:     61,
			rejected: map[signature.Hash]error{
				mustID(t, dup):  mempool.ErrDoubleSpend,
				mustID(t, bad):  database.ErrValueConservation,
				mustID(t, fund): database.ErrUnresolvedInput,
			},
		},
		{
			name:     "fee cap skips and continues",
			strategy: selector.StrategyFee,
			policy:   mempool.Policy{MaxFees: 52},
			include:  []database.Tx{high, low},
			fees:     51,
			rejected: map[signature.Hash]error{
				mustID(t, mid): mempool.ErrBlockFeeLimit,
			},
		},
		{
			name:     "fee cap reached exactly",
			strategy: selector.StrategyFee,
			policy:   mempool.Policy{MaxFees: 60},
			include:  []database.Tx{high, mid},
			fees:     60,
			rejected: map[signature.Hash]error{
				mustID(t, low): mempool.ErrBlockFeeLimit,
			},
		},
		{
			name:     "size limit reached exactly",
			strategy: selector.StrategyFee,
			policy:   mempool.Policy{MaxBlockSize: 2 * size},
			include:  []database.Tx{high, mid},
			fees:     60,
			rejected: map[signature.Hash]error{
				mustID(t, low): mempool.ErrBlockSizeLimit,
			},
		},
		{
			name:     "transactions per block",
			strategy: selector.StrategyFee,
			policy:   mempool.Policy{MaxTransactions: 1},
			include:  []database.Tx{high},
			fees:     50,
			rejected: map[signature.Hash]error{
				mustID(t, mid): mempool.ErrTransPerBlock,
				mustID(t, low): mempool.ErrTransPerBlock,
			},
		},
	}

	t.Log("Given the need to fill a block from the mempool.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling %s.", testID, tst.name)
			{
				f := func(t *testing.T) {
					mp, err := mempool.NewWithStrategy(tst.strategy)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to construct the mempool: %s", failed, testID, err)
					}

					for _, tx := range []database.Tx{fund, low, mid, high, dup, bad} {
						if _, err := mp.Upsert(tx); err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be able to add new transaction: %s", failed, testID, err)
						}
					}

					sel := mp.PickBest(tst.policy)

					if len(sel.Entries) != len(tst.include) {
						t.Fatalf("\t%s\tTest %d:\tShould select %d transactions, got %d.", failed, testID, len(tst.include), len(sel.Entries))
					}
					for i, tx := range tst.include {
						if sel.Entries[i].ID != mustID(t, tx) {
							t.Fatalf("\t%s\tTest %d:\tShould select the right transaction at %d.", failed, testID, i)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould select the right transactions.", success, testID)

					if sel.TotalFees != tst.fees {
						t.Fatalf("\t%s\tTest %d:\tShould collect %d in fees, got %d.", failed, testID, tst.fees, sel.TotalFees)
					}
					t.Logf("\t%s\tTest %d:\tShould collect %d in fees.", success, testID, tst.fees)

					if sel.TotalSize != len(sel.Entries)*size {
						t.Fatalf("\t%s\tTest %d:\tShould track the size of the block, got %d.", failed, testID, sel.TotalSize)
					}
					t.Logf("\t%s\tTest %d:\tShould track the size of the block.", success, testID)

					reasons := make(map[signature.Hash]error)
					for _, r := range sel.Rejected {
						reasons[r.ID] = r.Reason
					}
					for id, exp := range tst.rejected {
						if !errors.Is(reasons[id], exp) {
							t.Fatalf("\t%s\tTest %d:\tShould reject %s with %v, got %v.", failed, testID, id, exp, reasons[id])
						}
					}
					t.Logf("\t%s\tTest %d:\tShould record why transactions were rejected.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}
