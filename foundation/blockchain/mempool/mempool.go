// Package mempool maintains the set of candidate transactions for a block.
package mempool

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/ardanlabs/blockminer/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/blockminer/foundation/blockchain/signature"
)

// Set of reasons a valid transaction is left out of a block.
var (
	ErrDoubleSpend     = errors.New("outpoint already spent in this block")
	ErrBlockSizeLimit  = errors.New("block size limit reached")
	ErrBlockFeeLimit   = errors.New("block fee limit reached")
	ErrTransPerBlock   = errors.New("transactions per block limit reached")
	ErrUnknownStrategy = errors.New("unknown select strategy")
)

// Mempool represents a cache of transactions keyed by their id. Ids are
// content derived so adding the same transaction twice keeps one copy.
type Mempool struct {
	pool     map[signature.Hash]database.Tx
	mu       sync.RWMutex
	selectFn selector.Func
}

// New constructs a new mempool using the default sort strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategyID)
}

// NewWithStrategy constructs a new mempool with specified sort strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownStrategy, err)
	}

	mp := Mempool{
		pool:     make(map[signature.Hash]database.Tx),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Build constructs a mempool from parsed records. Malformed records are
// reported through the event handler and returned, they never stop the
// build. A later record with the same id replaces an earlier one.
func Build(strategy string, records []database.Record, evHandler func(v string, args ...any)) (*Mempool, []database.Record, error) {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	mp, err := NewWithStrategy(strategy)
	if err != nil {
		return nil, nil, err
	}

	var malformed []database.Record
	for _, rec := range records {
		if rec.IsMalformed() {
			evHandler("mempool: Build: skip: %s", rec.Malformed)
			malformed = append(malformed, rec)
			continue
		}

		if _, err := mp.Upsert(rec.Tx); err != nil {
			return nil, nil, fmt.Errorf("record %s: %w", rec.Source, err)
		}
	}

	evHandler("mempool: Build: records[%d]: malformed[%d]: unique[%d]", len(records), len(malformed), mp.Count())

	return mp, malformed, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Upsert adds or replaces a transaction from the mempool.
func (mp *Mempool) Upsert(tx database.Tx) (int, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	id, err := tx.ID()
	if err != nil {
		return 0, err
	}

	mp.pool[id] = tx

	return len(mp.pool), nil
}

// Delete removed a transaction from the mempool.
func (mp *Mempool) Delete(id signature.Hash) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	delete(mp.pool, id)
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[signature.Hash]database.Tx)
}

// ResolveOutput implements the database.Resolver interface so inputs can be
// resolved against the transactions in the pool.
func (mp *Mempool) ResolveOutput(op database.OutPoint) (database.TxOut, bool) {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.resolveOutput(op)
}

// Entries returns every transaction in the pool validated against the pool,
// with its fee and encoded size. Entries are returned in id order.
func (mp *Mempool) Entries() []database.MempoolEntry {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.entries()
}

// =============================================================================

// Policy represents the limits applied while filling a block. Limits are
// inclusive: a block whose total size or fees equals the limit is accepted,
// one unit more is not. A zero value for a limit means there is no limit.
// The coinbase does not count against any of these limits.
type Policy struct {
	MaxBlockSize    int
	MaxFees         uint64
	MaxTransactions int
}

// Rejection records why a transaction was left out of a block.
type Rejection struct {
	ID     signature.Hash
	Reason error
}

// Selection is the ordered set of transactions chosen for a block.
type Selection struct {
	Entries   []database.MempoolEntry
	TotalFees uint64
	TotalSize int
	Rejected  []Rejection
}

// IDs returns the ids of the selected transactions in block order.
func (s Selection) IDs() []signature.Hash {
	ids := make([]signature.Hash, len(s.Entries))
	for i, e := range s.Entries {
		ids[i] = e.ID
	}
	return ids
}

// Txs returns the selected transactions in block order.
func (s Selection) Txs() []database.Tx {
	txs := make([]database.Tx, len(s.Entries))
	for i, e := range s.Entries {
		txs[i] = e.Tx
	}
	return txs
}

// PickBest uses the configured sort strategy to return the next set of
// transactions for the next block. Candidates are taken greedily in strategy
// order. A candidate that is invalid, spends an output already spent by a
// selected transaction or would break a limit is rejected and the scan
// continues with the next candidate.
func (mp *Mempool) PickBest(policy Policy) Selection {
	mp.mu.RLock()
	entries := mp.entries()
	mp.mu.RUnlock()

	var sel Selection
	reject := func(e database.MempoolEntry, reason error) {
		sel.Rejected = append(sel.Rejected, Rejection{ID: e.ID, Reason: reason})
	}

	spent := make(map[database.OutPoint]signature.Hash)

	for _, e := range mp.selectFn(entries) {
		if e.Err != nil {
			reject(e, e.Err)
			continue
		}

		if op, by, exists := spentBy(spent, e.Tx); exists {
			reject(e, fmt.Errorf("%w: %s by %s", ErrDoubleSpend, op, by))
			continue
		}

		if policy.MaxTransactions > 0 && len(sel.Entries)+1 > policy.MaxTransactions {
			reject(e, ErrTransPerBlock)
			continue
		}

		if policy.MaxBlockSize > 0 && sel.TotalSize+e.Size > policy.MaxBlockSize {
			reject(e, fmt.Errorf("%w: size %d, used %d of %d", ErrBlockSizeLimit, e.Size, sel.TotalSize, policy.MaxBlockSize))
			continue
		}

		fees, carry := bits.Add64(sel.TotalFees, e.Fee, 0)
		if carry != 0 {
			reject(e, fmt.Errorf("%w: fee total", database.ErrValueOverflow))
			continue
		}

		if policy.MaxFees > 0 && fees > policy.MaxFees {
			reject(e, fmt.Errorf("%w: fee %d, collected %d of %d", ErrBlockFeeLimit, e.Fee, sel.TotalFees, policy.MaxFees))
			continue
		}

		for _, in := range e.Tx.Inputs {
			spent[in.PrevOut] = e.ID
		}

		sel.Entries = append(sel.Entries, e)
		sel.TotalSize += e.Size
		sel.TotalFees = fees
	}

	return sel
}

// =============================================================================

// resolveOutput must be called while holding a lock.
func (mp *Mempool) resolveOutput(op database.OutPoint) (database.TxOut, bool) {
	tx, exists := mp.pool[op.TxID]
	if !exists || int(op.Index) >= len(tx.Outputs) {
		return database.TxOut{}, false
	}

	return tx.Outputs[op.Index], true
}

// entries must be called while holding a lock.
func (mp *Mempool) entries() []database.MempoolEntry {
	resolver := database.ResolverFunc(mp.resolveOutput)

	entries := make([]database.MempoolEntry, 0, len(mp.pool))
	for id, tx := range mp.pool {
		e := database.MempoolEntry{
			ID: id,
			Tx: tx,
		}

		e.Size, e.Err = tx.Size()
		if e.Err == nil {
			e.Fee, e.Err = database.Validate(tx, resolver)
		}

		entries = append(entries, e)
	}

	return selector.ByID(entries)
}

// spentBy reports the first input of the transaction that spends an
// outpoint already in the spent set.
func spentBy(spent map[database.OutPoint]signature.Hash, tx database.Tx) (database.OutPoint, signature.Hash, bool) {
	for _, in := range tx.Inputs {
		if by, exists := spent[in.PrevOut]; exists {
			return in.PrevOut, by, true
		}
	}
	return database.OutPoint{}, signature.Hash{}, false
}
