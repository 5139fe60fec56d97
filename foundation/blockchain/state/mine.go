package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/ardanlabs/blockminer/foundation/blockchain/mempool"
	"github.com/ardanlabs/blockminer/foundation/blockchain/worker"
	"github.com/ardanlabs/blockminer/foundation/metrics"
)

// Result represents a mined block along with what went into it.
type Result struct {
	Block     database.Block
	Selection mempool.Selection
	Attempts  uint64
}

// =============================================================================

// MineNewBlock selects transactions from the mempool, pays the beneficiary
// with a coinbase and searches for a nonce that solves the block. The block
// is validated before it is returned.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	res, err := s.mine(ctx)
	if err != nil {
		return database.Block{}, err
	}

	return res.Block, nil
}

// MineAndWrite mines a new block and writes the result to storage. Nothing
// is written when the block can't be mined.
func (s *State) MineAndWrite(ctx context.Context) (database.BlockData, error) {
	res, err := s.mine(ctx)
	if err != nil {
		return database.BlockData{}, err
	}

	bd, err := database.NewBlockData(res.Block, res.Selection.TotalFees, res.Attempts)
	if err != nil {
		return database.BlockData{}, err
	}

	s.evHandler("state: MineAndWrite: write result: blk[%s]", bd.Hash)

	if err := s.storage.WriteResult(bd); err != nil {
		return database.BlockData{}, fmt.Errorf("writing result: %w", err)
	}
	s.latest.Store(&bd)

	return bd, nil
}

// =============================================================================

func (s *State) mine(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: MineNewBlock: MINING: started")
	defer s.evHandler("state: MineNewBlock: MINING: completed")

	target, err := s.genesis.TargetValue()
	if err != nil {
		return Result{}, err
	}

	prevHash, err := s.genesis.PrevHash()
	if err != nil {
		return Result{}, err
	}

	s.evHandler("state: MineNewBlock: MINING: pick best: mempool[%d]", s.mempool.Count())

	policy := mempool.Policy{
		MaxBlockSize:    s.genesis.MaxBlockSize,
		MaxFees:         s.genesis.MaxBlockFees,
		MaxTransactions: s.genesis.TransPerBlock,
	}

	sel := s.mempool.PickBest(policy)
	for _, rej := range sel.Rejected {
		s.evHandler("state: MineNewBlock: MINING: rejected: tx[%s]: %s", rej.ID, rej.Reason)
		metrics.TransactionsRejected.WithLabelValues(rejectReason(rej.Reason)).Inc()
	}

	s.evHandler("state: MineNewBlock: MINING: selected[%d]: size[%d]: fees[%d]", len(sel.Entries), sel.TotalSize, sel.TotalFees)

	coinbase, err := database.NewCoinbase(s.genesis.Subsidy, sel.TotalFees, s.beneficiary)
	if err != nil {
		return Result{}, err
	}

	trans := append([]database.Tx{coinbase}, sel.Txs()...)

	search := database.SequentialSearch(s.searchOptions)
	if s.workers > 1 {
		search = worker.ParallelSearch(s.workers, s.searchOptions)
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW: workers[%d]", max(s.workers, 1))

	args := database.POWArgs{
		PrevBlockHash: prevHash,
		TimeStamp:     s.genesis.TimeStampAt(time.Now()),
		Target:        target,
		Trans:         trans,
		Search:        search,
		EvHandler:     s.evHandler,
	}

	start := time.Now()
	block, sol, err := database.POW(ctx, args)
	metrics.SearchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, database.ErrSearchCancelled) {
			metrics.SearchesCancelled.Inc()
		}
		return Result{}, err
	}

	s.evHandler("state: MineNewBlock: MINING: validate block")

	if err := database.ValidateBlock(block, s.genesis.Subsidy, s.mempool, s.evHandler); err != nil {
		return Result{}, err
	}

	metrics.HashAttempts.Add(float64(sol.Attempts))
	metrics.BlocksMined.Inc()
	metrics.TransactionsSelected.Add(float64(len(sel.Entries)))

	res := Result{
		Block:     block,
		Selection: sel,
		Attempts:  sol.Attempts,
	}

	return res, nil
}

// rejectReason maps a rejection to a metrics label.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, mempool.ErrDoubleSpend):
		return "double_spend"
	case errors.Is(err, mempool.ErrBlockSizeLimit):
		return "size_limit"
	case errors.Is(err, mempool.ErrBlockFeeLimit):
		return "fee_limit"
	case errors.Is(err, mempool.ErrTransPerBlock):
		return "trans_per_block"
	case errors.Is(err, database.ErrUnresolvedInput):
		return "unresolved_input"
	case errors.Is(err, database.ErrValueConservation):
		return "value_conservation"
	}

	return "invalid"
}
