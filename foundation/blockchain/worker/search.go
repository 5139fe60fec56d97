// Package worker runs the nonce search across multiple goroutines.
package worker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"sync"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"golang.org/x/sync/errgroup"
)

// errSolved is returned by the G that finds a solution so the group
// cancels the other G's.
var errSolved = errors.New("solved")

// ParallelSearch returns a SearchFunc that runs Search with the specified
// number of workers.
func ParallelSearch(workers int, opts database.SearchOptions) database.SearchFunc {
	return func(ctx context.Context, header database.BlockHeader, ev func(v string, args ...any)) (database.Solution, error) {
		return Search(ctx, header, workers, opts, ev)
	}
}

// Search splits the nonce space described by opts into contiguous subranges
// and searches each one on its own G. The first solution found wins and the
// other G's are told to stop. The solution is not necessarily the lowest
// nonce that solves the header.
func Search(ctx context.Context, header database.BlockHeader, workers int, opts database.SearchOptions, ev func(v string, args ...any)) (database.Solution, error) {
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	if workers <= 1 {
		return database.Search(ctx, header, opts, ev)
	}

	ranges := Split(opts, workers)

	ev("worker: Search: MINING: started: workers[%d]", len(ranges))
	defer ev("worker: Search: MINING: completed")

	var mu sync.Mutex
	var sol database.Solution

	g, gctx := errgroup.WithContext(ctx)

	for i, r := range ranges {
		g.Go(func() error {
			ev("worker: Search: MINING: G[%d] started: nonce[%d]: count[%d]", i, r.StartNonce, r.MaxAttempts)

			s, err := database.Search(gctx, header, r, ev)
			switch {
			case err == nil:
				mu.Lock()
				sol = s
				mu.Unlock()

				ev("worker: Search: MINING: G[%d] SOLVED: nonce[%d]", i, s.Header.Nonce)
				return errSolved

			case errors.Is(err, database.ErrSearchCancelled):
				ev("worker: Search: MINING: G[%d] stopped: %s", i, err)
				return nil
			}

			return err
		})
	}

	err := g.Wait()
	switch {
	case errors.Is(err, errSolved):
		return sol, nil
	case err != nil:
		return database.Solution{}, err
	case ctx.Err() != nil:
		return database.Solution{}, fmt.Errorf("%w: %w", database.ErrSearchCancelled, ctx.Err())
	}

	return database.Solution{}, fmt.Errorf("%w: every subrange was searched", database.ErrSearchCancelled)
}

// Split divides the nonces described by opts into at most workers disjoint
// contiguous subranges. Every subrange has a bounded number of attempts.
// Fewer subranges are returned when there are fewer nonces than workers.
func Split(opts database.SearchOptions, workers int) []database.SearchOptions {
	if workers <= 1 {
		return []database.SearchOptions{opts}
	}

	// The number of nonces to cover as a 128 bit value hi:lo, limited by
	// the end of the nonce space.
	hi, lo := uint64(0), math.MaxUint64-opts.StartNonce+1
	if opts.StartNonce == 0 {
		hi, lo = 1, 0
	}

	if opts.MaxAttempts > 0 && (hi == 1 || opts.MaxAttempts < lo) {
		hi, lo = 0, opts.MaxAttempts
	}

	n := uint64(workers)
	if hi == 0 && lo < n {
		n = lo
	}

	span, rem := bits.Div64(hi, lo, n)

	ranges := make([]database.SearchOptions, 0, n)
	start := opts.StartNonce

	for i := range n {
		count := span
		if i < rem {
			count++
		}

		ranges = append(ranges, database.SearchOptions{StartNonce: start, MaxAttempts: count})
		start += count
	}

	return ranges
}
