package database

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ardanlabs/blockminer/foundation/blockchain/signature"
)

// progressInterval is the number of attempts between progress events.
const progressInterval = 1_000_000

// SearchOptions bounds a nonce search.
type SearchOptions struct {
	StartNonce  uint64
	MaxAttempts uint64 // Zero means the search is bounded only by the nonce space.
}

// Solution is a header whose hash is below its target.
type Solution struct {
	Header   BlockHeader
	Encoded  []byte
	Hash     signature.Hash
	Attempts uint64
}

// SearchFunc finds a nonce for the header. The database package provides a
// sequential search and the worker package provides a parallel one.
type SearchFunc func(ctx context.Context, header BlockHeader, ev func(v string, args ...any)) (Solution, error)

// SequentialSearch returns a SearchFunc that runs Search on the calling
// goroutine.
func SequentialSearch(opts SearchOptions) SearchFunc {
	return func(ctx context.Context, header BlockHeader, ev func(v string, args ...any)) (Solution, error) {
		return Search(ctx, header, opts, ev)
	}
}

// Search tries nonces starting at opts.StartNonce, one at a time, until the
// hash of the header is below the header target. The context is checked
// before every attempt. Running out of attempts or nonces is reported the
// same as a cancellation, a nonce is only returned when it solves the header.
func Search(ctx context.Context, header BlockHeader, opts SearchOptions, ev func(v string, args ...any)) (Solution, error) {
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	if header.Target == nil || header.Target.IsZero() {
		return Solution{}, ErrInvalidTarget
	}

	// The header is encoded once. Each attempt only rewrites the nonce.
	buf := header.Encode()
	target := header.Target.Clone()

	nonce := opts.StartNonce
	var attempts uint64

	for {
		if err := ctx.Err(); err != nil {
			ev("database: Search: MINING: CANCELLED: attempts[%d]", attempts)
			return Solution{}, fmt.Errorf("%w: after %d attempts: %w", ErrSearchCancelled, attempts, err)
		}

		if opts.MaxAttempts > 0 && attempts == opts.MaxAttempts {
			return Solution{}, fmt.Errorf("%w: attempt limit %d reached", ErrSearchCancelled, opts.MaxAttempts)
		}

		binary.LittleEndian.PutUint64(buf[nonceOffset:], nonce)
		hash := signature.Sum(buf)
		attempts++

		if attempts%progressInterval == 0 {
			ev("database: Search: MINING: attempts[%d]: nonce[%d]", attempts, nonce)
		}

		if isHashSolved(target, hash) {
			solved := header
			solved.Nonce = nonce

			sol := Solution{
				Header:   solved,
				Encoded:  buf,
				Hash:     hash,
				Attempts: attempts,
			}
			return sol, nil
		}

		if nonce == math.MaxUint64 {
			return Solution{}, fmt.Errorf("%w: nonce space exhausted after %d attempts", ErrSearchCancelled, attempts)
		}
		nonce++
	}
}
