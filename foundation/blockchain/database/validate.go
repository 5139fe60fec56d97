package database

import (
	"fmt"
	"math/bits"
)

// Resolver looks up the output an input refers to. The mempool index is
// the resolver used while mining.
type Resolver interface {
	ResolveOutput(op OutPoint) (TxOut, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(op OutPoint) (TxOut, bool)

// ResolveOutput implements the Resolver interface.
func (f ResolverFunc) ResolveOutput(op OutPoint) (TxOut, bool) {
	return f(op)
}

// =============================================================================

// Validate checks a transaction for inclusion in a block and returns the fee
// it pays. Checks run in order and stop at the first failure. An input that
// cannot be resolved contributes zero value.
func Validate(tx Tx, resolver Resolver) (uint64, error) {
	if len(tx.Inputs) == 0 && !tx.IsCoinbase() {
		return 0, ErrNoInputs
	}

	if len(tx.Outputs) == 0 {
		return 0, ErrNoOutputs
	}

	if tx.Version != TxVersion {
		return 0, fmt.Errorf("%w: got %d, exp %d", ErrUnsupportedVersion, tx.Version, TxVersion)
	}

	if tx.LockTime < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeLockTime, tx.LockTime)
	}

	seen := make(map[OutPoint]struct{}, len(tx.Inputs))
	for _, in := range tx.Inputs {
		if _, exists := seen[in.PrevOut]; exists {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateInput, in.PrevOut)
		}
		seen[in.PrevOut] = struct{}{}
	}

	// The coinbase creates value, it has no inputs to conserve.
	if tx.IsCoinbase() {
		if _, err := OutputValue(tx); err != nil {
			return 0, err
		}
		return 0, nil
	}

	in, unresolved, err := InputValue(tx, resolver)
	if err != nil {
		return 0, err
	}

	out, err := OutputValue(tx)
	if err != nil {
		return 0, err
	}

	if in < out {
		if unresolved > 0 {
			return 0, fmt.Errorf("%w: inputs %d, outputs %d: %w: %d inputs", ErrValueConservation, in, out, ErrUnresolvedInput, unresolved)
		}
		return 0, fmt.Errorf("%w: inputs %d, outputs %d", ErrValueConservation, in, out)
	}

	return in - out, nil
}

// ValidateRecord validates a parsed record. A malformed record is rejected
// with its parse error before any other check.
func ValidateRecord(rec Record, resolver Resolver) (uint64, error) {
	if rec.IsMalformed() {
		return 0, rec.Malformed
	}

	return Validate(rec.Tx, resolver)
}

// InputValue sums the values of the outputs the inputs refer to. It also
// returns the number of inputs that could not be resolved.
func InputValue(tx Tx, resolver Resolver) (uint64, int, error) {
	var total uint64
	var unresolved int

	for _, in := range tx.Inputs {
		out, exists := resolver.ResolveOutput(in.PrevOut)
		if !exists {
			unresolved++
			continue
		}

		var carry uint64
		total, carry = bits.Add64(total, out.Value, 0)
		if carry != 0 {
			return 0, 0, fmt.Errorf("%w: input sum", ErrValueOverflow)
		}
	}

	return total, unresolved, nil
}

// OutputValue sums the values of the outputs.
func OutputValue(tx Tx) (uint64, error) {
	var total uint64

	for _, out := range tx.Outputs {
		var carry uint64
		total, carry = bits.Add64(total, out.Value, 0)
		if carry != 0 {
			return 0, fmt.Errorf("%w: output sum", ErrValueOverflow)
		}
	}

	return total, nil
}
