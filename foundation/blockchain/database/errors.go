package database

import "errors"

// Set of errors that classify why a transaction is not eligible for a block.
// Validation errors are recovered by excluding the transaction.
var (
	ErrMalformedTransaction = errors.New("malformed transaction")
	ErrNoInputs             = errors.New("transaction has no inputs")
	ErrNoOutputs            = errors.New("transaction has no outputs")
	ErrUnsupportedVersion   = errors.New("unsupported transaction version")
	ErrNegativeLockTime     = errors.New("negative locktime")
	ErrDuplicateInput       = errors.New("outpoint spent twice by one transaction")
	ErrUnresolvedInput      = errors.New("unresolved input")
	ErrValueConservation    = errors.New("outputs exceed inputs")
	ErrValueOverflow        = errors.New("value overflow")
)

// ErrSearchCancelled is returned when the nonce search stops before a
// solution is found. This is never reported with a nonce.
var ErrSearchCancelled = errors.New("nonce search cancelled")

// ErrInvalidBlock is returned by ValidateBlock.
var ErrInvalidBlock = errors.New("invalid block")

// ErrInvalidTarget is returned when a search is asked to solve for a target
// no hash can be below.
var ErrInvalidTarget = errors.New("target must be greater than zero")
