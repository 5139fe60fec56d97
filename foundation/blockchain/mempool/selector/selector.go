// Package selector provides different transaction selecting algorithms.
package selector

import (
	"bytes"
	"fmt"
	"math/bits"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyID  = "id"
	StrategyFee = "fee"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyID:  ByID,
	StrategyFee: feeSelect,
}

// Func defines a function that takes the validated entries of a mempool and
// returns them in the order they should be considered for the next block.
// A selector never drops entries, the block limits are applied by the caller.
// The returned slice is a new slice, the input is not modified.
type Func func(entries []database.MempoolEntry) []database.MempoolEntry

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// Strategies returns the names of the supported strategies.
func Strategies() []string {
	return []string{StrategyID, StrategyFee}
}

// =============================================================================

// byID provides sorting support by the transaction id value.
type byID []database.MempoolEntry

// Len returns the number of transactions in the list.
func (bi byID) Len() int {
	return len(bi)
}

// Less helps to sort the list by id in ascending order so the order does not
// depend on how the mempool was read.
func (bi byID) Less(i, j int) bool {
	return bytes.Compare(bi[i].ID[:], bi[j].ID[:]) < 0
}

// Swap moves transactions in the order of the id value.
func (bi byID) Swap(i, j int) {
	bi[i], bi[j] = bi[j], bi[i]
}

// =============================================================================

// byFeeRate provides sorting support by the fee paid per encoded byte.
type byFeeRate []database.MempoolEntry

// Len returns the number of transactions in the list.
func (bf byFeeRate) Len() int {
	return len(bf)
}

// Less helps to sort the list by fee rate in decending order to pick the
// transactions that provide the best reward for the space they use. Equal
// rates fall back to the id.
func (bf byFeeRate) Less(i, j int) bool {
	switch cmpFeeRate(bf[i], bf[j]) {
	case 1:
		return true
	case -1:
		return false
	}
	return bytes.Compare(bf[i].ID[:], bf[j].ID[:]) < 0
}

// Swap moves transactions in the order of the fee rate value.
func (bf byFeeRate) Swap(i, j int) {
	bf[i], bf[j] = bf[j], bf[i]
}

// cmpFeeRate compares fee/size of two entries without division by comparing
// the 128 bit cross products.
func cmpFeeRate(a, b database.MempoolEntry) int {
	aHi, aLo := bits.Mul64(a.Fee, uint64(b.Size))
	bHi, bLo := bits.Mul64(b.Fee, uint64(a.Size))

	switch {
	case aHi > bHi || (aHi == bHi && aLo > bLo):
		return 1
	case aHi < bHi || (aHi == bHi && aLo < bLo):
		return -1
	}
	return 0
}
