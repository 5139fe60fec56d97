package selector

import (
	"sort"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
)

// feeSelect returns the entries with the best fee per byte first.
var feeSelect = func(entries []database.MempoolEntry) []database.MempoolEntry {
	final := make([]database.MempoolEntry, len(entries))
	copy(final, entries)

	/*
		A: {Fee: 100, Size: 200}  rate 0.5
		B: {Fee: 300, Size: 100}  rate 3.0
		C: {Fee:  50, Size: 100}  rate 0.5
	*/

	sort.Sort(byFeeRate(final))

	/*
		0: B: {Fee: 300, Size: 100}
		1: A or C by id, the rates are equal.
		2: C or A
	*/

	return final
}
