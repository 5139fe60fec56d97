package selector

import (
	"sort"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
)

// ByID returns the entries in ascending id order. Ids are content derived
// so the same mempool always produces the same block.
func ByID(entries []database.MempoolEntry) []database.MempoolEntry {
	final := make([]database.MempoolEntry, len(entries))
	copy(final, entries)

	sort.Sort(byID(final))

	return final
}
