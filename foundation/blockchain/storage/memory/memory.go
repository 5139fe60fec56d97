// Package memory implements the storage interface for the miner in memory.
package memory

import (
	"sync"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
)

// Memory is used to feed the miner with a fixed set of records and keep
// the results it writes in memory. This implements the storage interface.
type Memory struct {
	mu      sync.RWMutex
	records []database.Record
	results []database.BlockData
}

// New constructs a Memory value that serves the specified records.
func New(records ...database.Record) (*Memory, error) {
	m := Memory{
		records: records,
	}

	return &m, nil
}

// ReadMempool returns a copy of the records held in memory.
func (m *Memory) ReadMempool() ([]database.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]database.Record, len(m.records))
	copy(records, m.records)

	return records, nil
}

// WriteResult takes the specified result and stores it in memory.
func (m *Memory) WriteResult(result database.BlockData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.results = append(m.results, result)

	return nil
}

// Results returns the results written so far in the order they were
// written.
func (m *Memory) Results() []database.BlockData {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]database.BlockData, len(m.results))
	copy(results, m.results)

	return results
}
