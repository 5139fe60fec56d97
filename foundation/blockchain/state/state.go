// Package state is the core API for the miner and implements all the
// business rules and processing for turning a mempool into a block.
package state

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ardanlabs/blockminer/foundation/blockchain/database"
	"github.com/ardanlabs/blockminer/foundation/blockchain/genesis"
	"github.com/ardanlabs/blockminer/foundation/blockchain/mempool"
	"github.com/ardanlabs/blockminer/foundation/blockchain/storage"
	"github.com/ardanlabs/blockminer/foundation/metrics"
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of mining a block.
type EventHandler func(v string, args ...any)

// =============================================================================

// Config represents the configuration required to start the miner.
type Config struct {
	Genesis       genesis.Genesis
	Storage       storage.Storage
	Beneficiary   []byte
	Workers       int
	SearchOptions database.SearchOptions
	EvHandler     EventHandler
}

// State manages the mempool and the mining of a block from it.
type State struct {
	beneficiary   []byte
	workers       int
	searchOptions database.SearchOptions
	evHandler     EventHandler
	mu            sync.Mutex

	genesis   genesis.Genesis
	mempool   *mempool.Mempool
	malformed []database.Record
	storage   storage.Storage
	latest    atomic.Pointer[database.BlockData]
}

// New constructs a new miner by loading the mempool from storage.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if cfg.Storage == nil {
		return nil, errors.New("storage is required")
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, err
	}

	// Load every record from storage. Records that could not be parsed are
	// kept aside so they can be reported.
	records, err := cfg.Storage.ReadMempool()
	if err != nil {
		return nil, err
	}

	// Construct a mempool with the strategy named by the genesis.
	mempool, malformed, err := mempool.Build(cfg.Genesis.SelectStrategy, records, ev)
	if err != nil {
		return nil, err
	}

	metrics.MempoolSize.Set(float64(mempool.Count()))

	state := State{
		beneficiary:   cfg.Beneficiary,
		workers:       cfg.Workers,
		searchOptions: cfg.SearchOptions,
		evHandler:     ev,

		genesis:   cfg.Genesis,
		mempool:   mempool,
		malformed: malformed,
		storage:   cfg.Storage,
	}

	return &state, nil
}

// =============================================================================

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveMempool returns the mempool entries in id order.
func (s *State) RetrieveMempool() []database.MempoolEntry {
	return s.mempool.Entries()
}

// RetrieveMalformed returns the records that could not be parsed.
func (s *State) RetrieveMalformed() []database.Record {
	return s.malformed
}

// RetrieveLatestResult returns the last block written by this miner. False
// is returned when no block has been written yet.
func (s *State) RetrieveLatestResult() (database.BlockData, bool) {
	bd := s.latest.Load()
	if bd == nil {
		return database.BlockData{}, false
	}
	return *bd, true
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}
