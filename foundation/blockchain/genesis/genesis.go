// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ardanlabs/blockminer/foundation/blockchain/signature"
	"github.com/ardanlabs/blockminer/foundation/validate"
	"github.com/holiman/uint256"
)

// Reference values used when no genesis file is provided.
const (
	DefaultSubsidy      = 5_000_000_000
	DefaultTarget       = "0000ffff00000000000000000000000000000000000000000000000000000000"
	DefaultTimeStamp    = 1234567890
	DefaultMaxBlockSize = 1_000_000
)

// Genesis represents the genesis file. Subsidy is the reward for mining a
// block before fees. Header hashes must be below Target. An empty
// PrevBlockHash means the zero hash. The block limits apply to the non
// coinbase transactions and 0 means unlimited. A TimeStamp of 0 uses the
// wall clock.
type Genesis struct {
	Subsidy        uint64 `json:"subsidy" validate:"required"`
	Target         string `json:"target" validate:"required,hexadecimal,max=66"`
	PrevBlockHash  string `json:"prev_block_hash" validate:"omitempty,hexadecimal"`
	MaxBlockSize   int    `json:"max_block_size" validate:"gte=0"`
	MaxBlockFees   uint64 `json:"max_block_fees"`
	TransPerBlock  int    `json:"trans_per_block" validate:"gte=0"`
	TimeStamp      uint64 `json:"timestamp"`
	SelectStrategy string `json:"select_strategy" validate:"omitempty,oneof=id fee"`
}

// Default returns the reference parameters.
func Default() Genesis {
	return Genesis{
		Subsidy:        DefaultSubsidy,
		Target:         DefaultTarget,
		MaxBlockSize:   DefaultMaxBlockSize,
		TimeStamp:      DefaultTimeStamp,
		SelectStrategy: "id",
	}
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, fmt.Errorf("validating %s: %w", path, err)
	}

	return genesis, nil
}

// Validate checks the fields of the genesis and that the hex values decode.
func (g Genesis) Validate() error {
	if err := validate.Check(g); err != nil {
		return err
	}

	if _, err := g.TargetValue(); err != nil {
		return err
	}

	if _, err := g.PrevHash(); err != nil {
		return err
	}

	return nil
}

// TargetValue returns the target as a 256 bit integer. Shorter hex values
// are read as having leading zeros.
func (g Genesis) TargetValue() (*uint256.Int, error) {
	s := strings.TrimPrefix(strings.TrimPrefix(g.Target, "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	if len(b) > signature.HashSize {
		return nil, fmt.Errorf("target is %d bytes, max %d", len(b), signature.HashSize)
	}

	var b32 [signature.HashSize]byte
	copy(b32[signature.HashSize-len(b):], b)

	target := new(uint256.Int).SetBytes32(b32[:])
	if target.IsZero() {
		return nil, errors.New("target must be greater than zero")
	}

	return target, nil
}

// PrevHash returns the hash the mined block builds on.
func (g Genesis) PrevHash() (signature.Hash, error) {
	if g.PrevBlockHash == "" {
		return signature.ZeroHash, nil
	}

	return signature.HexToHash(g.PrevBlockHash)
}

// TimeStampAt returns the header timestamp, using now when the genesis does
// not fix one.
func (g Genesis) TimeStampAt(now time.Time) uint64 {
	if g.TimeStamp != 0 {
		return g.TimeStamp
	}

	return uint64(now.UTC().Unix())
}
