// Package signature provides helper functions for handling the blockchain
// hashing and miner identity needs.
package signature

import (
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// HashSize is the number of bytes in a hash.
const HashSize = chainhash.HashSize

// ZeroHash represents a hash code of zeros.
var ZeroHash Hash

// =============================================================================

// Hash is a 32 byte digest produced by Sum. The bytes are kept in the order
// the hash function produced them, no display reversal is applied.
type Hash [HashSize]byte

// Sum returns the double SHA-256 digest of the data. Every hash in the
// system (transaction ids, merkle nodes and block headers) goes through
// this function so the variant is applied uniformly.
func Sum(data []byte) Hash {
	return Hash(chainhash.DoubleHashH(data))
}

// HexToHash converts a hex string with or without the 0x prefix into a hash.
func HexToHash(s string) (Hash, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	if err != nil {
		return Hash{}, fmt.Errorf("decoding hash: %w", err)
	}

	if len(b) != HashSize {
		return Hash{}, fmt.Errorf("invalid hash length, got %d, exp %d", len(b), HashSize)
	}

	var h Hash
	copy(h[:], b)
	return h, nil
}

// Bytes returns a copy of the hash as a slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// String returns the hash as a plain hex string.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Hex returns the hash as a 0x prefixed hex string.
func (h Hash) Hex() string {
	return hexutil.Encode(h[:])
}

// IsZero reports whether the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Uint256 interprets the hash bytes as a big-endian unsigned integer. This is
// the value compared against the difficulty target.
func (h Hash) Uint256() *uint256.Int {
	return new(uint256.Int).SetBytes32(h[:])
}

// MarshalText implements the encoding.TextMarshaler interface.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (h *Hash) UnmarshalText(text []byte) error {
	v, err := HexToHash(string(text))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// =============================================================================

// BeneficiaryScript returns the payout script for the account that owns the
// specified public key. The script is the JSON encoded account address so it
// can be carried verbatim as an opaque output script.
func BeneficiaryScript(publicKey ecdsa.PublicKey) []byte {
	address := crypto.PubkeyToAddress(publicKey).String()

	// Marshaling a string value can't fail.
	data, _ := json.Marshal(address)
	return data
}
