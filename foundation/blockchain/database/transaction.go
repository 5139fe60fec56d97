package database

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/ardanlabs/blockminer/foundation/blockchain/signature"
	"github.com/fxamacker/cbor/v2"
)

// TxVersion is the only transaction version accepted into a block.
const TxVersion = 1

// encMode produces the canonical transaction encoding. Core deterministic
// CBOR gives one byte sequence per transaction so the id is stable.
var encMode cbor.EncMode

func init() {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor encoding mode: %s", err))
	}
	encMode = em
}

// =============================================================================

// OutPoint references an output of a previous transaction.
type OutPoint struct {
	TxID  signature.Hash `json:"txid"`      // Bitcoin: Id of the transaction holding the output.
	Index uint32         `json:"voutIndex"` // Bitcoin: Position of the output in that transaction.
}

// String implements the fmt.Stringer interface for logging.
func (op OutPoint) String() string {
	return fmt.Sprintf("%s:%d", op.TxID, op.Index)
}

// TxIn spends a previous output.
type TxIn struct {
	PrevOut OutPoint `json:"prevout"`
}

// TxOut assigns value to a spending condition.
type TxOut struct {
	Value  uint64 `json:"value"`        // Smallest currency unit.
	Script Script `json:"scriptPubKey"` // Never evaluated.
}

// Script is the opaque spending condition of an output. When the bytes are
// valid JSON they are carried as is, otherwise they are shown as hex.
type Script []byte

// MarshalJSON implements the json.Marshaler interface.
func (s Script) MarshalJSON() ([]byte, error) {
	switch {
	case len(s) == 0:
		return []byte("null"), nil
	case json.Valid(s):
		return s, nil
	}
	return json.Marshal(hex.EncodeToString(s))
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (s *Script) UnmarshalJSON(data []byte) error {
	*s = compactScript(data)
	return nil
}

// compactScript removes insignificant whitespace from a raw JSON script so
// formatting differences do not produce different transaction ids.
func compactScript(data []byte) Script {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return append(Script{}, data...)
	}
	return buf.Bytes()
}

// =============================================================================

// Tx is a transfer of value from previous outputs to new outputs. The id of
// a transaction is derived from its canonical encoding, it is never stored.
type Tx struct {
	Version  int64   `json:"version"`
	LockTime int64   `json:"locktime"`
	Inputs   []TxIn  `json:"vin"`
	Outputs  []TxOut `json:"vout"`
	coinbase bool
}

// IsCoinbase reports whether the transaction was constructed by NewCoinbase.
// Transactions read from a mempool can never be a coinbase.
func (tx Tx) IsCoinbase() bool {
	return tx.coinbase
}

// Encode returns the canonical encoding of the transaction.
func (tx Tx) Encode() ([]byte, error) {
	ctx := canonicalTx{
		Version:  tx.Version,
		LockTime: tx.LockTime,
		Inputs:   make([]canonicalInput, 0, len(tx.Inputs)),
		Outputs:  make([]canonicalOutput, 0, len(tx.Outputs)),
	}

	for _, in := range tx.Inputs {
		ctx.Inputs = append(ctx.Inputs, canonicalInput{
			TxID:  in.PrevOut.TxID.Bytes(),
			Index: in.PrevOut.Index,
		})
	}

	for _, out := range tx.Outputs {
		ctx.Outputs = append(ctx.Outputs, canonicalOutput{
			Value:  out.Value,
			Script: append([]byte{}, out.Script...),
		})
	}

	data, err := encMode.Marshal(ctx)
	if err != nil {
		return nil, fmt.Errorf("encoding transaction: %w", err)
	}

	return data, nil
}

// ID returns the identifier of the transaction.
func (tx Tx) ID() (signature.Hash, error) {
	data, err := tx.Encode()
	if err != nil {
		return signature.Hash{}, err
	}

	return signature.Sum(data), nil
}

// Size returns the number of bytes of the canonical encoding.
func (tx Tx) Size() (int, error) {
	data, err := tx.Encode()
	if err != nil {
		return 0, err
	}

	return len(data), nil
}

// Hash implements the merkle Hashable interface. The leaf of a transaction
// is its id.
func (tx Tx) Hash() ([]byte, error) {
	id, err := tx.ID()
	if err != nil {
		return nil, err
	}

	return id.Bytes(), nil
}

// Equals implements the merkle Hashable interface for providing an equality
// check between two transactions. Ids are content derived so equal ids mean
// equal transactions.
func (tx Tx) Equals(otherTx Tx) bool {
	id, err := tx.ID()
	if err != nil {
		return false
	}

	otherID, err := otherTx.ID()
	if err != nil {
		return false
	}

	return id == otherID
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	id, err := tx.ID()
	if err != nil {
		return "unknown"
	}

	return fmt.Sprintf("%s:in[%d]:out[%d]", id, len(tx.Inputs), len(tx.Outputs))
}

// =============================================================================

// TxData represents a transaction with its id as it is written out.
type TxData struct {
	ID signature.Hash `json:"txid"`
	Tx
}

// NewTxData constructs the value to serialize.
func NewTxData(tx Tx) (TxData, error) {
	id, err := tx.ID()
	if err != nil {
		return TxData{}, err
	}

	return TxData{ID: id, Tx: tx}, nil
}

// =============================================================================

// MempoolEntry is a transaction held in the mempool along with the values
// computed for it against the mempool index.
type MempoolEntry struct {
	ID   signature.Hash
	Fee  uint64
	Size int
	Tx   Tx
	Err  error // Outcome of validating the transaction against the index.
}

// =============================================================================

type canonicalTx struct {
	Version  int64             `cbor:"1,keyasint"`
	LockTime int64             `cbor:"2,keyasint"`
	Inputs   []canonicalInput  `cbor:"3,keyasint"`
	Outputs  []canonicalOutput `cbor:"4,keyasint"`
}

type canonicalInput struct {
	_     struct{} `cbor:",toarray"`
	TxID  []byte
	Index uint32
}

type canonicalOutput struct {
	_      struct{} `cbor:",toarray"`
	Value  uint64
	Script []byte
}
