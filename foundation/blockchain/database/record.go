package database

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/blockminer/foundation/blockchain/signature"
	"github.com/ardanlabs/blockminer/foundation/validate"
)

// MalformedError names the field of a record that is missing or could not
// be decoded. It always matches ErrMalformedTransaction.
type MalformedError struct {
	Source string
	Field  string
	Reason string
}

// Error implements the error interface.
func (me *MalformedError) Error() string {
	if me.Field == "" {
		return fmt.Sprintf("%s: %s: %s", ErrMalformedTransaction, me.Source, me.Reason)
	}
	return fmt.Sprintf("%s: %s: field %q: %s", ErrMalformedTransaction, me.Source, me.Field, me.Reason)
}

// Unwrap allows errors.Is to match ErrMalformedTransaction.
func (me *MalformedError) Unwrap() error {
	return ErrMalformedTransaction
}

// =============================================================================

// Record is the result of parsing one external transaction record. A record
// holds either a well formed transaction or the reason it is malformed,
// never both.
type Record struct {
	Source    string
	Tx        Tx
	Malformed *MalformedError
}

// NewRecord constructs a well formed record for a transaction that was
// built in memory.
func NewRecord(source string, tx Tx) Record {
	return Record{
		Source: source,
		Tx:     tx,
	}
}

// IsMalformed reports if the record failed to parse.
func (r Record) IsMalformed() bool {
	return r.Malformed != nil
}

// ParseRecord decodes a single JSON transaction record. Decoding problems
// are captured in the returned record and are never returned as errors.
func ParseRecord(source string, data []byte) Record {
	malformed := func(field string, reason string) Record {
		return Record{
			Source:    source,
			Malformed: &MalformedError{Source: source, Field: field, Reason: reason},
		}
	}

	var doc recordDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return malformed(typeErr.Field, fmt.Sprintf("cannot decode %s into %s", typeErr.Value, typeErr.Type))
		}
		return malformed("", err.Error())
	}

	if err := validate.Check(doc); err != nil {
		fields := validate.GetFieldErrors(err)
		if len(fields) == 0 {
			return malformed("", err.Error())
		}
		return malformed(fields[0].Field, fields[0].Err)
	}

	tx := Tx{
		Version:  *doc.Version,
		LockTime: *doc.LockTime,
		Inputs:   make([]TxIn, 0, len(doc.Inputs)),
		Outputs:  make([]TxOut, 0, len(doc.Outputs)),
	}

	for i, in := range doc.Inputs {
		txID, err := signature.HexToHash(*in.PrevOut.TxID)
		if err != nil {
			return malformed(fmt.Sprintf("vin[%d].prevout.txid", i), err.Error())
		}

		tx.Inputs = append(tx.Inputs, TxIn{
			PrevOut: OutPoint{TxID: txID, Index: *in.PrevOut.Index},
		})
	}

	for _, out := range doc.Outputs {
		script := out.ScriptPubKey
		if len(bytes.TrimSpace(script)) == 0 {
			script = out.Script
		}

		tx.Outputs = append(tx.Outputs, TxOut{
			Value:  *out.Value,
			Script: compactScript(script),
		})
	}

	return Record{
		Source: source,
		Tx:     tx,
	}
}

// =============================================================================

// recordDoc is the external shape of a transaction record. Pointers tell an
// absent field apart from a zero value.
type recordDoc struct {
	Version  *int64      `json:"version" validate:"required"`
	LockTime *int64      `json:"locktime" validate:"required"`
	Inputs   []inputDoc  `json:"vin" validate:"required,dive"`
	Outputs  []outputDoc `json:"vout" validate:"required,dive"`
}

type inputDoc struct {
	PrevOut *prevOutDoc `json:"prevout" validate:"required"`
}

type prevOutDoc struct {
	TxID  *string `json:"txid" validate:"required,hexadecimal"`
	Index *uint32 `json:"voutIndex" validate:"required"`
}

type outputDoc struct {
	Value        *uint64         `json:"value" validate:"required"`
	ScriptPubKey json.RawMessage `json:"scriptPubKey"`
	Script       json.RawMessage `json:"script"`
}
