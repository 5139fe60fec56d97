package database

import (
	"fmt"
	"math/bits"
)

// NewCoinbase constructs the transaction that pays the miner the block
// subsidy plus the fees of every transaction in the block.
func NewCoinbase(subsidy uint64, totalFees uint64, script []byte) (Tx, error) {
	reward, carry := bits.Add64(subsidy, totalFees, 0)
	if carry != 0 {
		return Tx{}, fmt.Errorf("%w: subsidy %d, fees %d", ErrValueOverflow, subsidy, totalFees)
	}

	tx := Tx{
		Version:  TxVersion,
		LockTime: 0,
		Inputs:   []TxIn{},
		Outputs: []TxOut{
			{Value: reward, Script: append(Script{}, script...)},
		},
		coinbase: true,
	}

	return tx, nil
}
