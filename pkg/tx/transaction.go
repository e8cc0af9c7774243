// Package tx builds unsigned Bitcoin transactions that carry protocol
// calls, and the runestone envelope the calls travel in.
package tx

import (
	"bytes"
	"fmt"
	"math"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/subfrost/swapengine/pkg/types"
)

// Version is the transaction version used for every built transaction.
const Version = 2

// Input spends a carrier. The carrier's value and script are kept for
// taproot signature hashing.
type Input struct {
	Carrier types.Carrier `json:"carrier"`
}

// Output is a new transaction output.
type Output struct {
	Value    uint64 `json:"value"`
	PkScript []byte `json:"pk_script"`
}

// IsNullData reports whether the output is an OP_RETURN output.
func (o Output) IsNullData() bool {
	return len(o.PkScript) > 0 && o.PkScript[0] == txscript.OP_RETURN
}

// Transaction is an unsigned transaction template.
type Transaction struct {
	Version  int32    `json:"version"`
	Inputs   []Input  `json:"inputs"`
	Outputs  []Output `json:"outputs"`
	LockTime uint32   `json:"locktime"`
}

// MsgTx converts the template into a wire transaction with empty witnesses.
// A nonzero lock time marks every input replaceable so the lock time is
// enforced.
func (t *Transaction) MsgTx() *wire.MsgTx {
	msg := wire.NewMsgTx(t.Version)
	msg.LockTime = t.LockTime
	for _, in := range t.Inputs {
		op := wire.NewOutPoint(&in.Carrier.Outpoint.TxID, in.Carrier.Outpoint.Index)
		txIn := wire.NewTxIn(op, nil, nil)
		if t.LockTime != 0 {
			txIn.Sequence = wire.MaxTxInSequenceNum - 2
		}
		msg.AddTxIn(txIn)
	}
	for _, out := range t.Outputs {
		msg.AddTxOut(wire.NewTxOut(int64(out.Value), out.PkScript))
	}
	return msg
}

// TxID returns the transaction id. Witness data does not affect it, so the
// id is final before signing.
func (t *Transaction) TxID() chainhash.Hash {
	return t.MsgTx().TxHash()
}

// Serialize returns the unsigned wire encoding.
func (t *Transaction) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.MsgTx().Serialize(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PrevOutputFetcher returns the spent outputs, keyed by outpoint, as
// needed by taproot signature hashing.
func (t *Transaction) PrevOutputFetcher() *txscript.MultiPrevOutFetcher {
	prev := make(map[wire.OutPoint]*wire.TxOut, len(t.Inputs))
	for _, in := range t.Inputs {
		op := wire.OutPoint{Hash: in.Carrier.Outpoint.TxID, Index: in.Carrier.Outpoint.Index}
		prev[op] = wire.NewTxOut(int64(in.Carrier.ValueSats), in.Carrier.PkScript)
	}
	return txscript.NewMultiPrevOutFetcher(prev)
}

// TotalInputValue returns the sum of all spent carrier values.
func (t *Transaction) TotalInputValue() (uint64, error) {
	var total uint64
	for _, in := range t.Inputs {
		if total > math.MaxUint64-in.Carrier.ValueSats {
			return 0, fmt.Errorf("input value overflow")
		}
		total += in.Carrier.ValueSats
	}
	return total, nil
}

// TotalOutputValue returns the sum of all output values.
// Returns an error if the sum overflows uint64.
func (t *Transaction) TotalOutputValue() (uint64, error) {
	var total uint64
	for _, out := range t.Outputs {
		if total > math.MaxUint64-out.Value {
			return 0, fmt.Errorf("output value overflow")
		}
		total += out.Value
	}
	return total, nil
}

// Fee returns inputs minus outputs.
func (t *Transaction) Fee() (uint64, error) {
	in, err := t.TotalInputValue()
	if err != nil {
		return 0, err
	}
	out, err := t.TotalOutputValue()
	if err != nil {
		return 0, err
	}
	if out > in {
		return 0, fmt.Errorf("%w: outputs %d exceed inputs %d", ErrInsufficientInput, out, in)
	}
	return in - out, nil
}
