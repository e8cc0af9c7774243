package tx

import (
	"github.com/subfrost/swapengine/pkg/types"
)

// Builder constructs transactions incrementally.
type Builder struct {
	tx *Transaction
}

// NewBuilder creates a new transaction builder.
func NewBuilder() *Builder {
	return &Builder{
		tx: &Transaction{Version: Version},
	}
}

// AddInput spends a carrier.
func (b *Builder) AddInput(c types.Carrier) *Builder {
	b.tx.Inputs = append(b.tx.Inputs, Input{Carrier: c})
	return b
}

// AddInputs spends every carrier in order.
func (b *Builder) AddInputs(cs []types.Carrier) *Builder {
	for _, c := range cs {
		b.AddInput(c)
	}
	return b
}

// AddOutput adds an output with a value and script.
func (b *Builder) AddOutput(value uint64, pkScript []byte) *Builder {
	b.tx.Outputs = append(b.tx.Outputs, Output{Value: value, PkScript: pkScript})
	return b
}

// AddNullData adds a zero-value OP_RETURN output.
func (b *Builder) AddNullData(script []byte) *Builder {
	return b.AddOutput(0, script)
}

// SetLockTime sets the transaction lock time.
func (b *Builder) SetLockTime(lockTime uint32) *Builder {
	b.tx.LockTime = lockTime
	return b
}

// NumOutputs returns the number of outputs added so far.
func (b *Builder) NumOutputs() int {
	return len(b.tx.Outputs)
}

// Build returns the constructed transaction.
// Does NOT validate. Call Validate separately.
func (b *Builder) Build() *Transaction {
	return b.tx
}
