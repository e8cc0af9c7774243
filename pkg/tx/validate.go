package tx

import (
	"errors"
	"fmt"
	"math"

	"github.com/subfrost/swapengine/pkg/types"
)

// Standardness limits applied before a template is handed to a signer.
const (
	// DustLimit is the smallest non-OP_RETURN output built. Alkane
	// receiving outputs use exactly this value.
	DustLimit = 546

	MaxTxInputs  = 1000
	MaxTxOutputs = 64

	// MaxStandardVSize is the relay policy limit.
	MaxStandardVSize = 100_000
)

// Validation errors.
var (
	ErrNoInputs          = errors.New("transaction has no inputs")
	ErrNoOutputs         = errors.New("transaction has no outputs")
	ErrDuplicateInput    = errors.New("duplicate input")
	ErrOutputOverflow    = errors.New("output values overflow")
	ErrDustOutput        = errors.New("output below dust limit")
	ErrTooManyInputs     = errors.New("too many inputs")
	ErrTooManyOutputs    = errors.New("too many outputs")
	ErrTooLarge          = errors.New("transaction too large")
	ErrMultipleNullData  = errors.New("more than one OP_RETURN output")
	ErrInsufficientInput = errors.New("inputs do not cover outputs")
	ErrFeeTooLow         = errors.New("fee below required rate")
)

// Validate checks structure and relay policy. feeRate is sats/vbyte; the
// implied fee must cover the estimated size at that rate.
func (t *Transaction) Validate(feeRate uint64) error {
	if len(t.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(t.Outputs) == 0 {
		return ErrNoOutputs
	}
	if len(t.Inputs) > MaxTxInputs {
		return fmt.Errorf("%w: %d inputs, max %d", ErrTooManyInputs, len(t.Inputs), MaxTxInputs)
	}
	if len(t.Outputs) > MaxTxOutputs {
		return fmt.Errorf("%w: %d outputs, max %d", ErrTooManyOutputs, len(t.Outputs), MaxTxOutputs)
	}

	seen := make(map[types.Outpoint]bool, len(t.Inputs))
	for i, in := range t.Inputs {
		if seen[in.Carrier.Outpoint] {
			return fmt.Errorf("input %d: %w", i, ErrDuplicateInput)
		}
		seen[in.Carrier.Outpoint] = true
	}

	var totalOutput uint64
	nullData := 0
	for i, out := range t.Outputs {
		if out.IsNullData() {
			nullData++
			if nullData > 1 {
				return fmt.Errorf("output %d: %w", i, ErrMultipleNullData)
			}
			continue
		}
		if out.Value < DustLimit {
			return fmt.Errorf("output %d: %w: %d < %d", i, ErrDustOutput, out.Value, DustLimit)
		}
		if totalOutput > math.MaxUint64-out.Value {
			return fmt.Errorf("output %d: %w", i, ErrOutputOverflow)
		}
		totalOutput += out.Value
	}

	if vs := t.VSize(); vs > MaxStandardVSize {
		return fmt.Errorf("%w: %d vbytes, max %d", ErrTooLarge, vs, MaxStandardVSize)
	}

	fee, err := t.Fee()
	if err != nil {
		return err
	}
	if need := RequiredFee(t, feeRate); fee < need {
		return fmt.Errorf("%w: pays %d, need %d at %d sat/vB", ErrFeeTooLow, fee, need, feeRate)
	}
	return nil
}
