package tx

import (
	"github.com/btcsuite/btcd/wire"
)

// Weight accounting for key-path taproot spends.
const (
	// version + locktime + in/out counts, in weight units, plus the
	// segwit marker and flag.
	baseWeight = (4+4+1+1)*4 + 2

	// outpoint + empty scriptSig + sequence.
	inputWeight = (32 + 4 + 1 + 4) * 4

	// item count + length-prefixed 64-byte schnorr signature.
	taprootWitnessWeight = 1 + 1 + 64

	// P2TRScriptLen is the length of a pay-to-taproot output script.
	P2TRScriptLen = 34
)

// outputWeight returns the weight of an output with the given script.
func outputWeight(scriptLen int) int {
	return (8 + wire.VarIntSerializeSize(uint64(scriptLen)) + scriptLen) * 4
}

// EstimateVSize returns the virtual size of a transaction spending
// numInputs taproot key-path inputs into outputs with the given script
// lengths.
func EstimateVSize(numInputs int, outputScriptLens ...int) int64 {
	weight := baseWeight + numInputs*(inputWeight+taprootWitnessWeight)
	for _, n := range outputScriptLens {
		weight += outputWeight(n)
	}
	return int64((weight + 3) / 4)
}

// EstimateFee returns the fee for a transaction of vsize at feeRate
// sats/vbyte.
func EstimateFee(vsize int64, feeRate uint64) uint64 {
	return uint64(vsize) * feeRate
}

// VSize returns the estimated signed virtual size of a template.
func (t *Transaction) VSize() int64 {
	lens := make([]int, len(t.Outputs))
	for i, out := range t.Outputs {
		lens[i] = len(out.PkScript)
	}
	return EstimateVSize(len(t.Inputs), lens...)
}

// RequiredFee returns the minimum fee for a built template at feeRate.
func RequiredFee(t *Transaction, feeRate uint64) uint64 {
	return EstimateFee(t.VSize(), feeRate)
}
