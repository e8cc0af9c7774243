package cellpack

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/subfrost/swapengine/pkg/types"
)

// Pool opcodes.
const (
	OpInitPool        = 0
	OpAddLiquidity    = 1
	OpRemoveLiquidity = 2
	OpSwap            = 3
	OpSimulateSwap    = 4
	OpGetReserves     = 97
	OpPoolDetails     = 999
)

// frBTC opcodes.
const (
	OpWrap       = 77
	OpUnwrap     = 78
	OpGetSigner  = 103
	OpGetPremium = 104
)

// Factory opcodes. The router forms take a token path and route the
// trade through every pool along it.
const (
	OpFactoryCreatePool   = 1
	OpFactoryFindPool     = 2
	OpFactorySwapExactIn  = 13
	OpFactorySwapExactOut = 14
)

// Cellpack is a contract invocation: the target contract followed by the
// opcode and its arguments.
type Cellpack struct {
	Target types.AssetID
	Inputs []*uint256.Int
}

// New builds a cellpack calling opcode on target with args.
func New(target types.AssetID, opcode uint64, args ...*uint256.Int) Cellpack {
	inputs := make([]*uint256.Int, 0, len(args)+1)
	inputs = append(inputs, uint256.NewInt(opcode))
	for _, a := range args {
		inputs = append(inputs, new(uint256.Int).Set(a))
	}
	return Cellpack{Target: target, Inputs: inputs}
}

// Values returns [block, tx, inputs...].
func (c Cellpack) Values() []*uint256.Int {
	values := make([]*uint256.Int, 0, len(c.Inputs)+2)
	values = append(values, uint256.NewInt(c.Target.Block), uint256.NewInt(c.Target.Tx))
	for _, v := range c.Inputs {
		if v == nil {
			values = append(values, nil)
			continue
		}
		values = append(values, new(uint256.Int).Set(v))
	}
	return values
}

// Encode serializes the cellpack.
func (c Cellpack) Encode() ([]byte, error) {
	return EncodeValues(c.Values())
}

// Opcode returns the first input, or false for an empty call.
func (c Cellpack) Opcode() (uint64, bool) {
	if len(c.Inputs) == 0 || !c.Inputs[0].IsUint64() {
		return 0, false
	}
	return c.Inputs[0].Uint64(), true
}

// String renders the cellpack as "[block,tx,op,args...]".
func (c Cellpack) String() string {
	values := c.Values()
	parts := make([]string, len(values))
	for i, v := range values {
		if v == nil {
			parts[i] = "nil"
			continue
		}
		parts[i] = v.Dec()
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Encode serializes target followed by args.
func Encode(target types.AssetID, args []*uint256.Int) ([]byte, error) {
	return Cellpack{Target: target, Inputs: args}.Encode()
}

// Decode returns the integer sequence encoded in b.
func Decode(b []byte) ([]*uint256.Int, error) {
	return DecodeValues(b)
}

// DecodeCellpack decodes b and splits off the target.
func DecodeCellpack(b []byte) (Cellpack, error) {
	values, err := DecodeValues(b)
	if err != nil {
		return Cellpack{}, err
	}
	if len(values) < 2 {
		return Cellpack{}, fmt.Errorf("%w: %d values, need at least a target", ErrMalformedCalldata, len(values))
	}
	if !values[0].IsUint64() || !values[1].IsUint64() {
		return Cellpack{}, fmt.Errorf("%w: target out of range", ErrMalformedCalldata)
	}
	return Cellpack{
		Target: types.AssetID{Block: values[0].Uint64(), Tx: values[1].Uint64()},
		Inputs: values[2:],
	}, nil
}

// FromInt64s converts signed boundary integers, rejecting negatives.
func FromInt64s(vs ...int64) ([]*uint256.Int, error) {
	out := make([]*uint256.Int, len(vs))
	for i, v := range vs {
		if v < 0 {
			return nil, fmt.Errorf("%w: argument %d is negative (%d)", ErrInvalidCalldataArgument, i, v)
		}
		out[i] = uint256.NewInt(uint64(v))
	}
	return out, nil
}

// FromBig converts big integers, rejecting negatives and values above 128 bits.
func FromBig(vs ...*big.Int) ([]*uint256.Int, error) {
	out := make([]*uint256.Int, len(vs))
	for i, v := range vs {
		if v == nil || v.Sign() < 0 {
			return nil, fmt.Errorf("%w: argument %d is negative or nil", ErrInvalidCalldataArgument, i)
		}
		if v.BitLen() > 128 {
			return nil, fmt.Errorf("%w: argument %d exceeds 128 bits", ErrInvalidCalldataArgument, i)
		}
		x, _ := uint256.FromBig(v)
		out[i] = x
	}
	return out, nil
}

// ParseArgs parses decimal integer strings such as CLI arguments.
func ParseArgs(args []string) ([]*uint256.Int, error) {
	out := make([]*uint256.Int, len(args))
	for i, a := range args {
		b, ok := new(big.Int).SetString(strings.TrimSpace(a), 10)
		if !ok {
			return nil, fmt.Errorf("%w: argument %d (%q) is not an integer", ErrInvalidCalldataArgument, i, a)
		}
		v, err := FromBig(b)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = v[0]
	}
	return out, nil
}
