package amm

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/subfrost/swapengine/internal/fee"
	"github.com/subfrost/swapengine/pkg/fixedpoint"
	"github.com/subfrost/swapengine/pkg/types"
)

// Mode selects which side of a trade the user fixed.
type Mode uint8

const (
	// ExactIn fixes the input amount and quotes the output.
	ExactIn Mode = iota
	// ExactOut fixes the output amount and quotes the input.
	ExactOut
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ExactIn:
		return "exact_in"
	case ExactOut:
		return "exact_out"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode accepts "exact_in"/"sell" and "exact_out"/"buy".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "exact_in", "sell", "":
		return ExactIn, nil
	case "exact_out", "buy":
		return ExactOut, nil
	default:
		return 0, fmt.Errorf("unknown trade mode %q", s)
	}
}

// MarshalText encodes the mode name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText decodes any name accepted by ParseMode.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Quote is the priced result of one trade against one pool.
type Quote struct {
	Mode           Mode          `json:"mode"`
	Pool           types.AssetID `json:"pool"`
	AssetIn        types.AssetID `json:"asset_in"`
	AssetOut       types.AssetID `json:"asset_out"`
	InputAmount    *uint256.Int  `json:"input_amount"`
	OutputAmount   *uint256.Int  `json:"output_amount"`
	FeeAmount      *uint256.Int  `json:"fee_amount"`
	PriceImpactBps uint32        `json:"price_impact_bps"`
}

var bpsDenominator = uint256.NewInt(10_000)

// QuoteExactIn prices selling amountIn of assetIn into pool.
//
// The pool fee is taken from the input before the constant-product step:
//
//	effectiveIn = amountIn - floor(amountIn * fee / 1000)
//	amountOut   = floor(reserveOut * effectiveIn / (reserveIn + effectiveIn))
func QuoteExactIn(pool *Pool, assetIn types.AssetID, amountIn *uint256.Int) (*Quote, error) {
	if err := fixedpoint.Validate(amountIn); err != nil {
		return nil, err
	}
	if amountIn.IsZero() {
		return nil, fmt.Errorf("%w: zero input", ErrInvalidAmount)
	}
	rIn, rOut, err := pool.ReservesFor(assetIn)
	if err != nil {
		return nil, err
	}
	assetOut, _ := pool.Other(assetIn)

	feeAmt, err := fee.ProtocolSwapFee(amountIn, pool.FeePerThousand)
	if err != nil {
		return nil, err
	}
	effectiveIn := new(uint256.Int).Sub(amountIn, feeAmt)
	if effectiveIn.IsZero() {
		return nil, fmt.Errorf("%w: %s leaves nothing after a %d per thousand fee", ErrAmountTooSmall, amountIn.Dec(), pool.FeePerThousand)
	}

	denom, err := fixedpoint.CheckedAdd(rIn, effectiveIn)
	if err != nil {
		return nil, err
	}
	amountOut, err := fixedpoint.MulDivFloor(rOut, effectiveIn, denom)
	if err != nil {
		return nil, err
	}
	if amountOut.IsZero() {
		return nil, fmt.Errorf("%w: %s of %s yields no output", ErrAmountTooSmall, amountIn.Dec(), assetIn)
	}

	return &Quote{
		Mode:           ExactIn,
		Pool:           pool.ID,
		AssetIn:        assetIn,
		AssetOut:       assetOut,
		InputAmount:    fixedpoint.Clone(amountIn),
		OutputAmount:   amountOut,
		FeeAmount:      feeAmt,
		PriceImpactBps: PriceImpactBps(amountIn, amountOut, rIn, rOut),
	}, nil
}

// QuoteExactOut prices buying amountOut of assetOut from pool. The returned
// input is the least gross amount that still delivers amountOut:
//
//	net   = ceil(reserveIn * amountOut / (reserveOut - amountOut))
//	gross = least g with g - floor(g * fee / 1000) >= net
//
// gross never exceeds ceil(net * 1000 / (1000 - fee)).
func QuoteExactOut(pool *Pool, assetOut types.AssetID, amountOut *uint256.Int) (*Quote, error) {
	if err := fixedpoint.Validate(amountOut); err != nil {
		return nil, err
	}
	if amountOut.IsZero() {
		return nil, fmt.Errorf("%w: zero output", ErrInvalidAmount)
	}
	assetIn, err := pool.Other(assetOut)
	if err != nil {
		return nil, err
	}
	rIn, rOut, err := pool.ReservesFor(assetIn)
	if err != nil {
		return nil, err
	}
	if !amountOut.Lt(rOut) {
		return nil, fmt.Errorf("%w: want %s of %s, pool holds %s", ErrInsufficientLiquidity, amountOut.Dec(), assetOut, rOut.Dec())
	}

	net, err := fixedpoint.MulDivCeil(rIn, amountOut, new(uint256.Int).Sub(rOut, amountOut))
	if err != nil {
		return nil, err
	}
	gross, err := fee.GrossUp(net, pool.FeePerThousand)
	if err != nil {
		return nil, err
	}
	if err := fixedpoint.Validate(gross); err != nil {
		return nil, fmt.Errorf("%w: required input %s", ErrInsufficientLiquidity, gross.Dec())
	}
	feeAmt, err := fee.ProtocolSwapFee(gross, pool.FeePerThousand)
	if err != nil {
		return nil, err
	}

	return &Quote{
		Mode:           ExactOut,
		Pool:           pool.ID,
		AssetIn:        assetIn,
		AssetOut:       assetOut,
		InputAmount:    gross,
		OutputAmount:   fixedpoint.Clone(amountOut),
		FeeAmount:      feeAmt,
		PriceImpactBps: PriceImpactBps(gross, amountOut, rIn, rOut),
	}, nil
}

// PriceImpactBps compares the executed price out/in with the marginal
// price reserveOut/reserveIn, in basis points clamped to [0, 10000]:
//
//	10000 - floor(10000 * out * reserveIn / (in * reserveOut))
//
// Display only.
func PriceImpactBps(amountIn, amountOut, reserveIn, reserveOut *uint256.Int) uint32 {
	if amountIn.IsZero() || reserveOut.IsZero() {
		return 0
	}
	num, overflow := new(uint256.Int).MulOverflow(amountOut, reserveIn)
	if overflow {
		return 0
	}
	den, overflow := new(uint256.Int).MulOverflow(amountIn, reserveOut)
	if overflow {
		return 0
	}
	ratio, err := fixedpoint.MulDivFloor(num, bpsDenominator, den)
	if err != nil || !ratio.Lt(bpsDenominator) {
		return 0
	}
	return uint32(10_000 - ratio.Uint64())
}
