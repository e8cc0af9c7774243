// Package slippage derives the settlement bounds embedded in a plan from a
// quote and a user tolerance in basis points.
package slippage

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/subfrost/swapengine/internal/amm"
	"github.com/subfrost/swapengine/pkg/fixedpoint"
)

// ErrInvalidSlippage is returned for a tolerance outside [0, 10000] bps.
var ErrInvalidSlippage = errors.New("invalid slippage")

const (
	// MaxToleranceBps is 100%.
	MaxToleranceBps = 10_000

	// DefaultToleranceBps is 0.5%.
	DefaultToleranceBps = 50
)

var bps = uint256.NewInt(MaxToleranceBps)

// ValidateTolerance checks that toleranceBps lies in [0, 10000].
func ValidateTolerance(toleranceBps int) error {
	if toleranceBps < 0 || toleranceBps > MaxToleranceBps {
		return fmt.Errorf("%w: %d bps outside [0, %d]", ErrInvalidSlippage, toleranceBps, MaxToleranceBps)
	}
	return nil
}

// MinimumFromSlippage returns floor(amount * (10000 - bps) / 10000), the
// least output accepted on-chain.
func MinimumFromSlippage(amount *uint256.Int, toleranceBps int) (*uint256.Int, error) {
	if err := ValidateTolerance(toleranceBps); err != nil {
		return nil, err
	}
	if err := fixedpoint.Validate(amount); err != nil {
		return nil, err
	}
	return fixedpoint.MulDivFloor(amount, uint256.NewInt(uint64(MaxToleranceBps-toleranceBps)), bps)
}

// MaximumFromSlippage returns ceil(amount * (10000 + bps) / 10000), the most
// input the user agrees to spend.
func MaximumFromSlippage(amount *uint256.Int, toleranceBps int) (*uint256.Int, error) {
	if err := ValidateTolerance(toleranceBps); err != nil {
		return nil, err
	}
	if err := fixedpoint.Validate(amount); err != nil {
		return nil, err
	}
	max, err := fixedpoint.MulDivCeil(amount, uint256.NewInt(uint64(MaxToleranceBps+toleranceBps)), bps)
	if err != nil {
		return nil, err
	}
	if !fixedpoint.InU128Range(max) {
		return nil, fmt.Errorf("%w: maximum input %s", fixedpoint.ErrOverflow, max.Dec())
	}
	return max, nil
}

// Window is the pair of bounds a plan commits to.
type Window struct {
	Mode         amm.Mode     `json:"mode"`
	ToleranceBps int          `json:"tolerance_bps"`
	MinimumOut   *uint256.Int `json:"minimum_out"`
	MaximumIn    *uint256.Int `json:"maximum_in"`
}

// NewWindow derives bounds for a quoted trade. Exact-in trades spend
// exactly the quoted input; exact-out trades cap the input and still pass a
// slippage-reduced minimum to the pool.
func NewWindow(mode amm.Mode, input, output *uint256.Int, toleranceBps int) (*Window, error) {
	minOut, err := MinimumFromSlippage(output, toleranceBps)
	if err != nil {
		return nil, err
	}
	w := &Window{Mode: mode, ToleranceBps: toleranceBps, MinimumOut: minOut}
	switch mode {
	case amm.ExactIn:
		if err := fixedpoint.Validate(input); err != nil {
			return nil, err
		}
		w.MaximumIn = fixedpoint.Clone(input)
	case amm.ExactOut:
		if w.MaximumIn, err = MaximumFromSlippage(input, toleranceBps); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown trade mode %d", mode)
	}
	return w, nil
}

// ForRoute is NewWindow over a routed quote, including any BTC legs.
func ForRoute(q *amm.RouteQuote, toleranceBps int) (*Window, error) {
	return NewWindow(q.Mode, q.InputAmount, q.OutputAmount, toleranceBps)
}

// ParsePercent converts a percent string such as "0.5" into basis points.
// Precision below one basis point is truncated.
func ParsePercent(s string) (int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlippage, s)
	}
	v := d.Shift(2).Truncate(0)
	if v.IsNegative() || v.GreaterThan(decimal.NewFromInt(MaxToleranceBps)) {
		return 0, fmt.Errorf("%w: %s%% outside [0, 100]", ErrInvalidSlippage, s)
	}
	return int(v.IntPart()), nil
}
