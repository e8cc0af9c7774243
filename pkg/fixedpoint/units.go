package fixedpoint

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// DefaultDecimals is the display precision of alkane tokens and BTC.
const DefaultDecimals = 8

// ToBaseUnits converts a human-entered decimal string ("1.5") into the
// smallest unit, flooring any digits beyond the token precision.
func ToBaseUnits(display string, decimals int32) (*uint256.Int, error) {
	d, err := decimal.NewFromString(display)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, display, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative value %q", ErrInvalidAmount, display)
	}
	return FromBig(d.Shift(decimals).Floor().BigInt())
}

// FromBaseUnits renders an amount with the given token precision, rounded
// to places fractional digits.
func FromBaseUnits(amount *uint256.Int, decimals, places int32) string {
	if amount == nil {
		return decimal.Zero.StringFixed(places)
	}
	return decimal.NewFromBigInt(amount.ToBig(), -decimals).StringFixed(places)
}
