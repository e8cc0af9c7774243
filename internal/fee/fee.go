// Package fee implements the protocol fee arithmetic: the pool swap fee and
// the independent frBTC wrap and unwrap fees. All fees are expressed in parts
// per thousand and always round in the protocol's favour.
package fee

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/subfrost/swapengine/pkg/fixedpoint"
)

// Fee errors.
var (
	ErrInvalidFee     = errors.New("invalid fee")
	ErrAmountTooSmall = errors.New("amount too small")
)

// PerThousand is the fee denominator.
const PerThousand = 1000

// MaxPremium is the frBTC premium that corresponds to a 100% fee.
const MaxPremium = 100_000_000

// premiumPerUnit converts a premium into parts per thousand.
const premiumPerUnit = MaxPremium / PerThousand

var thousand = uint256.NewInt(PerThousand)

// Params holds the frBTC wrap and unwrap fees. They are independent
// protocol parameters and must never be assumed equal.
type Params struct {
	WrapPerThousand   uint32 `json:"wrap_fee_per_thousand"`
	UnwrapPerThousand uint32 `json:"unwrap_fee_per_thousand"`
}

// Validate checks both fees are within [0, 1000].
func (p Params) Validate() error {
	if err := ValidatePerThousand(p.WrapPerThousand); err != nil {
		return fmt.Errorf("wrap: %w", err)
	}
	if err := ValidatePerThousand(p.UnwrapPerThousand); err != nil {
		return fmt.Errorf("unwrap: %w", err)
	}
	return nil
}

// ValidatePerThousand rejects fees above 1000.
func ValidatePerThousand(feePerThousand uint32) error {
	if feePerThousand > PerThousand {
		return fmt.Errorf("%w: %d per thousand exceeds %d", ErrInvalidFee, feePerThousand, PerThousand)
	}
	return nil
}

func validateInputs(amount *uint256.Int, feePerThousand uint32) error {
	if err := fixedpoint.Validate(amount); err != nil {
		return err
	}
	return ValidatePerThousand(feePerThousand)
}

// ProtocolSwapFee returns floor(amount * feePerThousand / 1000).
func ProtocolSwapFee(amount *uint256.Int, feePerThousand uint32) (*uint256.Int, error) {
	if err := validateInputs(amount, feePerThousand); err != nil {
		return nil, err
	}
	return fixedpoint.MulDivFloor(amount, uint256.NewInt(uint64(feePerThousand)), thousand)
}

// Deduct returns amount minus its fee.
func Deduct(amount *uint256.Int, feePerThousand uint32) (*uint256.Int, error) {
	f, err := ProtocolSwapFee(amount, feePerThousand)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Sub(amount, f), nil
}

// ApplyWrapFee returns the frBTC received for wrapping amountSats.
func ApplyWrapFee(amountSats *uint256.Int, wrapFeePerThousand uint32) (*uint256.Int, error) {
	return Deduct(amountSats, wrapFeePerThousand)
}

// ApplyUnwrapFee returns the sats received for unwrapping amount of frBTC.
func ApplyUnwrapFee(amount *uint256.Int, unwrapFeePerThousand uint32) (*uint256.Int, error) {
	return Deduct(amount, unwrapFeePerThousand)
}

// GrossUp returns the smallest gross amount whose fee-deducted value is at
// least net. A 100% fee has no such amount.
func GrossUp(net *uint256.Int, feePerThousand uint32) (*uint256.Int, error) {
	if err := validateInputs(net, feePerThousand); err != nil {
		return nil, err
	}
	if feePerThousand == PerThousand {
		return nil, fmt.Errorf("%w: fee of %d per thousand consumes every input", ErrAmountTooSmall, feePerThousand)
	}
	if net.IsZero() {
		return new(uint256.Int), nil
	}
	// Deduct(g) = ceil(g*(1000-f)/1000), so the least g with Deduct(g) >= net
	// is floor((net-1)*1000/(1000-f)) + 1. This is never above
	// ceil(net*1000/(1000-f)).
	netMinusOne := new(uint256.Int).SubUint64(net, 1)
	gross, err := fixedpoint.MulDivFloor(netMinusOne, thousand, uint256.NewInt(uint64(PerThousand-feePerThousand)))
	if err != nil {
		return nil, err
	}
	return gross.AddUint64(gross, 1), nil
}

// PremiumToPerThousand converts the frBTC contract premium (where 1e8 is
// 100%) into parts per thousand. A fractional part rounds up so quotes never
// credit more than the contract will mint.
func PremiumToPerThousand(premium *uint256.Int) (uint32, error) {
	if premium == nil || premium.Gt(uint256.NewInt(MaxPremium)) {
		return 0, fmt.Errorf("%w: premium out of range [0, %d]", ErrInvalidFee, MaxPremium)
	}
	return uint32((premium.Uint64() + premiumPerUnit - 1) / premiumPerUnit), nil
}
