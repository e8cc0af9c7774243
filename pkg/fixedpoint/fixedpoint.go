// Package fixedpoint provides overflow-safe unsigned integer arithmetic for
// token amounts, reserves and fees.
//
// Amounts are *uint256.Int values restricted to the 128-bit protocol range.
// No function mutates its arguments; every result is freshly allocated.
package fixedpoint

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// Arithmetic errors.
var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrDivisionByZero = errors.New("division by zero")
	ErrUnderflow      = errors.New("arithmetic underflow")
	ErrOverflow       = errors.New("arithmetic overflow")
)

// MaxU128 is the largest amount the protocol can carry (2^128 - 1).
var MaxU128 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1)

// Zero returns a fresh zero amount.
func Zero() *uint256.Int {
	return new(uint256.Int)
}

// New returns a fresh amount holding v.
func New(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// Clone returns a copy of x, or zero if x is nil.
func Clone(x *uint256.Int) *uint256.Int {
	if x == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(x)
}

// InU128Range reports whether x is non-nil and fits in 128 bits.
func InU128Range(x *uint256.Int) bool {
	return x != nil && x.BitLen() <= 128
}

// Validate returns ErrInvalidAmount when x is nil or exceeds 128 bits.
func Validate(x *uint256.Int) error {
	if x == nil {
		return fmt.Errorf("%w: nil", ErrInvalidAmount)
	}
	if !InU128Range(x) {
		return fmt.Errorf("%w: %s exceeds 128 bits", ErrInvalidAmount, x.Dec())
	}
	return nil
}

// CheckedAdd returns x + y, failing if the sum leaves the 128-bit range.
func CheckedAdd(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow || !InU128Range(z) {
		return nil, fmt.Errorf("%w: %s + %s", ErrOverflow, x.Dec(), y.Dec())
	}
	return z, nil
}

// CheckedSub returns x - y, failing when y > x.
func CheckedSub(x, y *uint256.Int) (*uint256.Int, error) {
	if x.Lt(y) {
		return nil, fmt.Errorf("%w: %s - %s", ErrUnderflow, x.Dec(), y.Dec())
	}
	return new(uint256.Int).Sub(x, y), nil
}

// MulDivFloor returns floor(x * y / d) using a 512-bit intermediate product.
func MulDivFloor(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s / %s", ErrOverflow, x.Dec(), y.Dec(), d.Dec())
	}
	return z, nil
}

// MulDivCeil returns ceil(x * y / d) using a 512-bit intermediate product.
func MulDivCeil(x, y, d *uint256.Int) (*uint256.Int, error) {
	z, err := MulDivFloor(x, y, d)
	if err != nil {
		return nil, err
	}
	if !new(uint256.Int).MulMod(x, y, d).IsZero() {
		if z.Eq(maxU256) {
			return nil, fmt.Errorf("%w: ceil of %s * %s / %s", ErrOverflow, x.Dec(), y.Dec(), d.Dec())
		}
		z.AddUint64(z, 1)
	}
	return z, nil
}

var maxU256 = new(uint256.Int).SetAllOne()

// Min returns a copy of the smaller of x and y.
func Min(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return Clone(x)
	}
	return Clone(y)
}

// Sum adds a list of amounts, failing on overflow.
func Sum(xs ...*uint256.Int) (*uint256.Int, error) {
	total := new(uint256.Int)
	for _, x := range xs {
		next, err := CheckedAdd(total, x)
		if err != nil {
			return nil, err
		}
		total = next
	}
	return total, nil
}

// ParseAmount parses a base-10 integer string into an amount.
// Signs, fractions, exponents and values above 128 bits are rejected.
func ParseAmount(s string) (*uint256.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return nil, fmt.Errorf("%w: %q is not an unsigned integer", ErrInvalidAmount, s)
		}
	}
	x, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAmount, s, err)
	}
	if err := Validate(x); err != nil {
		return nil, err
	}
	return x, nil
}

// FromInt64 converts a signed boundary value, rejecting negatives.
func FromInt64(v int64) (*uint256.Int, error) {
	if v < 0 {
		return nil, fmt.Errorf("%w: negative value %d", ErrInvalidAmount, v)
	}
	return uint256.NewInt(uint64(v)), nil
}

// FromBig converts a big.Int, rejecting nil, negative and out-of-range values.
func FromBig(b *big.Int) (*uint256.Int, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil", ErrInvalidAmount)
	}
	if b.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative value %s", ErrInvalidAmount, b.String())
	}
	x, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("%w: %s exceeds 256 bits", ErrInvalidAmount, b.String())
	}
	if err := Validate(x); err != nil {
		return nil, err
	}
	return x, nil
}
