package fixedpoint

import (
	"errors"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
)

func TestMaxU128(t *testing.T) {
	if MaxU128.BitLen() != 128 {
		t.Fatalf("MaxU128 bitlen = %d, want 128", MaxU128.BitLen())
	}
	if MaxU128.Dec() != "340282366920938463463374607431768211455" {
		t.Errorf("MaxU128 = %s", MaxU128.Dec())
	}
}

func TestMulDivFloorCeil(t *testing.T) {
	tests := []struct {
		name        string
		x, y, d     uint64
		floor, ceil uint64
	}{
		{"exact", 10, 10, 5, 20, 20},
		{"remainder", 10, 10, 3, 33, 34},
		{"zero numerator", 0, 7, 3, 0, 0},
		{"fee", 1_000_000, 3, 1000, 3000, 3000},
		{"fee rounding", 999, 3, 1000, 2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := MulDivFloor(New(tt.x), New(tt.y), New(tt.d))
			if err != nil {
				t.Fatalf("MulDivFloor: %v", err)
			}
			if f.Uint64() != tt.floor {
				t.Errorf("floor = %d, want %d", f.Uint64(), tt.floor)
			}
			c, err := MulDivCeil(New(tt.x), New(tt.y), New(tt.d))
			if err != nil {
				t.Fatalf("MulDivCeil: %v", err)
			}
			if c.Uint64() != tt.ceil {
				t.Errorf("ceil = %d, want %d", c.Uint64(), tt.ceil)
			}
		})
	}
}

func TestMulDiv_WideIntermediate(t *testing.T) {
	// MaxU128 * MaxU128 overflows 256 bits before the division.
	got, err := MulDivFloor(MaxU128, MaxU128, MaxU128)
	if err != nil {
		t.Fatalf("MulDivFloor: %v", err)
	}
	if !got.Eq(MaxU128) {
		t.Errorf("got = %s, want %s", got.Dec(), MaxU128.Dec())
	}
}

func TestMulDiv_DivisionByZero(t *testing.T) {
	if _, err := MulDivFloor(New(1), New(1), Zero()); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("err = %v, want ErrDivisionByZero", err)
	}
	if _, err := MulDivCeil(New(1), New(1), Zero()); !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("err = %v, want ErrDivisionByZero", err)
	}
}

func TestMulDiv_DoesNotMutate(t *testing.T) {
	x, y, d := New(7), New(9), New(4)
	if _, err := MulDivCeil(x, y, d); err != nil {
		t.Fatal(err)
	}
	if x.Uint64() != 7 || y.Uint64() != 9 || d.Uint64() != 4 {
		t.Errorf("arguments mutated: %d %d %d", x.Uint64(), y.Uint64(), d.Uint64())
	}
}

func TestCheckedAddSub(t *testing.T) {
	sum, err := CheckedAdd(New(5), New(7))
	if err != nil || sum.Uint64() != 12 {
		t.Fatalf("CheckedAdd = %v, %v", sum, err)
	}
	if _, err := CheckedAdd(MaxU128, New(1)); !errors.Is(err, ErrOverflow) {
		t.Errorf("err = %v, want ErrOverflow", err)
	}
	if _, err := CheckedSub(New(1), New(2)); !errors.Is(err, ErrUnderflow) {
		t.Errorf("err = %v, want ErrUnderflow", err)
	}
	diff, err := CheckedSub(New(9), New(2))
	if err != nil || diff.Uint64() != 7 {
		t.Errorf("CheckedSub = %v, %v", diff, err)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"0", "0", false},
		{"1000000", "1000000", false},
		{" 42 ", "42", false},
		{"340282366920938463463374607431768211455", "340282366920938463463374607431768211455", false},
		{"340282366920938463463374607431768211456", "", true},
		{"-1", "", true},
		{"+1", "", true},
		{"1.5", "", true},
		{"1e6", "", true},
		{"NaN", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("ParseAmount(%q) err = %v, want ErrInvalidAmount", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q): %v", tt.in, err)
			continue
		}
		if got.Dec() != tt.want {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got.Dec(), tt.want)
		}
	}
}

func TestFromInt64AndBig(t *testing.T) {
	if _, err := FromInt64(-1); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("FromInt64(-1) err = %v", err)
	}
	if v, err := FromInt64(5); err != nil || v.Uint64() != 5 {
		t.Errorf("FromInt64(5) = %v, %v", v, err)
	}
	if _, err := FromBig(big.NewInt(-3)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("FromBig(-3) err = %v", err)
	}
	tooBig := new(big.Int).Lsh(big.NewInt(1), 128)
	if _, err := FromBig(tooBig); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("FromBig(2^128) err = %v", err)
	}
}

func TestUnits(t *testing.T) {
	got, err := ToBaseUnits("1.5", DefaultDecimals)
	if err != nil {
		t.Fatalf("ToBaseUnits: %v", err)
	}
	if got.Uint64() != 150_000_000 {
		t.Errorf("ToBaseUnits(1.5) = %d, want 150000000", got.Uint64())
	}

	got, err = ToBaseUnits("0.000000019", DefaultDecimals)
	if err != nil {
		t.Fatalf("ToBaseUnits: %v", err)
	}
	if got.Uint64() != 1 {
		t.Errorf("ToBaseUnits floors to %d, want 1", got.Uint64())
	}

	if _, err := ToBaseUnits("-1", DefaultDecimals); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative err = %v", err)
	}

	if s := FromBaseUnits(uint256.NewInt(150_000_000), DefaultDecimals, 2); s != "1.50" {
		t.Errorf("FromBaseUnits = %q, want 1.50", s)
	}
}
