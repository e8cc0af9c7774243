package fee

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/subfrost/swapengine/pkg/fixedpoint"
)

func TestProtocolSwapFee(t *testing.T) {
	tests := []struct {
		amount uint64
		fee    uint32
		want   uint64
	}{
		{1_000_000, 3, 3000},
		{1_000_000, 0, 0},
		{1_000_000, 1000, 1_000_000},
		{999, 3, 2},
		{333, 3, 0},
		{0, 10, 0},
	}
	for _, tt := range tests {
		got, err := ProtocolSwapFee(uint256.NewInt(tt.amount), tt.fee)
		if err != nil {
			t.Fatalf("ProtocolSwapFee(%d, %d): %v", tt.amount, tt.fee, err)
		}
		if got.Uint64() != tt.want {
			t.Errorf("ProtocolSwapFee(%d, %d) = %d, want %d", tt.amount, tt.fee, got.Uint64(), tt.want)
		}
	}
}

func TestProtocolSwapFee_Invalid(t *testing.T) {
	if _, err := ProtocolSwapFee(uint256.NewInt(1), 1001); !errors.Is(err, ErrInvalidFee) {
		t.Errorf("fee 1001 err = %v, want ErrInvalidFee", err)
	}
	tooBig := new(uint256.Int).Lsh(uint256.NewInt(1), 130)
	if _, err := ProtocolSwapFee(tooBig, 1); !errors.Is(err, fixedpoint.ErrInvalidAmount) {
		t.Errorf("oversize err = %v, want ErrInvalidAmount", err)
	}
	if _, err := ProtocolSwapFee(nil, 1); !errors.Is(err, fixedpoint.ErrInvalidAmount) {
		t.Errorf("nil err = %v, want ErrInvalidAmount", err)
	}
}

func TestProtocolSwapFee_Monotonic(t *testing.T) {
	amount := uint256.NewInt(123_456_789)
	prev := uint256.NewInt(0)
	for f := uint32(0); f <= 1000; f += 7 {
		got, err := ProtocolSwapFee(amount, f)
		if err != nil {
			t.Fatal(err)
		}
		if got.Lt(prev) {
			t.Fatalf("fee decreased at %d: %d < %d", f, got.Uint64(), prev.Uint64())
		}
		if got.Gt(amount) {
			t.Fatalf("fee %d exceeds amount", got.Uint64())
		}
		prev = got
	}
}

func TestWrapUnwrapIndependent(t *testing.T) {
	params := Params{WrapPerThousand: 1, UnwrapPerThousand: 5}
	amount := uint256.NewInt(100_000)

	wrapped, err := ApplyWrapFee(amount, params.WrapPerThousand)
	if err != nil {
		t.Fatal(err)
	}
	if wrapped.Uint64() != 99_900 {
		t.Errorf("ApplyWrapFee = %d, want 99900", wrapped.Uint64())
	}
	unwrapped, err := ApplyUnwrapFee(amount, params.UnwrapPerThousand)
	if err != nil {
		t.Fatal(err)
	}
	if unwrapped.Uint64() != 99_500 {
		t.Errorf("ApplyUnwrapFee = %d, want 99500", unwrapped.Uint64())
	}
	if err := params.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if err := (Params{UnwrapPerThousand: 2000}).Validate(); !errors.Is(err, ErrInvalidFee) {
		t.Errorf("Validate err = %v, want ErrInvalidFee", err)
	}
}

func TestGrossUp_Minimal(t *testing.T) {
	for _, f := range []uint32{0, 1, 3, 10, 250, 999} {
		for net := uint64(1); net < 3000; net += 37 {
			gross, err := GrossUp(uint256.NewInt(net), f)
			if err != nil {
				t.Fatalf("GrossUp(%d, %d): %v", net, f, err)
			}
			eff, _ := Deduct(gross, f)
			if eff.Uint64() < net {
				t.Fatalf("GrossUp(%d, %d) = %d delivers %d", net, f, gross.Uint64(), eff.Uint64())
			}
			less, _ := Deduct(uint256.NewInt(gross.Uint64()-1), f)
			if less.Uint64() >= net {
				t.Fatalf("GrossUp(%d, %d) = %d is not minimal", net, f, gross.Uint64())
			}
			ceil, _ := fixedpoint.MulDivCeil(uint256.NewInt(net), uint256.NewInt(1000), uint256.NewInt(uint64(1000-f)))
			if gross.Gt(ceil) {
				t.Fatalf("GrossUp(%d, %d) = %d above ceil bound %d", net, f, gross.Uint64(), ceil.Uint64())
			}
		}
	}
}

func TestGrossUp_FullFee(t *testing.T) {
	if _, err := GrossUp(uint256.NewInt(10), 1000); !errors.Is(err, ErrAmountTooSmall) {
		t.Errorf("err = %v, want ErrAmountTooSmall", err)
	}
	got, err := GrossUp(uint256.NewInt(0), 5)
	if err != nil || !got.IsZero() {
		t.Errorf("GrossUp(0) = %v, %v", got, err)
	}
}

func TestPremiumToPerThousand(t *testing.T) {
	tests := []struct {
		premium uint64
		want    uint32
		wantErr bool
	}{
		{0, 0, false},
		{100_000, 1, false},
		{150_000, 2, false},
		{250_000, 3, false},
		{99_999, 1, false},
		{1, 1, false},
		{99_900_001, 1000, false},
		{100_000_000, 1000, false},
		{100_000_001, 0, true},
	}
	for _, tt := range tests {
		got, err := PremiumToPerThousand(uint256.NewInt(tt.premium))
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidFee) {
				t.Errorf("PremiumToPerThousand(%d) err = %v", tt.premium, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("PremiumToPerThousand(%d): %v", tt.premium, err)
		}
		if got != tt.want {
			t.Errorf("PremiumToPerThousand(%d) = %d, want %d", tt.premium, got, tt.want)
		}
	}
}
