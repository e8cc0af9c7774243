package tx

import (
	"bytes"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/txscript"
	"github.com/holiman/uint256"
	"github.com/subfrost/swapengine/pkg/cellpack"
	"github.com/subfrost/swapengine/pkg/types"
)

func swapStones() []Protostone {
	call := cellpack.New(types.MustAssetID("2:100"), cellpack.OpSwap, uint256.NewInt(990_000), uint256.NewInt(840_003))
	return []Protostone{
		{
			Edicts:  []ProtoEdict{{Asset: types.MustAssetID("2:0"), Amount: uint256.NewInt(10_000), Target: Proto(1)}},
			Pointer: Vout(0),
			Refund:  Vout(0),
		},
		{Call: &call, Pointer: Vout(0), Refund: Vout(0)},
	}
}

func TestProtostoneString(t *testing.T) {
	got := FormatProtostones(swapStones())
	want := "[2:0:10000:p1]:v0:v0,[2,100,3,990000,840003]:v0:v0"
	if got != want {
		t.Errorf("FormatProtostones = %q, want %q", got, want)
	}
}

func TestTargetResolve(t *testing.T) {
	if got := Vout(1).Resolve(3); got != 1 {
		t.Errorf("v1 = %d, want 1", got)
	}
	if got := Proto(0).Resolve(3); got != 4 {
		t.Errorf("p0 = %d, want 4", got)
	}
	if got := Proto(2).Resolve(3); got != 6 {
		t.Errorf("p2 = %d, want 6", got)
	}
}

func TestRunestoneRoundTrip(t *testing.T) {
	script, err := EncodeRunestone(swapStones(), 3)
	if err != nil {
		t.Fatalf("EncodeRunestone: %v", err)
	}
	if script[0] != txscript.OP_RETURN || script[1] != txscript.OP_13 {
		t.Fatalf("script prefix = %x", script[:2])
	}

	raw, err := DecodeRunestone(script)
	if err != nil {
		t.Fatalf("DecodeRunestone: %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("protostones = %d, want 2", len(raw))
	}
	for i, r := range raw {
		if r.Protocol != ProtocolAlkanes {
			t.Errorf("stone %d protocol = %d", i, r.Protocol)
		}
		if ptr, ok := r.Pointer(); !ok || ptr != 0 {
			t.Errorf("stone %d pointer = %d, %v", i, ptr, ok)
		}
	}

	// p0 edict: block delta 2, tx 0, amount, p1 resolved to 3+1+1.
	f := raw[0].Fields
	edict := f[len(f)-4:]
	want := []uint64{2, 0, 10_000, 5}
	for i := range want {
		if edict[i].Uint64() != want[i] {
			t.Errorf("edict[%d] = %d, want %d", i, edict[i].Uint64(), want[i])
		}
	}

	msg, err := raw[1].Message()
	if err != nil {
		t.Fatal(err)
	}
	cp, err := cellpack.DecodeCellpack(msg)
	if err != nil {
		t.Fatalf("DecodeCellpack: %v", err)
	}
	if cp.String() != "[2,100,3,990000,840003]" {
		t.Errorf("cellpack = %s", cp)
	}
}

func TestRunestone_LargeMessage(t *testing.T) {
	args := make([]*uint256.Int, 60)
	for i := range args {
		args[i] = new(uint256.Int).SetAllOne()
		args[i].Rsh(args[i], 128)
	}
	call := cellpack.New(types.MustAssetID("4:65522"), cellpack.OpFactorySwapExactIn, args...)
	script, err := EncodeRunestone([]Protostone{{Call: &call, Pointer: Vout(0), Refund: Vout(0)}}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(script) < txscript.MaxScriptElementSize {
		t.Fatalf("script only %d bytes, expected several pushes", len(script))
	}
	raw, err := DecodeRunestone(script)
	if err != nil {
		t.Fatalf("DecodeRunestone: %v", err)
	}
	msg, err := raw[0].Message()
	if err != nil {
		t.Fatal(err)
	}
	enc, _ := call.Encode()
	if !bytes.Equal(msg, enc) {
		t.Errorf("message differs after round trip: %d vs %d bytes", len(msg), len(enc))
	}
}

func TestEdictDeltaEncoding(t *testing.T) {
	stone := Protostone{
		Edicts: []ProtoEdict{
			{Asset: types.MustAssetID("2:7"), Amount: uint256.NewInt(5), Target: Proto(1)},
			{Asset: types.MustAssetID("2:3"), Amount: uint256.NewInt(9), Target: Proto(1)},
		},
	}
	f, err := stone.fields(2)
	if err != nil {
		t.Fatal(err)
	}
	body := f[len(f)-8:]
	// sorted: 2:3 then 2:7 with tx delta 4
	want := []uint64{2, 3, 9, 4, 0, 4, 5, 4}
	for i := range want {
		if body[i].Uint64() != want[i] {
			t.Errorf("body[%d] = %d, want %d", i, body[i].Uint64(), want[i])
		}
	}
	if stone.Edicts[0].Asset != types.MustAssetID("2:7") {
		t.Error("fields reordered the caller's edicts")
	}
}

func TestDecodeRunestone_Malformed(t *testing.T) {
	tests := map[string][]byte{
		"empty":      nil,
		"no marker":  {txscript.OP_RETURN},
		"wrong op":   {txscript.OP_RETURN, txscript.OP_12},
		"not return": {txscript.OP_13},
	}
	for name, s := range tests {
		if _, err := DecodeRunestone(s); !errors.Is(err, ErrMalformedRunestone) {
			t.Errorf("%s: err = %v, want ErrMalformedRunestone", name, err)
		}
	}
}

func TestEncodeRunestone_BadEdict(t *testing.T) {
	stone := Protostone{Edicts: []ProtoEdict{{Asset: types.MustAssetID("2:0")}}}
	if _, err := EncodeRunestone([]Protostone{stone}, 1); !errors.Is(err, cellpack.ErrInvalidCalldataArgument) {
		t.Errorf("err = %v, want ErrInvalidCalldataArgument", err)
	}
}

func TestRunestone_TrailingZeroField(t *testing.T) {
	// Refund v0 makes 0 the last integer of the stream, for every stream
	// length modulo the chunk size.
	for n := 0; n < chunkSize+1; n++ {
		args := make([]*uint256.Int, n)
		for i := range args {
			args[i] = uint256.NewInt(1)
		}
		call := cellpack.New(types.MustAssetID("32:0"), cellpack.OpWrap, args...)
		stones := []Protostone{
			{Call: &call, Pointer: Vout(1), Refund: Vout(0)},
			{Pointer: Vout(2), Refund: Vout(0)},
		}
		script, err := EncodeRunestone(stones, 3)
		if err != nil {
			t.Fatalf("args=%d: EncodeRunestone: %v", n, err)
		}
		raw, err := DecodeRunestone(script)
		if err != nil {
			t.Fatalf("args=%d: DecodeRunestone: %v", n, err)
		}
		if len(raw) != len(stones) {
			t.Fatalf("args=%d: decoded %d protostones, want %d", n, len(raw), len(stones))
		}
		for i, r := range raw {
			want, _ := stones[i].fields(3)
			if len(r.Fields) != len(want) {
				t.Fatalf("args=%d stone %d: %d fields, want %d", n, i, len(r.Fields), len(want))
			}
			if v, ok := r.Field(tagRefund); !ok || !v.IsZero() {
				t.Errorf("args=%d stone %d: refund = %v, %v; want 0", n, i, v, ok)
			}
		}
		if ptr, _ := raw[1].Pointer(); ptr != 2 {
			t.Errorf("args=%d: pointer = %d, want 2", n, ptr)
		}
	}
}
