package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
)

func scalar(last byte) []byte {
	b := make([]byte, 32)
	b[31] = last
	return b
}

func TestPrivateKeyFromBytes(t *testing.T) {
	n, _ := hex.DecodeString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141")
	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{"one", scalar(1), false},
		{"empty", nil, true},
		{"short", make([]byte, 16), true},
		{"long", make([]byte, 33), true},
		{"zero", make([]byte, 32), true},
		{"order", n, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PrivateKeyFromBytes(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("PrivateKeyFromBytes() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOutputKey_Generator(t *testing.T) {
	key, err := PrivateKeyFromBytes(scalar(1))
	if err != nil {
		t.Fatal(err)
	}
	internal := "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	if got := hex.EncodeToString(schnorr.SerializePubKey(key.Key().PubKey())); got != internal {
		t.Fatalf("internal key = %s, want %s", got, internal)
	}
	out := key.OutputKey()
	if len(out) != 32 {
		t.Fatalf("OutputKey() length = %d, want 32", len(out))
	}
	if hex.EncodeToString(out) == internal {
		t.Error("OutputKey() is not tweaked")
	}
	hash := HashParts([]byte("sighash"))
	sig, err := schnorr.Sign(txscript.TweakTaprootPrivKey(*key.Key(), nil), hash[:])
	if err != nil {
		t.Fatal(err)
	}
	pub, err := schnorr.ParsePubKey(out)
	if err != nil {
		t.Fatal(err)
	}
	if !sig.Verify(hash[:], pub) {
		t.Error("tweaked signature does not verify against OutputKey()")
	}
}

func TestZero(t *testing.T) {
	key, err := PrivateKeyFromBytes(scalar(3))
	if err != nil {
		t.Fatal(err)
	}
	key.Zero()
	if !key.Key().Key.IsZero() {
		t.Error("Zero() left the scalar set")
	}
}
