package wallet

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
)

func testMaster(t *testing.T) *HDKey {
	t.Helper()
	seed, err := SeedFromMnemonic(abandonAbout, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	master, err := NewMasterKey(seed)
	if err != nil {
		t.Fatalf("NewMasterKey() error: %v", err)
	}
	return master
}

func TestNewMasterKey_InvalidSeedLength(t *testing.T) {
	for _, n := range []int{0, 32, 128} {
		if _, err := NewMasterKey(make([]byte, n)); err == nil {
			t.Errorf("NewMasterKey(%d bytes) should fail", n)
		}
	}
}

// BIP-86 test vector for m/86'/0'/0'/0/0.
func TestDeriveTaproot_Vector(t *testing.T) {
	key, err := testMaster(t).DeriveTaproot(&chaincfg.MainNetParams, 0, ChangeExternal, 0)
	if err != nil {
		t.Fatalf("DeriveTaproot() error: %v", err)
	}
	if key.Depth() != 5 {
		t.Errorf("depth = %d, want 5", key.Depth())
	}
	internal := hex.EncodeToString(key.PublicKeyBytes()[1:])
	if want := "cc8a4bc64d897bddc5fbc2f670f7a8ba0b386779106cf1223c6fc5d7cd6fc115"; internal != want {
		t.Errorf("internal key = %s, want %s", internal, want)
	}
	addr, err := key.TaprootAddress(&chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("TaprootAddress() error: %v", err)
	}
	if want := "bc1p5cyxnuxmeuwuvkwfem96lqzszd02n6xdcjrs20cac6yqjjwudpxqkedrcr"; addr.EncodeAddress() != want {
		t.Errorf("address = %s, want %s", addr.EncodeAddress(), want)
	}
}

func TestDeriveTaproot_CoinTypePerNetwork(t *testing.T) {
	master := testMaster(t)
	main, _ := master.DeriveTaproot(&chaincfg.MainNetParams, 0, ChangeExternal, 0)
	reg, _ := master.DeriveTaproot(&chaincfg.RegressionNetParams, 0, ChangeExternal, 0)
	sig, _ := master.DeriveTaproot(&chaincfg.SigNetParams, 0, ChangeExternal, 0)
	if bytes.Equal(main.PublicKeyBytes(), reg.PublicKeyBytes()) {
		t.Error("mainnet and regtest should use different coin types")
	}
	if !bytes.Equal(reg.PublicKeyBytes(), sig.PublicKeyBytes()) {
		t.Error("test networks should share a coin type")
	}
	addr, _ := reg.TaprootAddress(&chaincfg.RegressionNetParams)
	if s := addr.EncodeAddress(); s[:5] != "bcrt1" {
		t.Errorf("regtest address = %s", s)
	}
}

func TestPrivateKey_MatchesAddress(t *testing.T) {
	key, err := testMaster(t).DeriveTaproot(&chaincfg.MainNetParams, 0, ChangeExternal, 0)
	if err != nil {
		t.Fatal(err)
	}
	priv, err := key.PrivateKey()
	if err != nil {
		t.Fatalf("PrivateKey() error: %v", err)
	}
	addr, err := key.TaprootAddress(&chaincfg.MainNetParams)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(priv.OutputKey(), addr.WitnessProgram()) {
		t.Errorf("OutputKey() = %x, want witness program %x", priv.OutputKey(), addr.WitnessProgram())
	}
}
