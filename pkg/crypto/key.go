package crypto

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// PrivateKey is a secp256k1 secret used for taproot key-path spends.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// PrivateKeyFromBytes wraps a 32-byte secret. Zero and out-of-range
// scalars are rejected.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(b))
	}
	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(b); overflow || s.IsZero() {
		return nil, fmt.Errorf("private key out of range")
	}
	return &PrivateKey{key: secp256k1.NewPrivateKey(&s)}, nil
}

// OutputKey returns the BIP-86 output key: the internal key tweaked with
// an empty script tree. It is the witness program of the key's address.
func (pk *PrivateKey) OutputKey() []byte {
	return schnorr.SerializePubKey(txscript.ComputeTaprootKeyNoScript(pk.key.PubKey()))
}

// Key exposes the underlying key for txscript.
func (pk *PrivateKey) Key() *secp256k1.PrivateKey {
	return pk.key
}

// Zero clears the secret.
func (pk *PrivateKey) Zero() {
	pk.key.Zero()
}
