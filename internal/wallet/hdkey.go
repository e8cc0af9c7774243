package wallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/subfrost/swapengine/pkg/crypto"
	"github.com/tyler-smith/go-bip32"
)

// BIP-86 derivation: m/86'/coin'/account'/change/index.
const (
	PurposeBIP86 = bip32.FirstHardenedChild + 86

	CoinTypeBitcoin = bip32.FirstHardenedChild + 0
	CoinTypeTestnet = bip32.FirstHardenedChild + 1

	ChangeExternal = 0
	ChangeInternal = 1
)

// CoinType returns the BIP-44 coin type for params. Every network other
// than mainnet shares the testnet coin type.
func CoinType(params *chaincfg.Params) uint32 {
	if params.Net == wire.MainNet {
		return CoinTypeBitcoin
	}
	return CoinTypeTestnet
}

// HDKey is a BIP-32 extended key.
type HDKey struct {
	key *bip32.Key
}

// NewMasterKey creates a master HD key from a 64-byte seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("create master key: %w", err)
	}
	return &HDKey{key: master}, nil
}

// DeriveChild derives a child key at the given index.
// For hardened derivation, add bip32.FirstHardenedChild to the index.
func (k *HDKey) DeriveChild(index uint32) (*HDKey, error) {
	child, err := k.key.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("derive child %d: %w", index, err)
	}
	return &HDKey{key: child}, nil
}

// DerivePath derives a key along a sequence of indices.
func (k *HDKey) DerivePath(indices ...uint32) (*HDKey, error) {
	current := k
	for _, idx := range indices {
		child, err := current.DeriveChild(idx)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}

// DeriveTaproot derives the key at m/86'/coin'/account'/change/index.
func (k *HDKey) DeriveTaproot(params *chaincfg.Params, account, change, index uint32) (*HDKey, error) {
	return k.DerivePath(
		PurposeBIP86,
		CoinType(params),
		bip32.FirstHardenedChild+account,
		change,
		index,
	)
}

// PrivateKey returns the signing key. Public-only keys have none.
func (k *HDKey) PrivateKey() (*crypto.PrivateKey, error) {
	if !k.key.IsPrivate {
		return nil, fmt.Errorf("cannot sign with a public key")
	}
	// bip32 private keys carry a leading zero byte.
	raw := k.key.Key
	if len(raw) == 33 && raw[0] == 0 {
		raw = raw[1:]
	}
	return crypto.PrivateKeyFromBytes(raw)
}

// PublicKeyBytes returns the compressed 33-byte public key.
func (k *HDKey) PublicKeyBytes() []byte {
	return k.key.PublicKey().Key
}

// TaprootAddress returns the BIP-86 key-path-only address of this key:
// the internal key tweaked with an empty script tree.
func (k *HDKey) TaprootAddress(params *chaincfg.Params) (*btcutil.AddressTaproot, error) {
	internal, err := btcec.ParsePubKey(k.PublicKeyBytes())
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	output := txscript.ComputeTaprootKeyNoScript(internal)
	return btcutil.NewAddressTaproot(schnorr.SerializePubKey(output), params)
}

// Depth returns the derivation depth (0 for master).
func (k *HDKey) Depth() uint8 {
	return k.key.Depth
}
