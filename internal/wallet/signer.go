package wallet

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/subfrost/swapengine/internal/log"
	"github.com/subfrost/swapengine/pkg/crypto"
	"github.com/subfrost/swapengine/pkg/tx"
)

// ErrForeignInput is returned when a template spends an output this key
// cannot sign for.
var ErrForeignInput = errors.New("input not owned by signer")

// Signer signs taproot key-path spends of a single BIP-86 address.
type Signer struct {
	key     *crypto.PrivateKey
	address string
	script  []byte
}

// NewSigner derives the signing key for one address from an HD key.
func NewSigner(key *HDKey, params *chaincfg.Params) (*Signer, error) {
	priv, err := key.PrivateKey()
	if err != nil {
		return nil, err
	}
	addr, err := btcutil.NewAddressTaproot(priv.OutputKey(), params)
	if err != nil {
		return nil, fmt.Errorf("taproot address: %w", err)
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, fmt.Errorf("address script: %w", err)
	}
	return &Signer{key: priv, address: addr.EncodeAddress(), script: script}, nil
}

// Address returns the bech32m address the signer controls.
func (s *Signer) Address() string {
	return s.address
}

// PkScript returns the output script of Address.
func (s *Signer) PkScript() []byte {
	return append([]byte(nil), s.script...)
}

// Sign produces a key-path witness for every input of t. All inputs must
// pay to the signer's script; the template is left untouched.
func (s *Signer) Sign(ctx context.Context, t *tx.Transaction) (*wire.MsgTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	msg := t.MsgTx()
	fetcher := t.PrevOutputFetcher()
	hashes := txscript.NewTxSigHashes(msg, fetcher)

	for i, in := range t.Inputs {
		c := in.Carrier
		if !bytes.Equal(c.PkScript, s.script) {
			return nil, fmt.Errorf("%w: %s", ErrForeignInput, c.Outpoint)
		}
		witness, err := txscript.TaprootWitnessSignature(
			msg, hashes, i, int64(c.ValueSats), c.PkScript,
			txscript.SigHashDefault, s.key.Key(),
		)
		if err != nil {
			return nil, fmt.Errorf("sign input %d: %w", i, err)
		}
		msg.TxIn[i].Witness = witness
	}
	log.Wallet.Debug().
		Str("txid", msg.TxHash().String()).
		Int("inputs", len(msg.TxIn)).
		Msg("Transaction signed")
	return msg, nil
}

// Close zeroes the key.
func (s *Signer) Close() {
	s.key.Zero()
}
