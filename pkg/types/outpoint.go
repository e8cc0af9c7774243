package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Outpoint references a specific output in a Bitcoin transaction.
type Outpoint struct {
	TxID  chainhash.Hash
	Index uint32
}

// IsZero returns true if the outpoint has a zero TxID and zero index.
func (o Outpoint) IsZero() bool {
	return o.TxID == chainhash.Hash{} && o.Index == 0
}

// String returns "txid:index" with the txid in display (reversed) order.
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID.String(), o.Index)
}

// Less orders outpoints by txid string, then index.
func (o Outpoint) Less(other Outpoint) bool {
	a, b := o.TxID.String(), other.TxID.String()
	if a != b {
		return a < b
	}
	return o.Index < other.Index
}

// ParseOutpoint parses "txid:index".
func ParseOutpoint(s string) (Outpoint, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return Outpoint{}, fmt.Errorf("outpoint %q: expected txid:index", s)
	}
	txid, err := chainhash.NewHashFromStr(parts[0])
	if err != nil {
		return Outpoint{}, fmt.Errorf("outpoint %q: %w", s, err)
	}
	idx, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return Outpoint{}, fmt.Errorf("outpoint %q: index: %w", s, err)
	}
	return Outpoint{TxID: *txid, Index: uint32(idx)}, nil
}

// MarshalJSON encodes the outpoint as "txid:index".
func (o Outpoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON decodes "txid:index".
func (o *Outpoint) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseOutpoint(s)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
