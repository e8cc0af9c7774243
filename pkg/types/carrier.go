package types

import (
	"github.com/holiman/uint256"
)

// Carrier is a spendable Bitcoin output that may hold alkane balances.
//
// A carrier with HasForeignAttachment set also holds an inscription or a
// rune. Spending it in a protocol call would destroy or misdirect that
// attachment, so selection never picks it.
type Carrier struct {
	Outpoint             Outpoint                 `json:"outpoint"`
	ValueSats            uint64                   `json:"value"`
	PkScript             []byte                   `json:"pk_script,omitempty"`
	Assets               map[AssetID]*uint256.Int `json:"assets,omitempty"`
	HasForeignAttachment bool                     `json:"has_foreign_attachment"`
}

// AssetAmount returns a copy of the balance of id held by the carrier.
func (c Carrier) AssetAmount(id AssetID) *uint256.Int {
	v, ok := c.Assets[id]
	if !ok || v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}

// HoldsAssets reports whether the carrier has any non-zero alkane balance.
func (c Carrier) HoldsAssets() bool {
	for _, v := range c.Assets {
		if v != nil && !v.IsZero() {
			return true
		}
	}
	return false
}

// Edict moves Amount of Asset to the transaction output at index Output.
type Edict struct {
	Asset  AssetID      `json:"asset"`
	Amount *uint256.Int `json:"amount"`
	Output uint32       `json:"output"`
}
