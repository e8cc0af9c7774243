package planner

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/subfrost/swapengine/internal/amm"
	"github.com/subfrost/swapengine/internal/slippage"
	"github.com/subfrost/swapengine/pkg/crypto"
	"github.com/subfrost/swapengine/pkg/tx"
	"github.com/subfrost/swapengine/pkg/types"
)

// Action names what a plan does.
type Action string

const (
	ActionSwap            Action = "swap"
	ActionWrap            Action = "wrap"
	ActionUnwrap          Action = "unwrap"
	ActionAddLiquidity    Action = "add_liquidity"
	ActionCreatePool      Action = "create_pool"
	ActionRemoveLiquidity Action = "remove_liquidity"
	ActionCall            Action = "call"
)

// BTC denotes native bitcoin on either side of a swap.
var BTC = types.AssetID{}

// Expected is an amount the user should receive once the plan confirms.
// A zero Asset means sats.
type Expected struct {
	Asset  types.AssetID `json:"asset"`
	Amount *uint256.Int  `json:"amount"`
}

// ExecutionPlan is a fully funded, unsigned protocol call. Plans are built
// once and never modified; build a new one when anything changes.
type ExecutionPlan struct {
	ID           uuid.UUID
	Action       Action
	Network      string
	Address      string
	Selected     []types.Carrier
	Protostones  []tx.Protostone
	Calldata     []byte
	Runestone    []byte
	Outputs      []tx.Output
	FeeRate      uint64
	NetworkFee   uint64
	ExpiryHeight uint64
	LockTime     uint32
	Quote        *amm.RouteQuote
	Window       *slippage.Window
	Withdrawal   *amm.Withdrawal
	Expected     []Expected
	Digest       types.Hash
}

// Transaction returns a fresh unsigned template for the plan.
func (p *ExecutionPlan) Transaction() *tx.Transaction {
	b := tx.NewBuilder().AddInputs(p.Selected).SetLockTime(p.LockTime)
	for _, o := range p.Outputs {
		b.AddOutput(o.Value, o.PkScript)
	}
	return b.Build()
}

// Notation renders the protostones as "[call]:pointer:refund" groups.
func (p *ExecutionPlan) Notation() string {
	return tx.FormatProtostones(p.Protostones)
}

// Verify reports whether the plan still matches its digest.
func (p *ExecutionPlan) Verify() bool {
	return p.digest() == p.Digest
}

func u64(v uint64) []byte {
	return binary.LittleEndian.AppendUint64(nil, v)
}

func (p *ExecutionPlan) digest() types.Hash {
	parts := [][]byte{p.ID[:], []byte(p.Action), []byte(p.Network), []byte(p.Address)}
	for _, c := range p.Selected {
		parts = append(parts, []byte(c.Outpoint.String()), u64(c.ValueSats))
	}
	for _, o := range p.Outputs {
		parts = append(parts, u64(o.Value), o.PkScript)
	}
	parts = append(parts, p.Calldata, u64(p.FeeRate), u64(p.NetworkFee), u64(p.ExpiryHeight), u64(uint64(p.LockTime)))
	for _, e := range p.Expected {
		parts = append(parts, []byte(e.Asset.String()), []byte(e.Amount.Dec()))
	}
	return crypto.HashParts(parts...)
}

type outputView struct {
	Value    uint64 `json:"value"`
	PkScript string `json:"pk_script"`
}

// MarshalJSON renders the plan for display, scripts and calldata in hex.
func (p *ExecutionPlan) MarshalJSON() ([]byte, error) {
	outs := make([]outputView, len(p.Outputs))
	for i, o := range p.Outputs {
		outs[i] = outputView{Value: o.Value, PkScript: hex.EncodeToString(o.PkScript)}
	}
	inputs := make([]types.Outpoint, len(p.Selected))
	for i, c := range p.Selected {
		inputs[i] = c.Outpoint
	}
	return json.Marshal(struct {
		ID           string           `json:"id"`
		Action       Action           `json:"action"`
		Network      string           `json:"network"`
		Address      string           `json:"address"`
		TxID         string           `json:"txid"`
		Inputs       []types.Outpoint `json:"inputs"`
		Outputs      []outputView     `json:"outputs"`
		Protostones  string           `json:"protostones"`
		Calldata     string           `json:"calldata"`
		FeeRate      uint64           `json:"fee_rate"`
		NetworkFee   uint64           `json:"network_fee"`
		ExpiryHeight uint64           `json:"expiry_height"`
		LockTime     uint32           `json:"locktime"`
		Quote        *amm.RouteQuote  `json:"quote,omitempty"`
		Window       *slippage.Window `json:"window,omitempty"`
		Withdrawal   *amm.Withdrawal  `json:"withdrawal,omitempty"`
		Expected     []Expected       `json:"expected"`
		Digest       types.Hash       `json:"digest"`
	}{
		ID:           p.ID.String(),
		Action:       p.Action,
		Network:      p.Network,
		Address:      p.Address,
		TxID:         p.Transaction().TxID().String(),
		Inputs:       inputs,
		Outputs:      outs,
		Protostones:  p.Notation(),
		Calldata:     hex.EncodeToString(p.Calldata),
		FeeRate:      p.FeeRate,
		NetworkFee:   p.NetworkFee,
		ExpiryHeight: p.ExpiryHeight,
		LockTime:     p.LockTime,
		Quote:        p.Quote,
		Window:       p.Window,
		Withdrawal:   p.Withdrawal,
		Expected:     p.Expected,
		Digest:       p.Digest,
	})
}
