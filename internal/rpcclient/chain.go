package rpcclient

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/subfrost/swapengine/internal/log"
	"github.com/subfrost/swapengine/pkg/types"
	"golang.org/x/sync/errgroup"
)

// BlockHeight returns the height the alkanes indexer has processed.
// Deadlines are checked by the contracts against that height.
func (p *Provider) BlockHeight(ctx context.Context) (uint64, error) {
	var h Amount
	if err := p.client.Call(ctx, "metashrew_height", nil, &h); err != nil {
		return 0, err
	}
	if !h.IsUint64() {
		return 0, fmt.Errorf("metashrew_height: %s out of range", h.Dec())
	}
	return h.Uint64(), nil
}

// FeeTarget is the confirmation target, in blocks, FeeRate asks for.
const FeeTarget = 1

// FeeRate returns the esplora estimate for FeeTarget, rounded up to
// whole sats/vbyte.
func (p *Provider) FeeRate(ctx context.Context) (uint64, error) {
	var estimates map[string]decimal.Decimal
	if err := p.client.Call(ctx, "esplora_fee-estimates", nil, &estimates); err != nil {
		return 0, err
	}
	rate, ok := estimates[strconv.Itoa(FeeTarget)]
	if !ok {
		return 0, fmt.Errorf("no fee estimate for %d blocks", FeeTarget)
	}
	sats := rate.Ceil().IntPart()
	if sats < 1 {
		sats = 1
	}
	return uint64(sats), nil
}

// Broadcast relays msg and returns the txid the node reports.
func (p *Provider) Broadcast(ctx context.Context, msg *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	if err := msg.Serialize(&buf); err != nil {
		return "", fmt.Errorf("serialize: %w", err)
	}
	var txid string
	if err := p.client.Call(ctx, "sendrawtransaction", []string{hex.EncodeToString(buf.Bytes())}, &txid); err != nil {
		return "", err
	}
	log.RPC.Info().Str("txid", txid).Msg("Transaction relayed")
	return txid, nil
}

type esploraUTXO struct {
	TxID   string `json:"txid"`
	Vout   uint32 `json:"vout"`
	Value  uint64 `json:"value"`
	Status struct {
		Confirmed   bool   `json:"confirmed"`
		BlockHeight uint64 `json:"block_height"`
	} `json:"status"`
}

type balanceSheet struct {
	BalanceSheet struct {
		Cached struct {
			Balances []struct {
				Block  Amount `json:"block"`
				Tx     Amount `json:"tx"`
				Amount Amount `json:"amount"`
			} `json:"balances"`
		} `json:"cached"`
	} `json:"balance_sheet"`
}

type ordOutput struct {
	Inscriptions json.RawMessage `json:"inscriptions"`
	Runes        json.RawMessage `json:"runes"`
}

// holds reports whether raw is a non-empty JSON array or object.
func holds(raw json.RawMessage) bool {
	s := string(bytes.TrimSpace(raw))
	return s != "" && s != "null" && s != "[]" && s != "{}"
}

// Carriers lists every UTXO of address with its alkane balances. Each
// outpoint's balance sheet is read separately.
func (p *Provider) Carriers(ctx context.Context, address string) ([]types.Carrier, error) {
	var utxos []esploraUTXO
	if err := p.client.Call(ctx, "esplora_address::utxo", []string{address}, &utxos); err != nil {
		return nil, err
	}

	carriers := make([]types.Carrier, len(utxos))
	for i, u := range utxos {
		hash, err := chainhash.NewHashFromStr(u.TxID)
		if err != nil {
			return nil, fmt.Errorf("utxo %s: %w", u.TxID, err)
		}
		carriers[i] = types.Carrier{
			Outpoint:  types.Outpoint{TxID: *hash, Index: u.Vout},
			ValueSats: u.Value,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := range carriers {
		c := &carriers[i]
		g.Go(func() error {
			return p.inspect(gctx, c)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	held := 0
	for _, c := range carriers {
		if c.HoldsAssets() {
			held++
		}
	}
	log.RPC.Debug().
		Str("address", address).
		Int("utxos", len(carriers)).
		Int("asset_carriers", held).
		Msg("Carrier inventory")
	return carriers, nil
}

// inspect fills in the alkane balances and attachment flag of c.
func (p *Provider) inspect(ctx context.Context, c *types.Carrier) error {
	op := c.Outpoint
	var sheet balanceSheet
	params := []interface{}{op.TxID.String(), op.Index}
	if err := p.client.Call(ctx, "alkanes_protorunesbyoutpoint", params, &sheet); err != nil {
		return fmt.Errorf("balances of %s: %w", op, err)
	}
	for _, b := range sheet.BalanceSheet.Cached.Balances {
		if b.Amount.IsZero() {
			continue
		}
		if !b.Block.IsUint64() || !b.Tx.IsUint64() {
			return fmt.Errorf("balances of %s: %w: alkane id beyond 64 bits", op, types.ErrInvalidAssetID)
		}
		if c.Assets == nil {
			c.Assets = make(map[types.AssetID]*uint256.Int)
		}
		id := types.AssetID{Block: b.Block.Uint64(), Tx: b.Tx.Uint64()}
		c.Assets[id] = new(uint256.Int).Set(&b.Amount.Int)
	}

	if !p.ord {
		return nil
	}
	var out ordOutput
	if err := p.client.Call(ctx, "ord_output", []string{op.String()}, &out); err != nil {
		return fmt.Errorf("ord output %s: %w", op, err)
	}
	c.HasForeignAttachment = holds(out.Inscriptions) || holds(out.Runes)
	return nil
}
