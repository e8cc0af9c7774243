package planner

import (
	"context"

	"github.com/btcsuite/btcd/wire"
	"github.com/subfrost/swapengine/internal/amm"
	"github.com/subfrost/swapengine/internal/fee"
	"github.com/subfrost/swapengine/internal/pending"
	"github.com/subfrost/swapengine/pkg/tx"
	"github.com/subfrost/swapengine/pkg/types"
)

// PoolReader returns a fresh reserve snapshot for a pool.
type PoolReader interface {
	Pool(ctx context.Context, id types.AssetID) (*amm.Pool, error)
}

// PoolLocator resolves the pool trading a pair through the factory.
type PoolLocator interface {
	FindPool(ctx context.Context, a, b types.AssetID) (types.AssetID, error)
}

// CarrierInventory lists the spendable carriers of an address.
type CarrierInventory interface {
	Carriers(ctx context.Context, address string) ([]types.Carrier, error)
}

// FeeSource returns the current frBTC wrap and unwrap fees.
type FeeSource interface {
	WrapFees(ctx context.Context) (fee.Params, error)
}

// HeightSource returns the current chain tip height.
type HeightSource interface {
	BlockHeight(ctx context.Context) (uint64, error)
}

// FeeEstimator suggests a fee rate in sats/vbyte when a request has none.
type FeeEstimator interface {
	FeeRate(ctx context.Context) (uint64, error)
}

// SpentSource lists outpoints already spent by unconfirmed transactions.
type SpentSource interface {
	SpentOutpoints() ([]types.Outpoint, error)
}

// Signer signs an unsigned template.
type Signer interface {
	Sign(ctx context.Context, t *tx.Transaction) (*wire.MsgTx, error)
}

// Broadcaster relays a signed transaction and returns its txid.
type Broadcaster interface {
	Broadcast(ctx context.Context, msg *wire.MsgTx) (string, error)
}

// Recorder stores broadcast transactions until they confirm.
type Recorder interface {
	Add(e pending.Entry) error
}
