package rpcclient

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/holiman/uint256"
	"github.com/subfrost/swapengine/internal/amm"
	"github.com/subfrost/swapengine/internal/fee"
	"github.com/subfrost/swapengine/internal/log"
	"github.com/subfrost/swapengine/pkg/cellpack"
	"github.com/subfrost/swapengine/pkg/types"
)

// Simulation errors.
var (
	ErrExecutionReverted = errors.New("simulated call reverted")
	ErrShortResponse     = errors.New("simulation data too short")
)

// simulateHeight is the context height handed to read-only calls.
const simulateHeight = "1000000"

// AlkaneTransfer is an amount of an alkane moved into or out of a call.
type AlkaneTransfer struct {
	ID    alkaneRef `json:"id"`
	Value Amount    `json:"value"`
}

type alkaneRef struct {
	Block Amount `json:"block"`
	Tx    Amount `json:"tx"`
}

// simulateParams is the message context of alkanes_simulate.
type simulateParams struct {
	Target      string           `json:"target"`
	Inputs      []string         `json:"inputs"`
	Alkanes     []AlkaneTransfer `json:"alkanes"`
	Transaction string           `json:"transaction"`
	Block       string           `json:"block"`
	Height      string           `json:"height"`
	TxIndex     uint32           `json:"txindex"`
	Vout        uint32           `json:"vout"`
}

// Execution is the outcome of a simulated call.
type Execution struct {
	Data    string           `json:"data"`
	Error   string           `json:"error"`
	Alkanes []AlkaneTransfer `json:"alkanes"`
}

// SimulateResult wraps the execution with the indexer status.
type SimulateResult struct {
	Status    int       `json:"status"`
	GasUsed   uint64    `json:"gasUsed"`
	Execution Execution `json:"execution"`
}

// Bytes decodes the returned data. A reverted call yields
// ErrExecutionReverted carrying the contract's message.
func (r *SimulateResult) Bytes() ([]byte, error) {
	if r.Execution.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrExecutionReverted, r.Execution.Error)
	}
	data := strings.TrimPrefix(r.Execution.Data, "0x")
	b, err := hex.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("execution data: %w", err)
	}
	return b, nil
}

// Simulate runs call against the indexer's current state without
// broadcasting anything.
func (c *Client) Simulate(ctx context.Context, call cellpack.Cellpack) (*SimulateResult, error) {
	inputs := make([]string, len(call.Inputs))
	for i, v := range call.Inputs {
		inputs[i] = v.Dec()
	}
	params := simulateParams{
		Target:      call.Target.String(),
		Inputs:      inputs,
		Alkanes:     []AlkaneTransfer{},
		Transaction: "0x",
		Block:       "0x",
		Height:      simulateHeight,
	}
	var res SimulateResult
	if err := c.Call(ctx, "alkanes_simulate", []interface{}{params}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// readU128 decodes a little-endian u128 at off.
func readU128(b []byte, off int) (*uint256.Int, error) {
	if len(b) < off+16 {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrShortResponse, len(b), off+16)
	}
	lo := binary.LittleEndian.Uint64(b[off : off+8])
	hi := binary.LittleEndian.Uint64(b[off+8 : off+16])
	v := new(uint256.Int).SetUint64(hi)
	v.Lsh(v, 64)
	return v.Or(v, new(uint256.Int).SetUint64(lo)), nil
}

// readAssetID decodes an alkane id stored as two u128 words.
func readAssetID(b []byte, off int) (types.AssetID, error) {
	block, err := readU128(b, off)
	if err != nil {
		return types.AssetID{}, err
	}
	tx, err := readU128(b, off+16)
	if err != nil {
		return types.AssetID{}, err
	}
	if !block.IsUint64() || !tx.IsUint64() {
		return types.AssetID{}, fmt.Errorf("%w: alkane id beyond 64 bits", types.ErrInvalidAssetID)
	}
	return types.AssetID{Block: block.Uint64(), Tx: tx.Uint64()}, nil
}

// Provider serves the planner's chain reads from an alkanes gateway.
type Provider struct {
	client   *Client
	factory  types.AssetID
	frbtc    types.AssetID
	poolFee  uint32
	fallback *fee.Params
	ord      bool
	workers  int
}

// ProviderConfig names the contracts the provider talks to.
type ProviderConfig struct {
	Factory types.AssetID
	FrBTC   types.AssetID
	// PoolFeePerThousand is the swap fee every factory pool charges.
	PoolFeePerThousand uint32
	// FallbackFees is used when the premium cannot be read. Nil makes
	// that a hard error.
	FallbackFees *fee.Params
	// CheckOrd asks the gateway's ord index about every UTXO and marks
	// outputs holding inscriptions or runes.
	CheckOrd bool
	// Workers bounds concurrent per-outpoint lookups.
	Workers int
}

// DefaultWorkers is the lookup concurrency when ProviderConfig leaves it
// unset.
const DefaultWorkers = 8

// NewProvider wraps c.
func NewProvider(c *Client, cfg ProviderConfig) *Provider {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	return &Provider{
		client:   c,
		factory:  cfg.Factory,
		frbtc:    cfg.FrBTC,
		poolFee:  cfg.PoolFeePerThousand,
		fallback: cfg.FallbackFees,
		ord:      cfg.CheckOrd,
		workers:  cfg.Workers,
	}
}

// Client returns the underlying RPC client.
func (p *Provider) Client() *Client {
	return p.client
}

// Pool reads a pool's pair, reserves and LP supply with the pool's
// details call. The reply lays out token A, token B, reserve A,
// reserve B and the LP supply as consecutive u128 words.
func (p *Provider) Pool(ctx context.Context, id types.AssetID) (*amm.Pool, error) {
	res, err := p.client.Simulate(ctx, cellpack.New(id, cellpack.OpPoolDetails))
	if err != nil {
		return nil, err
	}
	b, err := res.Bytes()
	if err != nil {
		return nil, err
	}
	assetA, err := readAssetID(b, 0)
	if err != nil {
		return nil, fmt.Errorf("token a: %w", err)
	}
	assetB, err := readAssetID(b, 32)
	if err != nil {
		return nil, fmt.Errorf("token b: %w", err)
	}
	reserveA, err := readU128(b, 64)
	if err != nil {
		return nil, fmt.Errorf("reserve a: %w", err)
	}
	reserveB, err := readU128(b, 80)
	if err != nil {
		return nil, fmt.Errorf("reserve b: %w", err)
	}
	supply, err := readU128(b, 96)
	if err != nil {
		return nil, fmt.Errorf("total supply: %w", err)
	}

	pool, err := amm.NewPool(id, assetA, assetB, reserveA, reserveB, p.poolFee)
	if err != nil {
		return nil, err
	}
	log.RPC.Debug().
		Str("pool", id.String()).
		Str("reserve0", pool.Reserve0.Dec()).
		Str("reserve1", pool.Reserve1.Dec()).
		Msg("Pool snapshot")
	return pool.WithTotalSupply(supply), nil
}

// FindPool asks the factory for the pool trading a and b. It returns a
// zero id when the factory knows no such pool.
func (p *Provider) FindPool(ctx context.Context, a, b types.AssetID) (types.AssetID, error) {
	if b.Less(a) {
		a, b = b, a
	}
	call := cellpack.New(p.factory, cellpack.OpFactoryFindPool,
		uint256.NewInt(a.Block), uint256.NewInt(a.Tx),
		uint256.NewInt(b.Block), uint256.NewInt(b.Tx))
	res, err := p.client.Simulate(ctx, call)
	if err != nil {
		return types.AssetID{}, err
	}
	if res.Execution.Error != "" {
		log.RPC.Debug().Str("pair", a.String()+"/"+b.String()).Str("reason", res.Execution.Error).Msg("No pool for pair")
		return types.AssetID{}, nil
	}
	data, err := res.Bytes()
	if err != nil {
		return types.AssetID{}, err
	}
	return readAssetID(data, 0)
}

// WrapFees reads the frBTC premium. The contract charges the same
// premium in both directions.
func (p *Provider) WrapFees(ctx context.Context) (fee.Params, error) {
	perThousand, err := p.premium(ctx)
	if err != nil {
		if p.fallback == nil {
			return fee.Params{}, err
		}
		log.RPC.Warn().Err(err).Msg("Premium unavailable, using fallback wrap fees")
		return *p.fallback, nil
	}
	return fee.Params{WrapPerThousand: perThousand, UnwrapPerThousand: perThousand}, nil
}

func (p *Provider) premium(ctx context.Context) (uint32, error) {
	res, err := p.client.Simulate(ctx, cellpack.New(p.frbtc, cellpack.OpGetPremium))
	if err != nil {
		return 0, err
	}
	b, err := res.Bytes()
	if err != nil {
		return 0, err
	}
	premium, err := readU128(b, 0)
	if err != nil {
		return 0, err
	}
	return fee.PremiumToPerThousand(premium)
}

// SignerAddress reads the frBTC signer key and returns its taproot
// address on params.
func (p *Provider) SignerAddress(ctx context.Context, params *chaincfg.Params) (string, error) {
	res, err := p.client.Simulate(ctx, cellpack.New(p.frbtc, cellpack.OpGetSigner))
	if err != nil {
		return "", err
	}
	b, err := res.Bytes()
	if err != nil {
		return "", err
	}
	if len(b) < 32 {
		return "", fmt.Errorf("%w: signer key is %d bytes", ErrShortResponse, len(b))
	}
	addr, err := btcutil.NewAddressTaproot(b[len(b)-32:], params)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}

// Amount is a u128 that gateways send either as a JSON number or as a
// decimal string.
type Amount struct {
	uint256.Int
}

// UnmarshalJSON accepts 42, "42" and "0x2a".
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		a.Clear()
		return nil
	}
	if strings.HasPrefix(s, "0x") {
		return a.SetFromHex(s)
	}
	return a.SetFromDecimal(s)
}

// MarshalJSON writes the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Dec())
}
