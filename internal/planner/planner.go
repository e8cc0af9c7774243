// Package planner turns a user action into an ExecutionPlan: a quoted,
// bounded, funded and encoded protocol call ready for an external signer.
//
// A plan is built in five stages (quoting, bounds, asset selection,
// calldata, ready). A failure at any stage aborts the whole build and is
// returned as a *StageError wrapping the component's error unchanged.
// The planner keeps no state between calls.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/subfrost/swapengine/internal/amm"
	"github.com/subfrost/swapengine/internal/log"
	"github.com/subfrost/swapengine/internal/metrics"
	"github.com/subfrost/swapengine/internal/selector"
	"github.com/subfrost/swapengine/internal/slippage"
	"github.com/subfrost/swapengine/pkg/cellpack"
	"github.com/subfrost/swapengine/pkg/tx"
	"github.com/subfrost/swapengine/pkg/types"
)

// Planner errors.
var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInvalidAddress  = errors.New("invalid address")
	ErrNoFeeRate       = errors.New("no fee rate")
	ErrPoolNotFound    = errors.New("pool not found")
	ErrFundingUnstable = errors.New("funding did not converge")
)

// DefaultDeadlineBlocks is how many blocks a swap stays valid.
const DefaultDeadlineBlocks = 3

// maxFundingRounds bounds the select/re-estimate loop.
const maxFundingRounds = 8

// Config holds the network constants the planner builds against.
type Config struct {
	Params         *chaincfg.Params
	Network        string
	FrBTC          types.AssetID
	Factory        types.AssetID
	SignerAddress  string // frBTC signer, paid on wrap
	// Intermediate is tried as a middle hop when a pair has no pool of
	// its own and the request names neither Via nor Pools.
	Intermediate   types.AssetID
	DeadlineBlocks uint64
	// UseRouter sends single-hop exact-in swaps through the factory too.
	UseRouter bool
}

// Deps are the planner's collaborators. Locator, FeeRates, Spent and
// Metrics are optional.
type Deps struct {
	Pools    PoolReader
	Locator  PoolLocator
	Carriers CarrierInventory
	Fees     FeeSource
	Heights  HeightSource
	FeeRates FeeEstimator
	Spent    SpentSource
	Metrics  *metrics.Metrics
}

// Planner builds execution plans.
type Planner struct {
	cfg          Config
	deps         Deps
	signerScript []byte
}

// New validates cfg and returns a planner.
func New(cfg Config, deps Deps) (*Planner, error) {
	if cfg.Params == nil {
		return nil, fmt.Errorf("%w: no chain params", ErrInvalidRequest)
	}
	if deps.Pools == nil || deps.Carriers == nil || deps.Fees == nil || deps.Heights == nil {
		return nil, fmt.Errorf("%w: pool, carrier, fee and height sources are required", ErrInvalidRequest)
	}
	if cfg.DeadlineBlocks == 0 {
		cfg.DeadlineBlocks = DefaultDeadlineBlocks
	}
	if cfg.Network == "" {
		cfg.Network = cfg.Params.Name
	}
	signer, err := addressScript(cfg.SignerAddress, cfg.Params)
	if err != nil {
		return nil, fmt.Errorf("frBTC signer: %w", err)
	}
	return &Planner{cfg: cfg, deps: deps, signerScript: signer}, nil
}

func addressScript(addr string, params *chaincfg.Params) ([]byte, error) {
	decoded, err := btcutil.DecodeAddress(addr, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, addr, err)
	}
	if !decoded.IsForNet(params) {
		return nil, fmt.Errorf("%w: %q is not a %s address", ErrInvalidAddress, addr, params.Name)
	}
	script, err := txscript.PayToAddrScript(decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, addr, err)
	}
	return script, nil
}

type need struct {
	asset  types.AssetID
	amount *uint256.Int
}

// draft accumulates a plan while it moves through the stages.
type draft struct {
	action     Action
	address    string
	userScript []byte
	feeRate    uint64
	height     uint64
	expiry     uint64

	quote      *amm.RouteQuote
	window     *slippage.Window
	withdrawal *amm.Withdrawal
	expected   []Expected

	needs    []need
	payments []tx.Output
	stones   []tx.Protostone
	call     *cellpack.Cellpack

	inventory []types.Carrier
	exclude   selector.OutpointSet
	assets    []types.Carrier
	runestone []byte
	calldata  []byte
}

// lockTime pins the plan to the tip it was built at, so it cannot be mined
// in a reorganised earlier block.
func lockTime(height uint64) uint32 {
	if height >= txscript.LockTimeThreshold {
		return 0
	}
	return uint32(height)
}

func (d *draft) dust() tx.Output {
	return tx.Output{Value: tx.DustLimit, PkScript: d.userScript}
}

// request is the part every action shares.
type request struct {
	action         Action
	address        string
	feeRate        uint64
	deadlineBlocks uint64
	quote          func(ctx context.Context, d *draft) error
	bounds         func(d *draft) error
}

func (p *Planner) build(ctx context.Context, r request) (*ExecutionPlan, error) {
	started := time.Now()
	d := &draft{action: r.action, address: r.address}
	stage, err := p.run(ctx, r, d)
	if err != nil {
		p.deps.Metrics.ObservePlan(string(r.action), stage.String(), started, err)
		log.Planner.Debug().Str("action", string(r.action)).Stringer("stage", stage).Err(err).Msg("Plan aborted")
		return nil, &StageError{Action: r.action, Stage: stage, Err: err}
	}
	plan, err := p.finish(d)
	if err != nil {
		p.deps.Metrics.ObservePlan(string(r.action), StageReady.String(), started, err)
		return nil, &StageError{Action: r.action, Stage: StageReady, Err: err}
	}
	p.deps.Metrics.ObservePlan(string(r.action), "", started, nil)
	p.deps.Metrics.SetFeeRate(plan.FeeRate)
	l := log.WithPlan(plan.ID.String())
	l.Info().
		Str("action", string(plan.Action)).
		Str("protostones", plan.Notation()).
		Int("inputs", len(plan.Selected)).
		Uint64("fee", plan.NetworkFee).
		Uint64("expiry", plan.ExpiryHeight).
		Msg("Plan ready")
	return plan, nil
}

func (p *Planner) run(ctx context.Context, r request, d *draft) (Stage, error) {
	var err error
	if d.userScript, err = addressScript(r.address, p.cfg.Params); err != nil {
		return StageQuoting, err
	}
	if d.feeRate, err = p.feeRate(ctx, r.feeRate); err != nil {
		return StageQuoting, err
	}
	if d.height, err = p.deps.Heights.BlockHeight(ctx); err != nil {
		return StageQuoting, fmt.Errorf("block height: %w", err)
	}
	blocks := r.deadlineBlocks
	if blocks == 0 {
		blocks = p.cfg.DeadlineBlocks
	}
	d.expiry = d.height + blocks
	if r.quote != nil {
		if err := r.quote(ctx, d); err != nil {
			return StageQuoting, err
		}
	}

	if err := r.bounds(d); err != nil {
		return StageBoundsComputed, err
	}

	if err := p.selectAssets(ctx, d); err != nil {
		return StageAssetsSelected, err
	}

	// Encoded as if a change output follows; finish re-encodes when it
	// does not.
	if d.runestone, err = tx.EncodeRunestone(d.stones, len(d.payments)+2); err != nil {
		return StageCalldataBuilt, err
	}
	if d.call != nil {
		if d.calldata, err = d.call.Encode(); err != nil {
			return StageCalldataBuilt, err
		}
	}
	return StageReady, nil
}

func (p *Planner) feeRate(ctx context.Context, requested uint64) (uint64, error) {
	if requested > 0 {
		return requested, nil
	}
	if p.deps.FeeRates == nil {
		return 0, ErrNoFeeRate
	}
	rate, err := p.deps.FeeRates.FeeRate(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoFeeRate, err)
	}
	if rate == 0 {
		rate = 1
	}
	return rate, nil
}

// selectAssets loads the inventory and picks clean carriers for every
// asset the call consumes. A carrier picked for one asset counts toward
// the others it holds.
func (p *Planner) selectAssets(ctx context.Context, d *draft) error {
	inv, err := p.deps.Carriers.Carriers(ctx, d.address)
	if err != nil {
		return fmt.Errorf("carriers for %s: %w", d.address, err)
	}
	// Inventories keyed by address may omit the script they all share.
	for i := range inv {
		if len(inv[i].PkScript) == 0 {
			inv[i].PkScript = d.userScript
		}
	}
	d.inventory = inv
	d.exclude = selector.NewOutpointSet()
	if p.deps.Spent != nil {
		spent, err := p.deps.Spent.SpentOutpoints()
		if err != nil {
			return fmt.Errorf("pending outpoints: %w", err)
		}
		d.exclude = selector.NewOutpointSet(spent...)
	}

	for _, n := range d.needs {
		covered := new(uint256.Int)
		for _, c := range d.assets {
			covered.Add(covered, c.AssetAmount(n.asset))
		}
		if !covered.Lt(n.amount) {
			continue
		}
		sel, err := selector.SelectAssetExcluding(inv, n.asset, new(uint256.Int).Sub(n.amount, covered), d.exclude)
		if err != nil {
			return err
		}
		d.assets = append(d.assets, sel.Carriers...)
		d.exclude.Add(sel)
	}
	return nil
}

func sumSats(cs []types.Carrier) uint64 {
	var total uint64
	for _, c := range cs {
		total += c.ValueSats
	}
	return total
}

// fund adds plain sats carriers until payments and the fee are covered,
// re-estimating the fee each time the input count changes.
func (p *Planner) fund(d *draft) (inputs []types.Carrier, fee uint64, err error) {
	var payTotal uint64
	lens := make([]int, 0, len(d.payments)+2)
	for _, o := range d.payments {
		payTotal += o.Value
		lens = append(lens, len(o.PkScript))
	}
	lens = append(lens, len(d.runestone), len(d.userScript))

	assetSats := sumSats(d.assets)
	var extra []types.Carrier
	for round := 0; round < maxFundingRounds; round++ {
		n := max(len(d.assets)+len(extra), 1)
		fee = tx.EstimateFee(tx.EstimateVSize(n, lens...), d.feeRate)
		need := payTotal + fee
		if len(d.assets)+len(extra) > 0 && assetSats+sumSats(extra) >= need {
			inputs = append(append([]types.Carrier{}, d.assets...), extra...)
			return inputs, fee, nil
		}
		// assetSats < need here: with no asset carriers it is zero.
		sel, err := selector.SelectSats(d.inventory, need-assetSats, d.exclude)
		if err != nil {
			return nil, 0, err
		}
		extra = sel.Carriers
	}
	return nil, 0, ErrFundingUnstable
}

func (p *Planner) finish(d *draft) (*ExecutionPlan, error) {
	inputs, fee, err := p.fund(d)
	if err != nil {
		return nil, err
	}
	if err := selector.AssertClean(inputs); err != nil {
		return nil, err
	}

	var payTotal uint64
	for _, o := range d.payments {
		payTotal += o.Value
	}
	change := sumSats(inputs) - payTotal - fee

	outputs := append([]tx.Output{}, d.payments...)
	numOutputs := len(outputs) + 1
	if change >= tx.DustLimit {
		numOutputs++
	} else {
		fee += change
		change = 0
		d.runestone, err = tx.EncodeRunestone(d.stones, numOutputs)
		if err != nil {
			return nil, err
		}
	}
	outputs = append(outputs, tx.Output{PkScript: d.runestone})
	if change > 0 {
		outputs = append(outputs, tx.Output{Value: change, PkScript: d.userScript})
	}

	plan := &ExecutionPlan{
		ID:           uuid.New(),
		Action:       d.action,
		Network:      p.cfg.Network,
		Address:      d.address,
		Selected:     inputs,
		Protostones:  d.stones,
		Calldata:     d.calldata,
		Runestone:    d.runestone,
		Outputs:      outputs,
		FeeRate:      d.feeRate,
		NetworkFee:   fee,
		ExpiryHeight: d.expiry,
		LockTime:     lockTime(d.height),
		Quote:        d.quote,
		Window:       d.window,
		Withdrawal:   d.withdrawal,
		Expected:     d.expected,
	}
	if err := plan.Transaction().Validate(d.feeRate); err != nil {
		return nil, err
	}
	plan.Digest = plan.digest()
	return plan, nil
}
