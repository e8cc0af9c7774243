package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/subfrost/swapengine/internal/amm"
	"github.com/subfrost/swapengine/internal/fee"
	"github.com/subfrost/swapengine/internal/log"
	"github.com/subfrost/swapengine/internal/slippage"
	"github.com/subfrost/swapengine/pkg/cellpack"
	"github.com/subfrost/swapengine/pkg/tx"
	"github.com/subfrost/swapengine/pkg/types"
)

// SwapRequest trades Sell for Buy. Either side may be BTC, in which case
// the trade is wrapped into or unwrapped out of frBTC in the same
// transaction.
type SwapRequest struct {
	Address string
	Sell    types.AssetID
	Buy     types.AssetID
	// Via routes the trade through an intermediate asset.
	Via *types.AssetID
	// Pools names the pool for each hop. When empty, pools are located
	// through the factory.
	Pools          []types.AssetID
	Amount         *uint256.Int
	Mode           amm.Mode
	ToleranceBps   int
	FeeRate        uint64
	DeadlineBlocks uint64
}

// swapLeg holds what quoting decided for a swap.
type swapLeg struct {
	path      []types.AssetID
	route     amm.Route
	fees      fee.Params
	wrapIn    bool
	unwrapOut bool
}

// PlanSwap quotes, bounds, funds and encodes a swap.
func (p *Planner) PlanSwap(ctx context.Context, req SwapRequest) (*ExecutionPlan, error) {
	var leg swapLeg
	return p.build(ctx, request{
		action:         ActionSwap,
		address:        req.Address,
		feeRate:        req.FeeRate,
		deadlineBlocks: req.DeadlineBlocks,
		quote: func(ctx context.Context, d *draft) error {
			l, q, err := p.quoteSwap(ctx, req)
			p.deps.Metrics.ObserveQuote(req.Mode.String(), err)
			if err != nil {
				return err
			}
			leg, d.quote = *l, q
			return nil
		},
		bounds: func(d *draft) error {
			return p.swapBounds(d, req, &leg)
		},
	})
}

// SwapQuote is a priced swap with its slippage bounds, built without
// touching the user's carriers.
type SwapQuote struct {
	Path   []types.AssetID  `json:"path"`
	Quote  *amm.RouteQuote  `json:"quote"`
	Window *slippage.Window `json:"window"`
}

// Quote prices req the way PlanSwap would. Address and FeeRate are ignored.
func (p *Planner) Quote(ctx context.Context, req SwapRequest) (*SwapQuote, error) {
	leg, q, err := p.quoteSwap(ctx, req)
	p.deps.Metrics.ObserveQuote(req.Mode.String(), err)
	if err != nil {
		return nil, &StageError{Action: ActionSwap, Stage: StageQuoting, Err: err}
	}
	w, err := slippage.ForRoute(q, req.ToleranceBps)
	if err != nil {
		return nil, &StageError{Action: ActionSwap, Stage: StageBoundsComputed, Err: err}
	}
	path := leg.path
	if leg.wrapIn {
		path = append([]types.AssetID{BTC}, path...)
	}
	if leg.unwrapOut {
		path = append(path, BTC)
	}
	return &SwapQuote{Path: path, Quote: q, Window: w}, nil
}

func (p *Planner) quoteSwap(ctx context.Context, req SwapRequest) (*swapLeg, *amm.RouteQuote, error) {
	leg := &swapLeg{wrapIn: req.Sell == BTC, unwrapOut: req.Buy == BTC}
	in, out := req.Sell, req.Buy
	if leg.wrapIn {
		in = p.cfg.FrBTC
	}
	if leg.unwrapOut {
		out = p.cfg.FrBTC
	}
	if in == out {
		return nil, nil, fmt.Errorf("%w: %s to %s is not a swap", ErrInvalidRequest, req.Sell, req.Buy)
	}
	if req.Amount == nil {
		return nil, nil, fmt.Errorf("%w: no amount", ErrInvalidRequest)
	}

	leg.path = []types.AssetID{in}
	if req.Via != nil {
		if *req.Via == in || *req.Via == out {
			return nil, nil, fmt.Errorf("%w: intermediate %s repeats an end of the path", ErrInvalidRequest, *req.Via)
		}
		leg.path = append(leg.path, *req.Via)
	}
	leg.path = append(leg.path, out)

	route, err := p.resolveRoute(ctx, leg.path, req.Pools)
	mid := p.cfg.Intermediate
	if errors.Is(err, ErrPoolNotFound) && req.Via == nil && len(req.Pools) == 0 &&
		!mid.IsZero() && mid != in && mid != out {
		log.Quote.Debug().Str("pair", fmt.Sprintf("%s/%s", in, out)).Stringer("via", mid).Msg("No direct pool, routing through intermediate")
		leg.path = []types.AssetID{in, mid, out}
		route, err = p.resolveRoute(ctx, leg.path, nil)
	}
	if err != nil {
		return nil, nil, err
	}
	leg.route = route

	if leg.wrapIn || leg.unwrapOut {
		fees, err := p.deps.Fees.WrapFees(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("wrap fees: %w", err)
		}
		leg.fees = fees
	}
	q, err := amm.QuoteWithLegs(leg.route, req.Mode, req.Amount, amm.Legs{
		WrapIn:    leg.wrapIn,
		UnwrapOut: leg.unwrapOut,
		Fees:      leg.fees,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Quote.Debug().
		Str("path", fmt.Sprint(leg.path)).
		Str("in", q.InputAmount.Dec()).
		Str("out", q.OutputAmount.Dec()).
		Uint32("impact_bps", q.PriceImpactBps).
		Msg("Swap quoted")
	return leg, q, nil
}

// resolveRoute reads one pool per hop of path, from pools when given and
// through the locator otherwise.
func (p *Planner) resolveRoute(ctx context.Context, path, pools []types.AssetID) (amm.Route, error) {
	hops := len(path) - 1
	if len(pools) != 0 && len(pools) != hops {
		return nil, fmt.Errorf("%w: %d pools for %d hops", ErrInvalidRequest, len(pools), hops)
	}
	route := make(amm.Route, 0, hops)
	for i := 0; i < hops; i++ {
		var id types.AssetID
		if len(pools) > 0 {
			id = pools[i]
		} else {
			var err error
			if id, err = p.locate(ctx, path[i], path[i+1]); err != nil {
				return nil, err
			}
		}
		pool, err := p.deps.Pools.Pool(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", id, err)
		}
		route = append(route, amm.Hop{Pool: pool, AssetIn: path[i]})
	}
	return route, nil
}

func (p *Planner) locate(ctx context.Context, a, b types.AssetID) (types.AssetID, error) {
	if p.deps.Locator == nil {
		return types.AssetID{}, fmt.Errorf("%w: %s/%s and no pool locator", ErrPoolNotFound, a, b)
	}
	id, err := p.deps.Locator.FindPool(ctx, a, b)
	if err != nil {
		if errors.Is(err, ErrPoolNotFound) {
			return types.AssetID{}, err
		}
		return types.AssetID{}, fmt.Errorf("find pool %s/%s: %w", a, b, err)
	}
	if id.IsZero() {
		return types.AssetID{}, fmt.Errorf("%w: %s/%s", ErrPoolNotFound, a, b)
	}
	return id, nil
}

// swapBounds derives the calldata limits and lays out the protostones.
//
// Token-in swaps move the input with an edict in p0 to the call in p1.
// A BTC input pays the frBTC signer and mints in p0, whose pointer feeds
// p1. A BTC output sends the swap result to an unwrap in p2.
func (p *Planner) swapBounds(d *draft, req SwapRequest, leg *swapLeg) error {
	q := d.quote
	w, err := slippage.ForRoute(q, req.ToleranceBps)
	if err != nil {
		return err
	}
	d.window = w

	// tokenIn is what reaches the swap call.
	var tokenIn, sats *uint256.Int
	switch {
	case leg.wrapIn && req.Mode == amm.ExactIn:
		sats = q.InputAmount
		tokenIn = q.First().InputAmount
	case leg.wrapIn:
		sats = w.MaximumIn
		if tokenIn, err = fee.ApplyWrapFee(sats, leg.fees.WrapPerThousand); err != nil {
			return err
		}
	case req.Mode == amm.ExactIn:
		tokenIn = q.InputAmount
	default:
		tokenIn = w.MaximumIn
	}
	tokenOut := q.Last().OutputAmount
	minOut := w.MinimumOut
	if leg.unwrapOut {
		if minOut, err = slippage.MinimumFromSlippage(tokenOut, req.ToleranceBps); err != nil {
			return err
		}
	}
	deadline := uint256.NewInt(d.expiry)

	var call cellpack.Cellpack
	switch {
	case req.Mode == amm.ExactIn && len(leg.route) == 1 && !p.cfg.UseRouter:
		call = cellpack.New(leg.route[0].Pool.ID, cellpack.OpSwap, minOut, deadline)
	case req.Mode == amm.ExactIn:
		call = p.routerCall(cellpack.OpFactorySwapExactIn, leg.path, tokenIn, minOut, deadline)
	default:
		call = p.routerCall(cellpack.OpFactorySwapExactOut, leg.path, tokenOut, tokenIn, deadline)
	}
	d.call = &call

	d.payments = []tx.Output{d.dust()}
	swapPointer := tx.Vout(0)
	if leg.unwrapOut {
		swapPointer = tx.Proto(2)
	}
	swap := tx.Protostone{Call: &call, Pointer: swapPointer, Refund: tx.Vout(0)}

	if leg.wrapIn {
		if !sats.IsUint64() || sats.Uint64() < tx.DustLimit {
			return fmt.Errorf("%w: wrapping %s sats", amm.ErrAmountTooSmall, sats.Dec())
		}
		d.payments = append(d.payments, tx.Output{Value: sats.Uint64(), PkScript: p.signerScript})
		wrap := cellpack.New(p.cfg.FrBTC, cellpack.OpWrap)
		d.stones = []tx.Protostone{
			{Call: &wrap, Pointer: tx.Proto(1), Refund: tx.Vout(0)},
			swap,
		}
	} else {
		d.needs = []need{{asset: leg.path[0], amount: tokenIn}}
		d.stones = []tx.Protostone{
			{Edicts: []tx.ProtoEdict{{Asset: leg.path[0], Amount: tokenIn, Target: tx.Proto(1)}}, Pointer: tx.Vout(0), Refund: tx.Vout(0)},
			swap,
		}
	}
	if leg.unwrapOut {
		d.payments = append(d.payments, tx.Output{Value: tx.DustLimit, PkScript: p.signerScript})
		unwrap := cellpack.New(p.cfg.FrBTC, cellpack.OpUnwrap)
		d.stones = append(d.stones, tx.Protostone{Call: &unwrap, Pointer: tx.Vout(0), Refund: tx.Vout(0)})
	}

	d.expected = []Expected{{Asset: req.Buy, Amount: q.OutputAmount}}
	return nil
}

// routerCall builds [factory, op, len(path), path..., amount, limit, deadline].
func (p *Planner) routerCall(op uint64, path []types.AssetID, amount, limit, deadline *uint256.Int) cellpack.Cellpack {
	args := []*uint256.Int{uint256.NewInt(uint64(len(path)))}
	for _, a := range path {
		args = append(args, uint256.NewInt(a.Block), uint256.NewInt(a.Tx))
	}
	args = append(args, amount, limit, deadline)
	return cellpack.New(p.cfg.Factory, op, args...)
}
