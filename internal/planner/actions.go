package planner

import (
	"context"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/subfrost/swapengine/internal/amm"
	"github.com/subfrost/swapengine/internal/fee"
	"github.com/subfrost/swapengine/internal/slippage"
	"github.com/subfrost/swapengine/pkg/cellpack"
	"github.com/subfrost/swapengine/pkg/fixedpoint"
	"github.com/subfrost/swapengine/pkg/tx"
	"github.com/subfrost/swapengine/pkg/types"
)

// WrapRequest pays AmountSats to the frBTC signer and mints frBTC.
type WrapRequest struct {
	Address    string
	AmountSats uint64
	FeeRate    uint64
}

// PlanWrap builds [frBTC, 77] with the BTC payment in output 1.
func (p *Planner) PlanWrap(ctx context.Context, req WrapRequest) (*ExecutionPlan, error) {
	return p.build(ctx, request{
		action:  ActionWrap,
		address: req.Address,
		feeRate: req.FeeRate,
		quote: func(ctx context.Context, d *draft) error {
			if req.AmountSats < tx.DustLimit {
				return fmt.Errorf("%w: wrapping %d sats, minimum %d", amm.ErrAmountTooSmall, req.AmountSats, tx.DustLimit)
			}
			fees, err := p.deps.Fees.WrapFees(ctx)
			if err != nil {
				return fmt.Errorf("wrap fees: %w", err)
			}
			minted, err := fee.ApplyWrapFee(uint256.NewInt(req.AmountSats), fees.WrapPerThousand)
			if err != nil {
				return err
			}
			if minted.IsZero() {
				return fmt.Errorf("%w: wrap fee consumes %d sats", amm.ErrAmountTooSmall, req.AmountSats)
			}
			d.expected = []Expected{{Asset: p.cfg.FrBTC, Amount: minted}}
			return nil
		},
		bounds: func(d *draft) error {
			wrap := cellpack.New(p.cfg.FrBTC, cellpack.OpWrap)
			d.call = &wrap
			d.payments = []tx.Output{d.dust(), {Value: req.AmountSats, PkScript: p.signerScript}}
			d.stones = []tx.Protostone{{Call: &wrap, Pointer: tx.Vout(0), Refund: tx.Vout(0)}}
			return nil
		},
	})
}

// UnwrapRequest burns Amount of frBTC for BTC paid out by the signer.
type UnwrapRequest struct {
	Address string
	Amount  *uint256.Int
	FeeRate uint64
}

// PlanUnwrap moves frBTC into [frBTC, 78] and marks the signer output.
func (p *Planner) PlanUnwrap(ctx context.Context, req UnwrapRequest) (*ExecutionPlan, error) {
	return p.build(ctx, request{
		action:  ActionUnwrap,
		address: req.Address,
		feeRate: req.FeeRate,
		quote: func(ctx context.Context, d *draft) error {
			if err := fixedpoint.Validate(req.Amount); err != nil {
				return err
			}
			fees, err := p.deps.Fees.WrapFees(ctx)
			if err != nil {
				return fmt.Errorf("wrap fees: %w", err)
			}
			sats, err := fee.ApplyUnwrapFee(req.Amount, fees.UnwrapPerThousand)
			if err != nil {
				return err
			}
			if sats.IsZero() {
				return fmt.Errorf("%w: unwrap fee consumes %s", amm.ErrAmountTooSmall, req.Amount.Dec())
			}
			d.expected = []Expected{{Asset: BTC, Amount: sats}}
			return nil
		},
		bounds: func(d *draft) error {
			unwrap := cellpack.New(p.cfg.FrBTC, cellpack.OpUnwrap)
			d.call = &unwrap
			d.needs = []need{{asset: p.cfg.FrBTC, amount: req.Amount}}
			d.payments = []tx.Output{d.dust(), {Value: tx.DustLimit, PkScript: p.signerScript}}
			d.stones = []tx.Protostone{
				{Edicts: []tx.ProtoEdict{{Asset: p.cfg.FrBTC, Amount: req.Amount, Target: tx.Proto(1)}}, Pointer: tx.Vout(0), Refund: tx.Vout(0)},
				{Call: &unwrap, Pointer: tx.Vout(0), Refund: tx.Vout(0)},
			}
			return nil
		},
	})
}

// AddLiquidityRequest deposits both sides of a pair. With no Pool, the
// pool is located through the factory and created when none exists.
type AddLiquidityRequest struct {
	Address string
	Pool    types.AssetID
	AssetA  types.AssetID
	AssetB  types.AssetID
	AmountA *uint256.Int
	AmountB *uint256.Int
	FeeRate uint64
}

// PlanAddLiquidity builds [pool, 1], or [factory, 1, a, b, amountA, amountB]
// for a new pool, fed by two edicts.
func (p *Planner) PlanAddLiquidity(ctx context.Context, req AddLiquidityRequest) (*ExecutionPlan, error) {
	create := false
	var poolID types.AssetID
	return p.build(ctx, request{
		action:  ActionAddLiquidity,
		address: req.Address,
		feeRate: req.FeeRate,
		quote: func(ctx context.Context, d *draft) error {
			if req.AssetA == req.AssetB {
				return fmt.Errorf("%w: identical assets %s", ErrInvalidRequest, req.AssetA)
			}
			id := req.Pool
			if id.IsZero() {
				var err error
				id, err = p.locate(ctx, req.AssetA, req.AssetB)
				switch {
				case errors.Is(err, ErrPoolNotFound) && p.deps.Locator != nil:
					create = true
				case err != nil:
					return err
				}
			}

			var pool *amm.Pool
			var err error
			if create {
				pool, err = amm.NewPool(types.AssetID{}, req.AssetA, req.AssetB, new(uint256.Int), new(uint256.Int), 0)
			} else {
				pool, err = p.deps.Pools.Pool(ctx, id)
			}
			if err != nil {
				return err
			}
			if !pool.Contains(req.AssetA) || !pool.Contains(req.AssetB) {
				return fmt.Errorf("%w: pool %s trades %s/%s", amm.ErrAssetNotInPool, pool.ID, pool.Asset0, pool.Asset1)
			}
			a0, a1 := req.AmountA, req.AmountB
			if pool.Asset0 != req.AssetA {
				a0, a1 = a1, a0
			}
			lp, err := amm.QuoteAddLiquidity(pool, a0, a1)
			if err != nil {
				return err
			}
			if create {
				// The LP token id is only known once the factory deploys it.
				d.action = ActionCreatePool
				return nil
			}
			poolID = pool.ID
			d.expected = []Expected{{Asset: pool.ID, Amount: lp}}
			return nil
		},
		bounds: func(d *draft) error {
			var call cellpack.Cellpack
			if create {
				call = cellpack.New(p.cfg.Factory, cellpack.OpFactoryCreatePool,
					uint256.NewInt(req.AssetA.Block), uint256.NewInt(req.AssetA.Tx),
					uint256.NewInt(req.AssetB.Block), uint256.NewInt(req.AssetB.Tx),
					req.AmountA, req.AmountB)
			} else {
				call = cellpack.New(poolID, cellpack.OpAddLiquidity)
			}
			d.call = &call
			d.needs = []need{{asset: req.AssetA, amount: req.AmountA}, {asset: req.AssetB, amount: req.AmountB}}
			d.payments = []tx.Output{d.dust()}
			d.stones = []tx.Protostone{
				{
					Edicts: []tx.ProtoEdict{
						{Asset: req.AssetA, Amount: req.AmountA, Target: tx.Proto(1)},
						{Asset: req.AssetB, Amount: req.AmountB, Target: tx.Proto(1)},
					},
					Pointer: tx.Vout(0),
					Refund:  tx.Vout(0),
				},
				{Call: &call, Pointer: tx.Vout(0), Refund: tx.Vout(0)},
			}
			return nil
		},
	})
}

// RemoveLiquidityRequest burns LPAmount of the pool's LP token.
type RemoveLiquidityRequest struct {
	Address        string
	Pool           types.AssetID
	LPAmount       *uint256.Int
	ToleranceBps   int
	FeeRate        uint64
	DeadlineBlocks uint64
}

// PlanRemoveLiquidity builds [pool, 2, min0, min1, deadline] where each
// minimum is the slippage-reduced pro-rata share of a reserve.
func (p *Planner) PlanRemoveLiquidity(ctx context.Context, req RemoveLiquidityRequest) (*ExecutionPlan, error) {
	return p.build(ctx, request{
		action:         ActionRemoveLiquidity,
		address:        req.Address,
		feeRate:        req.FeeRate,
		deadlineBlocks: req.DeadlineBlocks,
		quote: func(ctx context.Context, d *draft) error {
			pool, err := p.deps.Pools.Pool(ctx, req.Pool)
			if err != nil {
				return fmt.Errorf("pool %s: %w", req.Pool, err)
			}
			w, err := amm.QuoteRemoveLiquidity(pool, req.LPAmount)
			if err != nil {
				return err
			}
			d.withdrawal = w
			d.expected = []Expected{{Asset: pool.Asset0, Amount: w.Amount0}, {Asset: pool.Asset1, Amount: w.Amount1}}
			return nil
		},
		bounds: func(d *draft) error {
			min0, err := slippage.MinimumFromSlippage(d.withdrawal.Amount0, req.ToleranceBps)
			if err != nil {
				return err
			}
			min1, err := slippage.MinimumFromSlippage(d.withdrawal.Amount1, req.ToleranceBps)
			if err != nil {
				return err
			}
			call := cellpack.New(req.Pool, cellpack.OpRemoveLiquidity, min0, min1, uint256.NewInt(d.expiry))
			d.call = &call
			d.needs = []need{{asset: req.Pool, amount: req.LPAmount}}
			d.payments = []tx.Output{d.dust()}
			d.stones = []tx.Protostone{
				{Edicts: []tx.ProtoEdict{{Asset: req.Pool, Amount: req.LPAmount, Target: tx.Proto(1)}}, Pointer: tx.Vout(0), Refund: tx.Vout(0)},
				{Call: &call, Pointer: tx.Vout(0), Refund: tx.Vout(0)},
			}
			return nil
		},
	})
}

// CallRequest invokes any contract, optionally moving assets into it.
type CallRequest struct {
	Address string
	Target  types.AssetID
	Opcode  uint64
	Args    []*uint256.Int
	Edicts  []types.Edict // Output is ignored; every edict feeds the call
	FeeRate uint64
}

// PlanCall builds a single contract call.
func (p *Planner) PlanCall(ctx context.Context, req CallRequest) (*ExecutionPlan, error) {
	return p.build(ctx, request{
		action:  ActionCall,
		address: req.Address,
		feeRate: req.FeeRate,
		bounds: func(d *draft) error {
			for i, a := range req.Args {
				if a == nil || !fixedpoint.InU128Range(a) {
					return fmt.Errorf("%w: argument %d", cellpack.ErrInvalidCalldataArgument, i)
				}
			}
			call := cellpack.New(req.Target, req.Opcode, req.Args...)
			d.call = &call
			d.payments = []tx.Output{d.dust()}
			stone := tx.Protostone{Call: &call, Pointer: tx.Vout(0), Refund: tx.Vout(0)}
			if len(req.Edicts) == 0 {
				d.stones = []tx.Protostone{stone}
				return nil
			}
			move := tx.Protostone{Pointer: tx.Vout(0), Refund: tx.Vout(0)}
			for _, e := range req.Edicts {
				if err := fixedpoint.Validate(e.Amount); err != nil {
					return fmt.Errorf("edict %s: %w", e.Asset, err)
				}
				move.Edicts = append(move.Edicts, tx.ProtoEdict{Asset: e.Asset, Amount: e.Amount, Target: tx.Proto(1)})
				d.needs = append(d.needs, need{asset: e.Asset, amount: e.Amount})
			}
			d.stones = []tx.Protostone{move, stone}
			return nil
		},
	})
}
