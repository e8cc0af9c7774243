package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/holiman/uint256"
	"github.com/subfrost/swapengine/internal/amm"
	"github.com/subfrost/swapengine/internal/planner"
	"github.com/subfrost/swapengine/pkg/cellpack"
	"github.com/subfrost/swapengine/pkg/fixedpoint"
	"github.com/subfrost/swapengine/pkg/types"
)

// planFlags are shared by every command that builds a plan.
type planFlags struct {
	address string
	execute bool
}

func addPlanFlags(fs *flag.FlagSet) *planFlags {
	pf := &planFlags{}
	fs.StringVar(&pf.address, "address", "", "Build for this address instead of the wallet's")
	fs.BoolVar(&pf.execute, "execute", false, "Sign with the wallet and broadcast")
	return pf
}

// parseAsset accepts "block:tx" or one of the names btc, frbtc, busd.
func parseAsset(e *env, s string) (types.AssetID, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "btc":
		return planner.BTC, nil
	case "frbtc":
		return e.net.FrBTC, nil
	case "busd":
		return e.net.BUSD, nil
	}
	return types.ParseAssetID(s)
}

func parseAssetList(e *env, s string) ([]types.AssetID, error) {
	if s == "" {
		return nil, nil
	}
	var out []types.AssetID
	for _, part := range strings.Split(s, ",") {
		id, err := parseAsset(e, part)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// parseAmount reads a display amount with 8 decimals, or base units
// after a leading '='.
func parseAmount(s string) (*uint256.Int, error) {
	if strings.HasPrefix(s, "=") {
		return fixedpoint.ParseAmount(s[1:])
	}
	return fixedpoint.ToBaseUnits(s, fixedpoint.DefaultDecimals)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// finish prints plan and, when asked, executes it.
func finish(ctx context.Context, e *env, plan *planner.ExecutionPlan, pf *planFlags) error {
	if err := printJSON(plan); err != nil {
		return err
	}
	if !pf.execute {
		return nil
	}
	txid, err := e.execute(ctx, plan)
	if err != nil {
		return err
	}
	fmt.Printf("Broadcast: %s\n", txid)
	if e.net.Explorer != "" {
		fmt.Printf("Explorer:  %s/tx/%s\n", e.net.Explorer, txid)
	}
	return nil
}

// swapFlags parses the flags quote and swap share.
type swapFlags struct {
	sell, buy, amount, via, pools string
	exactOut                      bool
}

func (sf *swapFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&sf.sell, "sell", "", "Asset sold")
	fs.StringVar(&sf.buy, "buy", "", "Asset bought")
	fs.StringVar(&sf.amount, "amount", "", "Amount sold, or bought with --exact-out")
	fs.StringVar(&sf.via, "via", "", "Route through this intermediate asset")
	fs.StringVar(&sf.pools, "pool", "", "Comma-separated pool ids, one per hop")
	fs.BoolVar(&sf.exactOut, "exact-out", false, "Fix the amount bought instead of sold")
}

func (sf *swapFlags) request(e *env) (planner.SwapRequest, error) {
	var req planner.SwapRequest
	if sf.sell == "" || sf.buy == "" || sf.amount == "" {
		return req, fmt.Errorf("--sell, --buy and --amount are required")
	}
	var err error
	if req.Sell, err = parseAsset(e, sf.sell); err != nil {
		return req, err
	}
	if req.Buy, err = parseAsset(e, sf.buy); err != nil {
		return req, err
	}
	if req.Amount, err = parseAmount(sf.amount); err != nil {
		return req, err
	}
	if sf.via != "" {
		via, err := parseAsset(e, sf.via)
		if err != nil {
			return req, err
		}
		req.Via = &via
	}
	if req.Pools, err = parseAssetList(e, sf.pools); err != nil {
		return req, err
	}
	req.Mode = amm.ExactIn
	if sf.exactOut {
		req.Mode = amm.ExactOut
	}
	req.ToleranceBps = e.cfg.Trade.ToleranceBps
	req.FeeRate = e.cfg.Trade.FeeRate
	req.DeadlineBlocks = e.cfg.Trade.DeadlineBlocks
	return req, nil
}

// ── quote ───────────────────────────────────────────────────────────────

func cmdQuote(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("quote", flag.ExitOnError)
	var sf swapFlags
	sf.register(fs)
	fs.Parse(args)

	req, err := sf.request(e)
	if err != nil {
		return err
	}
	p, err := e.planner(ctx)
	if err != nil {
		return err
	}
	q, err := p.Quote(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(q)
}

// ── swap ────────────────────────────────────────────────────────────────

func cmdSwap(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("swap", flag.ExitOnError)
	var sf swapFlags
	sf.register(fs)
	pf := addPlanFlags(fs)
	fs.Parse(args)

	req, err := sf.request(e)
	if err != nil {
		return err
	}
	if req.Address, err = e.address(pf.address); err != nil {
		return err
	}
	p, err := e.planner(ctx)
	if err != nil {
		return err
	}
	plan, err := p.PlanSwap(ctx, req)
	if err != nil {
		return err
	}
	return finish(ctx, e, plan, pf)
}

// ── wrap / unwrap ───────────────────────────────────────────────────────

func cmdWrap(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("wrap", flag.ExitOnError)
	amountStr := fs.String("amount", "", "BTC to wrap")
	pf := addPlanFlags(fs)
	fs.Parse(args)

	if *amountStr == "" {
		return fmt.Errorf("usage: swapengine-cli wrap --amount <btc>")
	}
	sats, err := parseAmount(*amountStr)
	if err != nil {
		return err
	}
	if !sats.IsUint64() {
		return fmt.Errorf("wrap amount %s sats is too large", sats.Dec())
	}
	addr, err := e.address(pf.address)
	if err != nil {
		return err
	}
	p, err := e.planner(ctx)
	if err != nil {
		return err
	}
	plan, err := p.PlanWrap(ctx, planner.WrapRequest{
		Address:    addr,
		AmountSats: sats.Uint64(),
		FeeRate:    e.cfg.Trade.FeeRate,
	})
	if err != nil {
		return err
	}
	return finish(ctx, e, plan, pf)
}

func cmdUnwrap(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("unwrap", flag.ExitOnError)
	amountStr := fs.String("amount", "", "frBTC to unwrap")
	pf := addPlanFlags(fs)
	fs.Parse(args)

	if *amountStr == "" {
		return fmt.Errorf("usage: swapengine-cli unwrap --amount <frbtc>")
	}
	amount, err := parseAmount(*amountStr)
	if err != nil {
		return err
	}
	addr, err := e.address(pf.address)
	if err != nil {
		return err
	}
	p, err := e.planner(ctx)
	if err != nil {
		return err
	}
	plan, err := p.PlanUnwrap(ctx, planner.UnwrapRequest{
		Address: addr,
		Amount:  amount,
		FeeRate: e.cfg.Trade.FeeRate,
	})
	if err != nil {
		return err
	}
	return finish(ctx, e, plan, pf)
}

// ── liquidity ───────────────────────────────────────────────────────────

func cmdAddLiquidity(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("add-liquidity", flag.ExitOnError)
	a := fs.String("a", "", "First asset")
	b := fs.String("b", "", "Second asset")
	amountA := fs.String("amount-a", "", "Amount of the first asset")
	amountB := fs.String("amount-b", "", "Amount of the second asset")
	poolStr := fs.String("pool", "", "Pool id (default: ask the factory)")
	pf := addPlanFlags(fs)
	fs.Parse(args)

	if *a == "" || *b == "" || *amountA == "" || *amountB == "" {
		return fmt.Errorf("usage: swapengine-cli add-liquidity --a <asset> --b <asset> --amount-a <n> --amount-b <n>")
	}
	req := planner.AddLiquidityRequest{FeeRate: e.cfg.Trade.FeeRate}
	var err error
	if req.AssetA, err = parseAsset(e, *a); err != nil {
		return err
	}
	if req.AssetB, err = parseAsset(e, *b); err != nil {
		return err
	}
	if req.AmountA, err = parseAmount(*amountA); err != nil {
		return err
	}
	if req.AmountB, err = parseAmount(*amountB); err != nil {
		return err
	}
	if *poolStr != "" {
		if req.Pool, err = types.ParseAssetID(*poolStr); err != nil {
			return err
		}
	}
	if req.Address, err = e.address(pf.address); err != nil {
		return err
	}
	p, err := e.planner(ctx)
	if err != nil {
		return err
	}
	plan, err := p.PlanAddLiquidity(ctx, req)
	if err != nil {
		return err
	}
	return finish(ctx, e, plan, pf)
}

func cmdRemoveLiquidity(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("remove-liquidity", flag.ExitOnError)
	poolStr := fs.String("pool", "", "Pool id")
	amountStr := fs.String("amount", "", "LP tokens to burn")
	pf := addPlanFlags(fs)
	fs.Parse(args)

	if *poolStr == "" || *amountStr == "" {
		return fmt.Errorf("usage: swapengine-cli remove-liquidity --pool <id> --amount <lp>")
	}
	pool, err := types.ParseAssetID(*poolStr)
	if err != nil {
		return err
	}
	lp, err := parseAmount(*amountStr)
	if err != nil {
		return err
	}
	addr, err := e.address(pf.address)
	if err != nil {
		return err
	}
	p, err := e.planner(ctx)
	if err != nil {
		return err
	}
	plan, err := p.PlanRemoveLiquidity(ctx, planner.RemoveLiquidityRequest{
		Address:        addr,
		Pool:           pool,
		LPAmount:       lp,
		ToleranceBps:   e.cfg.Trade.ToleranceBps,
		FeeRate:        e.cfg.Trade.FeeRate,
		DeadlineBlocks: e.cfg.Trade.DeadlineBlocks,
	})
	if err != nil {
		return err
	}
	return finish(ctx, e, plan, pf)
}

// ── call ────────────────────────────────────────────────────────────────

func cmdCall(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("call", flag.ExitOnError)
	targetStr := fs.String("target", "", "Contract id")
	opcode := fs.Uint64("opcode", 0, "Opcode")
	argStr := fs.String("args", "", "Comma-separated integer arguments")
	edictStr := fs.String("edict", "", "Comma-separated <asset>:<amount> inputs, e.g. 2:0:=1000")
	pf := addPlanFlags(fs)
	fs.Parse(args)

	if *targetStr == "" {
		return fmt.Errorf("usage: swapengine-cli call --target <id> --opcode <n> [--args 1,2] [--edict <id>:<amt>]")
	}
	req := planner.CallRequest{Opcode: *opcode, FeeRate: e.cfg.Trade.FeeRate}
	var err error
	if req.Target, err = parseAsset(e, *targetStr); err != nil {
		return err
	}
	if *argStr != "" {
		if req.Args, err = cellpack.ParseArgs(strings.Split(*argStr, ",")); err != nil {
			return err
		}
	}
	if *edictStr != "" {
		for _, s := range strings.Split(*edictStr, ",") {
			ed, err := parseEdict(e, s)
			if err != nil {
				return err
			}
			req.Edicts = append(req.Edicts, ed)
		}
	}
	if req.Address, err = e.address(pf.address); err != nil {
		return err
	}
	p, err := e.planner(ctx)
	if err != nil {
		return err
	}
	plan, err := p.PlanCall(ctx, req)
	if err != nil {
		return err
	}
	return finish(ctx, e, plan, pf)
}

// parseEdict reads "<asset>:<amount>" where asset is "block:tx" or a name.
func parseEdict(e *env, s string) (types.Edict, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 {
		return types.Edict{}, fmt.Errorf("edict %q: want <asset>:<amount>", s)
	}
	asset, err := parseAsset(e, s[:i])
	if err != nil {
		return types.Edict{}, fmt.Errorf("edict %q: %w", s, err)
	}
	amount, err := parseAmount(s[i+1:])
	if err != nil {
		return types.Edict{}, fmt.Errorf("edict %q: %w", s, err)
	}
	return types.Edict{Asset: asset, Amount: amount}, nil
}

// ── pool ────────────────────────────────────────────────────────────────

func cmdPool(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("pool", flag.ExitOnError)
	a := fs.String("a", "", "First asset")
	b := fs.String("b", "", "Second asset")
	fs.Parse(args)

	var id types.AssetID
	var err error
	switch {
	case fs.NArg() == 1:
		if id, err = types.ParseAssetID(fs.Arg(0)); err != nil {
			return err
		}
	case *a != "" && *b != "":
		ida, err := parseAsset(e, *a)
		if err != nil {
			return err
		}
		idb, err := parseAsset(e, *b)
		if err != nil {
			return err
		}
		if id, err = e.provider.FindPool(ctx, ida, idb); err != nil {
			return err
		}
		if id.IsZero() {
			return fmt.Errorf("%w: %s/%s", planner.ErrPoolNotFound, ida, idb)
		}
	default:
		return fmt.Errorf("usage: swapengine-cli pool <id> | pool --a <asset> --b <asset>")
	}
	pool, err := e.provider.Pool(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(struct {
		*amm.Pool
		Display map[string]string `json:"display"`
	}{pool, map[string]string{
		pool.Asset0.String(): fixedpoint.FromBaseUnits(pool.Reserve0, fixedpoint.DefaultDecimals, 8),
		pool.Asset1.String(): fixedpoint.FromBaseUnits(pool.Reserve1, fixedpoint.DefaultDecimals, 8),
		"lp":                 fixedpoint.FromBaseUnits(pool.TotalSupply, fixedpoint.DefaultDecimals, 8),
	}})
}
