package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/holiman/uint256"
	"github.com/subfrost/swapengine/internal/amm"
	"github.com/subfrost/swapengine/internal/fee"
	"github.com/subfrost/swapengine/internal/selector"
	"github.com/subfrost/swapengine/pkg/cellpack"
	"github.com/subfrost/swapengine/pkg/tx"
	"github.com/subfrost/swapengine/pkg/types"
)

const (
	userAddr   = "bcrt1pzyg3zyg3zyg3zyg3zyg3zyg3zyg3zyg3zyg3zyg3zyg3zyg3zygsqysakq"
	signerAddr = "bcrt1p466wtm6hn2llrm02ckx6z03tsygjjyfefdaz6sekczvcr7z00vtsc5gvgz"
	tipHeight  = 840_000
)

var (
	diesel  = types.MustAssetID("2:0")
	frbtc   = types.MustAssetID("32:0")
	busd    = types.MustAssetID("2:56801")
	factory = types.MustAssetID("4:65522")
	pool1   = types.MustAssetID("2:100") // diesel/busd
	pool2   = types.MustAssetID("2:200") // frbtc/busd
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

type fakeChain struct {
	pools    map[types.AssetID]*amm.Pool
	pairs    map[[2]types.AssetID]types.AssetID
	carriers []types.Carrier
	fees     fee.Params
	height   uint64
	spent    []types.Outpoint
	rate     uint64
}

func (f *fakeChain) Pool(_ context.Context, id types.AssetID) (*amm.Pool, error) {
	p, ok := f.pools[id]
	if !ok {
		return nil, ErrPoolNotFound
	}
	return p, nil
}

func (f *fakeChain) FindPool(_ context.Context, a, b types.AssetID) (types.AssetID, error) {
	if id, ok := f.pairs[[2]types.AssetID{a, b}]; ok {
		return id, nil
	}
	return f.pairs[[2]types.AssetID{b, a}], nil
}

func (f *fakeChain) Carriers(context.Context, string) ([]types.Carrier, error) {
	return f.carriers, nil
}

func (f *fakeChain) WrapFees(context.Context) (fee.Params, error) { return f.fees, nil }

func (f *fakeChain) BlockHeight(context.Context) (uint64, error) { return f.height, nil }

func (f *fakeChain) FeeRate(context.Context) (uint64, error) { return f.rate, nil }

func (f *fakeChain) SpentOutpoints() ([]types.Outpoint, error) { return f.spent, nil }

func mustPool(t *testing.T, id, a, b types.AssetID, ra, rb uint64) *amm.Pool {
	t.Helper()
	p, err := amm.NewPool(id, a, b, u(ra), u(rb), 10)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func op(b byte, idx uint32) types.Outpoint {
	return types.Outpoint{TxID: chainhash.Hash{b}, Index: idx}
}

func newChain(t *testing.T) *fakeChain {
	t.Helper()
	return &fakeChain{
		pools: map[types.AssetID]*amm.Pool{
			pool1: mustPool(t, pool1, diesel, busd, 1_000_000, 50_000_000),
			pool2: mustPool(t, pool2, frbtc, busd, 1_000_000, 50_000_000),
		},
		pairs: map[[2]types.AssetID]types.AssetID{
			{diesel, busd}: pool1,
			{frbtc, busd}:  pool2,
		},
		carriers: []types.Carrier{
			{Outpoint: op(1, 0), ValueSats: 546, Assets: map[types.AssetID]*uint256.Int{diesel: u(15_000)}},
			{Outpoint: op(2, 1), ValueSats: 100_000},
			{Outpoint: op(3, 0), ValueSats: 900_000, HasForeignAttachment: true},
			{Outpoint: op(4, 2), ValueSats: 50_000},
			{Outpoint: op(5, 0), ValueSats: 546, Assets: map[types.AssetID]*uint256.Int{frbtc: u(60_000), busd: u(600_000)}},
		},
		fees:   fee.Params{WrapPerThousand: 1, UnwrapPerThousand: 1},
		height: tipHeight,
		rate:   3,
	}
}

func newPlanner(t *testing.T, chain *fakeChain) *Planner {
	t.Helper()
	p, err := New(Config{
		Params:        &chaincfg.RegressionNetParams,
		FrBTC:         frbtc,
		Factory:       factory,
		SignerAddress: signerAddr,
	}, Deps{
		Pools:    chain,
		Locator:  chain,
		Carriers: chain,
		Fees:     chain,
		Heights:  chain,
		FeeRates: chain,
		Spent:    chain,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

// checkBalanced verifies the funding arithmetic of a built plan.
func checkBalanced(t *testing.T, plan *ExecutionPlan) {
	t.Helper()
	template := plan.Transaction()
	in, _ := template.TotalInputValue()
	out, _ := template.TotalOutputValue()
	if in-out != plan.NetworkFee {
		t.Errorf("inputs %d - outputs %d != fee %d", in, out, plan.NetworkFee)
	}
	if need := tx.RequiredFee(template, plan.FeeRate); plan.NetworkFee < need {
		t.Errorf("fee %d below required %d", plan.NetworkFee, need)
	}
	if err := template.Validate(plan.FeeRate); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if err := selector.AssertClean(plan.Selected); err != nil {
		t.Errorf("plan spends a foreign attachment: %v", err)
	}
	if !plan.Verify() {
		t.Error("plan does not match its digest")
	}
}

func outpoints(plan *ExecutionPlan) []types.Outpoint {
	ops := make([]types.Outpoint, len(plan.Selected))
	for i, c := range plan.Selected {
		ops[i] = c.Outpoint
	}
	return ops
}

func TestPlanSwap_DirectExactIn(t *testing.T) {
	chain := newChain(t)
	plan, err := newPlanner(t, chain).PlanSwap(context.Background(), SwapRequest{
		Address:      userAddr,
		Sell:         diesel,
		Buy:          busd,
		Amount:       u(10_000),
		Mode:         amm.ExactIn,
		ToleranceBps: 50,
		FeeRate:      2,
	})
	if err != nil {
		t.Fatalf("PlanSwap: %v", err)
	}

	if got, want := plan.Notation(), "[2:0:10000:p1]:v0:v0,[2,100,3,487696,840003]:v0:v0"; got != want {
		t.Errorf("Notation = %s, want %s", got, want)
	}
	if plan.Quote.OutputAmount.Uint64() != 490_147 {
		t.Errorf("quoted output = %s, want 490147", plan.Quote.OutputAmount.Dec())
	}
	if plan.Window.MinimumOut.Uint64() != 487_696 || plan.Window.MaximumIn.Uint64() != 10_000 {
		t.Errorf("window = %s/%s", plan.Window.MinimumOut.Dec(), plan.Window.MaximumIn.Dec())
	}
	if plan.ExpiryHeight != tipHeight+DefaultDeadlineBlocks {
		t.Errorf("ExpiryHeight = %d", plan.ExpiryHeight)
	}
	if plan.FeeRate != 2 {
		t.Errorf("FeeRate = %d, want 2", plan.FeeRate)
	}

	ops := outpoints(plan)
	if len(ops) != 2 || ops[0] != op(1, 0) || ops[1] != op(2, 1) {
		t.Errorf("selected = %v, want diesel carrier then largest clean sats", ops)
	}

	if len(plan.Outputs) != 3 {
		t.Fatalf("outputs = %d, want user, OP_RETURN, change", len(plan.Outputs))
	}
	if plan.Outputs[0].Value != tx.DustLimit || !plan.Outputs[1].IsNullData() {
		t.Errorf("output layout = %+v", plan.Outputs)
	}
	checkBalanced(t, plan)

	stones, err := tx.DecodeRunestone(plan.Runestone)
	if err != nil {
		t.Fatalf("DecodeRunestone: %v", err)
	}
	if len(stones) != 2 {
		t.Fatalf("decoded %d protostones, want 2", len(stones))
	}
	msg, err := stones[1].Message()
	if err != nil {
		t.Fatal(err)
	}
	call, err := cellpack.DecodeCellpack(msg)
	if err != nil {
		t.Fatal(err)
	}
	if call.String() != "[2,100,3,487696,840003]" {
		t.Errorf("encoded call = %s", call)
	}
	if string(msg) != string(plan.Calldata) {
		t.Error("runestone message differs from plan calldata")
	}
}

func TestQuote(t *testing.T) {
	chain := newChain(t)
	chain.carriers = nil
	p := newPlanner(t, chain)

	q, err := p.Quote(context.Background(), SwapRequest{
		Sell:         diesel,
		Buy:          busd,
		Amount:       u(10_000),
		Mode:         amm.ExactIn,
		ToleranceBps: 50,
	})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Quote.OutputAmount.Uint64() != 490_147 {
		t.Errorf("output = %s, want 490147", q.Quote.OutputAmount.Dec())
	}
	if q.Window.MinimumOut.Uint64() != 487_696 {
		t.Errorf("minimum out = %s, want 487696", q.Window.MinimumOut.Dec())
	}

	q, err = p.Quote(context.Background(), SwapRequest{
		Sell:   BTC,
		Buy:    busd,
		Amount: u(10_000),
		Mode:   amm.ExactIn,
	})
	if err != nil {
		t.Fatalf("Quote BTC: %v", err)
	}
	if len(q.Path) != 3 || q.Path[0] != BTC || q.Path[1] != frbtc || q.Path[2] != busd {
		t.Errorf("path = %v, want [0:0 32:0 2:56801]", q.Path)
	}

	_, err = p.Quote(context.Background(), SwapRequest{Sell: diesel, Buy: frbtc, Amount: u(1)})
	var se *StageError
	if !errors.As(err, &se) || se.Stage != StageQuoting || !errors.Is(err, ErrPoolNotFound) {
		t.Errorf("err = %v, want pool-not-found at quoting", err)
	}
}

func TestPlanSwap_SkipsPendingOutpoints(t *testing.T) {
	chain := newChain(t)
	chain.spent = []types.Outpoint{op(2, 1)}
	plan, err := newPlanner(t, chain).PlanSwap(context.Background(), SwapRequest{
		Address: userAddr, Sell: diesel, Buy: busd, Amount: u(10_000), ToleranceBps: 50, FeeRate: 2,
	})
	if err != nil {
		t.Fatalf("PlanSwap: %v", err)
	}
	for _, o := range outpoints(plan) {
		if o == op(2, 1) {
			t.Fatal("selected an outpoint spent by a pending transaction")
		}
	}
	checkBalanced(t, plan)
}

func TestPlanSwap_IntermediateFallback(t *testing.T) {
	chain := newChain(t)
	p := newPlanner(t, chain)
	p.cfg.Intermediate = busd

	// diesel/frbtc has no pool of its own.
	q, err := p.Quote(context.Background(), SwapRequest{Sell: diesel, Buy: frbtc, Amount: u(10_000), ToleranceBps: 50})
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if len(q.Path) != 3 || q.Path[0] != diesel || q.Path[1] != busd || q.Path[2] != frbtc {
		t.Errorf("path = %v, want [2:0 2:56801 32:0]", q.Path)
	}
	if q.Quote.OutputAmount.Uint64() != 9611 {
		t.Errorf("output = %s, want 9611", q.Quote.OutputAmount.Dec())
	}

	plan, err := p.PlanSwap(context.Background(), SwapRequest{
		Address:      userAddr,
		Sell:         diesel,
		Buy:          frbtc,
		Amount:       u(10_000),
		ToleranceBps: 50,
		FeeRate:      2,
	})
	if err != nil {
		t.Fatalf("PlanSwap: %v", err)
	}
	want := "[2:0:10000:p1]:v0:v0,[4,65522,13,3,2,0,2,56801,32,0,10000,9562,840003]:v0:v0"
	if got := plan.Notation(); got != want {
		t.Errorf("Notation = %s, want %s", got, want)
	}
	checkBalanced(t, plan)

	// The intermediate must not repeat an end of the pair.
	p.cfg.Intermediate = frbtc
	if _, err := p.Quote(context.Background(), SwapRequest{Sell: diesel, Buy: frbtc, Amount: u(1)}); !errors.Is(err, ErrPoolNotFound) {
		t.Errorf("err = %v, want ErrPoolNotFound", err)
	}
}

func TestPlanSwap_RouterExactOut(t *testing.T) {
	chain := newChain(t)
	plan, err := newPlanner(t, chain).PlanSwap(context.Background(), SwapRequest{
		Address:      userAddr,
		Sell:         diesel,
		Buy:          busd,
		Amount:       u(100_000),
		Mode:         amm.ExactOut,
		ToleranceBps: 50,
		FeeRate:      2,
	})
	if err != nil {
		t.Fatalf("PlanSwap: %v", err)
	}
	if plan.Quote.InputAmount.Uint64() != 2025 {
		t.Errorf("quoted input = %s, want 2025", plan.Quote.InputAmount.Dec())
	}
	want := "[2:0:2036:p1]:v0:v0,[4,65522,14,2,2,0,2,56801,100000,2036,840003]:v0:v0"
	if got := plan.Notation(); got != want {
		t.Errorf("Notation = %s, want %s", got, want)
	}
	checkBalanced(t, plan)
}

func TestPlanSwap_WrapIn(t *testing.T) {
	chain := newChain(t)
	plan, err := newPlanner(t, chain).PlanSwap(context.Background(), SwapRequest{
		Address:      userAddr,
		Sell:         BTC,
		Buy:          busd,
		Amount:       u(10_010),
		ToleranceBps: 50,
		FeeRate:      2,
	})
	if err != nil {
		t.Fatalf("PlanSwap: %v", err)
	}
	if got, want := plan.Notation(), "[32,0,77]:p1:v0,[2,200,3,487696,840003]:v0:v0"; got != want {
		t.Errorf("Notation = %s, want %s", got, want)
	}
	if plan.Quote.WrapFee.Uint64() != 10 || plan.Quote.OutputAmount.Uint64() != 490_147 {
		t.Errorf("quote = fee %s out %s", plan.Quote.WrapFee.Dec(), plan.Quote.OutputAmount.Dec())
	}
	signer, _ := addressScript(signerAddr, &chaincfg.RegressionNetParams)
	if plan.Outputs[1].Value != 10_010 || string(plan.Outputs[1].PkScript) != string(signer) {
		t.Errorf("signer output = %+v", plan.Outputs[1])
	}
	for _, c := range plan.Selected {
		if c.HoldsAssets() {
			t.Errorf("wrap+swap spent asset carrier %s", c.Outpoint)
		}
	}
	if len(plan.Expected) != 1 || plan.Expected[0].Asset != busd {
		t.Errorf("Expected = %+v", plan.Expected)
	}
	checkBalanced(t, plan)
}

func TestPlanSwap_UnwrapOut(t *testing.T) {
	chain := newChain(t)
	plan, err := newPlanner(t, chain).PlanSwap(context.Background(), SwapRequest{
		Address:      userAddr,
		Sell:         busd,
		Buy:          BTC,
		Amount:       u(500_000),
		ToleranceBps: 50,
		FeeRate:      2,
	})
	if err != nil {
		t.Fatalf("PlanSwap: %v", err)
	}
	want := "[2:56801:500000:p1]:v0:v0,[2,200,3,9752,840003]:p2:v0,[32,0,78]:v0:v0"
	if got := plan.Notation(); got != want {
		t.Errorf("Notation = %s, want %s", got, want)
	}
	if plan.Expected[0].Asset != BTC || plan.Expected[0].Amount.Uint64() != 9793 {
		t.Errorf("Expected = %s %s, want 9793 sats", plan.Expected[0].Asset, plan.Expected[0].Amount.Dec())
	}
	stones, err := tx.DecodeRunestone(plan.Runestone)
	if err != nil {
		t.Fatal(err)
	}
	// p2 sits one past the real outputs plus two.
	ptr, _ := stones[1].Pointer()
	if want := uint64(len(plan.Outputs)) + 1 + 2; ptr != want {
		t.Errorf("swap pointer = %d, want %d", ptr, want)
	}
	checkBalanced(t, plan)
}

func TestPlanSwap_Errors(t *testing.T) {
	tests := []struct {
		name  string
		req   SwapRequest
		stage Stage
		want  error
	}{
		{
			name:  "liquidity",
			req:   SwapRequest{Address: userAddr, Sell: diesel, Buy: busd, Amount: u(50_000_000), Mode: amm.ExactOut, FeeRate: 2},
			stage: StageQuoting,
			want:  amm.ErrInsufficientLiquidity,
		},
		{
			name:  "zero amount",
			req:   SwapRequest{Address: userAddr, Sell: diesel, Buy: busd, Amount: u(0), FeeRate: 2},
			stage: StageQuoting,
			want:  amm.ErrInvalidAmount,
		},
		{
			name:  "not a swap",
			req:   SwapRequest{Address: userAddr, Sell: BTC, Buy: frbtc, Amount: u(10_000), FeeRate: 2},
			stage: StageQuoting,
			want:  ErrInvalidRequest,
		},
		{
			name:  "bad address",
			req:   SwapRequest{Address: "bc1pzyg3zyg3zyg3zyg3zyg3zyg3zyg3zyg3zyg3zyg3zyg3zyg3zygs64v5e4", Sell: diesel, Buy: busd, Amount: u(10_000), FeeRate: 2},
			stage: StageQuoting,
			want:  ErrInvalidAddress,
		},
		{
			name:  "slippage",
			req:   SwapRequest{Address: userAddr, Sell: diesel, Buy: busd, Amount: u(10_000), ToleranceBps: 10_001, FeeRate: 2},
			stage: StageBoundsComputed,
			want:  nil, // checked below
		},
		{
			name:  "not enough diesel",
			req:   SwapRequest{Address: userAddr, Sell: diesel, Buy: busd, Amount: u(20_000), FeeRate: 2},
			stage: StageAssetsSelected,
			want:  selector.ErrInsufficientCleanAssets,
		},
		{
			name:  "not enough sats",
			req:   SwapRequest{Address: userAddr, Sell: diesel, Buy: busd, Amount: u(10_000), FeeRate: 5_000},
			stage: StageReady,
			want:  selector.ErrInsufficientCleanAssets,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := newPlanner(t, newChain(t)).PlanSwap(context.Background(), tt.req)
			if err == nil {
				t.Fatalf("PlanSwap succeeded: %s", plan.Notation())
			}
			if plan != nil {
				t.Error("failed build returned a partial plan")
			}
			var se *StageError
			if !errors.As(err, &se) {
				t.Fatalf("err = %T %v, want *StageError", err, err)
			}
			if se.Stage != tt.stage {
				t.Errorf("stage = %s, want %s (%v)", se.Stage, tt.stage, err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPlanSwap_InsufficientShortfall(t *testing.T) {
	_, err := newPlanner(t, newChain(t)).PlanSwap(context.Background(), SwapRequest{
		Address: userAddr, Sell: diesel, Buy: busd, Amount: u(20_000), FeeRate: 2,
	})
	var ie *selector.InsufficientError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want *InsufficientError", err)
	}
	if ie.Shortfall.Uint64() != 5_000 {
		t.Errorf("Shortfall = %s, want 5000", ie.Shortfall.Dec())
	}
}

func TestPlanWrap(t *testing.T) {
	chain := newChain(t)
	plan, err := newPlanner(t, chain).PlanWrap(context.Background(), WrapRequest{
		Address: userAddr, AmountSats: 100_000,
	})
	if err != nil {
		t.Fatalf("PlanWrap: %v", err)
	}
	if plan.FeeRate != 3 {
		t.Errorf("FeeRate = %d, want estimator rate 3", plan.FeeRate)
	}
	if got := plan.Notation(); got != "[32,0,77]:v0:v0" {
		t.Errorf("Notation = %s", got)
	}
	if plan.Expected[0].Asset != frbtc || plan.Expected[0].Amount.Uint64() != 99_900 {
		t.Errorf("Expected = %+v", plan.Expected[0])
	}
	if plan.Outputs[1].Value != 100_000 {
		t.Errorf("signer output = %d, want 100000", plan.Outputs[1].Value)
	}
	if plan.LockTime != tipHeight || plan.Transaction().LockTime != tipHeight {
		t.Errorf("LockTime = %d, want tip %d", plan.LockTime, tipHeight)
	}
	// 100000 + dust + fee needs both clean carriers.
	if len(plan.Selected) != 2 {
		t.Errorf("selected %v", outpoints(plan))
	}
	checkBalanced(t, plan)

	if _, err := newPlanner(t, chain).PlanWrap(context.Background(), WrapRequest{Address: userAddr, AmountSats: 100}); !errors.Is(err, amm.ErrAmountTooSmall) {
		t.Errorf("dust wrap err = %v", err)
	}
}

func TestPlanUnwrap(t *testing.T) {
	plan, err := newPlanner(t, newChain(t)).PlanUnwrap(context.Background(), UnwrapRequest{
		Address: userAddr, Amount: u(50_000), FeeRate: 1,
	})
	if err != nil {
		t.Fatalf("PlanUnwrap: %v", err)
	}
	if got, want := plan.Notation(), "[32:0:50000:p1]:v0:v0,[32,0,78]:v0:v0"; got != want {
		t.Errorf("Notation = %s, want %s", got, want)
	}
	if plan.Expected[0].Amount.Uint64() != 49_950 {
		t.Errorf("expected sats = %s, want 49950", plan.Expected[0].Amount.Dec())
	}
	if plan.Selected[0].Outpoint != op(5, 0) {
		t.Errorf("first input = %s, want the frBTC carrier", plan.Selected[0].Outpoint)
	}
	checkBalanced(t, plan)
}

func TestPlanRemoveLiquidity(t *testing.T) {
	chain := newChain(t)
	chain.pools[pool1] = chain.pools[pool1].WithTotalSupply(u(7_000_000))
	chain.carriers = append(chain.carriers, types.Carrier{
		Outpoint: op(6, 0), ValueSats: 546, Assets: map[types.AssetID]*uint256.Int{pool1: u(700_000)},
	})
	plan, err := newPlanner(t, chain).PlanRemoveLiquidity(context.Background(), RemoveLiquidityRequest{
		Address: userAddr, Pool: pool1, LPAmount: u(700_000), ToleranceBps: 100, FeeRate: 1,
	})
	if err != nil {
		t.Fatalf("PlanRemoveLiquidity: %v", err)
	}
	if plan.Withdrawal.Amount0.Uint64() != 100_000 || plan.Withdrawal.Amount1.Uint64() != 5_000_000 {
		t.Errorf("withdrawal = %s/%s", plan.Withdrawal.Amount0.Dec(), plan.Withdrawal.Amount1.Dec())
	}
	want := "[2:100:700000:p1]:v0:v0,[2,100,2,99000,4950000,840003]:v0:v0"
	if got := plan.Notation(); got != want {
		t.Errorf("Notation = %s, want %s", got, want)
	}
	checkBalanced(t, plan)
}

func TestPlanAddLiquidity(t *testing.T) {
	chain := newChain(t)
	chain.pools[pool1] = chain.pools[pool1].WithTotalSupply(u(7_000_000))
	chain.carriers = append(chain.carriers, types.Carrier{
		Outpoint: op(7, 0), ValueSats: 546, Assets: map[types.AssetID]*uint256.Int{busd: u(400_000)},
	})
	plan, err := newPlanner(t, chain).PlanAddLiquidity(context.Background(), AddLiquidityRequest{
		Address: userAddr, AssetA: busd, AssetB: diesel, AmountA: u(400_000), AmountB: u(8_000), FeeRate: 1,
	})
	if err != nil {
		t.Fatalf("PlanAddLiquidity: %v", err)
	}
	// Edicts are written in request order; the runestone sorts them.
	want := "[2:56801:400000:p1][2:0:8000:p1]:v0:v0,[2,100,1]:v0:v0"
	if got := plan.Notation(); got != want {
		t.Errorf("Notation = %s, want %s", got, want)
	}
	if plan.Expected[0].Asset != pool1 || plan.Expected[0].Amount.Uint64() != 56_000 {
		t.Errorf("Expected = %+v", plan.Expected[0])
	}
	checkBalanced(t, plan)
}

func TestPlanAddLiquidity_CreatesMissingPool(t *testing.T) {
	chain := newChain(t)
	plan, err := newPlanner(t, chain).PlanAddLiquidity(context.Background(), AddLiquidityRequest{
		Address: userAddr, AssetA: diesel, AssetB: frbtc, AmountA: u(10_000), AmountB: u(40_000), FeeRate: 1,
	})
	if err != nil {
		t.Fatalf("PlanAddLiquidity: %v", err)
	}
	if plan.Action != ActionCreatePool {
		t.Errorf("Action = %s, want create_pool", plan.Action)
	}
	want := "[2:0:10000:p1][32:0:40000:p1]:v0:v0,[4,65522,1,2,0,32,0,10000,40000]:v0:v0"
	if got := plan.Notation(); got != want {
		t.Errorf("Notation = %s, want %s", got, want)
	}
	checkBalanced(t, plan)
}

func TestPlanCall(t *testing.T) {
	plan, err := newPlanner(t, newChain(t)).PlanCall(context.Background(), CallRequest{
		Address: userAddr,
		Target:  types.MustAssetID("2:77"),
		Opcode:  1,
		Args:    []*uint256.Int{u(5)},
		Edicts:  []types.Edict{{Asset: diesel, Amount: u(1_000)}},
		FeeRate: 1,
	})
	if err != nil {
		t.Fatalf("PlanCall: %v", err)
	}
	if got, want := plan.Notation(), "[2:0:1000:p1]:v0:v0,[2,77,1,5]:v0:v0"; got != want {
		t.Errorf("Notation = %s, want %s", got, want)
	}
	checkBalanced(t, plan)

	_, err = newPlanner(t, newChain(t)).PlanCall(context.Background(), CallRequest{
		Address: userAddr, Target: diesel, Opcode: 1, Args: []*uint256.Int{nil}, FeeRate: 1,
	})
	if !errors.Is(err, cellpack.ErrInvalidCalldataArgument) {
		t.Errorf("nil argument err = %v", err)
	}
}

func TestPlan_FreshIDs(t *testing.T) {
	p := newPlanner(t, newChain(t))
	req := SwapRequest{Address: userAddr, Sell: diesel, Buy: busd, Amount: u(10_000), ToleranceBps: 50, FeeRate: 2}
	a, err := p.PlanSwap(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.PlanSwap(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID || a.Digest == b.Digest {
		t.Error("two builds share an id or digest")
	}
	if string(a.Runestone) != string(b.Runestone) || a.NetworkFee != b.NetworkFee {
		t.Error("identical requests produced different transactions")
	}
}

func TestNew_RejectsBadConfig(t *testing.T) {
	chain := newChain(t)
	deps := Deps{Pools: chain, Carriers: chain, Fees: chain, Heights: chain}
	if _, err := New(Config{Params: &chaincfg.MainNetParams, SignerAddress: signerAddr}, deps); !errors.Is(err, ErrInvalidAddress) {
		t.Errorf("regtest signer on mainnet err = %v", err)
	}
	if _, err := New(Config{Params: &chaincfg.RegressionNetParams, SignerAddress: signerAddr}, Deps{}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("missing deps err = %v", err)
	}
}
