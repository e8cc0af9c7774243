package amm

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/subfrost/swapengine/internal/fee"
	"github.com/subfrost/swapengine/pkg/fixedpoint"
	"github.com/subfrost/swapengine/pkg/types"
)

// MaxHops bounds route length. Only a single known path is ever priced.
const MaxHops = 2

// Hop is one pool traversal selling AssetIn.
type Hop struct {
	Pool    *Pool
	AssetIn types.AssetID
}

// AssetOut returns the asset the hop produces.
func (h Hop) AssetOut() (types.AssetID, error) {
	return h.Pool.Other(h.AssetIn)
}

// Route is an ordered chain of hops where each hop sells what the previous
// one bought.
type Route []Hop

// Path returns the asset path [in, (mid,) out].
func (r Route) Path() ([]types.AssetID, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	path := []types.AssetID{r[0].AssetIn}
	for _, h := range r {
		out, _ := h.AssetOut()
		path = append(path, out)
	}
	return path, nil
}

func (r Route) validate() error {
	if len(r) == 0 {
		return fmt.Errorf("%w: empty route", ErrInvalidRoute)
	}
	if len(r) > MaxHops {
		return fmt.Errorf("%w: %d hops, max %d", ErrInvalidRoute, len(r), MaxHops)
	}
	for i, h := range r {
		if h.Pool == nil {
			return fmt.Errorf("%w: hop %d has no pool", ErrInvalidRoute, i)
		}
		out, err := h.AssetOut()
		if err != nil {
			return fmt.Errorf("%w: hop %d: %v", ErrInvalidRoute, i, err)
		}
		if i+1 < len(r) && r[i+1].AssetIn != out {
			return fmt.Errorf("%w: hop %d sells %s, previous hop bought %s", ErrInvalidRoute, i+1, r[i+1].AssetIn, out)
		}
	}
	return nil
}

// Legs describes native BTC legs wrapped around a route: BTC wrapped into
// frBTC before the first hop, or frBTC unwrapped to BTC after the last.
type Legs struct {
	WrapIn    bool
	UnwrapOut bool
	Fees      fee.Params
}

// RouteQuote is the composition of per-hop quotes plus any BTC legs.
type RouteQuote struct {
	Mode           Mode         `json:"mode"`
	InputAmount    *uint256.Int `json:"input_amount"`
	OutputAmount   *uint256.Int `json:"output_amount"`
	PriceImpactBps uint32       `json:"price_impact_bps"`
	Hops           []*Quote     `json:"hops"`
	WrapFee        *uint256.Int `json:"wrap_fee,omitempty"`
	UnwrapFee      *uint256.Int `json:"unwrap_fee,omitempty"`
}

// First returns the first hop quote.
func (q *RouteQuote) First() *Quote { return q.Hops[0] }

// Last returns the final hop quote.
func (q *RouteQuote) Last() *Quote { return q.Hops[len(q.Hops)-1] }

// QuoteRouteExactIn feeds amountIn through each hop in order.
func QuoteRouteExactIn(route Route, amountIn *uint256.Int) (*RouteQuote, error) {
	if err := route.validate(); err != nil {
		return nil, err
	}
	quotes := make([]*Quote, 0, len(route))
	amount := amountIn
	for i, h := range route {
		q, err := QuoteExactIn(h.Pool, h.AssetIn, amount)
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", i, err)
		}
		quotes = append(quotes, q)
		amount = q.OutputAmount
	}
	return compose(ExactIn, quotes), nil
}

// QuoteRouteExactOut walks the route backwards from the requested output.
func QuoteRouteExactOut(route Route, amountOut *uint256.Int) (*RouteQuote, error) {
	if err := route.validate(); err != nil {
		return nil, err
	}
	quotes := make([]*Quote, len(route))
	amount := amountOut
	for i := len(route) - 1; i >= 0; i-- {
		out, _ := route[i].AssetOut()
		q, err := QuoteExactOut(route[i].Pool, out, amount)
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", i, err)
		}
		quotes[i] = q
		amount = q.InputAmount
	}
	return compose(ExactOut, quotes), nil
}

func compose(mode Mode, quotes []*Quote) *RouteQuote {
	// Impacts compound: (1 - total) = prod(1 - hop).
	remaining := uint64(10_000)
	for _, q := range quotes {
		remaining = remaining * uint64(10_000-q.PriceImpactBps) / 10_000
	}
	return &RouteQuote{
		Mode:           mode,
		InputAmount:    fixedpoint.Clone(quotes[0].InputAmount),
		OutputAmount:   fixedpoint.Clone(quotes[len(quotes)-1].OutputAmount),
		PriceImpactBps: uint32(10_000 - remaining),
		Hops:           quotes,
	}
}

// QuoteWithLegs prices a route with optional BTC legs. For exact-in the
// amount is what the user sends (sats when WrapIn); for exact-out it is
// what the user receives (sats when UnwrapOut).
func QuoteWithLegs(route Route, mode Mode, amount *uint256.Int, legs Legs) (*RouteQuote, error) {
	if err := legs.Fees.Validate(); err != nil {
		return nil, err
	}
	if err := fixedpoint.Validate(amount); err != nil {
		return nil, err
	}

	switch mode {
	case ExactIn:
		routeIn := amount
		var wrapFee *uint256.Int
		if legs.WrapIn {
			net, err := fee.ApplyWrapFee(amount, legs.Fees.WrapPerThousand)
			if err != nil {
				return nil, err
			}
			wrapFee = new(uint256.Int).Sub(amount, net)
			routeIn = net
		}
		rq, err := QuoteRouteExactIn(route, routeIn)
		if err != nil {
			return nil, err
		}
		if legs.UnwrapOut {
			net, err := fee.ApplyUnwrapFee(rq.OutputAmount, legs.Fees.UnwrapPerThousand)
			if err != nil {
				return nil, err
			}
			if net.IsZero() {
				return nil, fmt.Errorf("%w: unwrap fee consumes the output", ErrAmountTooSmall)
			}
			rq.UnwrapFee = new(uint256.Int).Sub(rq.OutputAmount, net)
			rq.OutputAmount = net
		}
		rq.InputAmount = fixedpoint.Clone(amount)
		rq.WrapFee = wrapFee
		return rq, nil

	case ExactOut:
		routeOut := amount
		var unwrapFee *uint256.Int
		if legs.UnwrapOut {
			gross, err := fee.GrossUp(amount, legs.Fees.UnwrapPerThousand)
			if err != nil {
				return nil, err
			}
			unwrapFee = new(uint256.Int).Sub(gross, amount)
			routeOut = gross
		}
		rq, err := QuoteRouteExactOut(route, routeOut)
		if err != nil {
			return nil, err
		}
		if legs.WrapIn {
			gross, err := fee.GrossUp(rq.InputAmount, legs.Fees.WrapPerThousand)
			if err != nil {
				return nil, err
			}
			rq.WrapFee = new(uint256.Int).Sub(gross, rq.InputAmount)
			rq.InputAmount = gross
		}
		rq.OutputAmount = fixedpoint.Clone(amount)
		rq.UnwrapFee = unwrapFee
		return rq, nil

	default:
		return nil, fmt.Errorf("unknown trade mode %d", mode)
	}
}
