package amm

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/subfrost/swapengine/pkg/fixedpoint"
)

// MinimumLiquidity is locked forever on the first deposit into a pool.
const MinimumLiquidity = 1000

// Withdrawal is the pro-rata share of both reserves owed for burning LP
// tokens.
type Withdrawal struct {
	LPAmount *uint256.Int `json:"lp_amount"`
	Amount0  *uint256.Int `json:"amount0"`
	Amount1  *uint256.Int `json:"amount1"`
}

// QuoteRemoveLiquidity returns floor(lp * reserve_i / totalSupply) for each
// side of the pool.
func QuoteRemoveLiquidity(pool *Pool, lpAmount *uint256.Int) (*Withdrawal, error) {
	if err := fixedpoint.Validate(lpAmount); err != nil {
		return nil, err
	}
	if lpAmount.IsZero() {
		return nil, fmt.Errorf("%w: zero LP amount", ErrInvalidAmount)
	}
	supply := pool.TotalSupply
	if supply == nil || supply.IsZero() {
		return nil, fmt.Errorf("%w: pool %s has no LP supply", ErrInsufficientLiquidity, pool.ID)
	}
	if lpAmount.Gt(supply) {
		return nil, fmt.Errorf("%w: burning %s of %s LP supply", ErrInsufficientLiquidity, lpAmount.Dec(), supply.Dec())
	}
	a0, err := fixedpoint.MulDivFloor(lpAmount, pool.Reserve0, supply)
	if err != nil {
		return nil, err
	}
	a1, err := fixedpoint.MulDivFloor(lpAmount, pool.Reserve1, supply)
	if err != nil {
		return nil, err
	}
	return &Withdrawal{LPAmount: fixedpoint.Clone(lpAmount), Amount0: a0, Amount1: a1}, nil
}

// QuoteAddLiquidity estimates the LP tokens minted for depositing amount0
// of Asset0 and amount1 of Asset1.
func QuoteAddLiquidity(pool *Pool, amount0, amount1 *uint256.Int) (*uint256.Int, error) {
	for _, a := range []*uint256.Int{amount0, amount1} {
		if err := fixedpoint.Validate(a); err != nil {
			return nil, err
		}
		if a.IsZero() {
			return nil, fmt.Errorf("%w: zero deposit", ErrInvalidAmount)
		}
	}
	supply := pool.TotalSupply
	if supply == nil || supply.IsZero() {
		product, overflow := new(uint256.Int).MulOverflow(amount0, amount1)
		if overflow {
			return nil, fmt.Errorf("%w: deposit product overflows", fixedpoint.ErrOverflow)
		}
		root := new(uint256.Int).Sqrt(product)
		min := uint256.NewInt(MinimumLiquidity)
		if !root.Gt(min) {
			return nil, fmt.Errorf("%w: first deposit must exceed %d liquidity units", ErrAmountTooSmall, MinimumLiquidity)
		}
		return root.Sub(root, min), nil
	}
	if pool.Reserve0.IsZero() || pool.Reserve1.IsZero() {
		return nil, fmt.Errorf("%w: pool %s has an empty reserve", ErrInsufficientLiquidity, pool.ID)
	}
	l0, err := fixedpoint.MulDivFloor(amount0, supply, pool.Reserve0)
	if err != nil {
		return nil, err
	}
	l1, err := fixedpoint.MulDivFloor(amount1, supply, pool.Reserve1)
	if err != nil {
		return nil, err
	}
	minted := fixedpoint.Min(l0, l1)
	if minted.IsZero() {
		return nil, fmt.Errorf("%w: deposit mints no LP tokens", ErrAmountTooSmall)
	}
	return minted, nil
}
