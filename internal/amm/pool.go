// Package amm prices trades against constant-product pools.
//
// Every quote is computed from an explicit Pool snapshot passed by the
// caller. Nothing is cached and no snapshot is ever modified.
package amm

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/subfrost/swapengine/internal/fee"
	"github.com/subfrost/swapengine/pkg/fixedpoint"
	"github.com/subfrost/swapengine/pkg/types"
)

// Quoting errors.
var (
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrAssetNotInPool        = errors.New("asset not in pool")
	ErrInvalidPool           = errors.New("invalid pool")
	ErrInvalidRoute          = errors.New("invalid route")

	// Re-exported so callers can match on the amm package alone.
	ErrAmountTooSmall = fee.ErrAmountTooSmall
	ErrInvalidAmount  = fixedpoint.ErrInvalidAmount
)

// Pool is a point-in-time snapshot of a two-asset constant-product pool.
// Asset0 always sorts before Asset1.
type Pool struct {
	ID             types.AssetID `json:"id"`
	Asset0         types.AssetID `json:"asset0"`
	Asset1         types.AssetID `json:"asset1"`
	Reserve0       *uint256.Int  `json:"reserve0"`
	Reserve1       *uint256.Int  `json:"reserve1"`
	TotalSupply    *uint256.Int  `json:"total_supply,omitempty"`
	FeePerThousand uint32        `json:"fee_per_thousand"`
}

// NewPool builds a snapshot from an unordered pair, swapping the reserves
// so that the lower asset id becomes Asset0.
func NewPool(id, assetA, assetB types.AssetID, reserveA, reserveB *uint256.Int, feePerThousand uint32) (*Pool, error) {
	if assetA == assetB {
		return nil, fmt.Errorf("%w: identical assets %s", ErrInvalidPool, assetA)
	}
	p := &Pool{
		ID:             id,
		Asset0:         assetA,
		Asset1:         assetB,
		Reserve0:       fixedpoint.Clone(reserveA),
		Reserve1:       fixedpoint.Clone(reserveB),
		TotalSupply:    new(uint256.Int),
		FeePerThousand: feePerThousand,
	}
	if assetB.Less(assetA) {
		p.Asset0, p.Asset1 = assetB, assetA
		p.Reserve0, p.Reserve1 = p.Reserve1, p.Reserve0
	}
	if err := fee.ValidatePerThousand(feePerThousand); err != nil {
		return nil, err
	}
	if err := fixedpoint.Validate(p.Reserve0); err != nil {
		return nil, fmt.Errorf("reserve0: %w", err)
	}
	if err := fixedpoint.Validate(p.Reserve1); err != nil {
		return nil, fmt.Errorf("reserve1: %w", err)
	}
	return p, nil
}

// WithTotalSupply returns a copy of the pool carrying the LP token supply.
func (p *Pool) WithTotalSupply(supply *uint256.Int) *Pool {
	cp := *p
	cp.TotalSupply = fixedpoint.Clone(supply)
	return &cp
}

// Contains reports whether asset is one side of the pool.
func (p *Pool) Contains(asset types.AssetID) bool {
	return asset == p.Asset0 || asset == p.Asset1
}

// Other returns the asset on the opposite side of asset.
func (p *Pool) Other(asset types.AssetID) (types.AssetID, error) {
	switch asset {
	case p.Asset0:
		return p.Asset1, nil
	case p.Asset1:
		return p.Asset0, nil
	default:
		return types.AssetID{}, fmt.Errorf("%w: %s not in pool %s", ErrAssetNotInPool, asset, p.ID)
	}
}

// ReservesFor returns (reserveIn, reserveOut) for a trade selling assetIn.
// Both reserves must be positive.
func (p *Pool) ReservesFor(assetIn types.AssetID) (*uint256.Int, *uint256.Int, error) {
	var rIn, rOut *uint256.Int
	switch assetIn {
	case p.Asset0:
		rIn, rOut = p.Reserve0, p.Reserve1
	case p.Asset1:
		rIn, rOut = p.Reserve1, p.Reserve0
	default:
		return nil, nil, fmt.Errorf("%w: %s not in pool %s", ErrAssetNotInPool, assetIn, p.ID)
	}
	if rIn == nil || rOut == nil || rIn.IsZero() || rOut.IsZero() {
		return nil, nil, fmt.Errorf("%w: pool %s has an empty reserve", ErrInsufficientLiquidity, p.ID)
	}
	return rIn, rOut, nil
}
