// Package selector picks the carriers that fund a protocol call.
//
// Only clean carriers are ever chosen: a carrier that also holds an
// inscription or rune is skipped no matter how well it would fit.
package selector

import (
	"errors"
	"fmt"
	"sort"

	"github.com/holiman/uint256"
	"github.com/subfrost/swapengine/pkg/fixedpoint"
	"github.com/subfrost/swapengine/pkg/types"
)

// Selection errors.
var (
	ErrInsufficientCleanAssets = errors.New("insufficient clean assets")
	ErrForeignAttachment       = errors.New("carrier has a foreign attachment")
)

// InsufficientError reports how far the clean carriers fell short.
// It matches ErrInsufficientCleanAssets under errors.Is.
type InsufficientError struct {
	Asset     types.AssetID // zero for sats
	Required  *uint256.Int
	Available *uint256.Int
	Shortfall *uint256.Int
}

func (e *InsufficientError) Error() string {
	what := "sats"
	if !e.Asset.IsZero() {
		what = e.Asset.String()
	}
	return fmt.Sprintf("%v: need %s %s, have %s (short %s)",
		ErrInsufficientCleanAssets, e.Required.Dec(), what, e.Available.Dec(), e.Shortfall.Dec())
}

// Is makes errors.Is(err, ErrInsufficientCleanAssets) hold.
func (e *InsufficientError) Is(target error) bool {
	return target == ErrInsufficientCleanAssets
}

func insufficient(asset types.AssetID, required, available *uint256.Int) error {
	return &InsufficientError{
		Asset:     asset,
		Required:  fixedpoint.Clone(required),
		Available: fixedpoint.Clone(available),
		Shortfall: new(uint256.Int).Sub(required, available),
	}
}

// Selection holds the chosen carriers.
type Selection struct {
	Carriers  []types.Carrier `json:"carriers"`
	Total     *uint256.Int    `json:"total"`  // selected amount of the target
	Change    *uint256.Int    `json:"change"` // Total - target
	TotalSats uint64          `json:"total_sats"`
}

// Outpoints lists the selected outpoints in selection order.
func (s *Selection) Outpoints() []types.Outpoint {
	out := make([]types.Outpoint, len(s.Carriers))
	for i, c := range s.Carriers {
		out[i] = c.Outpoint
	}
	return out
}

// OutpointSet is a set of outpoints excluded from selection.
type OutpointSet map[types.Outpoint]struct{}

// NewOutpointSet builds a set from a list.
func NewOutpointSet(ops ...types.Outpoint) OutpointSet {
	s := make(OutpointSet, len(ops))
	for _, op := range ops {
		s[op] = struct{}{}
	}
	return s
}

// Add inserts every outpoint of sel.
func (s OutpointSet) Add(sel *Selection) {
	if sel == nil {
		return
	}
	for _, c := range sel.Carriers {
		s[c.Outpoint] = struct{}{}
	}
}

// Has reports membership. A nil set is empty.
func (s OutpointSet) Has(op types.Outpoint) bool {
	_, ok := s[op]
	return ok
}

type candidate struct {
	carrier types.Carrier
	value   *uint256.Int
}

// sortDescending orders by value, largest first, then by outpoint.
func sortDescending(cs []candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if c := cs[i].value.Cmp(cs[j].value); c != 0 {
			return c > 0
		}
		return cs[i].carrier.Outpoint.Less(cs[j].carrier.Outpoint)
	})
}

func accumulate(cs []candidate, asset types.AssetID, target *uint256.Int) (*Selection, error) {
	sortDescending(cs)
	total := new(uint256.Int)
	sel := &Selection{}
	for _, c := range cs {
		if !total.Lt(target) {
			break
		}
		next, err := fixedpoint.CheckedAdd(total, c.value)
		if err != nil {
			return nil, err
		}
		total = next
		sel.Carriers = append(sel.Carriers, c.carrier)
		sel.TotalSats += c.carrier.ValueSats
	}
	if total.Lt(target) {
		return nil, insufficient(asset, target, total)
	}
	sel.Total = total
	sel.Change = new(uint256.Int).Sub(total, target)
	return sel, nil
}

// SelectAsset picks clean carriers holding asset, largest balance first,
// until their combined balance covers amount.
func SelectAsset(carriers []types.Carrier, asset types.AssetID, amount *uint256.Int) (*Selection, error) {
	return SelectAssetExcluding(carriers, asset, amount, nil)
}

// SelectAssetExcluding is SelectAsset ignoring the outpoints in exclude.
func SelectAssetExcluding(carriers []types.Carrier, asset types.AssetID, amount *uint256.Int, exclude OutpointSet) (*Selection, error) {
	if err := fixedpoint.Validate(amount); err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, fmt.Errorf("%w: zero target", fixedpoint.ErrInvalidAmount)
	}
	cs := make([]candidate, 0, len(carriers))
	for _, c := range carriers {
		if c.HasForeignAttachment || exclude.Has(c.Outpoint) {
			continue
		}
		v := c.AssetAmount(asset)
		if v.IsZero() {
			continue
		}
		cs = append(cs, candidate{carrier: c, value: v})
	}
	return accumulate(cs, asset, amount)
}

// SelectSats picks clean carriers holding no alkanes, largest first, until
// their value covers sats. Outpoints in exclude are skipped.
func SelectSats(carriers []types.Carrier, sats uint64, exclude OutpointSet) (*Selection, error) {
	if sats == 0 {
		return nil, fmt.Errorf("%w: zero target", fixedpoint.ErrInvalidAmount)
	}
	cs := make([]candidate, 0, len(carriers))
	for _, c := range carriers {
		if c.HasForeignAttachment || c.HoldsAssets() || exclude.Has(c.Outpoint) || c.ValueSats == 0 {
			continue
		}
		cs = append(cs, candidate{carrier: c, value: uint256.NewInt(c.ValueSats)})
	}
	return accumulate(cs, types.AssetID{}, uint256.NewInt(sats))
}

// AssertClean fails if any carrier holds a foreign attachment.
func AssertClean(carriers []types.Carrier) error {
	for _, c := range carriers {
		if c.HasForeignAttachment {
			return fmt.Errorf("%w: %s", ErrForeignAttachment, c.Outpoint)
		}
	}
	return nil
}
