// Package pending keeps a ledger of broadcast transactions that have not
// confirmed yet.
//
// The ledger is owned by the caller and handed to the planner and the
// executor explicitly. Its entries let a new plan skip outpoints already
// spent by an in-flight transaction and let a UI show amounts on their way.
package pending

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/subfrost/swapengine/internal/log"
	"github.com/subfrost/swapengine/internal/storage"
	"github.com/subfrost/swapengine/pkg/types"
)

// DefaultTTL is how long an entry is kept before Prune drops it.
const DefaultTTL = 30 * time.Minute

var keyPrefix = []byte("pending/")

// ErrInvalidEntry is returned by Add for entries without a txid.
var ErrInvalidEntry = errors.New("invalid pending entry")

// Amount is a quantity of one asset a pending transaction will deliver.
type Amount struct {
	Asset  types.AssetID `json:"asset"`
	Amount *uint256.Int  `json:"amount"`
}

// Entry is one broadcast, unconfirmed transaction. Expected holds one
// amount per asset it delivers; removing liquidity delivers two.
type Entry struct {
	TxID           string           `json:"txid"`
	PlanID         string           `json:"plan_id"`
	Action         string           `json:"action"`
	Network        string           `json:"network"`
	Expected       []Amount         `json:"expected"`
	SpentOutpoints []types.Outpoint `json:"spent_outpoints"`
	CreatedAt      time.Time        `json:"created_at"`
}

// ExpectedOf sums the amounts of asset the entry delivers.
func (e Entry) ExpectedOf(asset types.AssetID) *uint256.Int {
	total := new(uint256.Int)
	for _, a := range e.Expected {
		if a.Asset == asset && a.Amount != nil {
			total.Add(total, a.Amount)
		}
	}
	return total
}

func (e Entry) expects(asset types.AssetID) bool {
	for _, a := range e.Expected {
		if a.Asset == asset {
			return true
		}
	}
	return false
}

// Ledger stores entries in a key/value store.
type Ledger struct {
	mu  sync.Mutex
	db  storage.DB
	ttl time.Duration
	now func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(l *Ledger) { l.ttl = ttl }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New opens a ledger on db.
func New(db storage.DB, opts ...Option) *Ledger {
	l := &Ledger{db: db, ttl: DefaultTTL, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

func key(txid string) []byte {
	return append(append([]byte{}, keyPrefix...), txid...)
}

// Add records an entry. Adding a txid that is already present is a no-op.
func (l *Ledger) Add(e Entry) error {
	if e.TxID == "" {
		return fmt.Errorf("%w: empty txid", ErrInvalidEntry)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	k := key(e.TxID)
	ok, err := l.db.Has(k)
	if err != nil {
		return fmt.Errorf("check pending %s: %w", e.TxID, err)
	}
	if ok {
		return nil
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = l.now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode pending %s: %w", e.TxID, err)
	}
	if err := l.db.Put(k, data); err != nil {
		return fmt.Errorf("store pending %s: %w", e.TxID, err)
	}
	log.Ledger.Debug().Str("txid", e.TxID).Str("action", e.Action).Msg("Pending transaction recorded")
	return nil
}

// Remove drops the entry for txid, typically once it confirms.
func (l *Ledger) Remove(txid string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.db.Delete(key(txid))
}

// Get returns the entry for txid.
func (l *Ledger) Get(txid string) (*Entry, error) {
	data, err := l.db.Get(key(txid))
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode pending %s: %w", txid, err)
	}
	return &e, nil
}

// List returns every entry, oldest first.
func (l *Ledger) List() ([]Entry, error) {
	var out []Entry
	err := l.db.ForEach(keyPrefix, func(k, v []byte) error {
		var e Entry
		if err := json.Unmarshal(v, &e); err != nil {
			return fmt.Errorf("decode pending %s: %w", k[len(keyPrefix):], err)
		}
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListForAsset returns the live entries expecting asset on network.
func (l *Ledger) ListForAsset(asset types.AssetID, network string) ([]Entry, error) {
	all, err := l.List()
	if err != nil {
		return nil, err
	}
	cutoff := l.now().Add(-l.ttl)
	var out []Entry
	for _, e := range all {
		if e.expects(asset) && e.Network == network && e.CreatedAt.After(cutoff) {
			out = append(out, e)
		}
	}
	return out, nil
}

// PendingAmount sums the expected amounts of live entries for asset.
func (l *Ledger) PendingAmount(asset types.AssetID, network string) (*uint256.Int, error) {
	entries, err := l.ListForAsset(asset, network)
	if err != nil {
		return nil, err
	}
	total := new(uint256.Int)
	for _, e := range entries {
		total.Add(total, e.ExpectedOf(asset))
	}
	return total, nil
}

// SpentOutpoints lists the outpoints consumed by live entries.
func (l *Ledger) SpentOutpoints() ([]types.Outpoint, error) {
	all, err := l.List()
	if err != nil {
		return nil, err
	}
	cutoff := l.now().Add(-l.ttl)
	var out []types.Outpoint
	for _, e := range all {
		if e.CreatedAt.After(cutoff) {
			out = append(out, e.SpentOutpoints...)
		}
	}
	return out, nil
}

// Prune deletes entries older than the TTL and returns how many were dropped.
func (l *Ledger) Prune() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.ttl)
	batch := storage.NewBatch(l.db)
	n := 0
	err := l.db.ForEach(keyPrefix, func(k, v []byte) error {
		var e Entry
		if err := json.Unmarshal(v, &e); err != nil {
			// Unreadable entries are dropped with the expired ones.
			n++
			return batch.Delete(k)
		}
		if !e.CreatedAt.After(cutoff) {
			n++
			return batch.Delete(k)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := batch.Commit(); err != nil {
		return 0, err
	}
	if n > 0 {
		log.Ledger.Info().Int("removed", n).Msg("Pruned expired pending transactions")
	}
	return n, nil
}
