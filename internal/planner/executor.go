package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/subfrost/swapengine/internal/log"
	"github.com/subfrost/swapengine/internal/metrics"
	"github.com/subfrost/swapengine/internal/pending"
	"github.com/subfrost/swapengine/pkg/types"
)

// Execution errors.
var (
	ErrPlanConsumed = errors.New("plan already executed")
	ErrPlanExpired  = errors.New("plan expired")
	ErrPlanTampered = errors.New("plan does not match its digest")
)

// Executor signs and broadcasts plans. Each plan is attempted at most
// once; a failed attempt needs a freshly built plan.
type Executor struct {
	signer  Signer
	bcast   Broadcaster
	heights HeightSource
	ledger  Recorder
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.Mutex
	consumed map[uuid.UUID]struct{}
}

// NewExecutor wires an executor. ledger and m may be nil.
func NewExecutor(signer Signer, bcast Broadcaster, heights HeightSource, ledger Recorder, m *metrics.Metrics) *Executor {
	return &Executor{
		signer:   signer,
		bcast:    bcast,
		heights:  heights,
		ledger:   ledger,
		metrics:  m,
		now:      time.Now,
		consumed: make(map[uuid.UUID]struct{}),
	}
}

// consume marks id used and reports whether it was fresh.
func (e *Executor) consume(id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.consumed[id]; ok {
		return false
	}
	e.consumed[id] = struct{}{}
	return true
}

// Execute signs plan, broadcasts it and records it as pending. It returns
// the broadcast txid.
func (e *Executor) Execute(ctx context.Context, plan *ExecutionPlan) (string, error) {
	if !e.consume(plan.ID) {
		return "", fmt.Errorf("%w: %s", ErrPlanConsumed, plan.ID)
	}
	if !plan.Verify() {
		return "", fmt.Errorf("%w: %s", ErrPlanTampered, plan.ID)
	}
	height, err := e.heights.BlockHeight(ctx)
	if err != nil {
		return "", fmt.Errorf("block height: %w", err)
	}
	if height >= plan.ExpiryHeight {
		return "", fmt.Errorf("%w: tip %d, expiry %d", ErrPlanExpired, height, plan.ExpiryHeight)
	}

	l := log.WithPlan(plan.ID.String())
	template := plan.Transaction()
	signed, err := e.signer.Sign(ctx, template)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	if signed.TxHash() != template.TxID() {
		return "", fmt.Errorf("%w: signer changed the transaction", ErrPlanTampered)
	}

	txid, err := e.bcast.Broadcast(ctx, signed)
	e.metrics.ObserveBroadcast(err)
	if err != nil {
		l.Warn().Err(err).Msg("Broadcast failed")
		return "", fmt.Errorf("broadcast: %w", err)
	}
	l.Info().Str("txid", txid).Str("action", string(plan.Action)).Msg("Plan broadcast")

	if e.ledger != nil {
		entry := pending.Entry{
			TxID:           txid,
			PlanID:         plan.ID.String(),
			Action:         string(plan.Action),
			Network:        plan.Network,
			SpentOutpoints: make([]types.Outpoint, len(plan.Selected)),
			CreatedAt:      e.now(),
		}
		for i, c := range plan.Selected {
			entry.SpentOutpoints[i] = c.Outpoint
		}
		for _, x := range plan.Expected {
			entry.Expected = append(entry.Expected, pending.Amount{Asset: x.Asset, Amount: new(uint256.Int).Set(x.Amount)})
		}
		if err := e.ledger.Add(entry); err != nil {
			// The transaction is out; only the bookkeeping failed.
			l.Error().Err(err).Str("txid", txid).Msg("Failed to record pending transaction")
		}
	}
	return txid, nil
}
