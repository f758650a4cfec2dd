package book

import (
	"log"
	"sync"

	"github.com/datavents/datavents/internal/schema"
)

// maxPendingDeltas bounds the pre-snapshot buffer per market.
const maxPendingDeltas = 1024

// marketEntry owns the reconciliation state for a single market. Its
// mutex serializes frame application even when the transport delivers
// frames from multiple goroutines.
type marketEntry struct {
	mu          sync.Mutex
	book        *Book
	sawSnapshot bool
	pending     []Deltas
}

// Reconciler applies tagged book messages per market. A market must be
// tracked before frames for it are applied; applying to an unknown
// market is a caller error. Frames for different markets never contend
// on the same state.
//
// Deltas that arrive before the first snapshot are buffered and then
// discarded once the snapshot lands: the snapshot always wins, and
// applying the buffer on top would double-count levels it already
// includes.
type Reconciler struct {
	mu      sync.RWMutex
	markets map[string]*marketEntry

	gaps chan schema.ReconciliationGapError
}

// NewReconciler creates an empty reconciler.
func NewReconciler() *Reconciler {
	return &Reconciler{
		markets: make(map[string]*marketEntry),
		gaps:    make(chan schema.ReconciliationGapError, 64),
	}
}

// Gaps returns the channel of reconciliation gaps. Consumers that care
// about book integrity should drain it and request fresh snapshots.
func (r *Reconciler) Gaps() <-chan schema.ReconciliationGapError {
	return r.gaps
}

// Track creates book state for a market at subscribe time. Tracking an
// already-tracked market is a no-op.
func (r *Reconciler) Track(marketID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.markets[marketID]; !ok {
		r.markets[marketID] = &marketEntry{book: New(marketID)}
	}
}

// Drop tears down a market's state when its subscription ends.
func (r *Reconciler) Drop(marketID string) {
	r.mu.Lock()
	delete(r.markets, marketID)
	r.mu.Unlock()
}

func (r *Reconciler) entry(marketID string) (*marketEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.markets[marketID]
	return e, ok
}

// Apply processes one tagged message for a market, serialized per
// market. It returns schema.ErrUnknownMarket for untracked markets;
// data-level faults are reported through Gaps, not returned.
func (r *Reconciler) Apply(marketID string, msg Message) error {
	e, ok := r.entry(marketID)
	if !ok {
		return schema.ErrUnknownMarket
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch m := msg.(type) {
	case Snapshot:
		e.book.ApplySnapshot(m)
		if n := len(e.pending); n > 0 {
			log.Printf("book: %s: discarding %d pre-snapshot delta batches", marketID, n)
			e.pending = nil
		}
		e.sawSnapshot = true

	case Deltas:
		if !e.sawSnapshot {
			if len(e.pending) >= maxPendingDeltas {
				r.reportGap(schema.ReconciliationGapError{
					MarketID: marketID,
					Reason:   "pre-snapshot delta buffer overflow",
				})
				return nil
			}
			e.pending = append(e.pending, m)
			return nil
		}
		for _, d := range m {
			if err := e.book.ApplyDelta(d); err != nil {
				if gap, ok := err.(*schema.ReconciliationGapError); ok {
					r.reportGap(*gap)
					continue
				}
				return err
			}
		}

	case Unrecognized:
		r.reportGap(schema.ReconciliationGapError{MarketID: marketID, Reason: m.Reason})
	}

	return nil
}

// TopLevels returns a sorted top-N view of one side of a market's book.
func (r *Reconciler) TopLevels(marketID string, side Side, n int) ([]schema.OrderBookLevel, error) {
	e, ok := r.entry(marketID)
	if !ok {
		return nil, schema.ErrUnknownMarket
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.TopLevels(side, n), nil
}

// Best returns the best bid and ask for a market. Either bool is false
// when that side is empty.
func (r *Reconciler) Best(marketID string) (bid float64, bidOK bool, ask float64, askOK bool, err error) {
	e, ok := r.entry(marketID)
	if !ok {
		return 0, false, 0, false, schema.ErrUnknownMarket
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	bid, bidOK = e.book.BestBid()
	ask, askOK = e.book.BestAsk()
	return bid, bidOK, ask, askOK, nil
}

func (r *Reconciler) reportGap(gap schema.ReconciliationGapError) {
	select {
	case r.gaps <- gap:
	default:
		log.Printf("book: gap channel full, dropping: %v", &gap)
	}
}
