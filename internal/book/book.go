package book

import (
	"math"
	"sort"

	"github.com/datavents/datavents/internal/schema"
)

// Book is the reconstructed order-book state for one market: two
// price→size maps keyed by quantized canonical price. Absence of a key
// means zero size; the maps never hold a non-positive size.
//
// Book is not safe for concurrent use; the Reconciler serializes access
// per market.
type Book struct {
	marketID string
	bids     map[float64]float64
	asks     map[float64]float64
}

// New creates an empty book for the given market.
func New(marketID string) *Book {
	return &Book{
		marketID: marketID,
		bids:     make(map[float64]float64),
		asks:     make(map[float64]float64),
	}
}

// MarketID returns the market this book belongs to.
func (b *Book) MarketID() string { return b.marketID }

func (b *Book) side(s Side) map[float64]float64 {
	if s == Ask {
		return b.asks
	}
	return b.bids
}

// ApplySnapshot clears both sides and repopulates them from s. Levels
// with a non-finite price or non-positive size are skipped.
func (b *Book) ApplySnapshot(s Snapshot) {
	b.bids = make(map[float64]float64, len(s.Bids))
	b.asks = make(map[float64]float64, len(s.Asks))
	for _, lv := range s.Bids {
		b.insert(b.bids, lv)
	}
	for _, lv := range s.Asks {
		b.insert(b.asks, lv)
	}
}

func (b *Book) insert(m map[float64]float64, lv Level) {
	if math.IsNaN(lv.Price) || math.IsInf(lv.Price, 0) || lv.Size <= 0 {
		return
	}
	m[schema.QuantizePrice(lv.Price)] = lv.Size
}

// ApplyDelta mutates a single level. Absolute sizes replace; relative
// changes adjust. A negative relative change against an absent level is
// deliberately a no-op: with out-of-order delivery there is nothing to
// subtract from, and treating it as an error would poison the rest of
// the stream.
func (b *Book) ApplyDelta(d Delta) error {
	if math.IsNaN(d.Price) || math.IsInf(d.Price, 0) {
		return &schema.ReconciliationGapError{MarketID: b.marketID, Reason: "delta with non-finite price"}
	}

	m := b.side(d.Side)
	price := schema.QuantizePrice(d.Price)

	switch {
	case d.Size != nil:
		if *d.Size <= 0 {
			delete(m, price)
		} else {
			m[price] = *d.Size
		}
	case d.Change != nil:
		prior, ok := m[price]
		if !ok {
			if *d.Change <= 0 {
				return nil
			}
			m[price] = *d.Change
			return nil
		}
		next := prior + *d.Change
		if next <= 0 {
			delete(m, price)
		} else {
			m[price] = next
		}
	default:
		return &schema.ReconciliationGapError{MarketID: b.marketID, Reason: "delta carries neither size nor change"}
	}
	return nil
}

// TopLevels returns at most n levels of one side, bids sorted descending
// by price and asks ascending.
func (b *Book) TopLevels(side Side, n int) []schema.OrderBookLevel {
	m := b.side(side)
	out := make([]schema.OrderBookLevel, 0, len(m))
	for price, size := range m {
		out = append(out, schema.OrderBookLevel{Price: price, Size: size})
	}
	sort.Slice(out, func(i, j int) bool {
		if side == Bid {
			return out[i].Price > out[j].Price
		}
		return out[i].Price < out[j].Price
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// BestBid returns the highest bid price, or false on an empty side.
func (b *Book) BestBid() (float64, bool) {
	return bestPrice(b.bids, func(a, c float64) bool { return a > c })
}

// BestAsk returns the lowest ask price, or false on an empty side.
func (b *Book) BestAsk() (float64, bool) {
	return bestPrice(b.asks, func(a, c float64) bool { return a < c })
}

func bestPrice(m map[float64]float64, better func(a, c float64) bool) (float64, bool) {
	var best float64
	found := false
	for price := range m {
		if !found || better(price, best) {
			best = price
			found = true
		}
	}
	return best, found
}

// Depth returns the number of populated levels on one side.
func (b *Book) Depth(side Side) int {
	return len(b.side(side))
}
