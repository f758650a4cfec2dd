package book

import (
	"math"
	"reflect"
	"testing"

	"github.com/datavents/datavents/internal/schema"
)

func fp(v float64) *float64 { return &v }

func TestApplySnapshotReplacesBothSides(t *testing.T) {
	b := New("M1")
	b.ApplySnapshot(Snapshot{
		Bids: []Level{{Price: 0.40, Size: 10}},
		Asks: []Level{{Price: 0.60, Size: 5}},
	})

	// A later snapshot wipes everything the first one set.
	b.ApplySnapshot(Snapshot{
		Bids: []Level{{Price: 0.45, Size: 100}, {Price: 0.44, Size: 250}},
		Asks: []Level{{Price: 0.52, Size: 80}},
	})

	if b.Depth(Bid) != 2 || b.Depth(Ask) != 1 {
		t.Fatalf("depth = %d/%d, want 2/1", b.Depth(Bid), b.Depth(Ask))
	}
	if _, ok := b.bids[0.40]; ok {
		t.Fatal("stale level 0.40 survived the snapshot")
	}
}

func TestApplySnapshotSkipsBadLevels(t *testing.T) {
	b := New("M1")
	b.ApplySnapshot(Snapshot{
		Bids: []Level{
			{Price: 0.45, Size: 100},
			{Price: math.NaN(), Size: 50},
			{Price: 0.30, Size: 0},
			{Price: 0.20, Size: -5},
		},
	})
	if b.Depth(Bid) != 1 {
		t.Fatalf("depth = %d, want 1", b.Depth(Bid))
	}
}

func TestApplyDeltaAbsoluteSize(t *testing.T) {
	b := New("M1")
	b.ApplySnapshot(Snapshot{Bids: []Level{{Price: 0.45, Size: 100}}})

	if err := b.ApplyDelta(Delta{Side: Bid, Price: 0.45, Size: fp(70)}); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if got := b.bids[0.45]; got != 70 {
		t.Fatalf("size = %v, want 70", got)
	}

	// Absolute zero removes the level.
	if err := b.ApplyDelta(Delta{Side: Bid, Price: 0.45, Size: fp(0)}); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if b.Depth(Bid) != 0 {
		t.Fatal("level survived absolute size 0")
	}
}

func TestApplyDeltaRelativeChange(t *testing.T) {
	b := New("M1")
	b.ApplySnapshot(Snapshot{Bids: []Level{{Price: 0.45, Size: 100}}})

	if err := b.ApplyDelta(Delta{Side: Bid, Price: 0.45, Change: fp(-30)}); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if got := b.bids[0.45]; got != 70 {
		t.Fatalf("size = %v, want 70", got)
	}

	// Draining to exactly zero removes the level.
	if err := b.ApplyDelta(Delta{Side: Bid, Price: 0.45, Change: fp(-70)}); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if b.Depth(Bid) != 0 {
		t.Fatal("level survived drain to zero")
	}
}

func TestApplyDeltaNegativeChangeOnAbsentLevel(t *testing.T) {
	b := New("M1")
	b.ApplySnapshot(Snapshot{Bids: []Level{{Price: 0.45, Size: 100}}})

	// Nothing to subtract from: a no-op, not an error.
	if err := b.ApplyDelta(Delta{Side: Bid, Price: 0.50, Change: fp(-25)}); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if b.Depth(Bid) != 1 {
		t.Fatalf("depth = %d, want 1", b.Depth(Bid))
	}
	if got := b.bids[0.45]; got != 100 {
		t.Fatalf("existing level disturbed: %v", got)
	}
}

func TestApplyDeltaPositiveChangeInsertsLevel(t *testing.T) {
	b := New("M1")
	b.ApplySnapshot(Snapshot{})

	if err := b.ApplyDelta(Delta{Side: Ask, Price: 0.55, Change: fp(40)}); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if got := b.asks[0.55]; got != 40 {
		t.Fatalf("size = %v, want 40", got)
	}
}

func TestApplyDeltaFaults(t *testing.T) {
	b := New("M1")

	if err := b.ApplyDelta(Delta{Side: Bid, Price: math.NaN(), Size: fp(10)}); err == nil {
		t.Fatal("expected error for non-finite price")
	}
	err := b.ApplyDelta(Delta{Side: Bid, Price: 0.45})
	if err == nil {
		t.Fatal("expected error for delta with neither size nor change")
	}
	if _, ok := err.(*schema.ReconciliationGapError); !ok {
		t.Fatalf("expected ReconciliationGapError, got %T", err)
	}
}

func TestQuantizedPricesConverge(t *testing.T) {
	b := New("M1")
	b.ApplySnapshot(Snapshot{Bids: []Level{{Price: 0.45001, Size: 100}}})

	// Within quantization tolerance of the existing level, so it must
	// address the same key.
	if err := b.ApplyDelta(Delta{Side: Bid, Price: 0.44999, Change: fp(-100)}); err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if b.Depth(Bid) != 0 {
		t.Fatal("quantized prices did not converge on one level")
	}
}

func TestTopLevelsOrdering(t *testing.T) {
	b := New("M1")
	b.ApplySnapshot(Snapshot{
		Bids: []Level{
			{Price: 0.41, Size: 1},
			{Price: 0.45, Size: 2},
			{Price: 0.43, Size: 3},
		},
		Asks: []Level{
			{Price: 0.55, Size: 4},
			{Price: 0.52, Size: 5},
		},
	})

	gotBids := b.TopLevels(Bid, 2)
	wantBids := []schema.OrderBookLevel{{Price: 0.45, Size: 2}, {Price: 0.43, Size: 3}}
	if !reflect.DeepEqual(gotBids, wantBids) {
		t.Fatalf("bids = %v, want %v", gotBids, wantBids)
	}

	gotAsks := b.TopLevels(Ask, 10)
	wantAsks := []schema.OrderBookLevel{{Price: 0.52, Size: 5}, {Price: 0.55, Size: 4}}
	if !reflect.DeepEqual(gotAsks, wantAsks) {
		t.Fatalf("asks = %v, want %v", gotAsks, wantAsks)
	}
}

func TestBestBidAsk(t *testing.T) {
	b := New("M1")
	if _, ok := b.BestBid(); ok {
		t.Fatal("empty book reported a best bid")
	}

	b.ApplySnapshot(Snapshot{
		Bids: []Level{{Price: 0.44, Size: 1}, {Price: 0.46, Size: 1}},
		Asks: []Level{{Price: 0.53, Size: 1}, {Price: 0.51, Size: 1}},
	})

	if bid, ok := b.BestBid(); !ok || bid != 0.46 {
		t.Fatalf("best bid = %v (%v), want 0.46", bid, ok)
	}
	if ask, ok := b.BestAsk(); !ok || ask != 0.51 {
		t.Fatalf("best ask = %v (%v), want 0.51", ask, ok)
	}
}
