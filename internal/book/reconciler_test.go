package book

import (
	"errors"
	"sync"
	"testing"

	"github.com/datavents/datavents/internal/schema"
)

func TestReconcilerUnknownMarket(t *testing.T) {
	r := NewReconciler()
	err := r.Apply("NOPE", Snapshot{})
	if !errors.Is(err, schema.ErrUnknownMarket) {
		t.Fatalf("Apply on untracked market = %v, want ErrUnknownMarket", err)
	}
	if _, err := r.TopLevels("NOPE", Bid, 5); !errors.Is(err, schema.ErrUnknownMarket) {
		t.Fatalf("TopLevels on untracked market = %v", err)
	}
}

func TestReconcilerSnapshotThenDeltas(t *testing.T) {
	r := NewReconciler()
	r.Track("M1")

	if err := r.Apply("M1", Snapshot{
		Bids: []Level{{Price: 0.45, Size: 100}},
		Asks: []Level{{Price: 0.52, Size: 80}},
	}); err != nil {
		t.Fatalf("Apply snapshot: %v", err)
	}
	if err := r.Apply("M1", Deltas{{Side: Bid, Price: 0.46, Change: fp(30)}}); err != nil {
		t.Fatalf("Apply deltas: %v", err)
	}

	bid, bidOK, ask, askOK, err := r.Best("M1")
	if err != nil {
		t.Fatalf("Best: %v", err)
	}
	if !bidOK || bid != 0.46 || !askOK || ask != 0.52 {
		t.Fatalf("best = %v/%v, want 0.46/0.52", bid, ask)
	}
}

func TestReconcilerBuffersPreSnapshotDeltas(t *testing.T) {
	r := NewReconciler()
	r.Track("M1")

	// Deltas before any snapshot must not build book state.
	if err := r.Apply("M1", Deltas{{Side: Bid, Price: 0.30, Change: fp(500)}}); err != nil {
		t.Fatalf("Apply pre-snapshot deltas: %v", err)
	}
	if levels, _ := r.TopLevels("M1", Bid, -1); len(levels) != 0 {
		t.Fatalf("pre-snapshot deltas leaked into the book: %v", levels)
	}

	// The snapshot defines the state; the buffered deltas are stale
	// relative to it and must not be replayed on top.
	if err := r.Apply("M1", Snapshot{Bids: []Level{{Price: 0.45, Size: 100}}}); err != nil {
		t.Fatalf("Apply snapshot: %v", err)
	}
	levels, err := r.TopLevels("M1", Bid, -1)
	if err != nil {
		t.Fatalf("TopLevels: %v", err)
	}
	if len(levels) != 1 || levels[0].Price != 0.45 {
		t.Fatalf("book after snapshot = %v, want single 0.45 level", levels)
	}
}

func TestReconcilerUnrecognizedReportsGap(t *testing.T) {
	r := NewReconciler()
	r.Track("M1")

	if err := r.Apply("M1", Unrecognized{Reason: "unknown delta side maybe"}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	select {
	case gap := <-r.Gaps():
		if gap.MarketID != "M1" {
			t.Fatalf("gap for %q, want M1", gap.MarketID)
		}
	default:
		t.Fatal("no gap reported for unrecognized frame")
	}
}

func TestReconcilerDrop(t *testing.T) {
	r := NewReconciler()
	r.Track("M1")
	r.Drop("M1")
	if err := r.Apply("M1", Snapshot{}); !errors.Is(err, schema.ErrUnknownMarket) {
		t.Fatalf("Apply after Drop = %v, want ErrUnknownMarket", err)
	}
}

// Concurrent writers to distinct markets and a shared market must not
// race or corrupt state; run with -race.
func TestReconcilerConcurrentApply(t *testing.T) {
	r := NewReconciler()
	r.Track("A")
	r.Track("B")
	for _, m := range []string{"A", "B"} {
		if err := r.Apply(m, Snapshot{Bids: []Level{{Price: 0.50, Size: 1}}}); err != nil {
			t.Fatalf("seed %s: %v", m, err)
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		market := "A"
		if i%2 == 1 {
			market = "B"
		}
		wg.Add(1)
		go func(m string) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = r.Apply(m, Deltas{
					{Side: Bid, Price: 0.50, Change: fp(1)},
					{Side: Bid, Price: 0.50, Change: fp(-1)},
				})
			}
		}(market)
	}
	wg.Wait()

	for _, m := range []string{"A", "B"} {
		levels, err := r.TopLevels(m, Bid, -1)
		if err != nil {
			t.Fatalf("TopLevels %s: %v", m, err)
		}
		if len(levels) != 1 || levels[0].Size != 1 {
			t.Fatalf("%s book = %v, want single level size 1", m, levels)
		}
	}
}
