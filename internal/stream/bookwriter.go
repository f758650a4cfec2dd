package stream

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/datavents/datavents/internal/book"
	"github.com/datavents/datavents/internal/schema"
)

// Store abstracts the key-value operations used by BookWriter.
// In production this is satisfied by a Redis client; in tests by a mock.
type Store interface {
	HSet(ctx context.Context, key string, values ...any) error
}

// topSnapshot holds the last-written best bid/ask for a market so we can
// skip duplicate writes.
type topSnapshot struct {
	Bid string
	Ask string
}

// BookWriter consumes orderbook events from a Broadcaster feed and
// persists the top of each reconstructed book using the schema:
//
//	Key:    book:{vendor}:{market_id}
//	Fields: bid, ask, ts
//
// Writes are non-blocking: updates are buffered in an internal channel
// and flushed by a dedicated goroutine. Duplicate prices are suppressed.
type BookWriter struct {
	store Store
	books *book.Reconciler
	feed  <-chan schema.NormalizedEvent
	buf   chan schema.NormalizedEvent

	mu   sync.Mutex
	last map[string]topSnapshot // keyed by store key
}

// NewBookWriter creates a BookWriter that reads from a Broadcaster
// subscription and resolves prices through the session's Reconciler.
func NewBookWriter(store Store, books *book.Reconciler, feed <-chan schema.NormalizedEvent) *BookWriter {
	return &BookWriter{
		store: store,
		books: books,
		feed:  feed,
		buf:   make(chan schema.NormalizedEvent, 1024),
		last:  make(map[string]topSnapshot),
	}
}

// Run starts two goroutines: one to drain the feed into an internal
// buffer, and one to flush buffered updates to the store. It blocks
// until ctx is cancelled or the feed closes.
func (w *BookWriter) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer close(w.buf)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.feed:
				if !ok {
					return
				}
				if ev.Kind != schema.KindOrderbook {
					continue
				}
				select {
				case w.buf <- ev:
				default:
				}
			}
		}
	}()

	go func() {
		defer wg.Done()
		for ev := range w.buf {
			w.write(ctx, ev)
		}
	}()

	wg.Wait()
}

func (w *BookWriter) write(ctx context.Context, ev schema.NormalizedEvent) {
	bid, bidOK, ask, askOK, err := w.books.Best(ev.MarketRef)
	if err != nil || (!bidOK && !askOK) {
		return
	}

	var bidStr, askStr string
	if bidOK {
		bidStr = strconv.FormatFloat(bid, 'f', -1, 64)
	}
	if askOK {
		askStr = strconv.FormatFloat(ask, 'f', -1, 64)
	}

	key := fmt.Sprintf("book:%s:%s", ev.Vendor, ev.MarketRef)

	w.mu.Lock()
	if prev, ok := w.last[key]; ok && prev.Bid == bidStr && prev.Ask == askStr {
		w.mu.Unlock()
		return
	}
	w.last[key] = topSnapshot{Bid: bidStr, Ask: askStr}
	w.mu.Unlock()

	if err := w.store.HSet(ctx, key, "bid", bidStr, "ask", askStr, "ts", ev.ReceivedAt); err != nil {
		// Drop the cached snapshot so the next update retries the write.
		w.mu.Lock()
		delete(w.last, key)
		w.mu.Unlock()
	}
}
