package stream

import (
	"context"
	"sync"

	"github.com/datavents/datavents/internal/schema"
)

// subKey identifies a filtered subscription by vendor and market.
type subKey struct {
	Vendor    schema.Provider
	MarketRef string
}

// Broadcaster is a many-to-many hub that ingests normalized events and
// distributes them to filtered subscribers and a unified "all" stream.
// It sits downstream of a Multiplexer when more than one consumer needs
// the event feed.
type Broadcaster struct {
	in chan schema.NormalizedEvent

	// Filtered subscribers keyed by (vendor, marketRef).
	mu   sync.RWMutex
	subs map[subKey][]chan schema.NormalizedEvent

	// allMu guards the unified subscriber list.
	allMu  sync.RWMutex
	allSub []chan schema.NormalizedEvent
}

// NewBroadcaster creates a Broadcaster ready for use.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		in:   make(chan schema.NormalizedEvent, 1024),
		subs: make(map[subKey][]chan schema.NormalizedEvent),
	}
}

// Publish enqueues an event for distribution. It never blocks; when the
// internal buffer is full the event is dropped. Publish is safe to use
// as a Multiplexer EventFunc.
func (b *Broadcaster) Publish(ev schema.NormalizedEvent) {
	select {
	case b.in <- ev:
	default:
	}
}

// Subscribe returns a buffered channel that receives events for the
// given vendor and market. The caller must drain the channel; slow
// subscribers miss events rather than stalling the hub.
func (b *Broadcaster) Subscribe(vendor schema.Provider, marketRef string) <-chan schema.NormalizedEvent {
	ch := make(chan schema.NormalizedEvent, 256)
	key := subKey{Vendor: vendor, MarketRef: marketRef}

	b.mu.Lock()
	b.subs[key] = append(b.subs[key], ch)
	b.mu.Unlock()

	return ch
}

// SubscribeAll returns a buffered channel that receives every event
// regardless of vendor or market.
func (b *Broadcaster) SubscribeAll() <-chan schema.NormalizedEvent {
	ch := make(chan schema.NormalizedEvent, 512)

	b.allMu.Lock()
	b.allSub = append(b.allSub, ch)
	b.allMu.Unlock()

	return ch
}

// Run distributes published events until ctx is cancelled. Subscriber
// channels are closed on return.
func (b *Broadcaster) Run(ctx context.Context) {
	defer b.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-b.in:
			b.dispatch(ev)
		}
	}
}

func (b *Broadcaster) dispatch(ev schema.NormalizedEvent) {
	key := subKey{Vendor: ev.Vendor, MarketRef: ev.MarketRef}

	b.mu.RLock()
	for _, ch := range b.subs[key] {
		select {
		case ch <- ev:
		default:
		}
	}
	b.mu.RUnlock()

	b.allMu.RLock()
	for _, ch := range b.allSub {
		select {
		case ch <- ev:
		default:
		}
	}
	b.allMu.RUnlock()
}

func (b *Broadcaster) closeAll() {
	b.mu.Lock()
	for _, chans := range b.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	b.subs = make(map[subKey][]chan schema.NormalizedEvent)
	b.mu.Unlock()

	b.allMu.Lock()
	for _, ch := range b.allSub {
		close(ch)
	}
	b.allSub = nil
	b.allMu.Unlock()
}
