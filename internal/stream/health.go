package stream

import (
	"context"
	"sync"
	"time"

	"github.com/datavents/datavents/internal/schema"
)

// MonitorConfig holds tunable parameters for the feed Monitor.
type MonitorConfig struct {
	// StaleThreshold is the maximum silence per vendor before its feed
	// is considered stale.
	StaleThreshold time.Duration

	// PollInterval is how frequently staleness is evaluated.
	PollInterval time.Duration
}

// DefaultMonitorConfig returns defaults suited to prediction-market
// feeds, which are far slower than crypto books.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		StaleThreshold: 60 * time.Second,
		PollInterval:   time.Second,
	}
}

// vendorHealth tracks freshness for one vendor feed.
type vendorHealth struct {
	lastEvent time.Time
	healthy   bool
}

// Monitor watches event freshness per vendor and reports transitions
// between healthy and stale. It observes the normalized event stream
// from the consumer side and never touches connection state itself.
type Monitor struct {
	cfg MonitorConfig

	mu      sync.Mutex
	vendors map[schema.Provider]*vendorHealth

	// OnChange is invoked on every healthy↔stale transition.
	OnChange func(vendor schema.Provider, healthy bool)

	nowFunc func() time.Time // injectable clock for testing
}

// NewMonitor creates a Monitor. Vendors are registered implicitly on
// first observation.
func NewMonitor(cfg MonitorConfig) *Monitor {
	return &Monitor{
		cfg:     cfg,
		vendors: make(map[schema.Provider]*vendorHealth),
		nowFunc: time.Now,
	}
}

// Observe records one delivered event. Wrap the consumer's EventFunc:
//
//	mux.Run(ctx, sub, func(ev schema.NormalizedEvent) {
//		monitor.Observe(ev)
//		handle(ev)
//	})
func (m *Monitor) Observe(ev schema.NormalizedEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	vh, ok := m.vendors[ev.Vendor]
	if !ok {
		vh = &vendorHealth{healthy: true}
		m.vendors[ev.Vendor] = vh
	}
	vh.lastEvent = m.nowFunc()
	if !vh.healthy {
		vh.healthy = true
		m.notify(ev.Vendor, true)
	}
}

// Healthy reports whether a vendor's feed is fresh. Unknown vendors
// report false.
func (m *Monitor) Healthy(vendor schema.Provider) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	vh, ok := m.vendors[vendor]
	return ok && vh.healthy
}

// Run polls for staleness until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Monitor) sweep() {
	now := m.nowFunc()

	m.mu.Lock()
	defer m.mu.Unlock()
	for vendor, vh := range m.vendors {
		if vh.healthy && now.Sub(vh.lastEvent) > m.cfg.StaleThreshold {
			vh.healthy = false
			m.notify(vendor, false)
		}
	}
}

// notify is called with m.mu held; the callback runs on its own
// goroutine so a slow consumer cannot stall observation.
func (m *Monitor) notify(vendor schema.Provider, healthy bool) {
	if m.OnChange != nil {
		go m.OnChange(vendor, healthy)
	}
}
