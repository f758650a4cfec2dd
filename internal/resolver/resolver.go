package resolver

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/datavents/datavents/internal/adapter/kalshi"
	"github.com/datavents/datavents/internal/schema"
)

// KalshiLookup is the slice of the Kalshi REST surface the resolver
// needs: expanding an event ticker into its constituent markets.
type KalshiLookup interface {
	GetMarkets(ctx context.Context, eventTicker string) (kalshi.MarketsResponse, error)
}

// Resolved is the outcome of one resolution pass: the concrete stream
// identifiers per vendor, plus the coarse identifiers that had to be
// dropped. Omissions are non-fatal; they degrade coverage for one
// vendor without aborting resolution for the others.
type Resolved struct {
	Identifiers map[schema.Provider][]string
	Omissions   []schema.ResolutionUnavailableError
}

// IDs returns the resolved identifiers for one vendor.
func (r Resolved) IDs(p schema.Provider) []string {
	return r.Identifiers[p]
}

// Resolver expands subscriptions into per-vendor stream identifiers.
// Expansion of coarse Kalshi event tickers requires configured
// credentials; repeated expansions of the same ticker within the
// resolver's lifetime are served from cache, so resolution is
// idempotent.
type Resolver struct {
	lookup  KalshiLookup // nil when no credentialed lookup is possible
	timeout time.Duration

	mu    sync.Mutex
	cache map[string][]string // event ticker → market tickers
}

// New creates a Resolver. Pass a nil lookup when Kalshi credentials are
// not configured; coarse Kalshi identifiers are then reported as
// omissions instead of being expanded.
func New(lookup KalshiLookup, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Resolver{
		lookup:  lookup,
		timeout: timeout,
		cache:   make(map[string][]string),
	}
}

// Resolve expands sub into concrete per-vendor identifiers. It never
// fails as a whole: vendors that cannot be fully resolved contribute
// omissions alongside whatever did resolve.
func (r *Resolver) Resolve(ctx context.Context, sub schema.Subscription) Resolved {
	out := Resolved{Identifiers: make(map[schema.Provider][]string)}

	for _, vendor := range sub.Vendors {
		switch vendor {
		case schema.ProviderKalshi:
			r.resolveKalshi(ctx, sub, &out)
		case schema.ProviderPolymarket:
			ids := schema.DedupePreserve(append(
				append([]string{}, sub.PolymarketAssetIDs...),
				sub.TickersOrIDs...,
			))
			if len(ids) > 0 {
				out.Identifiers[schema.ProviderPolymarket] = ids
			}
		}
	}

	return out
}

func (r *Resolver) resolveKalshi(ctx context.Context, sub schema.Subscription, out *Resolved) {
	ids := append([]string{}, sub.KalshiMarketTickers...)
	ids = append(ids, sub.TickersOrIDs...)

	for _, eventTicker := range sub.KalshiEventTickers {
		if r.lookup == nil {
			out.Omissions = append(out.Omissions, schema.ResolutionUnavailableError{
				Provider:   schema.ProviderKalshi,
				Identifier: eventTicker,
				Reason:     "no credentials configured",
			})
			continue
		}

		tickers, err := r.expandEvent(ctx, eventTicker)
		if err != nil {
			log.Printf("resolver: kalshi event %s: %v", eventTicker, err)
			out.Omissions = append(out.Omissions, schema.ResolutionUnavailableError{
				Provider:   schema.ProviderKalshi,
				Identifier: eventTicker,
				Reason:     err.Error(),
			})
			continue
		}
		ids = append(ids, tickers...)
	}

	if ids = schema.DedupePreserve(ids); len(ids) > 0 {
		out.Identifiers[schema.ProviderKalshi] = ids
	}
}

// expandEvent resolves one event ticker into its market tickers, served
// from cache after the first successful lookup.
func (r *Resolver) expandEvent(ctx context.Context, eventTicker string) ([]string, error) {
	r.mu.Lock()
	if cached, ok := r.cache[eventTicker]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.lookup.GetMarkets(ctx, eventTicker)
	if err != nil {
		return nil, err
	}

	tickers := make([]string, 0, len(resp.Markets))
	for _, m := range resp.Markets {
		if m.Ticker != "" {
			tickers = append(tickers, m.Ticker)
		}
	}

	r.mu.Lock()
	r.cache[eventTicker] = tickers
	r.mu.Unlock()

	return tickers, nil
}
