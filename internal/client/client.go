// Package client is the point-in-time REST surface: provider-agnostic
// event, market, and search lookups fanned out across vendors and
// normalized into the canonical schema.
package client

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/datavents/datavents/internal/adapter/kalshi"
	"github.com/datavents/datavents/internal/adapter/poly"
	"github.com/datavents/datavents/internal/schema"
)

// Client fans REST lookups out across vendors and maps the responses
// through the provider adapters.
type Client struct {
	kalshi *kalshi.Client
	poly   *poly.Client
}

// New creates a Client over the given vendor REST clients.
func New(kalshiClient *kalshi.Client, polyClient *poly.Client) *Client {
	return &Client{kalshi: kalshiClient, poly: polyClient}
}

// EventRef identifies one event for a single-provider fetch. Kalshi
// events are addressed by event ticker, Polymarket events by numeric id
// or slug.
type EventRef struct {
	Provider          schema.Provider
	EventTicker       string
	ID                int
	Slug              string
	WithNestedMarkets bool
}

// MarketRef identifies one market for a single-provider fetch.
type MarketRef struct {
	Provider schema.Provider
	Ticker   string
	ID       int
	Slug     string
}

// SearchRequest is the cross-provider search query context.
type SearchRequest struct {
	Providers []schema.Provider
	Query     string
	Status    string // "open", "closed", or "" for all
	Page      int
	Limit     int
}

// GetEvent fetches and normalizes a single event.
func (c *Client) GetEvent(ctx context.Context, ref EventRef) (schema.Event, error) {
	switch ref.Provider {
	case schema.ProviderKalshi:
		if ref.EventTicker == "" {
			return schema.Event{}, fmt.Errorf("kalshi event fetch requires an event ticker")
		}
		resp, err := c.kalshi.GetEvent(ctx, ref.EventTicker, ref.WithNestedMarkets)
		if err != nil {
			return schema.Event{}, fmt.Errorf("kalshi event %s: %w", ref.EventTicker, err)
		}
		return kalshi.ToEvent(resp)

	case schema.ProviderPolymarket:
		if ref.ID == 0 && ref.Slug == "" {
			return schema.Event{}, fmt.Errorf("polymarket event fetch requires an id or slug")
		}
		raw, err := c.poly.GetEvent(ctx, ref.ID, ref.Slug)
		if err != nil {
			return schema.Event{}, fmt.Errorf("polymarket event: %w", err)
		}
		return poly.ToEvent(raw)

	default:
		return schema.Event{}, fmt.Errorf("unsupported provider %q", ref.Provider)
	}
}

// GetMarket fetches and normalizes a single market.
func (c *Client) GetMarket(ctx context.Context, ref MarketRef) (schema.Market, error) {
	switch ref.Provider {
	case schema.ProviderKalshi:
		if ref.Ticker == "" {
			return schema.Market{}, fmt.Errorf("kalshi market fetch requires a ticker")
		}
		resp, err := c.kalshi.GetMarket(ctx, ref.Ticker)
		if err != nil {
			return schema.Market{}, fmt.Errorf("kalshi market %s: %w", ref.Ticker, err)
		}
		return kalshi.ToMarket(resp.Market)

	case schema.ProviderPolymarket:
		if ref.ID == 0 && ref.Slug == "" {
			return schema.Market{}, fmt.Errorf("polymarket market fetch requires an id or slug")
		}
		raw, err := c.poly.GetMarket(ctx, ref.ID, ref.Slug)
		if err != nil {
			return schema.Market{}, fmt.Errorf("polymarket market: %w", err)
		}
		return poly.ToMarket(raw)

	default:
		return schema.Market{}, fmt.Errorf("unsupported provider %q", ref.Provider)
	}
}

// GetEventRaw fetches a single event without normalizing it, returning
// the provider's response tagged with its origin. Useful when a caller
// needs vendor fields the canonical schema drops, such as Polymarket
// CLOB token ids.
func (c *Client) GetEventRaw(ctx context.Context, ref EventRef) (schema.TaggedRecord, error) {
	switch ref.Provider {
	case schema.ProviderKalshi:
		resp, err := c.kalshi.GetEvent(ctx, ref.EventTicker, ref.WithNestedMarkets)
		if err != nil {
			return schema.TaggedRecord{}, fmt.Errorf("kalshi event %s: %w", ref.EventTicker, err)
		}
		return schema.TaggedRecord{Provider: schema.ProviderKalshi, Data: resp}, nil
	case schema.ProviderPolymarket:
		raw, err := c.poly.GetEvent(ctx, ref.ID, ref.Slug)
		if err != nil {
			return schema.TaggedRecord{}, fmt.Errorf("polymarket event: %w", err)
		}
		return schema.TaggedRecord{Provider: schema.ProviderPolymarket, Data: raw}, nil
	default:
		return schema.TaggedRecord{}, fmt.Errorf("unsupported provider %q", ref.Provider)
	}
}

// Search fans a query out across the requested providers concurrently
// and combines the normalized results. Per-vendor failures degrade the
// result set and are returned alongside it; they never abort the other
// vendors' searches.
func (c *Client) Search(ctx context.Context, req SearchRequest) (schema.SearchResponse, []error) {
	providers := req.Providers
	if len(providers) == 0 {
		providers = []schema.Provider{schema.ProviderKalshi, schema.ProviderPolymarket}
	}
	if req.Limit <= 0 || req.Limit > 50 {
		req.Limit = 10
	}
	if req.Page <= 0 {
		req.Page = 1
	}

	meta := schema.SearchMeta{
		Query:  req.Query,
		Page:   req.Page,
		Limit:  req.Limit,
		Status: req.Status,
	}

	type vendorResult struct {
		provider schema.Provider
		resp     schema.SearchResponse
		err      error
	}

	results := make([]vendorResult, len(providers))
	var wg sync.WaitGroup

	for i, p := range providers {
		wg.Add(1)
		go func(i int, p schema.Provider) {
			defer wg.Done()
			resp, err := c.searchOne(ctx, p, req, meta)
			results[i] = vendorResult{provider: p, resp: resp, err: err}
		}(i, p)
	}
	wg.Wait()

	out := schema.SearchResponse{Meta: meta}
	if len(providers) == 1 {
		out.Meta.Provider = providers[0]
	}

	var errs []error
	for _, r := range results {
		if r.err != nil {
			log.Printf("client: search failed for %s: %v", r.provider, r.err)
			errs = append(errs, r.err)
			continue
		}
		out.Results = append(out.Results, r.resp.Results...)
	}

	out.Results = filterByStatus(out.Results, req.Status)
	return out, errs
}

func (c *Client) searchOne(ctx context.Context, p schema.Provider, req SearchRequest, meta schema.SearchMeta) (schema.SearchResponse, error) {
	switch p {
	case schema.ProviderKalshi:
		resp, err := c.kalshi.SearchEvents(ctx, req.Query, req.Status, req.Limit)
		if err != nil {
			return schema.SearchResponse{}, fmt.Errorf("kalshi search: %w", err)
		}
		return kalshi.ToSearchResponse(resp, meta), nil
	case schema.ProviderPolymarket:
		events, err := c.poly.SearchEvents(ctx, req.Query, req.Status, req.Limit)
		if err != nil {
			return schema.SearchResponse{}, fmt.Errorf("polymarket search: %w", err)
		}
		return poly.ToSearchResponse(events, meta), nil
	default:
		return schema.SearchResponse{}, fmt.Errorf("unsupported provider %q", p)
	}
}

// filterByStatus applies a server-side status filter to the combined
// results so behavior is consistent across providers whose upstream
// search endpoints honor status filters differently. Settled counts as
// closed.
func filterByStatus(results []schema.SearchResult, status string) []schema.SearchResult {
	if status == "" {
		return results
	}
	filtered := results[:0]
	for _, r := range results {
		s := r.Status()
		switch status {
		case "open":
			if s == "open" {
				filtered = append(filtered, r)
			}
		case "closed":
			if s == "closed" || s == "settled" {
				filtered = append(filtered, r)
			}
		default:
			filtered = append(filtered, r)
		}
	}
	return filtered
}
