package kalshi

import (
	"github.com/datavents/datavents/internal/schema"
)

// ToMarket maps a raw Kalshi market into the canonical schema. The
// market ticker is the canonical market_id; a record without one is
// malformed. All cent-denominated prices pass through the shared
// numeric normalizer.
func ToMarket(raw RawMarket) (schema.Market, error) {
	if raw.Ticker == "" {
		return schema.Market{}, &schema.MalformedPayloadError{
			Provider: schema.ProviderKalshi,
			Field:    "market.ticker",
			Reason:   "missing",
		}
	}

	m := schema.Market{
		Provider:  schema.ProviderKalshi,
		MarketID:  raw.Ticker,
		Ticker:    raw.Ticker,
		Question:  raw.Title,
		Status:    raw.Status,
		BestBid:   schema.NormalizePtr(raw.YesBid),
		BestAsk:   schema.NormalizePtr(raw.YesAsk),
		LastPrice: schema.NormalizePtr(raw.LastPrice),
	}

	if m.BestBid != nil && m.BestAsk != nil {
		mid := (*m.BestBid + *m.BestAsk) / 2
		m.MidPrice = &mid
	}

	if m.LastPrice != nil {
		yes := *m.LastPrice
		no := 1 - yes
		m.Outcomes = []schema.Outcome{
			{Label: "Yes", Price: &yes},
			{Label: "No", Price: &no},
		}
	}

	return m, nil
}

// ToEvent maps a raw Kalshi event envelope into the canonical schema.
// Kalshi nests full market records inside the event response; they are
// unnested here into top-level Market values, never by the caller.
// Malformed nested markets are skipped record-by-record; they do not
// abort the event.
func ToEvent(resp EventResponse) (schema.Event, error) {
	if resp.Event.EventTicker == "" {
		return schema.Event{}, &schema.MalformedPayloadError{
			Provider: schema.ProviderKalshi,
			Field:    "event.event_ticker",
			Reason:   "missing",
		}
	}

	ev := schema.Event{
		Provider:     schema.ProviderKalshi,
		EventID:      resp.Event.EventTicker,
		EventTicker:  resp.Event.EventTicker,
		Title:        resp.Event.Title,
		Status:       resp.Event.Status,
		MarketsCount: len(resp.Markets),
	}

	for _, raw := range resp.Markets {
		m, err := ToMarket(raw)
		if err != nil {
			continue
		}
		ev.Markets = append(ev.Markets, m)
	}

	return ev, nil
}

// ToSeries maps a raw Kalshi series into the canonical schema.
func ToSeries(raw RawSeries) (schema.Series, error) {
	if raw.Ticker == "" {
		return schema.Series{}, &schema.MalformedPayloadError{
			Provider: schema.ProviderKalshi,
			Field:    "series.ticker",
			Reason:   "missing",
		}
	}
	return schema.Series{
		Provider: schema.ProviderKalshi,
		SeriesID: raw.Ticker,
		Ticker:   raw.Ticker,
		Title:    raw.Title,
		Category: raw.Category,
	}, nil
}

// ToSearchResponse maps a raw Kalshi events listing into a normalized
// search response. Events that cannot be mapped are skipped without
// aborting the batch.
func ToSearchResponse(resp EventsResponse, meta schema.SearchMeta) schema.SearchResponse {
	out := schema.SearchResponse{Meta: meta}
	out.Meta.Provider = schema.ProviderKalshi

	for _, raw := range resp.Events {
		ev, err := ToEvent(EventResponse{Event: raw})
		if err != nil {
			continue
		}
		out.Results = append(out.Results, schema.SearchResult{Event: &ev})
	}
	return out
}
