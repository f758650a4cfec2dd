// Package schema defines the vendor-agnostic market-data model shared by
// every adapter and consumer: events, markets, series, order-book levels,
// the streaming envelope, and the numeric normalizer that maps mixed
// vendor price encodings onto one canonical fractional scale.
package schema

// Provider identifies the source of market data.
type Provider string

const (
	ProviderKalshi     Provider = "kalshi"
	ProviderPolymarket Provider = "polymarket"
)

// Valid reports whether p names a supported provider.
func (p Provider) Valid() bool {
	return p == ProviderKalshi || p == ProviderPolymarket
}

// Outcome is a single tradable outcome of a market with its current
// canonical price, when the vendor exposes one.
type Outcome struct {
	Label string   `json:"label"`
	Price *float64 `json:"price,omitempty"`
}

// Market is the canonical market record. Every price field is a fraction
// in [0,1]; nil means the vendor did not report the value.
type Market struct {
	Provider  Provider  `json:"provider"`
	MarketID  string    `json:"market_id"`
	Ticker    string    `json:"ticker,omitempty"`
	Slug      string    `json:"slug,omitempty"`
	Question  string    `json:"question,omitempty"`
	Status    string    `json:"status,omitempty"`
	BestBid   *float64  `json:"best_bid,omitempty"`
	BestAsk   *float64  `json:"best_ask,omitempty"`
	LastPrice *float64  `json:"last_price,omitempty"`
	MidPrice  *float64  `json:"mid_price,omitempty"`
	Outcomes  []Outcome `json:"outcomes,omitempty"`
}

// Event is the canonical event record. MarketsCount is the authoritative
// total; Markets may be partial or absent, in which case a follow-up
// fetch is required before the event can be rendered in full.
type Event struct {
	Provider     Provider `json:"provider"`
	EventID      string   `json:"event_id"`
	Slug         string   `json:"slug,omitempty"`
	EventTicker  string   `json:"event_ticker,omitempty"`
	Title        string   `json:"title,omitempty"`
	Status       string   `json:"status,omitempty"`
	Markets      []Market `json:"markets,omitempty"`
	MarketsCount int      `json:"markets_count,omitempty"`
}

// Series is a provider-level grouping above Event. It carries no
// streaming state.
type Series struct {
	Provider Provider `json:"provider"`
	SeriesID string   `json:"series_id"`
	Ticker   string   `json:"ticker,omitempty"`
	Title    string   `json:"title,omitempty"`
	Category string   `json:"category,omitempty"`
}

// SearchResult is one entry of a cross-provider search response. Exactly
// one of Event, Market, or Series is set.
type SearchResult struct {
	Event  *Event  `json:"event,omitempty"`
	Market *Market `json:"market,omitempty"`
	Series *Series `json:"series,omitempty"`
}

// Status returns the lifecycle status of whichever record the result
// holds, or "" when none is set.
func (r SearchResult) Status() string {
	switch {
	case r.Event != nil:
		return r.Event.Status
	case r.Market != nil:
		return r.Market.Status
	}
	return ""
}

// SearchResponse is the normalized cross-provider search output.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Meta    SearchMeta     `json:"meta"`
}

// SearchMeta echoes the query context a search was run with.
type SearchMeta struct {
	Provider Provider `json:"provider,omitempty"`
	Query    string   `json:"query"`
	Page     int      `json:"page"`
	Limit    int      `json:"limit"`
	Status   string   `json:"status,omitempty"`
}

// TaggedRecord wraps a raw provider response for multi-provider fan-out,
// pairing the payload with the provider that produced it.
type TaggedRecord struct {
	Provider Provider `json:"provider"`
	Data     any      `json:"data"`
}

// EventKind classifies a streaming envelope payload.
type EventKind string

const (
	KindTicker    EventKind = "ticker"
	KindOrderbook EventKind = "orderbook"
	KindTrade     EventKind = "trade"
	KindRaw       EventKind = "raw"
)

// NormalizedEvent is the streaming envelope delivered to consumers.
// MarketRef is the vendor's market identifier for the frame, or "" when
// the frame is not market-scoped. ReceivedAt is epoch milliseconds.
type NormalizedEvent struct {
	Vendor     Provider  `json:"vendor"`
	Kind       EventKind `json:"event"`
	MarketRef  string    `json:"market,omitempty"`
	Payload    any       `json:"data"`
	ReceivedAt int64     `json:"received_ts"`
}

// OrderBookLevel is one price level of a reconstructed book, price in
// canonical fraction and size in vendor units.
type OrderBookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}
