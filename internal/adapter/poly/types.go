// Package poly maps Polymarket Gamma REST and CLOB WebSocket payloads
// into the canonical schema. Raw wire shapes are private to this
// package; no other component reads a Polymarket field name.
package poly

// --- Raw Gamma REST types ---

// RawMarket is a market record from the Gamma API. Several list-valued
// fields arrive as JSON arrays encoded inside strings and need
// secondary parsing.
type RawMarket struct {
	ID          string `json:"id"`
	Question    string `json:"question"`
	ConditionID string `json:"conditionId"`
	Slug        string `json:"slug"`
	Active      bool   `json:"active"`
	Closed      bool   `json:"closed"`

	BestBid        *float64 `json:"bestBid"`
	BestAsk        *float64 `json:"bestAsk"`
	LastTradePrice *float64 `json:"lastTradePrice"`

	// JSON arrays encoded as strings.
	ClobTokenIds  string `json:"clobTokenIds"`
	Outcomes      string `json:"outcomes"`
	OutcomePrices string `json:"outcomePrices"`
}

// RawEvent is an event record from the Gamma API, with nested markets.
type RawEvent struct {
	ID      string      `json:"id"`
	Slug    string      `json:"slug"`
	Title   string      `json:"title"`
	Active  bool        `json:"active"`
	Closed  bool        `json:"closed"`
	Markets []RawMarket `json:"markets,omitempty"`
}

// RawSeries is a series record from the Gamma API.
type RawSeries struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// --- Raw wire (WebSocket) types ---

// subscribeMsg is the CLOB market-channel subscription message.
type subscribeMsg struct {
	Type      string   `json:"type"`
	AssetsIDs []string `json:"assets_ids"`
}

// rawWSMessage is one CLOB feed message. The feed delivers either a
// single object or an array of them.
type rawWSMessage struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Market    string `json:"market"`
	Timestamp string `json:"timestamp"`
	Hash      string `json:"hash"`

	// book events
	Bids []rawPriceLevel `json:"bids,omitempty"`
	Asks []rawPriceLevel `json:"asks,omitempty"`

	// price_change events
	PriceChanges []rawPriceChange `json:"price_changes,omitempty"`

	// last_trade_price events
	Price string `json:"price,omitempty"`
	Side  string `json:"side,omitempty"`
	Size  string `json:"size,omitempty"`
}

type rawPriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type rawPriceChange struct {
	AssetID string `json:"asset_id"`
	Price   string `json:"price"`
	Size    string `json:"size"`
	Side    string `json:"side"` // "BUY" or "SELL"
	BestBid string `json:"best_bid"`
	BestAsk string `json:"best_ask"`
}

// TradePayload is the normalized last-trade frame payload.
type TradePayload struct {
	AssetID string   `json:"asset_id"`
	Price   *float64 `json:"price,omitempty"`
	Size    *float64 `json:"size,omitempty"`
	Side    string   `json:"side,omitempty"`
}
