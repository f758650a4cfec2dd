// Package kalshi maps Kalshi REST and WebSocket payloads into the
// canonical schema. Raw wire shapes are private to this package; no
// other component reads a Kalshi field name.
package kalshi

// --- Raw REST types ---

// RawMarket is a market record as returned by the Kalshi trade API.
// Prices are integer cents.
type RawMarket struct {
	Ticker      string `json:"ticker"`
	EventTicker string `json:"event_ticker"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Status      string `json:"status"`
	MarketType  string `json:"market_type"`

	YesBid    *float64 `json:"yes_bid"`
	YesAsk    *float64 `json:"yes_ask"`
	NoBid     *float64 `json:"no_bid"`
	NoAsk     *float64 `json:"no_ask"`
	LastPrice *float64 `json:"last_price"`

	Volume       int64 `json:"volume"`
	OpenInterest int64 `json:"open_interest"`
}

// RawEvent is an event record from GET /events/{event_ticker}.
type RawEvent struct {
	EventTicker  string `json:"event_ticker"`
	SeriesTicker string `json:"series_ticker"`
	Title        string `json:"title"`
	SubTitle     string `json:"sub_title"`
	Category     string `json:"category"`
	Status       string `json:"status"`
}

// RawSeries is a series record from GET /series/{series_ticker}.
type RawSeries struct {
	Ticker   string `json:"ticker"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

// EventResponse is the envelope of GET /events/{event_ticker}. Markets
// is populated only when nested markets are requested.
type EventResponse struct {
	Event   RawEvent    `json:"event"`
	Markets []RawMarket `json:"markets"`
}

// EventsResponse is the envelope of GET /events.
type EventsResponse struct {
	Events []RawEvent `json:"events"`
	Cursor string     `json:"cursor"`
}

// MarketResponse is the envelope of GET /markets/{ticker}.
type MarketResponse struct {
	Market RawMarket `json:"market"`
}

// MarketsResponse is the envelope of GET /markets.
type MarketsResponse struct {
	Markets []RawMarket `json:"markets"`
	Cursor  string      `json:"cursor"`
}

// SeriesResponse is the envelope of GET /series/{series_ticker}.
type SeriesResponse struct {
	Series RawSeries `json:"series"`
}

// --- Raw wire (WebSocket) types ---

// command is the Kalshi WebSocket command envelope.
type command struct {
	ID     int           `json:"id"`
	Cmd    string        `json:"cmd"`
	Params commandParams `json:"params"`
}

type commandParams struct {
	Channels      []string `json:"channels"`
	MarketTickers []string `json:"market_tickers,omitempty"`
	MarketTicker  string   `json:"market_ticker,omitempty"`
}

// rawEnvelope is used for message-type detection before full parsing.
type rawEnvelope struct {
	Type string `json:"type"`
}

type rawSnapshot struct {
	Type string `json:"type"`
	Seq  int    `json:"seq"`
	Msg  struct {
		MarketTicker string   `json:"market_ticker"`
		Yes          [][2]int `json:"yes"`
		No           [][2]int `json:"no"`
	} `json:"msg"`
}

type rawDelta struct {
	Type string `json:"type"`
	Seq  int    `json:"seq"`
	Msg  struct {
		MarketTicker string `json:"market_ticker"`
		Price        int    `json:"price"`
		Delta        int    `json:"delta"`
		Side         string `json:"side"`
	} `json:"msg"`
}

type rawTicker struct {
	Type string `json:"type"`
	Msg  struct {
		MarketTicker string   `json:"market_ticker"`
		Price        *float64 `json:"price"`
		YesBid       *float64 `json:"yes_bid"`
		YesAsk       *float64 `json:"yes_ask"`
		Volume       int64    `json:"volume"`
		OpenInterest int64    `json:"open_interest"`
	} `json:"msg"`
}

type rawTrade struct {
	Type string `json:"type"`
	Msg  struct {
		MarketTicker string   `json:"market_ticker"`
		YesPrice     *float64 `json:"yes_price"`
		NoPrice      *float64 `json:"no_price"`
		Count        int64    `json:"count"`
		TakerSide    string   `json:"taker_side"`
		Ts           int64    `json:"ts"`
	} `json:"msg"`
}

// TickerPayload is the normalized ticker frame payload.
type TickerPayload struct {
	MarketTicker string   `json:"market_ticker"`
	Price        *float64 `json:"price,omitempty"`
	BestBid      *float64 `json:"best_bid,omitempty"`
	BestAsk      *float64 `json:"best_ask,omitempty"`
	Volume       int64    `json:"volume"`
	OpenInterest int64    `json:"open_interest"`
}

// TradePayload is the normalized trade frame payload.
type TradePayload struct {
	MarketTicker string   `json:"market_ticker"`
	YesPrice     *float64 `json:"yes_price,omitempty"`
	NoPrice      *float64 `json:"no_price,omitempty"`
	Count        int64    `json:"count"`
	TakerSide    string   `json:"taker_side,omitempty"`
	TradeTs      int64    `json:"trade_ts,omitempty"`
}
