package kalshi

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/datavents/datavents/internal/adapter"
	"github.com/datavents/datavents/internal/book"
	"github.com/datavents/datavents/internal/schema"
)

// Channels subscribed on the Kalshi market feed.
var streamChannels = []string{"orderbook_delta", "ticker", "trade"}

// Driver decodes the Kalshi WebSocket protocol into tagged stream
// frames. It tracks per-market sequence numbers to detect dropped
// frames but holds no connection state.
type Driver struct {
	mu    sync.Mutex
	cmdID int
	seqs  map[string]int
}

// NewDriver creates a Kalshi stream driver.
func NewDriver() *Driver {
	return &Driver{seqs: make(map[string]int)}
}

// Vendor identifies this driver's provider.
func (d *Driver) Vendor() schema.Provider { return schema.ProviderKalshi }

func (d *Driver) nextID() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cmdID++
	return d.cmdID
}

// resetSeq re-baselines a market's sequence tracking from a snapshot.
// A zero seq means the field was absent; tracking restarts on the next
// numbered frame.
func (d *Driver) resetSeq(ticker string, seq int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if seq == 0 {
		delete(d.seqs, ticker)
		return
	}
	d.seqs[ticker] = seq
}

// trackSeq records a delta's sequence number and reports whether it
// continues the last one seen for the market. Unnumbered frames and
// first sightings cannot be judged and pass.
func (d *Driver) trackSeq(ticker string, seq int) bool {
	if seq == 0 {
		return true
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.seqs[ticker]
	d.seqs[ticker] = seq
	return !ok || seq == last+1
}

// SubscribeFrames builds one subscribe command covering all resolved
// market tickers on every stream channel.
func (d *Driver) SubscribeFrames(ids []string) [][]byte {
	if len(ids) == 0 {
		return nil
	}
	msg, _ := json.Marshal(command{
		ID:  d.nextID(),
		Cmd: "subscribe",
		Params: commandParams{
			Channels:      streamChannels,
			MarketTickers: ids,
		},
	})
	return [][]byte{msg}
}

// UnsubscribeFrames builds a best-effort unsubscribe command.
func (d *Driver) UnsubscribeFrames(ids []string) [][]byte {
	if len(ids) == 0 {
		return nil
	}
	msg, _ := json.Marshal(command{
		ID:  d.nextID(),
		Cmd: "unsubscribe",
		Params: commandParams{
			Channels:      streamChannels,
			MarketTickers: ids,
		},
	})
	return [][]byte{msg}
}

// Decode maps one raw Kalshi frame to stream frames. Protocol chatter
// (acks, errors) produces no frames; unknown message types surface as
// raw frames so consumers can observe them.
func (d *Driver) Decode(raw []byte) ([]adapter.StreamFrame, error) {
	var env rawEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &schema.MalformedPayloadError{
			Provider: schema.ProviderKalshi,
			Field:    "type",
			Reason:   "invalid JSON envelope",
		}
	}

	switch env.Type {
	case "orderbook_snapshot":
		return d.decodeSnapshot(raw)
	case "orderbook_delta":
		return d.decodeDelta(raw)
	case "ticker":
		return d.decodeTicker(raw)
	case "trade":
		return d.decodeTrade(raw)
	case "error":
		log.Printf("kalshi: exchange error: %s", raw)
		return nil, nil
	case "subscribed", "unsubscribed", "ok":
		return nil, nil
	default:
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			payload = map[string]any{"raw": string(raw)}
		}
		return []adapter.StreamFrame{{Kind: schema.KindRaw, Payload: payload}}, nil
	}
}

// decodeSnapshot maps an orderbook_snapshot to a full-replace book
// message. YES levels become bids and NO levels become asks, prices
// normalized from cents to the canonical fraction.
func (d *Driver) decodeSnapshot(raw []byte) ([]adapter.StreamFrame, error) {
	var snap rawSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, &schema.MalformedPayloadError{
			Provider: schema.ProviderKalshi,
			Field:    "msg",
			Reason:   "unparseable orderbook_snapshot",
		}
	}
	if snap.Msg.MarketTicker == "" {
		return nil, &schema.MalformedPayloadError{
			Provider: schema.ProviderKalshi,
			Field:    "msg.market_ticker",
			Reason:   "missing",
		}
	}

	d.resetSeq(snap.Msg.MarketTicker, snap.Seq)

	msg := book.Snapshot{
		Bids: centsToLevels(snap.Msg.Yes),
		Asks: centsToLevels(snap.Msg.No),
	}

	return []adapter.StreamFrame{{
		Kind:      schema.KindOrderbook,
		MarketRef: snap.Msg.MarketTicker,
		Payload:   msg,
		Book:      msg,
	}}, nil
}

// decodeDelta maps an orderbook_delta to a single-delta book message.
// An unrecognized side token or a sequence discontinuity is fail-closed:
// the frame becomes an Unrecognized variant and is counted as a
// reconciliation gap rather than being applied to a book that may have
// drifted.
func (d *Driver) decodeDelta(raw []byte) ([]adapter.StreamFrame, error) {
	var delta rawDelta
	if err := json.Unmarshal(raw, &delta); err != nil {
		return nil, &schema.MalformedPayloadError{
			Provider: schema.ProviderKalshi,
			Field:    "msg",
			Reason:   "unparseable orderbook_delta",
		}
	}
	if delta.Msg.MarketTicker == "" {
		return nil, &schema.MalformedPayloadError{
			Provider: schema.ProviderKalshi,
			Field:    "msg.market_ticker",
			Reason:   "missing",
		}
	}

	var msg book.Message
	switch {
	case !d.trackSeq(delta.Msg.MarketTicker, delta.Seq):
		// A skipped seq means a dropped frame; the book has drifted and
		// must be rebuilt from a fresh snapshot.
		msg = book.Unrecognized{
			Reason: fmt.Sprintf("sequence gap at seq %d", delta.Seq),
		}
	case delta.Msg.Side == "yes", delta.Msg.Side == "no":
		side := book.Bid
		if delta.Msg.Side == "no" {
			side = book.Ask
		}
		change := float64(delta.Msg.Delta)
		price := normalizeCents(delta.Msg.Price)
		msg = book.Deltas{{Side: side, Price: price, Change: &change}}
	default:
		msg = book.Unrecognized{Reason: "unknown delta side " + delta.Msg.Side}
	}

	return []adapter.StreamFrame{{
		Kind:      schema.KindOrderbook,
		MarketRef: delta.Msg.MarketTicker,
		Payload:   msg,
		Book:      msg,
	}}, nil
}

func (d *Driver) decodeTicker(raw []byte) ([]adapter.StreamFrame, error) {
	var tk rawTicker
	if err := json.Unmarshal(raw, &tk); err != nil {
		return nil, &schema.MalformedPayloadError{
			Provider: schema.ProviderKalshi,
			Field:    "msg",
			Reason:   "unparseable ticker",
		}
	}

	payload := TickerPayload{
		MarketTicker: tk.Msg.MarketTicker,
		Price:        schema.NormalizePtr(tk.Msg.Price),
		BestBid:      schema.NormalizePtr(tk.Msg.YesBid),
		BestAsk:      schema.NormalizePtr(tk.Msg.YesAsk),
		Volume:       tk.Msg.Volume,
		OpenInterest: tk.Msg.OpenInterest,
	}

	return []adapter.StreamFrame{{
		Kind:      schema.KindTicker,
		MarketRef: tk.Msg.MarketTicker,
		Payload:   payload,
	}}, nil
}

func (d *Driver) decodeTrade(raw []byte) ([]adapter.StreamFrame, error) {
	var tr rawTrade
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, &schema.MalformedPayloadError{
			Provider: schema.ProviderKalshi,
			Field:    "msg",
			Reason:   "unparseable trade",
		}
	}

	payload := TradePayload{
		MarketTicker: tr.Msg.MarketTicker,
		YesPrice:     schema.NormalizePtr(tr.Msg.YesPrice),
		NoPrice:      schema.NormalizePtr(tr.Msg.NoPrice),
		Count:        tr.Msg.Count,
		TakerSide:    tr.Msg.TakerSide,
		TradeTs:      tr.Msg.Ts,
	}

	return []adapter.StreamFrame{{
		Kind:      schema.KindTrade,
		MarketRef: tr.Msg.MarketTicker,
		Payload:   payload,
	}}, nil
}

// centsToLevels converts [price_cents, quantity] pairs into canonical
// levels via the shared normalizer.
func centsToLevels(pairs [][2]int) []book.Level {
	levels := make([]book.Level, 0, len(pairs))
	for _, p := range pairs {
		levels = append(levels, book.Level{
			Price: normalizeCents(p[0]),
			Size:  float64(p[1]),
		})
	}
	return levels
}

func normalizeCents(cents int) float64 {
	if f := schema.NormalizeFraction(float64(cents)); f != nil {
		return *f
	}
	return 0
}
