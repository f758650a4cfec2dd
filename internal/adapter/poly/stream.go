package poly

import (
	"bytes"
	"encoding/json"
	"log"
	"strconv"

	"github.com/datavents/datavents/internal/adapter"
	"github.com/datavents/datavents/internal/book"
	"github.com/datavents/datavents/internal/schema"
)

// Driver decodes the Polymarket CLOB market feed into tagged stream
// frames. It holds no connection state.
type Driver struct{}

// NewDriver creates a Polymarket stream driver.
func NewDriver() *Driver {
	return &Driver{}
}

// Vendor identifies this driver's provider.
func (d *Driver) Vendor() schema.Provider { return schema.ProviderPolymarket }

// SubscribeFrames builds one market-channel subscription covering all
// resolved asset ids.
func (d *Driver) SubscribeFrames(ids []string) [][]byte {
	if len(ids) == 0 {
		return nil
	}
	msg, _ := json.Marshal(subscribeMsg{Type: "market", AssetsIDs: ids})
	return [][]byte{msg}
}

// UnsubscribeFrames returns nil: the CLOB feed has no unsubscribe
// message, so teardown is just closing the connection.
func (d *Driver) UnsubscribeFrames(ids []string) [][]byte {
	return nil
}

// Decode maps one raw CLOB frame to stream frames. The feed delivers
// messages either as a single object or a JSON array of objects, so a
// single inbound frame can yield several stream frames.
func (d *Driver) Decode(raw []byte) ([]adapter.StreamFrame, error) {
	msgs, err := parseMessages(raw)
	if err != nil {
		return nil, err
	}

	var frames []adapter.StreamFrame
	for _, msg := range msgs {
		frames = append(frames, d.decodeOne(msg)...)
	}
	return frames, nil
}

// parseMessages handles the array-or-object framing of the CLOB feed.
func parseMessages(raw []byte) ([]rawWSMessage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	if raw[0] == '[' {
		var msgs []rawWSMessage
		if err := json.Unmarshal(raw, &msgs); err != nil {
			return nil, &schema.MalformedPayloadError{
				Provider: schema.ProviderPolymarket,
				Field:    "[]",
				Reason:   "unparseable message array",
			}
		}
		return msgs, nil
	}

	var msg rawWSMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, &schema.MalformedPayloadError{
			Provider: schema.ProviderPolymarket,
			Field:    "event_type",
			Reason:   "unparseable message",
		}
	}
	return []rawWSMessage{msg}, nil
}

func (d *Driver) decodeOne(msg rawWSMessage) []adapter.StreamFrame {
	switch msg.EventType {
	case "book":
		return d.decodeBook(msg)
	case "price_change":
		return d.decodePriceChanges(msg)
	case "last_trade_price":
		return d.decodeLastTrade(msg)
	case "error":
		log.Printf("poly: exchange error: event for asset %s", msg.AssetID)
		return nil
	default:
		// tick_size_change and anything newer surface as raw frames.
		return []adapter.StreamFrame{{
			Kind:      schema.KindRaw,
			MarketRef: msg.AssetID,
			Payload:   msg,
		}}
	}
}

// decodeBook maps a full book event to a snapshot message. Levels with
// unparseable price or size are skipped rather than failing the frame.
func (d *Driver) decodeBook(msg rawWSMessage) []adapter.StreamFrame {
	snap := book.Snapshot{
		Bids: parseLevels(msg.Bids),
		Asks: parseLevels(msg.Asks),
	}

	return []adapter.StreamFrame{{
		Kind:      schema.KindOrderbook,
		MarketRef: msg.AssetID,
		Payload:   snap,
		Book:      snap,
	}}
}

// decodePriceChanges maps a price_change event to per-asset delta
// batches. CLOB sizes are absolute replacements, not adjustments. A
// change with an unknown side token fails closed as an Unrecognized
// message for its asset.
func (d *Driver) decodePriceChanges(msg rawWSMessage) []adapter.StreamFrame {
	grouped := make(map[string]book.Deltas)
	var order []string
	var frames []adapter.StreamFrame

	for _, pc := range msg.PriceChanges {
		assetID := pc.AssetID
		if assetID == "" {
			assetID = msg.AssetID
		}

		var side book.Side
		switch pc.Side {
		case "BUY":
			side = book.Bid
		case "SELL":
			side = book.Ask
		default:
			unrec := book.Unrecognized{Reason: "unknown price_change side " + pc.Side}
			frames = append(frames, adapter.StreamFrame{
				Kind:      schema.KindOrderbook,
				MarketRef: assetID,
				Payload:   unrec,
				Book:      unrec,
			})
			continue
		}

		rawPrice, err1 := strconv.ParseFloat(pc.Price, 64)
		size, err2 := strconv.ParseFloat(pc.Size, 64)
		price := schema.NormalizeFraction(rawPrice)
		if err1 != nil || err2 != nil || price == nil {
			unrec := book.Unrecognized{Reason: "unparseable price_change level"}
			frames = append(frames, adapter.StreamFrame{
				Kind:      schema.KindOrderbook,
				MarketRef: assetID,
				Payload:   unrec,
				Book:      unrec,
			})
			continue
		}

		if _, ok := grouped[assetID]; !ok {
			order = append(order, assetID)
		}
		s := size
		grouped[assetID] = append(grouped[assetID], book.Delta{
			Side:  side,
			Price: *price,
			Size:  &s,
		})
	}

	for _, assetID := range order {
		deltas := grouped[assetID]
		frames = append(frames, adapter.StreamFrame{
			Kind:      schema.KindOrderbook,
			MarketRef: assetID,
			Payload:   deltas,
			Book:      deltas,
		})
	}
	return frames
}

func (d *Driver) decodeLastTrade(msg rawWSMessage) []adapter.StreamFrame {
	payload := TradePayload{
		AssetID: msg.AssetID,
		Side:    msg.Side,
	}
	if f, err := strconv.ParseFloat(msg.Price, 64); err == nil {
		payload.Price = schema.NormalizeFraction(f)
	}
	if f, err := strconv.ParseFloat(msg.Size, 64); err == nil {
		payload.Size = &f
	}

	return []adapter.StreamFrame{{
		Kind:      schema.KindTrade,
		MarketRef: msg.AssetID,
		Payload:   payload,
	}}
}

// parseLevels converts raw string price/size pairs into canonical book
// levels via the shared normalizer, skipping unparseable entries.
func parseLevels(raw []rawPriceLevel) []book.Level {
	levels := make([]book.Level, 0, len(raw))
	for _, r := range raw {
		f, err := strconv.ParseFloat(r.Price, 64)
		if err != nil {
			continue
		}
		p := schema.NormalizeFraction(f)
		if p == nil {
			continue
		}
		s, err := strconv.ParseFloat(r.Size, 64)
		if err != nil {
			continue
		}
		levels = append(levels, book.Level{Price: *p, Size: s})
	}
	return levels
}
