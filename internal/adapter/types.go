package adapter

import (
	"github.com/datavents/datavents/internal/book"
	"github.com/datavents/datavents/internal/schema"
)

// StreamFrame is one decoded inbound WebSocket frame, tagged by kind at
// the transport boundary. Downstream code never re-infers structure
// from payload shape.
type StreamFrame struct {
	Kind      schema.EventKind
	MarketRef string

	// Payload is the normalized payload delivered to consumers.
	Payload any

	// Book carries the tagged order-book variant for orderbook frames,
	// nil otherwise.
	Book book.Message
}

// Driver is the per-vendor contract the stream multiplexer drives: how
// to subscribe, unsubscribe, and decode that vendor's wire frames. A
// Driver holds no connection state; the multiplexer owns the WSClient.
type Driver interface {
	Vendor() schema.Provider

	// SubscribeFrames returns the wire frames to send after connecting
	// (and again after every reconnect) for the given stream identifiers.
	SubscribeFrames(ids []string) [][]byte

	// UnsubscribeFrames returns best-effort unsubscribe wire frames.
	UnsubscribeFrames(ids []string) [][]byte

	// Decode maps one raw inbound frame to zero or more StreamFrames.
	// Malformed frames return a *schema.MalformedPayloadError.
	Decode(raw []byte) ([]StreamFrame, error)
}
