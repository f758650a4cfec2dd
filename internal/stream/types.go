// Package stream owns the live side of the system: one WebSocket
// connection per subscribed vendor, demultiplexing of inbound frames by
// vendor and message type, and delivery of a single ordered-per-vendor
// sequence of normalized events to the consumer.
package stream

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/datavents/datavents/internal/adapter"
	"github.com/datavents/datavents/internal/schema"
)

// ConnState is the lifecycle state of one vendor connection.
type ConnState string

const (
	StateIdle         ConnState = "idle"
	StateConnecting   ConnState = "connecting"
	StateSubscribed   ConnState = "subscribed"
	StateReconnecting ConnState = "reconnecting"
	StateClosed       ConnState = "closed"

	// StateUnavailable marks a vendor whose subscription resolved to no
	// usable stream identifiers, e.g. a coarse identifier that could not
	// be expanded without credentials.
	StateUnavailable ConnState = "unavailable"
)

// Status is a per-vendor connection status update, delivered on a side
// channel and never interleaved into the event stream.
type Status struct {
	SessionID uuid.UUID
	Vendor    schema.Provider
	State     ConnState
	Detail    string
	At        time.Time
}

// EventFunc receives normalized events. For any single vendor it is
// invoked sequentially in that vendor's inbound frame order; no
// ordering holds across vendors.
type EventFunc func(schema.NormalizedEvent)

// Config holds per-vendor transport settings for the multiplexer. All
// URLs are injected; nothing in this package derives endpoints from
// process-wide state.
type Config struct {
	// WSURL maps each vendor to its stream endpoint.
	WSURL map[schema.Provider]string

	// Headers carries optional handshake headers per vendor, e.g. the
	// signed Kalshi upgrade headers when credentials are configured.
	Headers map[schema.Provider]http.Header

	// EventBuffer sizes each vendor's internal frame buffer.
	EventBuffer int

	// WSConfig optionally overrides transport tuning per URL. Tests use
	// it to shorten backoff; nil means adapter defaults.
	WSConfig func(url string) adapter.WSConfig
}

func (c Config) wsConfig(vendor schema.Provider) adapter.WSConfig {
	url := c.WSURL[vendor]
	cfg := adapter.DefaultWSConfig(url)
	if c.WSConfig != nil {
		cfg = c.WSConfig(url)
	}
	if h, ok := c.Headers[vendor]; ok {
		cfg.Headers = h
	}
	if c.EventBuffer > 0 {
		cfg.SubscriberBuffer = c.EventBuffer
	}
	return cfg
}
