// Package adapter holds the transport layer shared by every vendor:
// a resilient WebSocket client with reconnection, heartbeat monitoring,
// and message fan-out. Vendor-specific payload mapping lives in the
// kalshi and poly subpackages.
package adapter

import (
	"context"
	"log"
	"math"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ConnHealth is the coarse transport health bit exposed to consumers.
// The multiplexer maps it onto per-vendor status updates; it is never
// delivered through the event stream itself.
type ConnHealth int32

const (
	HealthUp   ConnHealth = iota // connected and reading
	HealthDown                   // lost; reconnect in progress
)

// WSConfig holds tunable parameters for a WSClient.
type WSConfig struct {
	URL string

	// Buffer sizes for the underlying TCP connection.
	ReadBufferSize  int
	WriteBufferSize int

	// HeartbeatTimeout is the maximum duration of silence before the
	// client considers the connection dead and triggers a reconnect.
	HeartbeatTimeout time.Duration

	// Backoff parameters for reconnection.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	BackoffFactor  float64

	// SubscriberBuffer sizes each subscriber's inbound channel. Frames
	// are dropped, never blocked on, when a subscriber falls behind.
	SubscriberBuffer int

	// Headers sent during the WebSocket handshake.
	Headers http.Header
}

// DefaultWSConfig returns defaults tuned for prediction-market feeds,
// which can legitimately go quiet for tens of seconds on thin markets.
func DefaultWSConfig(url string) WSConfig {
	return WSConfig{
		URL:              url,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
		HeartbeatTimeout: 30 * time.Second,
		SubscriberBuffer: 512,
		BackoffInitial:   250 * time.Millisecond,
		BackoffMax:       10 * time.Second,
		BackoffFactor:    2.0,
	}
}

// WSClient is a resilient WebSocket connection manager. It reconnects
// with exponential backoff, monitors heartbeats, and fans inbound
// messages out to subscribers in arrival order.
type WSClient struct {
	cfg WSConfig

	health atomic.Int32

	mu   sync.RWMutex
	conn *websocket.Conn

	// subscribers receive every inbound message in arrival order.
	subMu sync.RWMutex
	subs  []chan []byte

	// outbox for sending frames through the connection.
	outbox chan []byte

	cancel context.CancelFunc

	closeOnce sync.Once
	done      chan struct{}

	// OnReconnect is invoked after each successful reconnection, before
	// reads resume. Vendors use it to re-send their subscribe frame.
	OnReconnect func()

	// OnHealthChange is invoked on every health transition.
	OnHealthChange func(ConnHealth)
}

// NewWSClient creates a WebSocket client. Call Connect to start.
func NewWSClient(cfg WSConfig) *WSClient {
	return &WSClient{
		cfg:    cfg,
		outbox: make(chan []byte, 256),
		done:   make(chan struct{}),
	}
}

// Health returns the current transport health.
func (ws *WSClient) Health() ConnHealth {
	return ConnHealth(ws.health.Load())
}

// Subscribe returns a channel that receives every inbound message in
// arrival order. The caller must drain it to avoid drops.
func (ws *WSClient) Subscribe() <-chan []byte {
	buf := ws.cfg.SubscriberBuffer
	if buf <= 0 {
		buf = 512
	}
	ch := make(chan []byte, buf)
	ws.subMu.Lock()
	ws.subs = append(ws.subs, ch)
	ws.subMu.Unlock()
	return ch
}

// Send enqueues a frame for delivery over the connection.
func (ws *WSClient) Send(data []byte) {
	select {
	case ws.outbox <- data:
	default:
		log.Printf("ws: outbox full, dropping frame (%d bytes)", len(data))
	}
}

// Connect dials the endpoint and starts the read/write loops. It blocks
// until the initial connection succeeds or ctx is cancelled.
func (ws *WSClient) Connect(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	ws.mu.Lock()
	ws.cancel = cancel
	ws.mu.Unlock()

	if err := ws.dial(ctx); err != nil {
		cancel()
		return err
	}
	ws.setHealth(HealthUp)

	go ws.readLoop(ctx)
	go ws.writeLoop(ctx)

	return nil
}

// Close shuts down the client, closing the underlying connection and all
// subscriber channels. It is idempotent and safe from any state.
func (ws *WSClient) Close() {
	ws.closeOnce.Do(func() {
		ws.mu.Lock()
		if ws.cancel != nil {
			ws.cancel()
		}
		if ws.conn != nil {
			ws.conn.Close()
		}
		ws.mu.Unlock()

		ws.subMu.Lock()
		for _, ch := range ws.subs {
			close(ch)
		}
		ws.subs = nil
		ws.subMu.Unlock()

		close(ws.done)
	})
}

// Done returns a channel closed when the client has fully shut down.
func (ws *WSClient) Done() <-chan struct{} {
	return ws.done
}

func (ws *WSClient) setHealth(h ConnHealth) {
	if ws.health.Swap(int32(h)) != int32(h) && ws.OnHealthChange != nil {
		ws.OnHealthChange(h)
	}
}

// dial establishes the connection with TCP_NODELAY enabled.
func (ws *WSClient) dial(ctx context.Context) error {
	dialer := websocket.Dialer{
		ReadBufferSize:  ws.cfg.ReadBufferSize,
		WriteBufferSize: ws.cfg.WriteBufferSize,
		NetDialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			d := net.Dialer{}
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if tc, ok := conn.(*net.TCPConn); ok {
				tc.SetNoDelay(true)
			}
			return conn, nil
		},
	}

	conn, _, err := dialer.DialContext(ctx, ws.cfg.URL, ws.cfg.Headers)
	if err != nil {
		return err
	}

	ws.mu.Lock()
	ws.conn = conn
	ws.mu.Unlock()
	return nil
}

// reconnect loops with exponential backoff until a connection is
// re-established or the context is cancelled.
func (ws *WSClient) reconnect(ctx context.Context) bool {
	ws.setHealth(HealthDown)

	delay := ws.cfg.BackoffInitial
	for {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}

		if err := ws.dial(ctx); err != nil {
			log.Printf("ws: reconnect failed: %v (retry in %v)", err, delay)
			delay = time.Duration(math.Min(
				float64(delay)*ws.cfg.BackoffFactor,
				float64(ws.cfg.BackoffMax),
			))
			continue
		}

		if ws.OnReconnect != nil {
			ws.OnReconnect()
		}
		ws.setHealth(HealthUp)
		return true
	}
}

// readLoop reads frames and fans them out. It doubles as the heartbeat
// monitor: silence past HeartbeatTimeout triggers a reconnect.
func (ws *WSClient) readLoop(ctx context.Context) {
	for {
		ws.mu.RLock()
		c := ws.conn
		ws.mu.RUnlock()

		c.SetReadDeadline(time.Now().Add(ws.cfg.HeartbeatTimeout))
		_, msg, err := c.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("ws: read error (triggering reconnect): %v", err)
			c.Close()
			if !ws.reconnect(ctx) {
				return
			}
			continue
		}

		ws.fanOut(msg)
	}
}

// writeLoop drains the outbox and writes frames to the connection.
func (ws *WSClient) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-ws.outbox:
			ws.mu.RLock()
			c := ws.conn
			ws.mu.RUnlock()
			if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("ws: write error: %v", err)
			}
		}
	}
}

// fanOut delivers msg to every subscriber without blocking.
func (ws *WSClient) fanOut(msg []byte) {
	ws.subMu.RLock()
	defer ws.subMu.RUnlock()

	for _, ch := range ws.subs {
		select {
		case ch <- msg:
		default:
			// Slow consumer; drop to avoid head-of-line blocking.
		}
	}
}
