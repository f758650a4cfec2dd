package stream

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/datavents/datavents/internal/adapter"
	"github.com/datavents/datavents/internal/book"
	"github.com/datavents/datavents/internal/resolver"
	"github.com/datavents/datavents/internal/schema"
)

// Multiplexer maintains concurrent live subscriptions across vendors
// behind one subscription/event interface. Each Run invocation owns its
// connections and reconciliation state and is independently disposable;
// one vendor's transport failure never blocks or terminates another's
// delivery.
type Multiplexer struct {
	cfg      Config
	resolver *resolver.Resolver
	drivers  map[schema.Provider]adapter.Driver

	books *book.Reconciler

	// statusMu orders late emits (e.g. a health hook firing during
	// teardown) against the close of the status channel.
	statusMu     sync.Mutex
	status       chan Status
	statusClosed bool

	mu      sync.Mutex
	conns   map[schema.Provider]*vendorConn
	running bool
	stopped bool

	sessionID uuid.UUID
	wg        sync.WaitGroup
}

// ErrAlreadyRunning is returned when Run is invoked twice on the same
// Multiplexer; scope changes require a new Multiplexer.
var ErrAlreadyRunning = errors.New("stream: multiplexer already running")

// New creates a Multiplexer for the given vendor drivers. Configuration
// is explicit; the multiplexer holds no global state.
func New(cfg Config, res *resolver.Resolver, drivers ...adapter.Driver) *Multiplexer {
	dm := make(map[schema.Provider]adapter.Driver, len(drivers))
	for _, d := range drivers {
		dm[d.Vendor()] = d
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 1024
	}
	return &Multiplexer{
		cfg:       cfg,
		resolver:  res,
		drivers:   dm,
		books:     book.NewReconciler(),
		status:    make(chan Status, 64),
		conns:     make(map[schema.Provider]*vendorConn),
		sessionID: uuid.New(),
	}
}

// Books exposes the per-market reconciliation state built from this
// session's orderbook frames.
func (m *Multiplexer) Books() *book.Reconciler { return m.books }

// Status returns the side channel of per-vendor connection status
// updates. Consumers should drain it; updates are dropped, never
// blocked on, when the channel is full. The channel is closed when Run
// returns, so a range over it terminates with the session.
func (m *Multiplexer) Status() <-chan Status { return m.status }

// SessionID identifies this streaming session in status updates.
func (m *Multiplexer) SessionID() uuid.UUID { return m.sessionID }

// Run resolves the subscription, opens one connection per vendor with
// at least one resolved identifier, and delivers normalized events to
// onEvent until ctx is cancelled or Unsubscribe is called. It blocks
// until every vendor connection has shut down.
func (m *Multiplexer) Run(ctx context.Context, sub schema.Subscription, onEvent EventFunc) error {
	m.mu.Lock()
	if m.running || m.stopped {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.running = true
	m.mu.Unlock()

	resolved := m.resolver.Resolve(ctx, sub)
	for _, om := range resolved.Omissions {
		m.emitStatus(om.Provider, StateUnavailable, om.Error())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, vendor := range sub.Vendors {
		driver, ok := m.drivers[vendor]
		if !ok {
			m.emitStatus(vendor, StateUnavailable, "no driver registered")
			continue
		}
		ids := resolved.IDs(vendor)
		if len(ids) == 0 {
			m.emitStatus(vendor, StateUnavailable, "no resolved stream identifiers")
			continue
		}

		vc := &vendorConn{
			mux:     m,
			driver:  driver,
			ids:     ids,
			onEvent: onEvent,
			stop:    make(chan struct{}),
		}
		vc.ws = adapter.NewWSClient(m.cfg.wsConfig(vendor))
		vc.ws.OnReconnect = func() {
			for _, frame := range vc.driver.SubscribeFrames(vc.ids) {
				vc.ws.Send(frame)
			}
		}
		vc.ws.OnHealthChange = func(h adapter.ConnHealth) {
			if h == adapter.HealthDown {
				m.emitStatus(vendor, StateReconnecting, "")
			} else {
				m.emitStatus(vendor, StateSubscribed, "")
			}
		}

		// Register and launch under the lock so an Unsubscribe that has
		// already snapshotted m.conns cannot miss this connection, and so
		// its Wait cannot overlap this Add.
		m.mu.Lock()
		if m.stopped {
			m.mu.Unlock()
			break
		}
		m.conns[vendor] = vc
		m.wg.Add(1)
		m.mu.Unlock()

		go func() {
			defer m.wg.Done()
			vc.run(ctx)
		}()
	}

	m.wg.Wait()

	m.statusMu.Lock()
	m.statusClosed = true
	close(m.status)
	m.statusMu.Unlock()
	return nil
}

// Unsubscribe sends each vendor's unsubscribe frame best-effort, closes
// the connections, and waits until no further onEvent invocation can
// happen. It is idempotent and safe to call from any state.
func (m *Multiplexer) Unsubscribe() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	conns := make([]*vendorConn, 0, len(m.conns))
	for _, vc := range m.conns {
		conns = append(conns, vc)
	}
	m.mu.Unlock()

	for _, vc := range conns {
		vc.shutdown()
	}
	m.wg.Wait()
}

func (m *Multiplexer) emitStatus(vendor schema.Provider, state ConnState, detail string) {
	st := Status{
		SessionID: m.sessionID,
		Vendor:    vendor,
		State:     state,
		Detail:    detail,
		At:        time.Now(),
	}
	m.statusMu.Lock()
	defer m.statusMu.Unlock()
	if m.statusClosed {
		return
	}
	select {
	case m.status <- st:
	default:
		log.Printf("stream: status channel full, dropping %s/%s", vendor, state)
	}
}

// vendorConn owns one vendor's connection for the lifetime of a Run:
// its WSClient, its resolved identifiers, and its delivery loop. No
// state is shared between vendor connections except the consumer
// callback and the per-market book state, each market's state being
// touched only by the connection that subscribed it.
type vendorConn struct {
	mux     *Multiplexer
	driver  adapter.Driver
	ids     []string
	onEvent EventFunc

	// ws is constructed before the run goroutine launches and never
	// reassigned, so shutdown may use it without further locking.
	ws *adapter.WSClient

	stopOnce sync.Once
	stop     chan struct{}
}

func (vc *vendorConn) vendor() schema.Provider { return vc.driver.Vendor() }

func (vc *vendorConn) run(ctx context.Context) {
	vendor := vc.vendor()
	defer vc.mux.emitStatus(vendor, StateClosed, "")

	// Book state exists from subscribe time until teardown.
	for _, id := range vc.ids {
		vc.mux.books.Track(id)
	}
	defer func() {
		for _, id := range vc.ids {
			vc.mux.books.Drop(id)
		}
	}()

	vc.mux.emitStatus(vendor, StateConnecting, "")

	// Subscribe to the fan-out before the first frame can arrive.
	inbound := vc.ws.Subscribe()

	if !vc.connectWithRetry(ctx, vc.ws) {
		return
	}

	for _, frame := range vc.driver.SubscribeFrames(vc.ids) {
		vc.ws.Send(frame)
	}
	vc.mux.emitStatus(vendor, StateSubscribed, "")

	for {
		select {
		case <-ctx.Done():
			vc.shutdown()
			return
		case <-vc.stop:
			return
		case raw, ok := <-inbound:
			if !ok {
				return
			}
			vc.handleFrame(raw)
		}
	}
}

// connectWithRetry dials until the initial connection succeeds. The
// WSClient handles reconnection itself after that; this loop only
// covers failures before the first successful dial.
func (vc *vendorConn) connectWithRetry(ctx context.Context, ws *adapter.WSClient) bool {
	cfg := vc.mux.cfg.wsConfig(vc.vendor())
	delay := cfg.BackoffInitial

	for {
		err := ws.Connect(ctx)
		if err == nil {
			return true
		}
		log.Printf("%s: initial connect failed: %v (retry in %v)", vc.vendor(), err, delay)
		vc.mux.emitStatus(vc.vendor(), StateReconnecting, err.Error())

		select {
		case <-ctx.Done():
			return false
		case <-vc.stop:
			return false
		case <-time.After(delay):
		}
		if delay = time.Duration(float64(delay) * cfg.BackoffFactor); delay > cfg.BackoffMax {
			delay = cfg.BackoffMax
		}
	}
}

// handleFrame decodes one inbound transport frame and delivers its
// stream frames in order. Malformed frames are isolated: logged,
// counted against no one, and never fatal to the connection.
func (vc *vendorConn) handleFrame(raw []byte) {
	frames, err := vc.driver.Decode(raw)
	if err != nil {
		log.Printf("%s: dropping malformed frame: %v", vc.vendor(), err)
		return
	}

	receivedAt := time.Now().UnixMilli()
	for _, frame := range frames {
		if frame.Book != nil && frame.MarketRef != "" {
			// Vendors may reference a market under a key we did not
			// subscribe with; track it on first sight.
			if err := vc.mux.books.Apply(frame.MarketRef, frame.Book); errors.Is(err, schema.ErrUnknownMarket) {
				vc.mux.books.Track(frame.MarketRef)
				if err := vc.mux.books.Apply(frame.MarketRef, frame.Book); err != nil {
					log.Printf("%s: book apply failed for %s: %v", vc.vendor(), frame.MarketRef, err)
				}
			}
		}

		select {
		case <-vc.stop:
			return
		default:
		}
		vc.onEvent(schema.NormalizedEvent{
			Vendor:     vc.vendor(),
			Kind:       frame.Kind,
			MarketRef:  frame.MarketRef,
			Payload:    frame.Payload,
			ReceivedAt: receivedAt,
		})
	}
}

// shutdown sends best-effort unsubscribe frames and closes the
// connection. Safe to call repeatedly and from any state; after it
// returns no further onEvent invocation for this vendor happens.
func (vc *vendorConn) shutdown() {
	vc.stopOnce.Do(func() {
		close(vc.stop)
		if vc.ws != nil {
			for _, frame := range vc.driver.UnsubscribeFrames(vc.ids) {
				vc.ws.Send(frame)
			}
			vc.ws.Close()
		}
	})
}
