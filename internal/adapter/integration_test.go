package adapter_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/datavents/datavents/internal/adapter"
	"github.com/datavents/datavents/internal/adapter/kalshi"
	"github.com/datavents/datavents/internal/book"
	"github.com/datavents/datavents/internal/schema"
)

// feedServer is a WS server that lets the test push frames at will.
type feedServer struct {
	srv    *httptest.Server
	connMu sync.Mutex
	conn   *websocket.Conn
	ready  chan struct{}
}

func newFeedServer(t *testing.T) *feedServer {
	t.Helper()
	fs := &feedServer{ready: make(chan struct{})}
	upgrader := websocket.Upgrader{}
	fs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.connMu.Lock()
		fs.conn = c
		fs.connMu.Unlock()
		close(fs.ready)
		// Hold the connection open, discarding client frames.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	return fs
}

func (fs *feedServer) push(t *testing.T, frame string) {
	t.Helper()
	select {
	case <-fs.ready:
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw a connection")
	}
	fs.connMu.Lock()
	defer fs.connMu.Unlock()
	if err := fs.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("push: %v", err)
	}
}

func (fs *feedServer) url() string {
	return "ws" + strings.TrimPrefix(fs.srv.URL, "http")
}

// Exercises the full inbound path: transport receive, protocol decode,
// and book reconciliation, using real Kalshi frame shapes.
func TestKalshiFeedToBook(t *testing.T) {
	fs := newFeedServer(t)
	defer fs.srv.Close()

	client := adapter.NewWSClient(adapter.DefaultWSConfig(fs.url()))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe()
	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer client.Close()

	driver := kalshi.NewDriver()
	books := book.NewReconciler()
	books.Track("PRES-2028")

	fs.push(t, `{"type":"subscribed","id":1}`)
	fs.push(t, `{"type":"orderbook_snapshot","seq":1,"msg":{"market_ticker":"PRES-2028","yes":[[45,100],[44,250]],"no":[[52,80]]}}`)
	fs.push(t, `{"type":"orderbook_delta","seq":2,"msg":{"market_ticker":"PRES-2028","price":46,"delta":30,"side":"yes"}}`)

	applied := 0
	deadline := time.After(3 * time.Second)
	for applied < 2 {
		select {
		case raw := <-sub:
			frames, err := driver.Decode(raw)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			for _, f := range frames {
				if f.Kind != schema.KindOrderbook {
					continue
				}
				if err := books.Apply(f.MarketRef, f.Book); err != nil {
					t.Fatalf("Apply: %v", err)
				}
				applied++
			}
		case <-deadline:
			t.Fatalf("timed out after %d applied book frames", applied)
		}
	}

	bid, bidOK, ask, askOK, err := books.Best("PRES-2028")
	if err != nil {
		t.Fatalf("Best: %v", err)
	}
	if !bidOK || bid != 0.46 {
		t.Fatalf("best bid = %v (ok=%v), want 0.46", bid, bidOK)
	}
	if !askOK || ask != 0.52 {
		t.Fatalf("best ask = %v (ok=%v), want 0.52", ask, askOK)
	}
}
