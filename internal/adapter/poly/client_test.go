package poly

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientGetEventByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events/9001" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"id":"9001","slug":"election-2028","title":"Election 2028"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	ev, err := c.GetEvent(context.Background(), 9001, "")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if ev.ID != "9001" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestClientGetEventBySlug(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("slug") != "election-2028" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		w.Write([]byte(`[{"id":"9001","slug":"election-2028"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	ev, err := c.GetEvent(context.Background(), 0, "election-2028")
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if ev.ID != "9001" {
		t.Fatalf("event = %+v", ev)
	}
}

func TestClientGetEventSlugMiss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	if _, err := c.GetEvent(context.Background(), 0, "nope"); err == nil {
		t.Fatal("expected error for empty slug listing")
	}
}

func TestClientSearchEventsStatusParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("active") != "true" || q.Get("closed") != "false" {
			t.Errorf("open filter not mapped: %q", r.URL.RawQuery)
		}
		w.Write([]byte(`[
			{"id":"1","slug":"election-2028","title":"Election 2028"},
			{"id":"2","slug":"nba-finals","title":"NBA Finals"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), srv.URL)
	events, err := c.SearchEvents(context.Background(), "election", "open", 10)
	if err != nil {
		t.Fatalf("SearchEvents: %v", err)
	}
	if len(events) != 1 || events[0].ID != "1" {
		t.Fatalf("events = %+v", events)
	}
}
