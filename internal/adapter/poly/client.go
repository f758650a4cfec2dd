package poly

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Client is an HTTP client for the Polymarket Gamma API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Gamma API client against the given base URL.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// GetEvent fetches a single event by numeric id or slug. Exactly one of
// id, slug must be non-zero.
func (c *Client) GetEvent(ctx context.Context, id int, slug string) (RawEvent, error) {
	if id > 0 {
		var ev RawEvent
		err := c.get(ctx, "/events/"+strconv.Itoa(id), nil, &ev)
		return ev, err
	}

	q := url.Values{}
	q.Set("slug", slug)
	var events []RawEvent
	if err := c.get(ctx, "/events", q, &events); err != nil {
		return RawEvent{}, err
	}
	if len(events) == 0 {
		return RawEvent{}, fmt.Errorf("no event for slug %q", slug)
	}
	return events[0], nil
}

// GetMarket fetches a single market by numeric id or slug.
func (c *Client) GetMarket(ctx context.Context, id int, slug string) (RawMarket, error) {
	if id > 0 {
		var m RawMarket
		err := c.get(ctx, "/markets/"+strconv.Itoa(id), nil, &m)
		return m, err
	}

	q := url.Values{}
	q.Set("slug", slug)
	var markets []RawMarket
	if err := c.get(ctx, "/markets", q, &markets); err != nil {
		return RawMarket{}, err
	}
	if len(markets) == 0 {
		return RawMarket{}, fmt.Errorf("no market for slug %q", slug)
	}
	return markets[0], nil
}

// SearchEvents lists events filtered by status and, client-side, by a
// case-insensitive title substring.
func (c *Client) SearchEvents(ctx context.Context, query, status string, limit int) ([]RawEvent, error) {
	q := url.Values{}
	switch status {
	case "open":
		q.Set("active", "true")
		q.Set("closed", "false")
	case "closed":
		q.Set("closed", "true")
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var events []RawEvent
	if err := c.get(ctx, "/events", q, &events); err != nil {
		return nil, err
	}

	if query = strings.TrimSpace(strings.ToLower(query)); query != "" {
		filtered := events[:0]
		for _, ev := range events {
			if strings.Contains(strings.ToLower(ev.Title), query) ||
				strings.Contains(strings.ToLower(ev.Slug), query) {
				filtered = append(filtered, ev)
			}
		}
		events = filtered
	}
	return events, nil
}
