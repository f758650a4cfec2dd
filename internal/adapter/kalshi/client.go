package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// HeaderFunc supplies authentication headers for one request. A nil
// HeaderFunc means unauthenticated access.
type HeaderFunc func(method, path string) (http.Header, error)

// Client is an HTTP client for the Kalshi trade API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    HeaderFunc
}

// NewClient creates a Kalshi API client against the given base URL.
func NewClient(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// WithHeaders sets the authentication header supplier.
func (c *Client) WithHeaders(fn HeaderFunc) *Client {
	c.headers = fn
	return c
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

	if c.headers != nil {
		h, err := c.headers(http.MethodGet, path)
		if err != nil {
			return fmt.Errorf("signing request: %w", err)
		}
		for k, vs := range h {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
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

// GetEvent fetches a single event, optionally with its nested markets.
func (c *Client) GetEvent(ctx context.Context, eventTicker string, withNestedMarkets bool) (EventResponse, error) {
	q := url.Values{}
	if withNestedMarkets {
		q.Set("with_nested_markets", "true")
	}
	var resp EventResponse
	err := c.get(ctx, "/events/"+url.PathEscape(eventTicker), q, &resp)
	return resp, err
}

// GetMarket fetches a single market by ticker.
func (c *Client) GetMarket(ctx context.Context, ticker string) (MarketResponse, error) {
	var resp MarketResponse
	err := c.get(ctx, "/markets/"+url.PathEscape(ticker), nil, &resp)
	return resp, err
}

// GetMarkets fetches the markets of one event.
func (c *Client) GetMarkets(ctx context.Context, eventTicker string) (MarketsResponse, error) {
	q := url.Values{}
	q.Set("event_ticker", eventTicker)
	var resp MarketsResponse
	err := c.get(ctx, "/markets", q, &resp)
	return resp, err
}

// GetSeries fetches a single series by ticker.
func (c *Client) GetSeries(ctx context.Context, seriesTicker string) (SeriesResponse, error) {
	var resp SeriesResponse
	err := c.get(ctx, "/series/"+url.PathEscape(seriesTicker), nil, &resp)
	return resp, err
}

// SearchEvents lists events filtered by status and, client-side, by a
// case-insensitive title substring. Kalshi's listing endpoint has no
// free-text query parameter, so the query filter is applied here.
func (c *Client) SearchEvents(ctx context.Context, query, status string, limit int) (EventsResponse, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var resp EventsResponse
	if err := c.get(ctx, "/events", q, &resp); err != nil {
		return resp, err
	}

	if query = strings.TrimSpace(strings.ToLower(query)); query != "" {
		filtered := resp.Events[:0]
		for _, ev := range resp.Events {
			if strings.Contains(strings.ToLower(ev.Title), query) ||
				strings.Contains(strings.ToLower(ev.EventTicker), query) {
				filtered = append(filtered, ev)
			}
		}
		resp.Events = filtered
	}
	return resp, nil
}
