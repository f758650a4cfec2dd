package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/datavents/datavents/internal/adapter/poly"
	"github.com/datavents/datavents/internal/schema"
)

// BuildSubscription turns a decoded subscribe control message into a
// Subscription. The payload is forgiving about shape: vendors may be a
// string or a list, identifier fields accept several key spellings, and
// Polymarket asset ids are discovered recursively anywhere inside the
// market object. Identifier lists are deduped with order preserved.
//
// When the message names Polymarket but carries no asset ids, the
// client resolves them over REST from whatever market id or slug the
// payload does carry.
func (c *Client) BuildSubscription(ctx context.Context, payload map[string]any) (schema.Subscription, error) {
	var sub schema.Subscription

	sub.Vendors = schema.ParseVendors(collectStrings(payload["vendors"], payload["vendor"]))
	if len(sub.Vendors) == 0 {
		sub.Vendors = []schema.Provider{schema.ProviderKalshi, schema.ProviderPolymarket}
	}

	market, _ := payload["market"].(map[string]any)
	if market == nil {
		market = payload
	}

	sub.TickersOrIDs = schema.DedupePreserve(collectStrings(
		market["tickers_or_ids"], market["tickers"], market["ticker"]))
	sub.KalshiMarketTickers = schema.DedupePreserve(collectStrings(
		market["kalshi_market_tickers"], market["market_tickers"], market["market_ticker"]))
	sub.KalshiEventTickers = schema.DedupePreserve(collectStrings(
		market["kalshi_event_tickers"], market["event_tickers"], market["event_ticker"]))
	sub.PolymarketAssetIDs = schema.DedupePreserve(collectStrings(
		market["polymarket_asset_ids"], market["assets_ids"], market["asset_ids"]))

	if sub.Has(schema.ProviderPolymarket) && len(sub.PolymarketAssetIDs) == 0 {
		// The control message may only name a market; dig ids out of it,
		// falling back to a Gamma lookup.
		sub.PolymarketAssetIDs = poly.FindAssetIDs(market)
		if len(sub.PolymarketAssetIDs) == 0 {
			ids, err := c.resolvePolyAssetIDs(ctx, market)
			if err != nil {
				return schema.Subscription{}, err
			}
			sub.PolymarketAssetIDs = ids
		}
	}

	if len(sub.TickersOrIDs) == 0 && len(sub.KalshiMarketTickers) == 0 &&
		len(sub.KalshiEventTickers) == 0 && len(sub.PolymarketAssetIDs) == 0 {
		return schema.Subscription{}, fmt.Errorf("subscribe message names no markets")
	}
	return sub, nil
}

// resolvePolyAssetIDs fetches the named Polymarket market or event over
// REST and extracts its CLOB token ids.
func (c *Client) resolvePolyAssetIDs(ctx context.Context, market map[string]any) ([]string, error) {
	slug := firstString(market["slug"], market["market_slug"], market["event_slug"])
	id := firstInt(market["id"], market["market_id"], market["event_id"])
	if slug == "" && id == 0 {
		return nil, nil
	}

	if raw, err := c.poly.GetMarket(ctx, id, slug); err == nil {
		if ids := poly.ClobTokenIDs(raw); len(ids) > 0 {
			return ids, nil
		}
	}
	rawEvent, err := c.poly.GetEvent(ctx, id, slug)
	if err != nil {
		return nil, fmt.Errorf("polymarket asset id resolution: %w", err)
	}
	var ids []string
	for _, m := range rawEvent.Markets {
		ids = append(ids, poly.ClobTokenIDs(m)...)
	}
	return schema.DedupePreserve(ids), nil
}

// collectStrings flattens any mix of strings, numbers, and lists of
// those into a string slice, skipping everything else.
func collectStrings(values ...any) []string {
	var out []string
	for _, v := range values {
		appendStrings(v, &out)
	}
	return out
}

func appendStrings(v any, out *[]string) {
	switch x := v.(type) {
	case string:
		if s := strings.TrimSpace(x); s != "" {
			*out = append(*out, s)
		}
	case float64:
		*out = append(*out, strconv.FormatFloat(x, 'f', -1, 64))
	case int:
		*out = append(*out, strconv.Itoa(x))
	case []string:
		for _, s := range x {
			appendStrings(s, out)
		}
	case []any:
		for _, item := range x {
			appendStrings(item, out)
		}
	}
}

func firstString(values ...any) string {
	for _, v := range values {
		if s, ok := v.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstInt(values ...any) int {
	for _, v := range values {
		switch x := v.(type) {
		case float64:
			if x != 0 {
				return int(x)
			}
		case int:
			if x != 0 {
				return x
			}
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(x)); err == nil && n != 0 {
				return n
			}
		}
	}
	return 0
}
