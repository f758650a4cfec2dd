package poly

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/datavents/datavents/internal/schema"
)

// ToMarket maps a raw Gamma market into the canonical schema. The Gamma
// numeric id is the canonical market_id, falling back to the condition
// id; a record with neither is malformed.
func ToMarket(raw RawMarket) (schema.Market, error) {
	id := raw.ID
	if id == "" {
		id = raw.ConditionID
	}
	if id == "" {
		return schema.Market{}, &schema.MalformedPayloadError{
			Provider: schema.ProviderPolymarket,
			Field:    "market.id",
			Reason:   "missing id and conditionId",
		}
	}

	m := schema.Market{
		Provider:  schema.ProviderPolymarket,
		MarketID:  id,
		Slug:      raw.Slug,
		Question:  raw.Question,
		Status:    marketStatus(raw.Active, raw.Closed),
		BestBid:   schema.NormalizePtr(raw.BestBid),
		BestAsk:   schema.NormalizePtr(raw.BestAsk),
		LastPrice: schema.NormalizePtr(raw.LastTradePrice),
	}

	if m.BestBid != nil && m.BestAsk != nil {
		mid := (*m.BestBid + *m.BestAsk) / 2
		m.MidPrice = &mid
	}

	m.Outcomes = parseOutcomes(raw.Outcomes, raw.OutcomePrices)

	return m, nil
}

// ToEvent maps a raw Gamma event into the canonical schema, unnesting
// its markets. Malformed nested markets are skipped record-by-record.
func ToEvent(raw RawEvent) (schema.Event, error) {
	if raw.ID == "" && raw.Slug == "" {
		return schema.Event{}, &schema.MalformedPayloadError{
			Provider: schema.ProviderPolymarket,
			Field:    "event.id",
			Reason:   "missing id and slug",
		}
	}

	ev := schema.Event{
		Provider:     schema.ProviderPolymarket,
		EventID:      raw.ID,
		Slug:         raw.Slug,
		Title:        raw.Title,
		Status:       marketStatus(raw.Active, raw.Closed),
		MarketsCount: len(raw.Markets),
	}
	if ev.EventID == "" {
		ev.EventID = raw.Slug
	}

	for _, rm := range raw.Markets {
		m, err := ToMarket(rm)
		if err != nil {
			continue
		}
		ev.Markets = append(ev.Markets, m)
	}

	return ev, nil
}

// ToSeries maps a raw Gamma series into the canonical schema.
func ToSeries(raw RawSeries) (schema.Series, error) {
	if raw.ID == "" {
		return schema.Series{}, &schema.MalformedPayloadError{
			Provider: schema.ProviderPolymarket,
			Field:    "series.id",
			Reason:   "missing",
		}
	}
	return schema.Series{
		Provider: schema.ProviderPolymarket,
		SeriesID: raw.ID,
		Title:    raw.Title,
	}, nil
}

// ToSearchResponse maps a raw Gamma events listing into a normalized
// search response. Events that cannot be mapped are skipped without
// aborting the batch.
func ToSearchResponse(events []RawEvent, meta schema.SearchMeta) schema.SearchResponse {
	out := schema.SearchResponse{Meta: meta}
	out.Meta.Provider = schema.ProviderPolymarket

	for _, raw := range events {
		ev, err := ToEvent(raw)
		if err != nil {
			continue
		}
		out.Results = append(out.Results, schema.SearchResult{Event: &ev})
	}
	return out
}

func marketStatus(active, closed bool) string {
	switch {
	case closed:
		return "closed"
	case active:
		return "open"
	default:
		return ""
	}
}

// parseOutcomes pairs the stringified outcomes array with the
// stringified outcome prices array. Prices run through the shared
// normalizer; a missing or short price list leaves prices nil.
func parseOutcomes(outcomesJSON, pricesJSON string) []schema.Outcome {
	labels := parseStringArray(outcomesJSON)
	if len(labels) == 0 {
		return nil
	}
	prices := parseStringArray(pricesJSON)

	out := make([]schema.Outcome, 0, len(labels))
	for i, label := range labels {
		o := schema.Outcome{Label: label}
		if i < len(prices) {
			if f, err := strconv.ParseFloat(prices[i], 64); err == nil {
				o.Price = schema.NormalizeFraction(f)
			}
		}
		out = append(out, o)
	}
	return out
}

// parseStringArray decodes a JSON array that may itself be encoded
// inside a string, a Gamma API quirk.
func parseStringArray(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var arr []string
	if err := json.Unmarshal([]byte(s), &arr); err != nil {
		return nil
	}
	return arr
}

// ClobTokenIDs extracts the CLOB token ids of a raw market, tolerating
// the stringified-array encoding.
func ClobTokenIDs(raw RawMarket) []string {
	return parseStringArray(raw.ClobTokenIds)
}

// FindAssetIDs recursively collects CLOB token / asset ids from an
// arbitrary decoded payload, accepting singular and plural key variants
// and stringified JSON lists. Order is preserved, duplicates dropped.
func FindAssetIDs(v any) []string {
	var out []string
	findAssetIDs(v, &out)
	return schema.DedupePreserve(out)
}

func findAssetIDs(v any, out *[]string) {
	switch x := v.(type) {
	case map[string]any:
		for k, val := range x {
			switch strings.ToLower(k) {
			case "clob_token_id", "clobtokenid", "token_id", "tokenid", "asset_id", "assetid":
				if s, ok := val.(string); ok && s != "" {
					*out = append(*out, s)
				}
			case "clob_token_ids", "clobtokenids", "token_ids", "tokenids", "asset_ids", "assetids":
				appendIDList(val, out)
			}
			findAssetIDs(val, out)
		}
	case []any:
		for _, item := range x {
			findAssetIDs(item, out)
		}
	}
}

func appendIDList(val any, out *[]string) {
	switch x := val.(type) {
	case []any:
		for _, item := range x {
			if s, ok := item.(string); ok && s != "" {
				*out = append(*out, s)
			}
		}
	case string:
		for _, s := range parseStringArray(x) {
			if s != "" {
				*out = append(*out, s)
			}
		}
	}
}
