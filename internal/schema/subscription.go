package schema

import "strings"

// Subscription describes the scope of one streaming session. It is
// immutable once handed to the multiplexer; changing scope requires a
// new Subscription.
//
// Identifier classes mirror what each vendor's stream accepts: Kalshi
// subscribes by market ticker (event tickers are coarse and need
// resolution first), Polymarket subscribes by CLOB asset id.
// TickersOrIDs is the vendor-neutral catch-all: each entry is offered
// to every subscribed vendor.
type Subscription struct {
	Vendors []Provider

	TickersOrIDs        []string
	KalshiMarketTickers []string
	KalshiEventTickers  []string
	PolymarketAssetIDs  []string
}

// Has reports whether the subscription includes the given vendor.
func (s Subscription) Has(p Provider) bool {
	for _, v := range s.Vendors {
		if v == p {
			return true
		}
	}
	return false
}

// ParseVendors maps free-form vendor tokens onto the supported provider
// set, preserving first-seen order. The tokens "all", "both" and "*"
// select every provider. Unknown tokens are skipped.
func ParseVendors(tokens []string) []Provider {
	for _, tok := range tokens {
		switch strings.ToLower(strings.TrimSpace(tok)) {
		case "all", "both", "*":
			return []Provider{ProviderKalshi, ProviderPolymarket}
		}
	}

	var vendors []Provider
	seen := make(map[Provider]bool)
	for _, tok := range tokens {
		p := Provider(strings.ToLower(strings.TrimSpace(tok)))
		if !p.Valid() || seen[p] {
			continue
		}
		seen[p] = true
		vendors = append(vendors, p)
	}
	return vendors
}

// DedupePreserve removes duplicates and blank entries from a list of
// identifiers, keeping first-seen order.
func DedupePreserve(items []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, it := range items {
		s := strings.TrimSpace(it)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
