package schema

import "math"

// PriceScale is the quantization precision for order-book prices: one
// basis point. Levels that differ by less than this compare equal.
const PriceScale = 10000

// NormalizeFraction maps a heterogeneous numeric price/probability
// encoding onto the canonical [0,1] fractional domain.
//
// Policy, in order: non-finite input → nil; already in [0,1] →
// unchanged; (1,100] → percent, divide by 100; (100,10000] → basis
// points / cents-like, divide by 10000; anything else clamps to [0,1].
//
// Every adapter and the book reconciler share this single heuristic so
// mixed-unit vendor payloads converge on one scale.
func NormalizeFraction(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	switch {
	case v >= 0 && v <= 1:
		return &v
	case v > 1 && v <= 100:
		f := v / 100
		return &f
	case v > 100 && v <= 10000:
		f := v / 10000
		return &f
	case v < 0:
		f := 0.0
		return &f
	default:
		f := 1.0
		return &f
	}
}

// NormalizePtr applies NormalizeFraction to an optional value.
func NormalizePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return NormalizeFraction(*v)
}

// QuantizePrice rounds a canonical price to the fixed PriceScale
// precision so book levels key equally across messages.
func QuantizePrice(p float64) float64 {
	return math.Round(p*PriceScale) / PriceScale
}
