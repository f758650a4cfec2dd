package schema

import (
	"math"
	"testing"
)

func TestNormalizeFraction(t *testing.T) {
	cases := []struct {
		name string
		in   float64
		want float64
	}{
		{"already fractional", 0.93, 0.93},
		{"zero", 0, 0},
		{"one", 1, 1},
		{"percent", 93, 0.93},
		{"percent boundary", 100, 1},
		{"basis points", 9300, 0.93},
		{"basis point boundary", 10000, 1},
		{"negative clamps low", -3, 0},
		{"huge clamps high", 123456, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeFraction(tc.in)
			if got == nil {
				t.Fatalf("NormalizeFraction(%v) = nil", tc.in)
			}
			if *got != tc.want {
				t.Fatalf("NormalizeFraction(%v) = %v, want %v", tc.in, *got, tc.want)
			}
		})
	}
}

func TestNormalizeFractionNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if got := NormalizeFraction(v); got != nil {
			t.Fatalf("NormalizeFraction(%v) = %v, want nil", v, *got)
		}
	}
}

// Outputs are fixed points: normalizing twice never moves a value.
func TestNormalizeFractionIdempotent(t *testing.T) {
	for _, v := range []float64{0, 0.0001, 0.5, 1, 17, 93, 100, 250, 9999, 10000, 1e9, -42} {
		first := NormalizeFraction(v)
		if first == nil {
			t.Fatalf("NormalizeFraction(%v) = nil", v)
		}
		second := NormalizeFraction(*first)
		if second == nil || *second != *first {
			t.Fatalf("NormalizeFraction not idempotent at %v: %v then %v", v, *first, second)
		}
		if *first < 0 || *first > 1 {
			t.Fatalf("NormalizeFraction(%v) = %v outside [0,1]", v, *first)
		}
	}
}

func TestNormalizePtr(t *testing.T) {
	if got := NormalizePtr(nil); got != nil {
		t.Fatalf("NormalizePtr(nil) = %v, want nil", got)
	}
	v := 45.0
	got := NormalizePtr(&v)
	if got == nil || *got != 0.45 {
		t.Fatalf("NormalizePtr(&45) = %v, want 0.45", got)
	}
}

func TestQuantizePrice(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.45, 0.45},
		{0.45004, 0.45},
		{0.45005, 0.4501},
		{0.123456, 0.1235},
	}
	for _, tc := range cases {
		if got := QuantizePrice(tc.in); got != tc.want {
			t.Fatalf("QuantizePrice(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
