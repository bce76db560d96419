package domain

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestHypergeometricTail(t *testing.T) {
	cases := []struct {
		name                string
		pop, succ, draws, k int
		want                float64
	}{
		{"no hits", 10, 5, 5, 0, 1},
		{"all drawn are successes", 10, 5, 5, 5, 1.0 / 252.0},
		{"at least one", 10, 5, 2, 1, 35.0 / 45.0},
		{"single draw", 100, 10, 1, 1, 0.1},
		{"impossible", 10, 2, 5, 3, 0},
		{"population clamped", 3, 5, 5, 5, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := HypergeometricTail(tc.pop, tc.succ, tc.draws, tc.k)
			if !approx(got, tc.want) {
				t.Fatalf("got %v want %v", got, tc.want)
			}
			if got < 0 || got > 1 {
				t.Fatalf("probability out of range: %v", got)
			}
		})
	}
}

func TestBenjaminiHochberg(t *testing.T) {
	got := BenjaminiHochberg([]float64{0.01, 0.04, 0.03, 0.5})
	want := []float64{0.04, 0.16 / 3, 0.16 / 3, 0.5}
	for i := range want {
		if !approx(got[i], want[i]) {
			t.Fatalf("index %d: got %v want %v", i, got[i], want[i])
		}
	}
	if len(BenjaminiHochberg(nil)) != 0 {
		t.Fatalf("expected empty result")
	}
	capped := BenjaminiHochberg([]float64{0.9, 0.95})
	for _, q := range capped {
		if q > 1 {
			t.Fatalf("adjusted value above 1: %v", q)
		}
	}
}

func TestRatioClampsFound(t *testing.T) {
	if r := ratio(5, 4); r != 1 {
		t.Fatalf("expected clamp to 1, got %v", r)
	}
	if r := ratio(3, 0); r != 0 {
		t.Fatalf("expected 0 for empty total, got %v", r)
	}
}
