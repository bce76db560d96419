package domain

import (
	"math"
	"sort"
)

// HypergeometricTail returns P(X >= k) for X drawn from a hypergeometric
// distribution with population size, successes in the population, and draws.
// Inputs are clamped into a consistent range; k <= 0 yields 1.
func HypergeometricTail(population, successes, draws, k int) float64 {
	if k <= 0 {
		return 1
	}
	if successes < 0 {
		successes = 0
	}
	if draws < 0 {
		draws = 0
	}
	if population < successes {
		population = successes
	}
	if population < draws {
		population = draws
	}
	upper := min(successes, draws)
	if k > upper {
		return 0
	}
	lower := max(k, draws-(population-successes))
	denominator := logChoose(population, draws)
	p := 0.0
	for i := lower; i <= upper; i++ {
		p += math.Exp(logChoose(successes, i) + logChoose(population-successes, draws-i) - denominator)
	}
	return clampProbability(p)
}

// BenjaminiHochberg returns FDR-adjusted values aligned with pValues.
// Adjusted values are monotone in the p-value order and capped at 1.
func BenjaminiHochberg(pValues []float64) []float64 {
	m := len(pValues)
	adjusted := make([]float64, m)
	if m == 0 {
		return adjusted
	}
	order := make([]int, m)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return pValues[order[a]] < pValues[order[b]] })
	running := 1.0
	for rank := m; rank >= 1; rank-- {
		idx := order[rank-1]
		q := pValues[idx] * float64(m) / float64(rank)
		if q < running {
			running = q
		}
		adjusted[idx] = clampProbability(running)
	}
	return adjusted
}

func logChoose(n, k int) float64 {
	if k < 0 || k > n {
		return math.Inf(-1)
	}
	a, _ := math.Lgamma(float64(n + 1))
	b, _ := math.Lgamma(float64(k + 1))
	c, _ := math.Lgamma(float64(n - k + 1))
	return a - b - c
}

func clampProbability(p float64) float64 {
	switch {
	case math.IsNaN(p) || p > 1:
		return 1
	case p < 0:
		return 0
	default:
		return p
	}
}

func ratio(found, total int) float64 {
	if total <= 0 {
		return 0
	}
	if found > total {
		found = total
	}
	return float64(found) / float64(total)
}
