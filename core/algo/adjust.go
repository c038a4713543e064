package algo

import (
	"fmt"
	"math"
)

// BenjaminiHochberg returns BH step-up adjusted p-values in input order.
// The running minimum from the largest p-value down keeps the result
// monotone in the BH ordering, and values are capped at 1.
func BenjaminiHochberg(p []float64) []float64 {
	n := len(p)
	adj := make([]float64, n)
	order := RankAscending(p)
	running := 1.0
	for r := n - 1; r >= 0; r-- {
		i := order[r]
		running = math.Min(running, p[i]*float64(n)/float64(r+1))
		adj[i] = running
	}
	return adj
}

// Holm returns Holm step-down adjusted p-values in input order.
func Holm(p []float64) []float64 {
	n := len(p)
	adj := make([]float64, n)
	order := RankAscending(p)
	running := 0.0
	for r, i := range order {
		running = math.Max(running, math.Min(1, p[i]*float64(n-r)))
		adj[i] = running
	}
	return adj
}

// Bonferroni returns Bonferroni adjusted p-values in input order.
func Bonferroni(p []float64) []float64 {
	n := float64(len(p))
	adj := make([]float64, len(p))
	for i, v := range p {
		adj[i] = math.Min(1, v*n)
	}
	return adj
}

// ValidatePValues rejects NaN and out-of-range p-values.
func ValidatePValues(p []float64) error {
	for i, v := range p {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("p-value %d is %v, want a value in [0, 1]", i, v)
		}
	}
	return nil
}

// Binomial2 returns C(k,2), the number of unordered pairs among k levels.
func Binomial2(k int) int {
	if k < 2 {
		return 0
	}
	return k * (k - 1) / 2
}
