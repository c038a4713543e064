// Package algo has the pure numeric routines behind the contrast engine.
package algo

import (
	"sort"
)

// RankAscending returns the indices of values sorted by value in ascending order.
// Ties keep their input order so that adjusted values are deterministic.
func RankAscending(values []float64) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] < values[idx[b]]
	})
	return idx
}
