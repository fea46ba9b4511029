// Package stats provides statistical utility functions for analyzers.
package stats

import (
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Percentile calculates the p-th percentile of a sorted slice using the
// empirical distribution. The slice must already be sorted in ascending
// order. Returns 0 if the slice is empty.
func Percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	q := float64(min(max(p, 0), 100)) / 100
	return stat.Quantile(q, stat.Empirical, sorted, nil)
}

// Distribution summarizes a set of scores.
type Distribution struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
	Max    float64 `json:"max"`
}

// Summarize computes the distribution of values. The input is not modified.
func Summarize(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return Distribution{
		Count:  len(sorted),
		Mean:   stat.Mean(sorted, nil),
		Median: Percentile(sorted, 50),
		P95:    Percentile(sorted, 95),
		Max:    floats.Max(sorted),
	}
}
