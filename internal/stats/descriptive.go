// Package stats holds the pure numeric functions behind every report:
// descriptive statistics, Pearson correlation, the pooled two-sample t-test
// and simple linear regression.
//
// Degenerate input never returns an error. Empty or zero-variance sequences
// produce 0 where a sentinel is well defined, and NaN or Inf otherwise.
package stats

import (
	"math"

	mstats "github.com/montanaflynn/stats"
)

// DescriptiveStats summarizes one numeric sequence.
type DescriptiveStats struct {
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	StdDev   float64 `json:"stdDev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Skewness float64 `json:"skewness"`
}

// Mean returns the arithmetic mean, or 0 for an empty sequence.
func Mean(xs []float64) float64 {
	m, err := mstats.Mean(xs)
	if err != nil {
		return 0
	}
	return m
}

// Median returns the middle value (or the average of the two middle values)
// without modifying xs. Empty input yields 0.
func Median(xs []float64) float64 {
	m, err := mstats.Median(xs)
	if err != nil {
		return 0
	}
	return m
}

// StdDev returns the sample standard deviation around mean using n-1 in the
// denominator. Sequences with fewer than two values yield 0.
func StdDev(xs []float64, mean float64) float64 {
	n := len(xs)
	if n <= 1 {
		return 0
	}
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// Skewness returns the adjusted Fisher-Pearson coefficient
// n/((n-1)(n-2)) * Σ((x-mean)/sd)^3. It is 0 when n < 3 or sd is 0.
func Skewness(xs []float64, mean, stdDev float64) float64 {
	n := len(xs)
	if n < 3 || stdDev == 0 {
		return 0
	}
	var cubed float64
	for _, x := range xs {
		z := (x - mean) / stdDev
		cubed += z * z * z
	}
	fn := float64(n)
	return fn / ((fn - 1) * (fn - 2)) * cubed
}

// Describe computes all descriptive statistics for xs. Min and Max are NaN
// for empty input; callers should not describe empty columns.
func Describe(xs []float64) DescriptiveStats {
	mean := Mean(xs)
	sd := StdDev(xs, mean)
	return DescriptiveStats{
		Mean:     mean,
		Median:   Median(xs),
		StdDev:   sd,
		Min:      extreme(mstats.Min, xs),
		Max:      extreme(mstats.Max, xs),
		Skewness: Skewness(xs, mean, sd),
	}
}

func extreme(fn func(mstats.Float64Data) (float64, error), xs []float64) float64 {
	v, err := fn(xs)
	if err != nil {
		return math.NaN()
	}
	return v
}
