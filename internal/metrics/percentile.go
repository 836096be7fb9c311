// Package metrics computes KPIs, cost-concentration curves, and per-patient
// anomaly flags from the cleaned claims table. All functions are pure; no
// rounding happens here, only at the rendering boundary.
package metrics

import (
	"math"
	"sort"
)

// Percentile returns the p-th percentile (0.0-1.0) of values using linear
// interpolation between order statistics. Returns 0 for an empty slice.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}

	h := p * float64(len(sorted)-1)
	lo := int(h)
	frac := h - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Median is the 50th percentile.
func Median(values []float64) float64 {
	return Percentile(values, 0.5)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the population standard deviation.
func stddev(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	ss := 0.0
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}
