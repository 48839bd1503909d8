package table

import "sort"

// MinPeerGroup is the minimum group size for percentile-based comparisons.
// Groups below this are excluded entirely rather than producing unstable
// order statistics over a handful of members.
const MinPeerGroup = 10

// Percentile computes the p-th percentile (p in [0, 1]) of values using
// linear interpolation between order statistics, the PERCENTILE_CONT
// convention. Returns 0 for an empty input.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return values[0]
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	h := p * float64(n-1)
	lo := int(h)
	frac := h - float64(lo)
	if lo+1 >= n {
		return sorted[n-1]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Median is the 50th percentile.
func Median(values []float64) float64 {
	return Percentile(values, 0.5)
}
