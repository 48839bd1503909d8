package table

// Ordered-partition window primitives. Callers are responsible for sorting
// each partition by its explicit sort key (e.g. claim month) before calling;
// results are then independent of any upstream parallelism.

// Lag returns, for each element, the value n positions earlier in the
// sequence. ok[i] is false for the first n positions.
func Lag(values []float64, n int) (lagged []float64, ok []bool) {
	lagged = make([]float64, len(values))
	ok = make([]bool, len(values))
	for i := range values {
		if i >= n {
			lagged[i] = values[i-n]
			ok[i] = true
		}
	}
	return lagged, ok
}

// RollingAverage returns the trailing average over a window of the given
// size including the current element. Positions before a full window average
// what is available, matching ROWS BETWEEN window-frame semantics.
func RollingAverage(values []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		span := i + 1
		if span > window {
			span = window
		}
		out[i] = sum / float64(span)
	}
	return out
}

// Ratio divides num by den, reporting ok=false for a zero denominator so
// callers exclude the row instead of propagating Inf/NaN.
func Ratio(num, den float64) (float64, bool) {
	if den == 0 {
		return 0, false
	}
	return num / den, true
}

// GrowthPct is the percentage growth from prev to cur, undefined for a zero
// prior value.
func GrowthPct(prev, cur float64) (float64, bool) {
	if prev == 0 {
		return 0, false
	}
	return (cur - prev) / prev * 100, true
}
