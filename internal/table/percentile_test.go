package table

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPercentile_LinearInterpolation(t *testing.T) {
	values := []float64{10, 20, 30, 40}

	// h = p*(n-1); p=0.5 lands between 20 and 30.
	if got := Percentile(values, 0.5); !almostEqual(got, 25) {
		t.Errorf("p50 = %v, want 25", got)
	}
	if got := Percentile(values, 0.25); !almostEqual(got, 17.5) {
		t.Errorf("p25 = %v, want 17.5", got)
	}
	if got := Percentile(values, 0); got != 10 {
		t.Errorf("p0 = %v, want 10", got)
	}
	if got := Percentile(values, 1); got != 40 {
		t.Errorf("p100 = %v, want 40", got)
	}
}

func TestPercentile_OutlierPeerGroup(t *testing.T) {
	// Ten peers at 100k and one at 10M; p99 interpolates between the two
	// largest order statistics.
	values := make([]float64, 0, 11)
	for i := 0; i < 10; i++ {
		values = append(values, 100_000)
	}
	values = append(values, 10_000_000)

	p99 := Percentile(values, 0.99)
	// h = 0.99*10 = 9.9: 100000 + 0.9*(10000000-100000)
	if !almostEqual(p99, 9_010_000) {
		t.Errorf("p99 = %v, want 9010000", p99)
	}
	if got := Median(values); got != 100_000 {
		t.Errorf("median = %v, want 100000", got)
	}
}

func TestPercentile_Degenerate(t *testing.T) {
	if got := Percentile(nil, 0.99); got != 0 {
		t.Errorf("empty input = %v, want 0", got)
	}
	if got := Percentile([]float64{42}, 0.99); got != 42 {
		t.Errorf("single value = %v, want 42", got)
	}
}

func TestPercentile_DoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Percentile(values, 0.5)
	if values[0] != 3 || values[1] != 1 || values[2] != 2 {
		t.Errorf("input mutated: %v", values)
	}
}
