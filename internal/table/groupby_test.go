package table

import (
	"fmt"
	"testing"
)

func TestGrouper_SumsInKeyOrder(t *testing.T) {
	g := NewGrouper(Unbounded(),
		func(r kv) int { return r.K },
		func(int) float64 { return 0 },
		func(sum float64, r kv) float64 { return sum + float64(len(r.V)) },
	)
	for _, r := range []kv{{K: 3, V: "xx"}, {K: 1, V: "x"}, {K: 3, V: "x"}, {K: 2, V: "xxx"}} {
		if err := g.Add(r); err != nil {
			t.Fatal(err)
		}
	}

	var keys []int
	sums := map[int]float64{}
	err := g.Each(func(k int, sum float64) error {
		keys = append(keys, k)
		sums[k] = sum
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if fmt.Sprint(keys) != "[1 2 3]" {
		t.Errorf("keys = %v, want ascending [1 2 3]", keys)
	}
	if sums[1] != 1 || sums[2] != 3 || sums[3] != 3 {
		t.Errorf("sums = %v", sums)
	}
}

func TestGrouper_SpillMatchesInMemory(t *testing.T) {
	rows := randomRows(400, 7)

	collect := func(budget *Budget) map[int]float64 {
		g := NewGrouper(budget,
			func(r kv) int { return r.K },
			func(int) float64 { return 0 },
			func(n float64, r kv) float64 { return n + 1 },
		)
		for _, r := range rows {
			if err := g.Add(r); err != nil {
				t.Fatal(err)
			}
		}
		out := map[int]float64{}
		if err := g.Each(func(k int, n float64) error {
			out[k] = n
			return nil
		}); err != nil {
			t.Fatal(err)
		}
		return out
	}

	mem := collect(Unbounded())
	spilled := collect(tinyBudget(t))

	if len(mem) != len(spilled) {
		t.Fatalf("group counts differ: %d vs %d", len(spilled), len(mem))
	}
	for k, n := range mem {
		if spilled[k] != n {
			t.Errorf("group %d: spilled %v, in-memory %v", k, spilled[k], n)
		}
	}
}

func TestGrouper_Empty(t *testing.T) {
	g := NewGrouper(Unbounded(),
		func(r kv) int { return r.K },
		func(int) int { return 0 },
		func(n int, r kv) int { return n + 1 },
	)
	err := g.Each(func(k int, n int) error {
		t.Errorf("unexpected group %d", k)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestAgg(t *testing.T) {
	var a Agg
	for _, v := range []float64{5, -2, 9, 0} {
		a.AddValue(v)
	}
	if a.Count != 4 || a.Sum != 12 || a.Min != -2 || a.Max != 9 {
		t.Errorf("agg = %+v", a)
	}

	a.AddDistinct("x")
	a.AddDistinct("y")
	a.AddDistinct("x")
	if a.DistinctCount() != 2 {
		t.Errorf("DistinctCount = %d", a.DistinctCount())
	}
}
