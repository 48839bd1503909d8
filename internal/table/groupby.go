package table

import (
	"cmp"
)

// Grouper is a grouped aggregation over a sorted stream: rows are external-
// sorted by key, then folded one group at a time. Only one group's
// accumulator is resident during Each, so memory stays bounded by the
// largest accumulator rather than the input.
type Grouper[T any, K cmp.Ordered, A any] struct {
	key    func(T) K
	init   func(K) A
	fold   func(A, T) A
	sorter *Sorter[T]
}

// NewGrouper creates a grouped aggregation keyed by key. init seeds the
// accumulator for each new group; fold absorbs one row.
func NewGrouper[T any, K cmp.Ordered, A any](
	budget *Budget,
	key func(T) K,
	init func(K) A,
	fold func(A, T) A,
) *Grouper[T, K, A] {
	return &Grouper[T, K, A]{
		key:  key,
		init: init,
		fold: fold,
		sorter: NewSorter(budget, func(a, b T) bool {
			return key(a) < key(b)
		}),
	}
}

// Add buffers one row.
func (g *Grouper[T, K, A]) Add(row T) error {
	return g.sorter.Add(row)
}

// Each streams the finished groups in key order.
func (g *Grouper[T, K, A]) Each(fn func(key K, acc A) error) error {
	it, err := g.sorter.Iter()
	if err != nil {
		return err
	}

	var (
		curKey  K
		acc     A
		started bool
	)
	err = it.Each(func(row T) error {
		k := g.key(row)
		if !started || k != curKey {
			if started {
				if err := fn(curKey, acc); err != nil {
					return err
				}
			}
			curKey = k
			acc = g.init(k)
			started = true
		}
		acc = g.fold(acc, row)
		return nil
	})
	if err != nil {
		return err
	}
	if started {
		return fn(curKey, acc)
	}
	return nil
}

// Agg is a reusable accumulator covering the aggregate functions the
// detectors need: sum, count, min, max, and count-distinct.
type Agg struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64

	distinct map[string]struct{}
}

// AddValue folds one numeric value.
func (a *Agg) AddValue(v float64) {
	if a.Count == 0 || v < a.Min {
		a.Min = v
	}
	if a.Count == 0 || v > a.Max {
		a.Max = v
	}
	a.Count++
	a.Sum += v
}

// AddDistinct records s for count-distinct.
func (a *Agg) AddDistinct(s string) {
	if a.distinct == nil {
		a.distinct = make(map[string]struct{})
	}
	a.distinct[s] = struct{}{}
}

// DistinctCount returns the number of distinct values recorded.
func (a *Agg) DistinctCount() int { return len(a.distinct) }
