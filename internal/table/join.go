package table

import "cmp"

// JoinKind selects inclusion of unmatched left rows.
type JoinKind int

const (
	InnerJoin JoinKind = iota
	LeftJoin
)

// Joined is one output row of an equi-join. Matched is false only for
// LeftJoin rows with no right-side partner; Right is then the zero value.
type Joined[L, R any] struct {
	Left    L
	Right   R
	Matched bool
}

// Joiner is an external sort-merge equi-join. Both sides are external-sorted
// by key, then merged. Duplicate keys on both sides produce the full product
// for that key; the right-side group for the current key is buffered in
// memory, so memory is bounded by the largest single-key right group.
type Joiner[L, R any, K cmp.Ordered] struct {
	kind     JoinKind
	leftKey  func(L) K
	rightKey func(R) K
	left     *Sorter[L]
	right    *Sorter[R]
}

// NewJoiner creates a join of the given kind on the extracted keys.
func NewJoiner[L, R any, K cmp.Ordered](
	budget *Budget,
	kind JoinKind,
	leftKey func(L) K,
	rightKey func(R) K,
) *Joiner[L, R, K] {
	return &Joiner[L, R, K]{
		kind:     kind,
		leftKey:  leftKey,
		rightKey: rightKey,
		left:     NewSorter(budget, func(a, b L) bool { return leftKey(a) < leftKey(b) }),
		right:    NewSorter(budget, func(a, b R) bool { return rightKey(a) < rightKey(b) }),
	}
}

// AddLeft buffers one probe-side row.
func (j *Joiner[L, R, K]) AddLeft(row L) error { return j.left.Add(row) }

// AddRight buffers one build-side row.
func (j *Joiner[L, R, K]) AddRight(row R) error { return j.right.Add(row) }

// Each merges the two sorted sides and emits joined rows in left-key order.
func (j *Joiner[L, R, K]) Each(fn func(Joined[L, R]) error) error {
	li, err := j.left.Iter()
	if err != nil {
		return err
	}
	defer li.Close()

	ri, err := j.right.Iter()
	if err != nil {
		return err
	}
	defer ri.Close()

	rRow, rOK, err := ri.Next()
	if err != nil {
		return err
	}

	var (
		groupKey  K
		group     []R
		haveGroup bool
	)

	for {
		l, ok, err := li.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		lk := j.leftKey(l)

		// Advance the right side to lk, collecting its key group once;
		// consecutive left rows with the same key reuse it.
		if !haveGroup || groupKey < lk {
			haveGroup = false
			group = group[:0]
			for rOK && j.rightKey(rRow) < lk {
				rRow, rOK, err = ri.Next()
				if err != nil {
					return err
				}
			}
			if rOK && j.rightKey(rRow) == lk {
				groupKey = lk
				haveGroup = true
				for rOK && j.rightKey(rRow) == lk {
					group = append(group, rRow)
					rRow, rOK, err = ri.Next()
					if err != nil {
						return err
					}
				}
			}
		}

		if haveGroup && groupKey == lk {
			for _, r := range group {
				if err := fn(Joined[L, R]{Left: l, Right: r, Matched: true}); err != nil {
					return err
				}
			}
		} else if j.kind == LeftJoin {
			var zero R
			if err := fn(Joined[L, R]{Left: l, Right: zero}); err != nil {
				return err
			}
		}
	}
}
