package table

import (
	"bufio"
	"container/heap"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// Sorter is an external sorter. Rows accumulate in memory until the budget
// is exceeded, at which point the resident rows are sorted and written to a
// scratch run; Iter merges all runs with the resident tail. The merged
// output is identical to a fully in-memory sort for any budget large enough
// to hold one row: a spill boundary never loses or duplicates a row because
// every Add lands in exactly one run (or the tail), and the k-way merge
// consumes each run exactly once.
type Sorter[T any] struct {
	budget *Budget
	less   func(a, b T) bool

	rows  []T
	enc   [][]byte
	bytes int64
	runs  []string
	done  bool
}

// NewSorter creates a sorter ordered by less.
func NewSorter[T any](budget *Budget, less func(a, b T) bool) *Sorter[T] {
	if budget == nil {
		budget = Unbounded()
	}
	return &Sorter[T]{budget: budget, less: less}
}

// Add buffers one row, spilling the resident set if the budget is exceeded.
func (s *Sorter[T]) Add(row T) error {
	if s.done {
		return errors.New("sorter: Add after Iter")
	}
	line, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encoding row: %w", err)
	}
	s.rows = append(s.rows, row)
	s.enc = append(s.enc, line)
	s.bytes += int64(len(line))

	if s.budget.exceeded(s.bytes) {
		if s.budget.Scratch == nil {
			return errors.New("memory budget exceeded and no scratch space configured")
		}
		return s.spill()
	}
	return nil
}

// spill writes the resident rows as one sorted run and resets the buffer.
func (s *Sorter[T]) spill() error {
	order := make([]int, len(s.rows))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return s.less(s.rows[order[i]], s.rows[order[j]])
	})

	rw, err := s.budget.Scratch.CreateRun()
	if err != nil {
		return err
	}
	for _, idx := range order {
		if err := rw.WriteLine(s.enc[idx]); err != nil {
			rw.Close()
			return err
		}
	}
	path, err := rw.Close()
	if err != nil {
		return err
	}

	s.runs = append(s.runs, path)
	s.rows = s.rows[:0]
	s.enc = s.enc[:0]
	s.bytes = 0
	return nil
}

// Iter sorts the resident tail and returns a merged iterator over all runs.
// The sorter cannot accept rows afterwards.
func (s *Sorter[T]) Iter() (*MergeIter[T], error) {
	if s.done {
		return nil, errors.New("sorter: Iter called twice")
	}
	s.done = true
	s.enc = nil

	sort.Slice(s.rows, func(i, j int) bool { return s.less(s.rows[i], s.rows[j]) })

	streams := make([]rowStream[T], 0, len(s.runs)+1)
	for _, path := range s.runs {
		fs, err := openFileStream[T](path)
		if err != nil {
			return nil, err
		}
		streams = append(streams, fs)
	}
	if len(s.rows) > 0 {
		streams = append(streams, &sliceStream[T]{rows: s.rows})
	}
	return newMergeIter(streams, s.less)
}

// rowStream yields rows in sorted order from one run or the resident tail.
type rowStream[T any] interface {
	next() (T, bool, error)
	close() error
}

type sliceStream[T any] struct {
	rows []T
	i    int
}

func (s *sliceStream[T]) next() (T, bool, error) {
	if s.i >= len(s.rows) {
		var zero T
		return zero, false, nil
	}
	row := s.rows[s.i]
	s.i++
	return row, true, nil
}

func (s *sliceStream[T]) close() error { return nil }

type fileStream[T any] struct {
	f  *os.File
	sc *bufio.Scanner
}

func openFileStream[T any](path string) (*fileStream[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening run %s: %w", path, err)
	}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 256*1024), 64*1024*1024)
	return &fileStream[T]{f: f, sc: sc}, nil
}

func (s *fileStream[T]) next() (T, bool, error) {
	var zero T
	if !s.sc.Scan() {
		return zero, false, s.sc.Err()
	}
	var row T
	if err := json.Unmarshal(s.sc.Bytes(), &row); err != nil {
		return zero, false, fmt.Errorf("decoding run row: %w", err)
	}
	return row, true, nil
}

func (s *fileStream[T]) close() error { return s.f.Close() }

// MergeIter is a k-way merge over sorted streams.
type MergeIter[T any] struct {
	streams []rowStream[T]
	h       *mergeHeap[T]
	closed  bool
}

type mergeHead[T any] struct {
	row T
	src int
}

type mergeHeap[T any] struct {
	items []mergeHead[T]
	less  func(a, b T) bool
}

func (h *mergeHeap[T]) Len() int { return len(h.items) }
func (h *mergeHeap[T]) Less(i, j int) bool {
	a, b := h.items[i], h.items[j]
	if h.less(a.row, b.row) {
		return true
	}
	if h.less(b.row, a.row) {
		return false
	}
	return a.src < b.src
}
func (h *mergeHeap[T]) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *mergeHeap[T]) Push(x any)    { h.items = append(h.items, x.(mergeHead[T])) }
func (h *mergeHeap[T]) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

func newMergeIter[T any](streams []rowStream[T], less func(a, b T) bool) (*MergeIter[T], error) {
	it := &MergeIter[T]{
		streams: streams,
		h:       &mergeHeap[T]{less: less},
	}
	for i, s := range streams {
		row, ok, err := s.next()
		if err != nil {
			it.Close()
			return nil, err
		}
		if ok {
			it.h.items = append(it.h.items, mergeHead[T]{row: row, src: i})
		}
	}
	heap.Init(it.h)
	return it, nil
}

// Next returns the smallest remaining row.
func (it *MergeIter[T]) Next() (T, bool, error) {
	var zero T
	if it.h.Len() == 0 {
		return zero, false, nil
	}
	head := heap.Pop(it.h).(mergeHead[T])
	row, ok, err := it.streams[head.src].next()
	if err != nil {
		return zero, false, err
	}
	if ok {
		heap.Push(it.h, mergeHead[T]{row: row, src: head.src})
	}
	return head.row, true, nil
}

// Each drains the iterator through fn and closes it.
func (it *MergeIter[T]) Each(fn func(T) error) error {
	defer it.Close()
	for {
		row, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// Close releases underlying run files.
func (it *MergeIter[T]) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	var first error
	for _, s := range it.streams {
		if err := s.close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
