package table

import (
	"math/rand"
	"sort"
	"testing"
)

type kv struct {
	K int    `json:"k"`
	V string `json:"v"`
}

func kvLess(a, b kv) bool {
	if a.K != b.K {
		return a.K < b.K
	}
	return a.V < b.V
}

// tinyBudget forces a spill on nearly every Add.
func tinyBudget(t *testing.T) *Budget {
	t.Helper()
	s, err := NewScratch(t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return &Budget{MemoryBytes: 1, Scratch: s}
}

func drain[T any](t *testing.T, it *MergeIter[T]) []T {
	t.Helper()
	var out []T
	if err := it.Each(func(row T) error {
		out = append(out, row)
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	return out
}

func randomRows(n int, seed int64) []kv {
	rng := rand.New(rand.NewSource(seed))
	rows := make([]kv, n)
	for i := range rows {
		rows[i] = kv{K: rng.Intn(n / 4), V: string(rune('a' + rng.Intn(26)))}
	}
	return rows
}

func TestSorter_InMemory(t *testing.T) {
	s := NewSorter(Unbounded(), kvLess)
	rows := randomRows(500, 1)
	for _, r := range rows {
		if err := s.Add(r); err != nil {
			t.Fatal(err)
		}
	}

	it, err := s.Iter()
	if err != nil {
		t.Fatal(err)
	}
	got := drain(t, it)

	want := make([]kv, len(rows))
	copy(want, rows)
	sort.Slice(want, func(i, j int) bool { return kvLess(want[i], want[j]) })

	if len(got) != len(want) {
		t.Fatalf("row count %d, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSorter_SpillMatchesInMemory(t *testing.T) {
	rows := randomRows(500, 2)

	mem := NewSorter(Unbounded(), kvLess)
	spill := NewSorter(tinyBudget(t), kvLess)
	for _, r := range rows {
		if err := mem.Add(r); err != nil {
			t.Fatal(err)
		}
		if err := spill.Add(r); err != nil {
			t.Fatal(err)
		}
	}

	mi, err := mem.Iter()
	if err != nil {
		t.Fatal(err)
	}
	si, err := spill.Iter()
	if err != nil {
		t.Fatal(err)
	}
	memRows := drain(t, mi)
	spillRows := drain(t, si)

	if len(memRows) != len(spillRows) {
		t.Fatalf("spilled sort lost rows: %d vs %d", len(spillRows), len(memRows))
	}
	for i := range memRows {
		if memRows[i] != spillRows[i] {
			t.Fatalf("row %d differs: spilled %+v, in-memory %+v", i, spillRows[i], memRows[i])
		}
	}
}

func TestSorter_SpillWithoutScratchFails(t *testing.T) {
	s := NewSorter(&Budget{MemoryBytes: 1}, kvLess)
	if err := s.Add(kv{K: 1, V: "a"}); err == nil {
		t.Fatal("expected error when budget is exceeded with no scratch configured")
	}
}

func TestSorter_AddAfterIterFails(t *testing.T) {
	s := NewSorter(Unbounded(), kvLess)
	if err := s.Add(kv{K: 1}); err != nil {
		t.Fatal(err)
	}
	it, err := s.Iter()
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()

	if err := s.Add(kv{K: 2}); err == nil {
		t.Error("expected error for Add after Iter")
	}
	if _, err := s.Iter(); err == nil {
		t.Error("expected error for second Iter")
	}
}

func TestSorter_Empty(t *testing.T) {
	s := NewSorter(Unbounded(), kvLess)
	it, err := s.Iter()
	if err != nil {
		t.Fatal(err)
	}
	if got := drain(t, it); len(got) != 0 {
		t.Errorf("expected no rows, got %d", len(got))
	}
}
