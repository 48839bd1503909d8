package table

// Budget bounds the working set of a primitive. When resident rows exceed
// MemoryBytes the primitive spills to Scratch; a nil Scratch with an
// exceeded budget is an error rather than silent unbounded growth.
type Budget struct {
	MemoryBytes int64
	Scratch     *Scratch
}

// Unbounded returns a budget that never spills. Used in tests and for
// small intermediate results whose size is bounded by construction.
func Unbounded() *Budget {
	return &Budget{MemoryBytes: 0}
}

// exceeded reports whether resident bytes are over budget. A zero
// MemoryBytes means unbounded.
func (b *Budget) exceeded(resident int64) bool {
	return b != nil && b.MemoryBytes > 0 && resident > b.MemoryBytes
}
