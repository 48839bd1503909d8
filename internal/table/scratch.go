// Package table provides the join/aggregation primitives shared by all
// detectors: external sort, sort-merge equi-join, grouped aggregation,
// order-statistic percentiles, and ordered-partition windows. Every
// primitive operates under a memory budget and spills sorted runs to a
// scoped scratch arena when the budget is exceeded.
package table

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
)

// ErrScratchExhausted is returned when a spill would push scratch usage past
// the configured ceiling. Exceeding the memory budget triggers a spill;
// exceeding the scratch ceiling fails the run.
var ErrScratchExhausted = errors.New("scratch space ceiling exceeded")

// Scratch is a scoped spill arena: a private directory with a total-size
// ceiling shared by all writers. Close removes the directory on both
// success and failure paths.
type Scratch struct {
	dir   string
	limit int64
	used  atomic.Int64
	seq   atomic.Int64
}

// NewScratch creates a scratch arena under parent (the OS temp dir when
// empty). limit <= 0 means unlimited.
func NewScratch(parent string, limit int64) (*Scratch, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	dir, err := os.MkdirTemp(parent, "fraudsig-scratch-*")
	if err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}
	return &Scratch{dir: dir, limit: limit}, nil
}

// Dir returns the arena directory.
func (s *Scratch) Dir() string { return s.dir }

// Used returns total bytes written to the arena.
func (s *Scratch) Used() int64 { return s.used.Load() }

// Close tears the arena down, removing all run files.
func (s *Scratch) Close() error {
	return os.RemoveAll(s.dir)
}

// reserve accounts n bytes against the ceiling.
func (s *Scratch) reserve(n int64) error {
	used := s.used.Add(n)
	if s.limit > 0 && used > s.limit {
		s.used.Add(-n)
		return fmt.Errorf("%w: %d bytes used, limit %d", ErrScratchExhausted, used, s.limit)
	}
	return nil
}

// CreateRun opens a new spill run file in the arena.
func (s *Scratch) CreateRun() (*RunWriter, error) {
	name := filepath.Join(s.dir, fmt.Sprintf("run-%06d.jsonl", s.seq.Add(1)))
	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("creating run file: %w", err)
	}
	return &RunWriter{scratch: s, f: f, w: bufio.NewWriterSize(f, 256*1024), path: name}, nil
}

// RunWriter writes one sorted run as JSON lines, charging every byte
// against the arena ceiling.
type RunWriter struct {
	scratch *Scratch
	f       *os.File
	w       *bufio.Writer
	path    string
}

// WriteLine appends one encoded row plus newline.
func (rw *RunWriter) WriteLine(line []byte) error {
	if err := rw.scratch.reserve(int64(len(line)) + 1); err != nil {
		return err
	}
	if _, err := rw.w.Write(line); err != nil {
		return err
	}
	return rw.w.WriteByte('\n')
}

// Close flushes and closes the run file, returning its path.
func (rw *RunWriter) Close() (string, error) {
	if err := rw.w.Flush(); err != nil {
		rw.f.Close()
		return "", err
	}
	if err := rw.f.Close(); err != nil {
		return "", err
	}
	return rw.path, nil
}
