package progress

import (
	"fmt"
	"sync/atomic"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Tracker tracks progress for a single task (a dataset load or a detector).
type Tracker interface {
	SetStage(stage string)
	SetRows(rows int64)
	Done()
}

// Manager creates trackers for individual tasks.
type Manager interface {
	NewTracker(index, total int, name string) Tracker
	Wait()
}

// MPBManager implements Manager using the mpb multi-progress-bar library.
// Totals are unknown up front (row counts are discovered while streaming),
// so each task renders as a spinner with a live row counter and stage label.
type MPBManager struct {
	container *mpb.Progress
}

// NewMPBManager creates a new mpb-based progress manager.
func NewMPBManager() *MPBManager {
	return &MPBManager{container: mpb.New(mpb.WithWidth(16))}
}

func (m *MPBManager) NewTracker(index, total int, name string) Tracker {
	stageVal := &atomic.Value{}
	stageVal.Store("")
	rows := &atomic.Int64{}

	bar := m.container.AddSpinner(-1,
		mpb.PrependDecorators(
			decor.Name(fmt.Sprintf("[%d/%d] %s ", index+1, total, name), decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.Any(func(s decor.Statistics) string {
				stage := stageVal.Load().(string)
				if n := rows.Load(); n > 0 {
					return fmt.Sprintf("%s  %d rows", stage, n)
				}
				return stage
			}),
		),
		mpb.BarFillerClearOnComplete(),
	)

	return &mpbTracker{bar: bar, stagePtr: stageVal, rows: rows}
}

// Wait waits for all progress bars to finish.
func (m *MPBManager) Wait() {
	m.container.Wait()
}

type mpbTracker struct {
	bar      *mpb.Bar
	stagePtr *atomic.Value
	rows     *atomic.Int64
}

func (t *mpbTracker) SetStage(stage string) {
	t.stagePtr.Store(stage)
}

func (t *mpbTracker) SetRows(rows int64) {
	t.rows.Store(rows)
	t.bar.Increment()
}

func (t *mpbTracker) Done() {
	t.bar.SetTotal(-1, true)
}

// NoopManager is a no-op progress manager for non-interactive use.
type NoopManager struct{}

func (m *NoopManager) NewTracker(index, total int, name string) Tracker {
	return &noopTracker{}
}

func (m *NoopManager) Wait() {}

type noopTracker struct{}

func (t *noopTracker) SetStage(stage string) {}
func (t *noopTracker) SetRows(rows int64)    {}
func (t *noopTracker) Done()                 {}
