package progress

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// LogManager implements Manager with throttled line-based output for
// non-TTY environments (e.g. CI, cron). Prints periodic status lines
// instead of interactive progress bars.
type LogManager struct {
	mu sync.Mutex
}

// NewLogManager creates a new log-based progress manager.
func NewLogManager() *LogManager {
	return &LogManager{}
}

func (m *LogManager) NewTracker(index, total int, name string) Tracker {
	return &logTracker{
		mgr:   m,
		index: index,
		total: total,
		name:  name,
		start: time.Now(),
	}
}

func (m *LogManager) Wait() {}

// logTracker implements Tracker with throttled log output.
type logTracker struct {
	mgr     *LogManager
	index   int
	total   int
	name    string
	start   time.Time
	stage   string
	rows    int64
	lastLog time.Time
}

const logInterval = 20 * time.Second

func (t *logTracker) log(msg string) {
	t.mgr.mu.Lock()
	defer t.mgr.mu.Unlock()
	ts := time.Now().Format("15:04:05")
	fmt.Fprintf(os.Stderr, "%s [%d/%d] %s  %s\n", ts, t.index+1, t.total, t.name, msg)
}

func (t *logTracker) SetStage(stage string) {
	t.stage = stage
	t.lastLog = time.Time{} // reset throttle so next row update prints
	t.log(stage)
}

func (t *logTracker) SetRows(rows int64) {
	t.rows = rows
	now := time.Now()
	if now.Sub(t.lastLog) < logInterval {
		return
	}
	t.lastLog = now
	t.log(fmt.Sprintf("%s  %d rows", t.stage, rows))
}

func (t *logTracker) Done() {
	t.log(fmt.Sprintf("done  %d rows in %.1fs", t.rows, time.Since(t.start).Seconds()))
}
