package logger

import (
	"sync"
	"time"
)

// ProgressTracker reports progress of long-running bulk operations such as
// syncing remote lines for every order in a report. It logs at most once per
// interval to avoid flooding the output on large batches.
type ProgressTracker struct {
	logger    Logger
	operation string
	total     int
	interval  time.Duration

	mu        sync.Mutex
	completed int
	failed    int
	started   time.Time
	lastLog   time.Time
}

// NewProgressTracker creates a tracker for an operation over total items
func NewProgressTracker(log Logger, operation string, total int) *ProgressTracker {
	return &ProgressTracker{
		logger:    log.WithComponent("progress"),
		operation: operation,
		total:     total,
		interval:  2 * time.Second,
		started:   time.Now(),
	}
}

// Increment records one completed item
func (pt *ProgressTracker) Increment() {
	pt.record(false)
}

// Fail records one failed item
func (pt *ProgressTracker) Fail() {
	pt.record(true)
}

func (pt *ProgressTracker) record(failed bool) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if failed {
		pt.failed++
	} else {
		pt.completed++
	}

	done := pt.completed + pt.failed
	if done != pt.total && time.Since(pt.lastLog) < pt.interval {
		return
	}
	pt.lastLog = time.Now()

	percent := 0.0
	if pt.total > 0 {
		percent = float64(done) / float64(pt.total) * 100
	}

	pt.logger.WithFields(Fields{
		"operation": pt.operation,
		"completed": pt.completed,
		"failed":    pt.failed,
		"total":     pt.total,
		"percent":   percent,
		"elapsed":   time.Since(pt.started).Round(time.Millisecond).String(),
	}).Info("Progress")
}

// Summary returns completed and failed counts
func (pt *ProgressTracker) Summary() (completed, failed int) {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.completed, pt.failed
}
