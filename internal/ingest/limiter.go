package ingest

// limiter.go bounds how many import runs execute at once in one process.
//
// Each run writes up to a full sub-batch concurrently, so unbounded parallel
// runs multiply the connection demand on the store. A run that cannot get a
// slot within the wait time fails with ErrTooManyRuns.

import (
	"context"
	"sync/atomic"
	"time"
)

// Defaults used when the configured values are not positive.
const (
	DefaultMaxConcurrentRuns = 2
	DefaultMaxWait           = 30 * time.Second
)

// RunLimiter is a counting semaphore for import runs.
type RunLimiter struct {
	slots   chan struct{}
	maxWait time.Duration
	active  atomic.Int64
}

// NewRunLimiter allows at most maxConcurrent simultaneous runs.
func NewRunLimiter(maxConcurrent int, maxWait time.Duration) *RunLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRuns
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &RunLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire waits for a free slot. It returns ErrTooManyRuns when maxWait
// elapses and ctx.Err() when ctx ends first. Every successful Acquire must be
// paired with Release.
func (l *RunLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyRuns
	}
}

// Release frees a slot taken by Acquire.
func (l *RunLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// Active returns the number of runs holding a slot.
func (l *RunLimiter) Active() int {
	return int(l.active.Load())
}
