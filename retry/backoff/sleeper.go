package backoff

import (
	"context"
	"fmt"
	"time"

	"github.com/LerianStudio/lib-retry/retry/timespan"
)

// Sleeper is the sleep primitive used between attempts. It is substitutable
// with a tracker for tests and measurements.
type Sleeper interface {
	Sleep(ctx context.Context, duration time.Duration) error
}

// wallClockSleeper blocks on a timer while respecting context cancellation.
type wallClockSleeper struct{}

// NewSleeper returns the default wall-clock sleeper.
func NewSleeper() Sleeper {
	return wallClockSleeper{}
}

// Sleep blocks for the given duration. Returns nil if the sleep completes, or
// an error if the context is cancelled first. Returns immediately for zero or
// negative durations.
func (wallClockSleeper) Sleep(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context done: %w", ctx.Err())
	}
}

// SleepTracker records sleep requests without blocking.
type SleepTracker struct {
	unit  timespan.Unit
	count int
	total time.Duration
}

// Sleep implements Sleeper by recording the request and returning immediately.
func (t *SleepTracker) Sleep(_ context.Context, duration time.Duration) error {
	t.count++

	if duration > 0 {
		t.total += duration
	}

	return nil
}

// Count returns how many times a sleep was requested.
func (t *SleepTracker) Count() int {
	return t.count
}

// TotalSlept returns the total requested sleep time in the owning Backoff's
// configured unit.
func (t *SleepTracker) TotalSlept() float64 {
	return timespan.FromDuration(t.total, t.unit)
}

// UseTracker installs a tracker that intercepts the sleep operation,
// recording call count and total requested duration without blocking.
func (b *Backoff) UseTracker() *SleepTracker {
	tracker := &SleepTracker{unit: b.unit}
	b.sleeper = tracker

	return tracker
}
