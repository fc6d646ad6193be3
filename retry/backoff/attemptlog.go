package backoff

import (
	"time"

	"github.com/LerianStudio/lib-retry/retry/timespan"
)

// AttemptLog records one attempt's timing and delay facts. It is created when
// the attempt begins and finalized when the attempt ends or the next one
// begins, whichever comes first; only the owning Backoff mutates it.
//
// Delay and working-time values are expressed in the Backoff's configured
// unit; the ...In accessors convert on the way out.
type AttemptLog struct {
	attemptNumber          int
	maxAttempts            *int
	firstAttemptOccurredAt time.Time
	thisAttemptOccurredAt  time.Time
	workingTime            *float64
	overallWorkingTime     *float64
	prevDelay              *float64
	nextDelay              *float64
	overallDelay           float64
	unit                   timespan.Unit
	finalized              bool
}

// AttemptNumber returns the 1-based number of this attempt.
func (l *AttemptLog) AttemptNumber() int {
	return l.attemptNumber
}

// MaxAttempts returns the attempt limit snapshotted when the attempt began,
// or nil for unlimited.
func (l *AttemptLog) MaxAttempts() *int {
	return copyIntPtr(l.maxAttempts)
}

// FirstAttemptOccurredAt returns when the run's first attempt began.
func (l *AttemptLog) FirstAttemptOccurredAt() time.Time {
	return l.firstAttemptOccurredAt
}

// ThisAttemptOccurredAt returns when this attempt began.
func (l *AttemptLog) ThisAttemptOccurredAt() time.Time {
	return l.thisAttemptOccurredAt
}

// WorkingTime returns the time spent inside the operation for this attempt,
// or nil while the attempt is still open.
func (l *AttemptLog) WorkingTime() *float64 {
	return copyFloatPtr(l.workingTime)
}

// OverallWorkingTime returns the cumulative working time across attempts so
// far, or nil while the attempt is still open.
func (l *AttemptLog) OverallWorkingTime() *float64 {
	return copyFloatPtr(l.overallWorkingTime)
}

// PrevDelay returns the delay that preceded this attempt, or nil for the
// first attempt.
func (l *AttemptLog) PrevDelay() *float64 {
	return copyFloatPtr(l.prevDelay)
}

// NextDelay returns the delay computed after this attempt, or nil when none
// has been computed (yet, or ever for the final attempt).
func (l *AttemptLog) NextDelay() *float64 {
	return copyFloatPtr(l.nextDelay)
}

// OverallDelay returns the cumulative sum of realized delays up to and
// including PrevDelay, excluding any pending one.
func (l *AttemptLog) OverallDelay() float64 {
	return l.overallDelay
}

// Unit returns the unit this log's values are expressed in.
func (l *AttemptLog) Unit() timespan.Unit {
	return l.unit
}

// WorkingTimeIn converts WorkingTime to the given unit.
func (l *AttemptLog) WorkingTimeIn(unit timespan.Unit) *float64 {
	return timespan.Convert(l.workingTime, l.unit, unit)
}

// OverallWorkingTimeIn converts OverallWorkingTime to the given unit.
func (l *AttemptLog) OverallWorkingTimeIn(unit timespan.Unit) *float64 {
	return timespan.Convert(l.overallWorkingTime, l.unit, unit)
}

// PrevDelayIn converts PrevDelay to the given unit.
func (l *AttemptLog) PrevDelayIn(unit timespan.Unit) *float64 {
	return timespan.Convert(l.prevDelay, l.unit, unit)
}

// NextDelayIn converts NextDelay to the given unit.
func (l *AttemptLog) NextDelayIn(unit timespan.Unit) *float64 {
	return timespan.Convert(l.nextDelay, l.unit, unit)
}

// OverallDelayIn converts OverallDelay to the given unit.
func (l *AttemptLog) OverallDelayIn(unit timespan.Unit) *float64 {
	return timespan.Convert(&l.overallDelay, l.unit, unit)
}

// setNextDelay is called by the owning Backoff when the step following this
// attempt computes its delay. It is the one field written after finalization.
func (l *AttemptLog) setNextDelay(delay float64) {
	l.nextDelay = &delay
}
