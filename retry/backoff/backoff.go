package backoff

import (
	"context"
	"errors"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/LerianStudio/lib-retry/retry/algorithm"
	"github.com/LerianStudio/lib-retry/retry/jitter"
	"github.com/LerianStudio/lib-retry/retry/timespan"
)

var (
	// ErrNilAlgorithm is returned when a Backoff is constructed without an algorithm.
	ErrNilAlgorithm = errors.New("backoff algorithm must not be nil")

	// ErrConfigurationLocked is returned when a setter is called after the
	// state machine has started. It signals a programming error in the caller.
	ErrConfigurationLocked = errors.New("backoff configuration is locked once the state machine has started")

	// ErrNoAttemptInProgress is returned when EndOfAttempt is called without a
	// matching StartOfAttempt. It signals a programming error in the caller.
	ErrNoAttemptInProgress = errors.New("no attempt is in progress")
)

// Backoff is the delay-calculation state machine. It advances attempt by
// attempt, computing bounded and jittered delays in the configured unit, and
// records one AttemptLog per realized attempt.
//
// A Backoff is not safe for concurrent use; each logical call stack needs its
// own instance.
type Backoff struct {
	alg     algorithm.Algorithm
	jit     jitter.Jitter
	logger  *zap.Logger
	sleeper Sleeper

	maxAttempts         *int
	maxDelay            *float64
	unit                timespan.Unit
	runsAtStartOfLoop   bool
	immediateFirstRetry bool
	delaysEnabled       bool
	retriesEnabled      bool

	started       bool // configuration lock
	active        bool // a run is in progress
	stopped       bool
	attemptNumber *int
	lastDelay     *float64
	delays        []*float64
	retriesSoFar  int
	immediateDone bool

	logs           []*AttemptLog
	openLog        *AttemptLog
	firstAttemptAt time.Time
	overallDelay   float64
	overallWorking float64
}

// New creates a Backoff around the given algorithm. The default configuration
// uses seconds, no jitter, unlimited attempts, and a wall-clock sleeper.
func New(alg algorithm.Algorithm, opts ...Option) (*Backoff, error) {
	if alg == nil {
		return nil, ErrNilAlgorithm
	}

	b := &Backoff{
		alg:            alg,
		logger:         zap.NewNop(),
		sleeper:        NewSleeper(),
		unit:           timespan.UnitSeconds,
		delaysEnabled:  true,
		retriesEnabled: true,
	}

	var err error
	for _, opt := range opts {
		err = multierr.Append(err, opt(b))
	}

	if err != nil {
		return nil, err
	}

	b.stopped = b.stoppedAtStart()

	return b, nil
}

// Step advances the state machine and sleeps for the computed delay, honoring
// context cancellation. It reports whether another attempt should run; a
// non-nil error only ever comes from the context during the sleep.
func (b *Backoff) Step(ctx context.Context) (bool, error) {
	return b.advance(ctx, true)
}

// Advance advances the state machine without sleeping.
func (b *Backoff) Advance() bool {
	proceed, _ := b.advance(context.Background(), false)

	return proceed
}

// advance is the core pipeline: stop checks, algorithm query, jitter,
// bounding, attempt accounting, and the optional sleep.
func (b *Backoff) advance(ctx context.Context, sleep bool) (bool, error) {
	b.activate()

	if b.stopped {
		return false, nil
	}

	// The first slot in start-of-loop mode is the pre-attempt one: it clears
	// attempt 1 without producing a delay.
	if b.runsAtStartOfLoop && b.attemptNumber == nil {
		b.attemptNumber = intPtr(1)
		b.lastDelay = nil
		b.delays = append(b.delays, nil)

		b.logger.Debug("backoff pre-attempt slot", zap.Int("attempt", 1))

		return true, nil
	}

	if b.attemptNumber == nil {
		b.attemptNumber = intPtr(1)
	}

	if b.maxAttempts != nil && *b.attemptNumber+1 > *b.maxAttempts {
		b.stopped = true

		return false, nil
	}

	retryNumber := b.retriesSoFar + 1

	raw, ok := b.alg.NextDelay(retryNumber)
	if !ok {
		b.stopped = true

		return false, nil
	}

	var delay float64

	switch {
	case b.immediateFirstRetry && !b.immediateDone:
		// Synthetic zero slot before the first real delay. The retry number is
		// not consumed, so the next step computes the first real delay.
		b.immediateDone = true
		delay = 0
	case !b.delaysEnabled:
		// The stop/continue decision above still stands; only the delay is forced.
		b.retriesSoFar++
		delay = 0
	default:
		b.retriesSoFar++
		delay = b.boundDelay(raw, retryNumber)
	}

	b.attemptNumber = intPtr(*b.attemptNumber + 1)
	b.lastDelay = &delay
	b.delays = append(b.delays, floatPtr(delay))

	if last := b.lastLogEntry(); last != nil {
		last.setNextDelay(delay)
	}

	b.logger.Debug("backoff delay computed",
		zap.Int("attempt", *b.attemptNumber),
		zap.Int("retry", retryNumber),
		zap.Float64("delay", delay),
		zap.String("unit", b.unit.String()),
	)

	if sleep {
		if err := b.sleeper.Sleep(ctx, b.unit.Duration(delay)); err != nil {
			return true, err
		}
	}

	return true, nil
}

// boundDelay applies jitter then clamps the result to [0, maxDelay].
// Comparisons happen in the configured unit, before any conversion.
func (b *Backoff) boundDelay(raw float64, retryNumber int) float64 {
	if b.jit != nil {
		raw = b.jit.Apply(raw, retryNumber)
	}

	if raw < 0 {
		raw = 0
	}

	if b.maxDelay != nil && raw > *b.maxDelay {
		raw = *b.maxDelay
	}

	return raw
}

// StartOfAttempt marks the beginning of an attempt: it finalizes the previous
// open log, realizes the pending delay, and opens a new AttemptLog.
func (b *Backoff) StartOfAttempt() *AttemptLog {
	b.activate()

	now := time.Now()

	if b.openLog != nil {
		b.finalizeOpenLog(now)
	}

	if b.attemptNumber == nil {
		b.attemptNumber = intPtr(1)
	}

	if b.firstAttemptAt.IsZero() {
		b.firstAttemptAt = now
	}

	var prevDelay *float64

	if b.lastDelay != nil {
		prevDelay = floatPtr(*b.lastDelay)
		b.overallDelay += *b.lastDelay
		b.lastDelay = nil
	}

	entry := &AttemptLog{
		attemptNumber:          *b.attemptNumber,
		maxAttempts:            copyIntPtr(b.maxAttempts),
		firstAttemptOccurredAt: b.firstAttemptAt,
		thisAttemptOccurredAt:  now,
		prevDelay:              prevDelay,
		overallDelay:           b.overallDelay,
		unit:                   b.unit,
	}

	b.openLog = entry
	b.logs = append(b.logs, entry)

	return entry
}

// EndOfAttempt marks the end of the attempt opened by StartOfAttempt,
// finalizing its working time. Calling it without an open attempt returns
// ErrNoAttemptInProgress.
func (b *Backoff) EndOfAttempt() error {
	if b.openLog == nil {
		return ErrNoAttemptInProgress
	}

	b.finalizeOpenLog(time.Now())

	return nil
}

func (b *Backoff) finalizeOpenLog(now time.Time) {
	entry := b.openLog

	working := timespan.FromDuration(now.Sub(entry.thisAttemptOccurredAt), b.unit)
	b.overallWorking += working

	entry.workingTime = floatPtr(working)
	entry.overallWorkingTime = floatPtr(b.overallWorking)
	entry.finalized = true

	b.openLog = nil
}

// Sleep blocks for the pending delay, honoring context cancellation. With no
// pending delay it returns immediately.
func (b *Backoff) Sleep(ctx context.Context) error {
	b.activate()

	if b.lastDelay == nil {
		return nil
	}

	return b.sleeper.Sleep(ctx, b.unit.Duration(*b.lastDelay))
}

// Reset returns the machine to NotStarted: the attempt counter, stop latch,
// and pending delay clear, and configuration unlocks. Logs are truncated
// lazily, on the next state-changing call, so pure queries after Reset still
// observe the previous run.
func (b *Backoff) Reset() {
	b.started = false
	b.active = false
	b.stopped = b.stoppedAtStart()
	b.attemptNumber = nil
	b.lastDelay = nil
	b.retriesSoFar = 0
	b.immediateDone = false
}

// activate latches the configuration lock and, when a run is not already in
// progress, clears the previous run's logs and counters.
func (b *Backoff) activate() {
	b.started = true

	if b.active {
		return
	}

	b.active = true
	b.stopped = b.stoppedAtStart()
	b.attemptNumber = nil
	b.lastDelay = nil
	b.delays = nil
	b.retriesSoFar = 0
	b.immediateDone = false
	b.logs = nil
	b.openLog = nil
	b.firstAttemptAt = time.Time{}
	b.overallDelay = 0
	b.overallWorking = 0
}

// stoppedAtStart reports whether the configuration forbids any attempt.
func (b *Backoff) stoppedAtStart() bool {
	if !b.retriesEnabled {
		return true
	}

	return b.maxAttempts != nil && *b.maxAttempts == 0
}

// CurrentAttemptNumber returns the 1-based attempt counter, or nil before the
// machine has started.
func (b *Backoff) CurrentAttemptNumber() *int {
	return copyIntPtr(b.attemptNumber)
}

// HasStopped reports whether the machine will produce no further attempts.
func (b *Backoff) HasStopped() bool {
	return b.stopped
}

// IsLastAttempt reports whether the current attempt is the final one allowed.
func (b *Backoff) IsLastAttempt() bool {
	if b.stopped {
		return true
	}

	if b.maxAttempts == nil {
		return false
	}

	if b.attemptNumber == nil {
		return *b.maxAttempts == 0
	}

	return *b.attemptNumber >= *b.maxAttempts
}

// CanContinue reports whether a further attempt is available.
func (b *Backoff) CanContinue() bool {
	return !b.IsLastAttempt()
}

// Delay returns the most recently computed delay in the configured unit, or
// nil when none is pending.
func (b *Backoff) Delay() *float64 {
	return copyFloatPtr(b.lastDelay)
}

// DelayIn returns the pending delay converted to the given unit.
func (b *Backoff) DelayIn(unit timespan.Unit) *float64 {
	return timespan.Convert(b.lastDelay, b.unit, unit)
}

// Delays returns every delay produced this run, in order. The pre-attempt
// slot of start-of-loop mode appears as nil.
func (b *Backoff) Delays() []*float64 {
	out := make([]*float64, len(b.delays))
	for i, d := range b.delays {
		out[i] = copyFloatPtr(d)
	}

	return out
}

// DelaysIn returns every delay produced this run, converted to the given unit.
func (b *Backoff) DelaysIn(unit timespan.Unit) []*float64 {
	return timespan.ConvertSlice(b.delays, b.unit, unit)
}

// Logs returns the attempt logs recorded this run, in order.
func (b *Backoff) Logs() []*AttemptLog {
	out := make([]*AttemptLog, len(b.logs))
	copy(out, b.logs)

	return out
}

// CurrentLog returns the most recently opened attempt log, or nil.
func (b *Backoff) CurrentLog() *AttemptLog {
	return b.lastLogEntry()
}

// Unit returns the configured time unit.
func (b *Backoff) Unit() timespan.Unit {
	return b.unit
}

// MaxAttempts returns the configured attempt limit, or nil for unlimited.
func (b *Backoff) MaxAttempts() *int {
	return copyIntPtr(b.maxAttempts)
}

func (b *Backoff) lastLogEntry() *AttemptLog {
	if len(b.logs) == 0 {
		return nil
	}

	return b.logs[len(b.logs)-1]
}

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

func copyIntPtr(v *int) *int {
	if v == nil {
		return nil
	}

	return intPtr(*v)
}

func copyFloatPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}

	return floatPtr(*v)
}
