package backoff

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/LerianStudio/lib-retry/retry/jitter"
	"github.com/LerianStudio/lib-retry/retry/timespan"
)

// Option configures a Backoff at construction time.
type Option func(*Backoff) error

// WithJitter perturbs each computed delay with the given jitter.
func WithJitter(j jitter.Jitter) Option {
	return func(b *Backoff) error {
		b.jit = j

		return nil
	}
}

// WithMaxAttempts limits the number of attempts. Negative values clamp to
// zero, which allows no attempts at all.
func WithMaxAttempts(maxAttempts int) Option {
	return func(b *Backoff) error {
		if maxAttempts < 0 {
			maxAttempts = 0
		}

		b.maxAttempts = &maxAttempts

		return nil
	}
}

// WithUnlimitedAttempts removes the attempt limit (the default).
func WithUnlimitedAttempts() Option {
	return func(b *Backoff) error {
		b.maxAttempts = nil

		return nil
	}
}

// WithMaxDelay caps every computed delay, after jitter, in the configured unit.
func WithMaxDelay(maxDelay float64) Option {
	return func(b *Backoff) error {
		b.maxDelay = &maxDelay

		return nil
	}
}

// WithUnit sets the time unit delays are expressed in. The default is seconds.
func WithUnit(unit timespan.Unit) Option {
	return func(b *Backoff) error {
		if !unit.Valid() {
			return fmt.Errorf("%w: %q", timespan.ErrInvalidUnit, unit)
		}

		b.unit = unit

		return nil
	}
}

// WithUnitString parses and sets the time unit from its string name.
func WithUnitString(unit string) Option {
	return func(b *Backoff) error {
		parsed, err := timespan.ParseUnit(unit)
		if err != nil {
			return err
		}

		b.unit = parsed

		return nil
	}
}

// WithRunsAtStartOfLoop makes the first slot a pre-attempt one: it clears
// attempt 1 without producing a delay, for loops shaped
// `for b.Advance() { ... }`.
func WithRunsAtStartOfLoop() Option {
	return func(b *Backoff) error {
		b.runsAtStartOfLoop = true

		return nil
	}
}

// WithImmediateFirstRetry inserts a synthetic zero delay before the first
// real one. The retry number is not consumed by the synthetic slot, so the
// algorithm sees the first real delay's retry number again on the next step.
func WithImmediateFirstRetry() Option {
	return func(b *Backoff) error {
		b.immediateFirstRetry = true

		return nil
	}
}

// WithDelaysDisabled forces every delay to zero while keeping the
// algorithm's stop/continue decisions.
func WithDelaysDisabled() Option {
	return func(b *Backoff) error {
		b.delaysEnabled = false

		return nil
	}
}

// WithRetriesDisabled makes the machine produce zero attempts.
func WithRetriesDisabled() Option {
	return func(b *Backoff) error {
		b.retriesEnabled = false

		return nil
	}
}

// WithLogger attaches a structured logger for per-step debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Backoff) error {
		if logger == nil {
			logger = zap.NewNop()
		}

		b.logger = logger

		return nil
	}
}

// WithSleeper substitutes the sleep primitive.
func WithSleeper(sleeper Sleeper) Option {
	return func(b *Backoff) error {
		if sleeper == nil {
			sleeper = NewSleeper()
		}

		b.sleeper = sleeper

		return nil
	}
}

// SetMaxAttempts changes the attempt limit before the machine starts; nil
// means unlimited. Negative values clamp to zero. The stop latch is
// re-evaluated, so setting zero stops the machine immediately. Returns
// ErrConfigurationLocked once started.
func (b *Backoff) SetMaxAttempts(maxAttempts *int) error {
	if b.started {
		return ErrConfigurationLocked
	}

	if maxAttempts != nil && *maxAttempts < 0 {
		zero := 0
		maxAttempts = &zero
	}

	b.maxAttempts = copyIntPtr(maxAttempts)
	b.stopped = b.stoppedAtStart()

	return nil
}

// SetMaxDelay changes the delay cap before the machine starts; nil removes it.
func (b *Backoff) SetMaxDelay(maxDelay *float64) error {
	if b.started {
		return ErrConfigurationLocked
	}

	b.maxDelay = copyFloatPtr(maxDelay)

	return nil
}

// SetJitter changes the jitter before the machine starts; nil disables it.
func (b *Backoff) SetJitter(j jitter.Jitter) error {
	if b.started {
		return ErrConfigurationLocked
	}

	b.jit = j

	return nil
}

// SetUnit changes the time unit before the machine starts.
func (b *Backoff) SetUnit(unit timespan.Unit) error {
	if b.started {
		return ErrConfigurationLocked
	}

	if !unit.Valid() {
		return fmt.Errorf("%w: %q", timespan.ErrInvalidUnit, unit)
	}

	b.unit = unit

	return nil
}
