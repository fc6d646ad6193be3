package runner

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/LerianStudio/lib-retry/retry/backoff"
	"github.com/LerianStudio/lib-retry/retry/timespan"
)

// ErrNoAttempts is returned when a run's configuration allowed no attempts at
// all and no default value was available.
var ErrNoAttempts = errors.New("retry configuration allowed no attempts")

// Operation is the user-supplied work to retry.
type Operation func() (any, error)

// ErrorCallback observes a failed attempt. The willRetry flag reports whether
// another attempt will follow. A non-nil return aborts the run.
type ErrorCallback func(err error, log *backoff.AttemptLog, willRetry bool) error

// ResultCallback observes an attempt whose result was deemed unsatisfactory.
// A non-nil return aborts the run.
type ResultCallback func(result any, log *backoff.AttemptLog, willRetry bool) error

// RunCallback observes the end of a run with the full ordered log sequence.
// A non-nil return aborts the run.
type RunCallback func(logs []*backoff.AttemptLog) error

// Runner orchestrates a retry loop around a user operation, driven by a
// Backoff. It decides retry-worthiness from error matchers and result
// predicates, invokes callbacks, and resolves final values from defaults.
//
// A Runner is reusable across sequential runs but, like its Backoff, is not
// safe for concurrent use.
type Runner struct {
	backoff *backoff.Backoff
	logger  *zap.Logger
	metrics *runMetrics

	errorMatchers  []ErrorMatcher
	catchNothing   bool
	resultMatchers []ResultMatcher
	untilMode      bool

	onError         []ErrorCallback
	onInvalidResult []ResultCallback
	onSuccess       []RunCallback
	onFailure       []RunCallback
	onFinally       []RunCallback
}

// Option configures a Runner at construction time.
type Option func(*Runner)

// WithLogger attaches a structured logger. Runs log under a per-run id.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMeter enables OpenTelemetry instrumentation through the given meter.
func WithMeter(meter metric.Meter) Option {
	return func(r *Runner) {
		metrics, err := newRunMetrics(meter)
		if err != nil {
			r.logger.Warn("retry metrics disabled", zap.Error(err))

			return
		}

		r.metrics = metrics
	}
}

// New creates a Runner around the given Backoff, which must not be nil.
// By default every error is considered retry-worthy and every result is
// accepted.
func New(b *backoff.Backoff, opts ...Option) *Runner {
	r := &Runner{
		backoff: b,
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// RetryOnErrors adds matchers deciding which errors are retry-worthy.
// Repeated calls accumulate as a union. Registering matchers replaces the
// default catch-everything behavior.
func (r *Runner) RetryOnErrors(matchers ...ErrorMatcher) *Runner {
	r.catchNothing = false
	r.errorMatchers = append(r.errorMatchers, matchers...)

	return r
}

// RetryAllErrors clears the matcher set, restoring the default behavior of
// treating every error as retry-worthy.
func (r *Runner) RetryAllErrors() *Runner {
	r.catchNothing = false
	r.errorMatchers = nil

	return r
}

// DisableErrorRetries makes every error terminal: the first failure ends the
// run.
func (r *Runner) DisableErrorRetries() *Runner {
	r.catchNothing = true
	r.errorMatchers = nil

	return r
}

// RetryWhen retries while the result matches any of the given matchers.
// Repeated calls accumulate; calling it after RetryUntil clears the until
// set, as the two are mutually exclusive.
func (r *Runner) RetryWhen(matchers ...ResultMatcher) *Runner {
	if r.untilMode {
		r.resultMatchers = nil
		r.untilMode = false
	}

	r.resultMatchers = append(r.resultMatchers, matchers...)

	return r
}

// RetryUntil retries until the result matches any of the given matchers.
// Repeated calls accumulate; calling it after RetryWhen clears the when set.
func (r *Runner) RetryUntil(matchers ...ResultMatcher) *Runner {
	if !r.untilMode {
		r.resultMatchers = nil
		r.untilMode = true
	}

	r.resultMatchers = append(r.resultMatchers, matchers...)

	return r
}

// OnError registers callbacks fired once per failed attempt.
func (r *Runner) OnError(callbacks ...ErrorCallback) *Runner {
	r.onError = append(r.onError, callbacks...)

	return r
}

// OnInvalidResult registers callbacks fired once per unsatisfactory result.
func (r *Runner) OnInvalidResult(callbacks ...ResultCallback) *Runner {
	r.onInvalidResult = append(r.onInvalidResult, callbacks...)

	return r
}

// OnSuccess registers callbacks fired exactly once when a run ends with an
// accepted result.
func (r *Runner) OnSuccess(callbacks ...RunCallback) *Runner {
	r.onSuccess = append(r.onSuccess, callbacks...)

	return r
}

// OnFailure registers callbacks fired exactly once when a run ends without an
// accepted result, whether the outcome is a default value, a raw invalid
// result, or an error.
func (r *Runner) OnFailure(callbacks ...RunCallback) *Runner {
	r.onFailure = append(r.onFailure, callbacks...)

	return r
}

// OnFallback is an alias for OnFailure.
func (r *Runner) OnFallback(callbacks ...RunCallback) *Runner {
	return r.OnFailure(callbacks...)
}

// OnFinally registers callbacks fired exactly once per run, after success or
// failure callbacks, even when an error is about to be returned.
func (r *Runner) OnFinally(callbacks ...RunCallback) *Runner {
	r.onFinally = append(r.onFinally, callbacks...)

	return r
}

// Backoff returns the strategy this runner drives.
func (r *Runner) Backoff() *backoff.Backoff {
	return r.backoff
}

// Attempt runs the operation until it yields an accepted result, the error
// matchers deem a failure terminal, or the Backoff runs out of attempts.
//
// The final value resolves in strict precedence: a matching matcher's own
// default, then attemptDefault, then the operation's outcome itself (the
// error is returned unchanged; an unaccepted result is returned as-is).
func (r *Runner) Attempt(ctx context.Context, op Operation, attemptDefault ...any) (any, error) {
	b := r.backoff
	b.Reset()

	logger := r.logger.With(zap.String("run_id", uuid.NewString()))

	var defValue any

	hasDefault := len(attemptDefault) > 0
	if hasDefault {
		defValue = attemptDefault[0]
	}

	if b.HasStopped() {
		logger.Warn("retry run allowed no attempts")

		// The lazy log truncation after Reset never triggers on this path, so
		// the previous run's logs must not leak into the callbacks.
		if hasDefault {
			return r.finishFailure(ctx, logger, nil, defValue, true, nil)
		}

		return r.finishFailure(ctx, logger, nil, nil, false, ErrNoAttempts)
	}

	for {
		entry := b.StartOfAttempt()
		result, opErr := op()

		// The log opened by StartOfAttempt above is still open, so this cannot
		// return ErrNoAttemptInProgress.
		_ = b.EndOfAttempt()

		if opErr != nil {
			resolved, done, err := r.handleError(ctx, logger, entry, opErr, defValue, hasDefault)
			if done {
				return resolved, err
			}

			continue
		}

		matcher, invalid := r.matchResult(result, entry)
		if !invalid {
			r.metrics.recordAttempt(ctx, outcomeSuccess)

			return r.finishSuccess(ctx, logger, result)
		}

		resolved, done, err := r.handleInvalidResult(ctx, logger, entry, result, matcher, defValue, hasDefault)
		if done {
			return resolved, err
		}
	}
}

// handleError processes a failed attempt. done reports whether the run ended.
func (r *Runner) handleError(
	ctx context.Context,
	logger *zap.Logger,
	entry *backoff.AttemptLog,
	opErr error,
	defValue any,
	hasDefault bool,
) (any, bool, error) {
	matcher, matched := r.matchError(opErr, entry)
	willRetry := matched && r.backoff.CanContinue()

	r.metrics.recordAttempt(ctx, outcomeFailure)

	for _, cb := range r.onError {
		if cbErr := cb(opErr, entry, willRetry); cbErr != nil {
			resolved, err := r.abort(ctx, logger, cbErr)

			return resolved, true, err
		}
	}

	logger.Warn("attempt failed",
		zap.Int("attempt", entry.AttemptNumber()),
		zap.Bool("will_retry", willRetry),
		zap.Error(opErr),
	)

	if willRetry {
		proceeded, stepErr := r.step(ctx)
		if stepErr != nil {
			resolved, err := r.finishFailure(ctx, logger, r.backoff.Logs(), nil, false, stepErr)

			return resolved, true, err
		}

		if proceeded {
			return nil, false, nil
		}
	}

	if matched && matcher.hasDefault {
		resolved, err := r.finishFailure(ctx, logger, r.backoff.Logs(), matcher.def, true, nil)

		return resolved, true, err
	}

	if hasDefault {
		resolved, err := r.finishFailure(ctx, logger, r.backoff.Logs(), defValue, true, nil)

		return resolved, true, err
	}

	resolved, err := r.finishFailure(ctx, logger, r.backoff.Logs(), nil, false, opErr)

	return resolved, true, err
}

// handleInvalidResult processes an unsatisfactory result. done reports
// whether the run ended.
func (r *Runner) handleInvalidResult(
	ctx context.Context,
	logger *zap.Logger,
	entry *backoff.AttemptLog,
	result any,
	matcher ResultMatcher,
	defValue any,
	hasDefault bool,
) (any, bool, error) {
	willRetry := r.backoff.CanContinue()

	r.metrics.recordAttempt(ctx, outcomeFailure)

	for _, cb := range r.onInvalidResult {
		if cbErr := cb(result, entry, willRetry); cbErr != nil {
			resolved, err := r.abort(ctx, logger, cbErr)

			return resolved, true, err
		}
	}

	logger.Debug("attempt result rejected",
		zap.Int("attempt", entry.AttemptNumber()),
		zap.Bool("will_retry", willRetry),
	)

	if willRetry {
		proceeded, stepErr := r.step(ctx)
		if stepErr != nil {
			resolved, err := r.finishFailure(ctx, logger, r.backoff.Logs(), nil, false, stepErr)

			return resolved, true, err
		}

		if proceeded {
			return nil, false, nil
		}
	}

	if matcher.hasDefault {
		resolved, err := r.finishFailure(ctx, logger, r.backoff.Logs(), matcher.def, true, nil)

		return resolved, true, err
	}

	if hasDefault {
		resolved, err := r.finishFailure(ctx, logger, r.backoff.Logs(), defValue, true, nil)

		return resolved, true, err
	}

	// No default anywhere: the unaccepted result is returned as-is.
	resolved, err := r.finishFailure(ctx, logger, r.backoff.Logs(), result, true, nil)

	return resolved, true, err
}

// step advances the Backoff, sleeping between attempts, and records the delay.
func (r *Runner) step(ctx context.Context) (bool, error) {
	proceeded, err := r.backoff.Step(ctx)
	if err != nil {
		return proceeded, err
	}

	if proceeded {
		if delay := r.backoff.DelayIn(timespan.UnitMilliseconds); delay != nil {
			r.metrics.recordDelay(ctx, *delay)
		}
	}

	return proceeded, nil
}

// matchError finds the first matcher that considers err retry-worthy. An
// empty matcher set catches everything (with no matcher default).
func (r *Runner) matchError(err error, log *backoff.AttemptLog) (ErrorMatcher, bool) {
	if r.catchNothing {
		return ErrorMatcher{}, false
	}

	if len(r.errorMatchers) == 0 {
		return ErrorMatcher{}, true
	}

	for _, m := range r.errorMatchers {
		if m.matches(err, log) {
			return m, true
		}
	}

	return ErrorMatcher{}, false
}

// matchResult reports whether the result is unsatisfactory, together with the
// matcher whose default (if any) applies to the terminal outcome.
func (r *Runner) matchResult(result any, log *backoff.AttemptLog) (ResultMatcher, bool) {
	if len(r.resultMatchers) == 0 {
		return ResultMatcher{}, false
	}

	if r.untilMode {
		for _, m := range r.resultMatchers {
			if m.matches(result, log) {
				return ResultMatcher{}, false
			}
		}

		// Not yet the awaited value; the first matcher carrying a default
		// supplies it.
		for _, m := range r.resultMatchers {
			if m.hasDefault {
				return m, true
			}
		}

		return ResultMatcher{}, true
	}

	for _, m := range r.resultMatchers {
		if m.matches(result, log) {
			return m, true
		}
	}

	return ResultMatcher{}, false
}

// finishSuccess fires success then finally callbacks and resolves the result.
func (r *Runner) finishSuccess(ctx context.Context, logger *zap.Logger, result any) (any, error) {
	logs := r.backoff.Logs()

	var override error

	for _, cb := range r.onSuccess {
		if err := cb(logs); err != nil {
			override = err

			break
		}
	}

	finallyErr := r.runFinally(logs)
	r.metrics.recordRun(ctx, outcomeSuccess)

	logger.Debug("retry run succeeded", zap.Int("attempts", len(logs)))

	if override != nil || finallyErr != nil {
		return nil, multierr.Append(override, finallyErr)
	}

	return result, nil
}

// finishFailure fires failure then finally callbacks and resolves the
// terminal outcome: a callback error overrides everything, a raise error is
// returned unchanged (chained with a finally error when both occur), and
// otherwise the resolved default or raw result is returned.
func (r *Runner) finishFailure(
	ctx context.Context,
	logger *zap.Logger,
	logs []*backoff.AttemptLog,
	value any,
	hasValue bool,
	raise error,
) (any, error) {
	var override error

	for _, cb := range r.onFailure {
		if err := cb(logs); err != nil {
			override = err

			break
		}
	}

	finallyErr := r.runFinally(logs)
	r.metrics.recordRun(ctx, outcomeFailure)

	switch {
	case override != nil:
		return nil, multierr.Append(override, finallyErr)
	case raise != nil:
		logger.Warn("retry run failed", zap.Int("attempts", len(logs)), zap.Error(raise))

		if finallyErr != nil {
			return nil, multierr.Append(raise, finallyErr)
		}

		return nil, raise
	case finallyErr != nil:
		return nil, finallyErr
	case hasValue:
		return value, nil
	default:
		return nil, nil
	}
}

// abort ends the run after a mid-run callback error: success and failure
// callbacks are skipped, finally still fires.
func (r *Runner) abort(ctx context.Context, logger *zap.Logger, cbErr error) (any, error) {
	logs := r.backoff.Logs()

	finallyErr := r.runFinally(logs)
	r.metrics.recordRun(ctx, outcomeFailure)

	logger.Warn("retry run aborted by callback error", zap.Error(cbErr))

	return nil, multierr.Append(cbErr, finallyErr)
}

// runFinally fires the finally callbacks in registration order; the first
// error stops the rest and is reported.
func (r *Runner) runFinally(logs []*backoff.AttemptLog) error {
	for _, cb := range r.onFinally {
		if err := cb(logs); err != nil {
			return err
		}
	}

	return nil
}
