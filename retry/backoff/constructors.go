package backoff

import (
	"github.com/LerianStudio/lib-retry/retry/algorithm"
)

// Shorthand constructors for the algorithm catalogue.

// NewFixed creates a Backoff with a constant delay.
func NewFixed(delay float64, opts ...Option) (*Backoff, error) {
	return New(algorithm.Fixed(delay), opts...)
}

// NewLinear creates a Backoff whose delay grows by initial per retry.
func NewLinear(initial float64, opts ...Option) (*Backoff, error) {
	return New(algorithm.Linear(initial), opts...)
}

// NewExponential creates a Backoff whose delay doubles per retry.
func NewExponential(initial float64, opts ...Option) (*Backoff, error) {
	return New(algorithm.Exponential(initial), opts...)
}

// NewPolynomial creates a Backoff whose delay grows as retry^power.
func NewPolynomial(initial, power float64, opts ...Option) (*Backoff, error) {
	return New(algorithm.Polynomial(initial, power), opts...)
}

// NewFibonacci creates a Backoff whose delay follows the fibonacci sequence.
func NewFibonacci(initial float64, opts ...Option) (*Backoff, error) {
	return New(algorithm.Fibonacci(initial), opts...)
}

// NewDecorrelated creates a Backoff using AWS decorrelated jitter delays.
func NewDecorrelated(base float64, opts ...Option) (*Backoff, error) {
	return New(algorithm.Decorrelated(base), opts...)
}

// NewRandom creates a Backoff with delays drawn uniformly from [minDelay, maxDelay].
func NewRandom(minDelay, maxDelay float64, opts ...Option) (*Backoff, error) {
	return New(algorithm.Random(minDelay, maxDelay), opts...)
}

// NewSequence creates a Backoff replaying a fixed series of delays. The
// optional fallback repeats after the series runs out.
func NewSequence(delays []float64, fallback []float64, opts ...Option) (*Backoff, error) {
	return New(algorithm.Sequence(delays, fallback...), opts...)
}

// NewCallback creates a Backoff around a user-supplied delay function.
func NewCallback(fn func(retryNumber int) (float64, bool), opts ...Option) (*Backoff, error) {
	return New(algorithm.Callback(fn), opts...)
}

// NewNoop creates a Backoff that retries without delay.
func NewNoop(opts ...Option) (*Backoff, error) {
	return New(algorithm.Noop(), opts...)
}

// NewNone creates a Backoff that allows no retries.
func NewNone(opts ...Option) (*Backoff, error) {
	return New(algorithm.None(), opts...)
}
