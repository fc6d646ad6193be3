package algorithm

import (
	"math"
	mrand "math/rand/v2"
)

// Algorithm computes the raw delay for a given 1-based retry number.
// The boolean reports whether a delay was produced; false means the
// algorithm is exhausted and retrying should stop.
type Algorithm interface {
	NextDelay(retryNumber int) (float64, bool)
}

// Func adapts a plain function to the Algorithm interface.
type Func func(retryNumber int) (float64, bool)

// NextDelay implements Algorithm.
func (f Func) NextDelay(retryNumber int) (float64, bool) {
	return f(retryNumber)
}

// defaultExponentialFactor is the per-retry growth factor when none is given.
const defaultExponentialFactor = 2.0

// defaultDecorrelatedMultiplier caps decorrelated growth at three times the
// previous delay, per the AWS decorrelated jitter strategy.
const defaultDecorrelatedMultiplier = 3.0

// Fixed returns the same delay for every retry.
func Fixed(delay float64) Algorithm {
	return Func(func(int) (float64, bool) {
		return delay, true
	})
}

// Linear grows the delay by delta per retry, starting at initial. When delta
// is omitted it defaults to initial, so Linear(5) yields 5, 10, 15, ...
func Linear(initial float64, delta ...float64) Algorithm {
	step := initial
	if len(delta) > 0 {
		step = delta[0]
	}

	return Func(func(retryNumber int) (float64, bool) {
		if retryNumber < 1 {
			retryNumber = 1
		}

		return initial + float64(retryNumber-1)*step, true
	})
}

// Exponential multiplies the delay by factor per retry, starting at initial.
// When factor is omitted it defaults to 2, so Exponential(1) yields
// 1, 2, 4, 8, ... Growth that overflows float64 clamps to MaxFloat64.
func Exponential(initial float64, factor ...float64) Algorithm {
	growth := defaultExponentialFactor
	if len(factor) > 0 {
		growth = factor[0]
	}

	return Func(func(retryNumber int) (float64, bool) {
		if retryNumber < 1 {
			retryNumber = 1
		}

		delay := initial * math.Pow(growth, float64(retryNumber-1))
		if math.IsInf(delay, 1) {
			return math.MaxFloat64, true
		}

		return delay, true
	})
}

// Polynomial grows the delay as initial * retryNumber^power. Overflowing
// growth clamps to MaxFloat64.
func Polynomial(initial, power float64) Algorithm {
	return Func(func(retryNumber int) (float64, bool) {
		if retryNumber < 1 {
			retryNumber = 1
		}

		delay := initial * math.Pow(float64(retryNumber), power)
		if math.IsInf(delay, 1) {
			return math.MaxFloat64, true
		}

		return delay, true
	})
}

// Fibonacci scales the fibonacci sequence (1, 1, 2, 3, 5, ...) by initial.
func Fibonacci(initial float64) Algorithm {
	return Func(func(retryNumber int) (float64, bool) {
		if retryNumber < 1 {
			retryNumber = 1
		}

		previous, current := 0.0, 1.0
		for i := 1; i < retryNumber; i++ {
			previous, current = current, previous+current
			if math.IsInf(current, 1) {
				current = math.MaxFloat64

				break
			}
		}

		delay := initial * current
		if math.IsInf(delay, 1) {
			return math.MaxFloat64, true
		}

		return delay, true
	})
}

// decorrelated carries the previous delay between queries.
type decorrelated struct {
	base       float64
	multiplier float64
	previous   float64
}

// Decorrelated implements the AWS "decorrelated jitter" strategy: each delay
// is drawn uniformly from [base, previous*multiplier]. The multiplier
// defaults to 3. Querying retry number 1 reinitializes the internal memory,
// so a reset run reproduces the same distribution.
func Decorrelated(base float64, multiplier ...float64) Algorithm {
	m := defaultDecorrelatedMultiplier
	if len(multiplier) > 0 {
		m = multiplier[0]
	}

	return &decorrelated{base: base, multiplier: m}
}

// NextDelay implements Algorithm.
func (d *decorrelated) NextDelay(retryNumber int) (float64, bool) {
	if retryNumber <= 1 || d.previous <= 0 {
		d.previous = d.base
	}

	upper := d.previous * d.multiplier
	if upper < d.base {
		upper = d.base
	}

	delay := d.base + mrand.Float64()*(upper-d.base)
	d.previous = delay

	return delay, true
}

// Random draws each delay uniformly from [minDelay, maxDelay].
func Random(minDelay, maxDelay float64) Algorithm {
	if maxDelay < minDelay {
		minDelay, maxDelay = maxDelay, minDelay
	}

	return Func(func(int) (float64, bool) {
		return minDelay + mrand.Float64()*(maxDelay-minDelay), true
	})
}

// Sequence replays a fixed series of delays, one per retry. Once the series
// is exhausted the fallback delay repeats forever when given; otherwise the
// algorithm stops.
func Sequence(delays []float64, fallback ...float64) Algorithm {
	series := make([]float64, len(delays))
	copy(series, delays)

	return Func(func(retryNumber int) (float64, bool) {
		if retryNumber < 1 {
			return 0, false
		}

		if retryNumber <= len(series) {
			return series[retryNumber-1], true
		}

		if len(fallback) > 0 {
			return fallback[0], true
		}

		return 0, false
	})
}

// Callback wraps a user-supplied delay function.
func Callback(fn func(retryNumber int) (float64, bool)) Algorithm {
	return Func(fn)
}

// Noop produces a zero delay for every retry, without ever stopping.
func Noop() Algorithm {
	return Func(func(int) (float64, bool) {
		return 0, true
	})
}

// None stops immediately: no retries are produced.
func None() Algorithm {
	return Func(func(int) (float64, bool) {
		return 0, false
	})
}
