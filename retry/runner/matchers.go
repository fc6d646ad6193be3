package runner

import (
	"errors"
	"reflect"

	"github.com/LerianStudio/lib-retry/retry/backoff"
)

// ErrorMatcher decides whether a failed attempt's error is retry-worthy.
// A matcher may carry its own default value, consulted only when that
// specific matcher is the one that matched the terminal error.
type ErrorMatcher struct {
	target     error
	fn         func(err error, log *backoff.AttemptLog) bool
	def        any
	hasDefault bool
}

// MatchError matches errors via errors.Is against target.
func MatchError(target error) ErrorMatcher {
	return ErrorMatcher{target: target}
}

// MatchErrorFunc matches errors with a user-supplied predicate.
func MatchErrorFunc(fn func(err error, log *backoff.AttemptLog) bool) ErrorMatcher {
	return ErrorMatcher{fn: fn}
}

// MatchErrorAs matches errors via errors.As against the type T.
func MatchErrorAs[T error]() ErrorMatcher {
	return ErrorMatcher{fn: func(err error, _ *backoff.AttemptLog) bool {
		var target T

		return errors.As(err, &target)
	}}
}

// WithDefault attaches a default value resolved when this matcher matched the
// terminal error.
func (m ErrorMatcher) WithDefault(value any) ErrorMatcher {
	m.def = value
	m.hasDefault = true

	return m
}

func (m ErrorMatcher) matches(err error, log *backoff.AttemptLog) bool {
	if m.fn != nil {
		return m.fn(err, log)
	}

	if m.target != nil {
		return errors.Is(err, m.target)
	}

	return false
}

// ResultMatcher decides whether a successful attempt's result is
// unsatisfactory. A matcher may carry its own default value.
type ResultMatcher struct {
	value      any
	hasValue   bool
	loose      bool
	fn         func(result any, log *backoff.AttemptLog) bool
	def        any
	hasDefault bool
}

// MatchValue matches results strictly: identical dynamic type and equal value.
func MatchValue(value any) ResultMatcher {
	return ResultMatcher{value: value, hasValue: true}
}

// MatchValueLoose matches results loosely: numeric values compare across
// int/uint/float widths by magnitude.
func MatchValueLoose(value any) ResultMatcher {
	return ResultMatcher{value: value, hasValue: true, loose: true}
}

// MatchResultFunc matches results with a user-supplied predicate.
func MatchResultFunc(fn func(result any, log *backoff.AttemptLog) bool) ResultMatcher {
	return ResultMatcher{fn: fn}
}

// WithDefault attaches a default value resolved when this matcher decides the
// terminal outcome.
func (m ResultMatcher) WithDefault(value any) ResultMatcher {
	m.def = value
	m.hasDefault = true

	return m
}

func (m ResultMatcher) matches(result any, log *backoff.AttemptLog) bool {
	if m.fn != nil {
		return m.fn(result, log)
	}

	if !m.hasValue {
		return false
	}

	if m.loose {
		return looseEqual(m.value, result)
	}

	return strictEqual(m.value, result)
}

// strictEqual requires identical dynamic types and deeply equal values.
func strictEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}

	return reflect.DeepEqual(a, b)
}

// looseEqual allows numeric values to compare across types by magnitude;
// everything else falls back to strict comparison.
func looseEqual(a, b any) bool {
	aNum, aOK := asFloat(a)
	bNum, bOK := asFloat(b)

	if aOK && bOK {
		return aNum == bNum
	}

	return strictEqual(a, b)
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}

	return 0, false
}
