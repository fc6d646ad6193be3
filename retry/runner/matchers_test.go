//go:build unit

package runner

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LerianStudio/lib-retry/retry/backoff"
)

func TestErrorMatcher_MatchError(t *testing.T) {
	t.Parallel()

	target := errors.New("target")
	m := MatchError(target)

	assert.True(t, m.matches(target, nil))
	assert.True(t, m.matches(fmt.Errorf("wrapped: %w", target), nil))
	assert.False(t, m.matches(errors.New("other"), nil))
}

func TestErrorMatcher_MatchErrorFunc(t *testing.T) {
	t.Parallel()

	var seenLog *backoff.AttemptLog

	m := MatchErrorFunc(func(err error, log *backoff.AttemptLog) bool {
		seenLog = log

		return err.Error() == "retryable"
	})

	b, err := backoff.NewNoop()
	require.NoError(t, err)

	entry := b.StartOfAttempt()

	assert.True(t, m.matches(errors.New("retryable"), entry))
	assert.Same(t, entry, seenLog, "the predicate receives the attempt log")
	assert.False(t, m.matches(errors.New("fatal"), entry))
}

func TestErrorMatcher_MatchErrorAs(t *testing.T) {
	t.Parallel()

	m := MatchErrorAs[*timeoutError]()

	assert.True(t, m.matches(&timeoutError{}, nil))
	assert.True(t, m.matches(fmt.Errorf("wrapped: %w", &timeoutError{}), nil))
	assert.False(t, m.matches(errors.New("plain"), nil))
}

func TestErrorMatcher_WithDefaultCopies(t *testing.T) {
	t.Parallel()

	base := MatchError(errors.New("target"))
	withDefault := base.WithDefault("value")

	assert.False(t, base.hasDefault, "WithDefault must not mutate the original")
	assert.True(t, withDefault.hasDefault)
	assert.Equal(t, "value", withDefault.def)
}

func TestResultMatcher_Strict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    any
		result   any
		expected bool
	}{
		{name: "equal strings", value: "a", result: "a", expected: true},
		{name: "different strings", value: "a", result: "b", expected: false},
		{name: "equal ints", value: 5, result: 5, expected: true},
		{name: "different numeric widths", value: 5, result: int64(5), expected: false},
		{name: "int versus float", value: 5, result: 5.0, expected: false},
		{name: "both nil", value: nil, result: nil, expected: true},
		{name: "nil versus value", value: nil, result: "x", expected: false},
		{name: "equal slices", value: []int{1, 2}, result: []int{1, 2}, expected: true},
		{name: "different slices", value: []int{1, 2}, result: []int{2, 1}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := MatchValue(tt.value)
			assert.Equal(t, tt.expected, m.matches(tt.result, nil))
		})
	}
}

func TestResultMatcher_Loose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		value    any
		result   any
		expected bool
	}{
		{name: "cross width ints", value: 5, result: int64(5), expected: true},
		{name: "int versus float", value: 5, result: 5.0, expected: true},
		{name: "uint versus int", value: uint8(7), result: 7, expected: true},
		{name: "float32 versus float64", value: float32(1.5), result: 1.5, expected: true},
		{name: "different magnitudes", value: 5, result: 6, expected: false},
		{name: "number versus string", value: 5, result: "5", expected: false},
		{name: "non numerics fall back to strict", value: "a", result: "a", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := MatchValueLoose(tt.value)
			assert.Equal(t, tt.expected, m.matches(tt.result, nil))
		})
	}
}

func TestResultMatcher_Func(t *testing.T) {
	t.Parallel()

	m := MatchResultFunc(func(result any, _ *backoff.AttemptLog) bool {
		n, ok := result.(int)

		return ok && n < 0
	})

	assert.True(t, m.matches(-1, nil))
	assert.False(t, m.matches(1, nil))
	assert.False(t, m.matches("negative", nil))
}

func TestResultMatcher_WithDefaultCopies(t *testing.T) {
	t.Parallel()

	base := MatchValue("bad")
	withDefault := base.WithDefault("good")

	assert.False(t, base.hasDefault)
	assert.True(t, withDefault.hasDefault)
	assert.Equal(t, "good", withDefault.def)
}
