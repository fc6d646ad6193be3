//go:build unit

package jitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFull(t *testing.T) {
	t.Parallel()

	j := Full()

	for range 100 {
		result := j.Apply(100, 1)
		assert.GreaterOrEqual(t, result, 0.0)
		assert.LessOrEqual(t, result, 100.0)
	}

	assert.Equal(t, 0.0, j.Apply(0, 1))
	assert.Equal(t, 0.0, j.Apply(-5, 1))
}

func TestEqual(t *testing.T) {
	t.Parallel()

	j := Equal()

	for range 100 {
		result := j.Apply(100, 1)
		assert.GreaterOrEqual(t, result, 50.0)
		assert.LessOrEqual(t, result, 100.0)
	}

	assert.Equal(t, 0.0, j.Apply(0, 1))
}

func TestRange(t *testing.T) {
	t.Parallel()

	t.Run("stays within the configured factors", func(t *testing.T) {
		t.Parallel()

		j, err := Range(0.5, 1.5)
		require.NoError(t, err)

		for range 100 {
			result := j.Apply(100, 1)
			assert.GreaterOrEqual(t, result, 50.0)
			assert.LessOrEqual(t, result, 150.0)
		}
	})

	t.Run("max below min is an initialization error", func(t *testing.T) {
		t.Parallel()

		_, err := Range(2, 1)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("equal factors pin the delay", func(t *testing.T) {
		t.Parallel()

		j, err := Range(1, 1)
		require.NoError(t, err)
		assert.InDelta(t, 100, j.Apply(100, 1), 1e-9)
	})
}

func TestCallback(t *testing.T) {
	t.Parallel()

	j := Callback(func(delay float64, retryNumber int) float64 {
		return delay + float64(retryNumber)
	})

	assert.Equal(t, 103.0, j.Apply(100, 3))
}

func TestNone(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 42.0, None().Apply(42, 9))
}

func TestRandFraction(t *testing.T) {
	t.Parallel()

	for range 1000 {
		fraction := randFraction()
		assert.GreaterOrEqual(t, fraction, 0.0)
		assert.Less(t, fraction, 1.0)
	}
}

func TestCryptoFallbackFraction(t *testing.T) {
	t.Parallel()

	for range 100 {
		fraction := cryptoFallbackFraction()
		assert.GreaterOrEqual(t, fraction, 0.0)
		assert.Less(t, fraction, 1.0)
	}
}
