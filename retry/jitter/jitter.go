package jitter

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"math/big"
	mrand "math/rand/v2"
)

// Jitter perturbs a computed delay for a given 1-based retry number.
type Jitter interface {
	Apply(delay float64, retryNumber int) float64
}

// Func adapts a plain function to the Jitter interface.
type Func func(delay float64, retryNumber int) float64

// Apply implements Jitter.
func (f Func) Apply(delay float64, retryNumber int) float64 {
	return f(delay, retryNumber)
}

// ErrInvalidRange is returned when a range jitter's maximum is below its minimum.
var ErrInvalidRange = errors.New("jitter range maximum must be greater than or equal to minimum")

// Full returns a jitter drawing uniformly from [0, delay].
func Full() Jitter {
	return Func(func(delay float64, _ int) float64 {
		if delay <= 0 {
			return 0
		}

		return delay * randFraction()
	})
}

// Equal returns a jitter drawing uniformly from [delay/2, delay].
func Equal() Jitter {
	return Func(func(delay float64, _ int) float64 {
		if delay <= 0 {
			return 0
		}

		half := delay / 2

		return half + half*randFraction()
	})
}

// Range returns a jitter drawing uniformly from [delay*minFactor, delay*maxFactor].
// Returns ErrInvalidRange when maxFactor < minFactor.
func Range(minFactor, maxFactor float64) (Jitter, error) {
	if maxFactor < minFactor {
		return nil, ErrInvalidRange
	}

	return Func(func(delay float64, _ int) float64 {
		if delay <= 0 {
			return 0
		}

		return delay*minFactor + delay*(maxFactor-minFactor)*randFraction()
	}), nil
}

// Callback wraps a user-supplied jitter function.
func Callback(fn func(delay float64, retryNumber int) float64) Jitter {
	return Func(fn)
}

// None returns the identity jitter.
func None() Jitter {
	return Func(func(delay float64, _ int) float64 {
		return delay
	})
}

// fractionBits gives 53 bits of precision, the float64 mantissa width.
const fractionBits = 53

// fractionDenominator is the exclusive upper bound for random fractions.
var fractionDenominator = big.NewInt(1 << fractionBits)

// randFraction returns a uniform value in [0, 1). It uses crypto/rand for
// secure randomness, falling back to a seeded PRNG if crypto fails.
func randFraction() float64 {
	n, err := rand.Int(rand.Reader, fractionDenominator)
	if err != nil {
		return cryptoFallbackFraction()
	}

	return float64(n.Int64()) / float64(int64(1)<<fractionBits)
}

// cryptoFallbackFraction provides a fallback random fraction when
// crypto/rand fails. It uses two fallback layers:
//   - Layer 1: seed a math/rand PRNG via rand.Read. Even though rand.Int
//     already failed, rand.Read uses a different code path (raw bytes vs
//     big.Int) and may succeed independently.
//   - Layer 2: if even seeding fails, return the midpoint 0.5 so jitter
//     never stalls waiting for entropy.
func cryptoFallbackFraction() float64 {
	var seed [8]byte

	_, err := rand.Read(seed[:])
	if err != nil {
		return 0.5
	}

	rng := mrand.New(
		mrand.NewPCG(binary.LittleEndian.Uint64(seed[:]), 0),
	) // #nosec G404 -- Fallback when crypto/rand fails

	return rng.Float64()
}
