// Package jitter provides the catalogue of jitter functions that perturb a
// computed delay before it is bounded and applied.
//
// Randomness comes from crypto/rand with a math/rand fallback, so jitter
// never stalls even under entropy exhaustion.
package jitter
