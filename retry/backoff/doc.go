// Package backoff implements the delay-calculation state machine that drives
// retry loops.
//
// A Backoff owns a delay algorithm, an optional jitter, bounds, and a time
// unit. Each step computes the next bounded delay, advances the attempt
// counter, and optionally sleeps. Per-attempt timing facts are captured in
// AttemptLog records.
//
// Configuration is fixed for the life of one run: the first state-changing
// call locks it, and it unlocks again after Reset.
package backoff
