// Package algorithm provides the catalogue of delay algorithms used by the
// backoff state machine.
//
// Each algorithm maps a 1-based retry number to a raw delay in the backoff's
// configured unit. An algorithm signals exhaustion by returning ok=false, at
// which point the state machine stops producing retries.
package algorithm
