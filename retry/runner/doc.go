// Package runner orchestrates a retry loop around a user-supplied operation.
//
// A Runner drives its Backoff attempt by attempt: it invokes the operation,
// decides from error matchers and result predicates whether the outcome is
// retry-worthy, sleeps between attempts, and resolves the final value from a
// cascade of defaults when retries run out.
//
// Runners are reusable across sequential runs; each Attempt call starts from
// a clean Backoff reset and produces its own log sequence.
package runner
