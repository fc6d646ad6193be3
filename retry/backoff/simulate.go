package backoff

import "github.com/LerianStudio/lib-retry/retry/timespan"

// Simulate previews the delay for a single retry number without touching
// attempt or log state. Returns nil for invalid retry numbers or when the
// algorithm stops at or before that retry.
func (b *Backoff) Simulate(retryNumber int) *float64 {
	delays := b.SimulateRange(retryNumber, retryNumber)
	if len(delays) == 0 {
		return nil
	}

	return delays[0]
}

// SimulateRange previews the delays for an inclusive retry-number range using
// the same algorithm, jitter, and bounds pipeline as Step. Entries at and
// past the algorithm's stop point are nil. Invalid ranges (from > to, or
// either below 1) return an empty result.
//
// Simulating locks the configuration, the same as starting the machine,
// even though attempt and log state stay untouched.
func (b *Backoff) SimulateRange(fromRetry, toRetry int) []*float64 {
	b.started = true

	if fromRetry < 1 || toRetry < 1 || fromRetry > toRetry {
		return nil
	}

	delays := make([]*float64, 0, toRetry-fromRetry+1)
	stopped := false

	for retryNumber := fromRetry; retryNumber <= toRetry; retryNumber++ {
		if stopped {
			delays = append(delays, nil)

			continue
		}

		raw, ok := b.alg.NextDelay(retryNumber)
		if !ok {
			stopped = true

			delays = append(delays, nil)

			continue
		}

		var delay float64
		if b.delaysEnabled {
			delay = b.boundDelay(raw, retryNumber)
		}

		delays = append(delays, &delay)
	}

	return delays
}

// SimulateRangeIn previews a retry-number range converted to the given unit.
func (b *Backoff) SimulateRangeIn(fromRetry, toRetry int, unit timespan.Unit) []*float64 {
	return timespan.ConvertSlice(b.SimulateRange(fromRetry, toRetry), b.unit, unit)
}
