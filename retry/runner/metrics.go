package runner

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric and attribute names emitted by the runner.
const (
	metricAttempts = "retry.attempts"
	metricDelay    = "retry.delay"
	metricRuns     = "retry.runs"

	attrOutcome = "outcome"
)

// Run and attempt outcome values.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// runMetrics holds the runner's OpenTelemetry instruments. A nil receiver is
// valid and records nothing.
type runMetrics struct {
	attempts metric.Int64Counter
	delays   metric.Float64Histogram
	runs     metric.Int64Counter
}

func newRunMetrics(meter metric.Meter) (*runMetrics, error) {
	attempts, err := meter.Int64Counter(metricAttempts,
		metric.WithDescription("Number of operation attempts, by outcome"))
	if err != nil {
		return nil, err
	}

	delays, err := meter.Float64Histogram(metricDelay,
		metric.WithDescription("Delay slept between attempts"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	runs, err := meter.Int64Counter(metricRuns,
		metric.WithDescription("Number of completed retry runs, by outcome"))
	if err != nil {
		return nil, err
	}

	return &runMetrics{attempts: attempts, delays: delays, runs: runs}, nil
}

func (m *runMetrics) recordAttempt(ctx context.Context, outcome string) {
	if m == nil {
		return
	}

	m.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, outcome)))
}

func (m *runMetrics) recordDelay(ctx context.Context, delayMs float64) {
	if m == nil {
		return
	}

	m.delays.Record(ctx, delayMs)
}

func (m *runMetrics) recordRun(ctx context.Context, outcome string) {
	if m == nil {
		return
	}

	m.runs.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOutcome, outcome)))
}
