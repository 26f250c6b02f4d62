package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// KeyCounter reports how many client keys the rate limiter currently tracks.
type KeyCounter interface {
	Len() int
}

// SubmissionMetrics counts form submissions by outcome and observes the size
// of the rate limiter's state.
type SubmissionMetrics struct {
	submissions metric.Int64Counter
	duration    metric.Float64Histogram
	trackedKeys metric.Int64ObservableGauge
	reg         metric.Registration
}

// NewSubmissionMetrics registers the submission instruments. When limiter is
// non-nil its Len is reported as an observable gauge on every collection.
func NewSubmissionMetrics(limiter KeyCounter, opts ...InstrumentOption) (*SubmissionMetrics, error) {
	o := resolveOptions(opts)
	meter := o.meterProvider.Meter(instrumentationName + "/submission")

	submissions, err := meter.Int64Counter(
		"formgate.submissions",
		metric.WithDescription("Number of form submissions by form and outcome"),
		metric.WithUnit("{submission}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"formgate.submission.duration",
		metric.WithDescription("Time to handle a form submission in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m := &SubmissionMetrics{
		submissions: submissions,
		duration:    duration,
	}

	if limiter != nil {
		m.trackedKeys, err = meter.Int64ObservableGauge(
			"formgate.ratelimit.tracked_keys",
			metric.WithDescription("Number of client keys held by the rate limiter"),
			metric.WithUnit("{key}"),
		)
		if err != nil {
			return nil, err
		}
		m.reg, err = meter.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
			obs.ObserveInt64(m.trackedKeys, int64(limiter.Len()))
			return nil
		}, m.trackedKeys)
		if err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Record counts one submission of form that ended with outcome.
func (m *SubmissionMetrics) Record(ctx context.Context, form, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("form", form),
		attribute.String("outcome", outcome),
	)
	m.submissions.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}

// Close unregisters the tracked-keys callback.
func (m *SubmissionMetrics) Close() error {
	if m.reg == nil {
		return nil
	}
	return m.reg.Unregister()
}
