package observability

import (
	"context"
	"formgate/internal/notify"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedNotifier wraps a notify.Notifier with OpenTelemetry tracing and
// metrics. The recipient and message body are never recorded.
type InstrumentedNotifier struct {
	inner    notify.Notifier
	provider string
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewInstrumentedNotifier creates a notifier wrapper that records a span, a
// latency histogram sample and, on failure, an error count for every send.
// provider labels the transport ("resend", "smtp").
func NewInstrumentedNotifier(inner notify.Notifier, provider string, opts ...InstrumentOption) (*InstrumentedNotifier, error) {
	o := resolveOptions(opts)
	meter := o.meterProvider.Meter(instrumentationName + "/notify")

	duration, err := meter.Float64Histogram(
		"notify.send.duration",
		metric.WithDescription("Duration of notification sends in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"notify.send.errors",
		metric.WithDescription("Number of failed notification sends"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedNotifier{
		inner:    inner,
		provider: provider,
		tracer:   o.tracerProvider.Tracer(instrumentationName + "/notify"),
		duration: duration,
		errors:   errCounter,
	}, nil
}

func (n *InstrumentedNotifier) Enabled() bool {
	return n.inner.Enabled()
}

func (n *InstrumentedNotifier) Send(ctx context.Context, msg notify.Message) error {
	ctx, span := n.tracer.Start(ctx, "notify.Send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("notify.provider", n.provider),
			attribute.String("notify.sender", msg.FromName),
		),
	)
	defer span.End()

	start := time.Now()
	err := n.inner.Send(ctx, msg)

	attrs := metric.WithAttributes(attribute.String("provider", n.provider))
	n.duration.Record(ctx, time.Since(start).Seconds(), attrs)

	if err != nil {
		n.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}
