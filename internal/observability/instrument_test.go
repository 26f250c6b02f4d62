package observability

import (
	"context"
	"errors"
	"formgate/internal/notify"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type stubNotifier struct {
	err error
}

func (s *stubNotifier) Send(context.Context, notify.Message) error { return s.err }
func (s *stubNotifier) Enabled() bool                                 { return true }

type stubLimiter int

func (s stubLimiter) Len() int { return int(s) }

func newTestProviders(t *testing.T) (*sdkmetric.ManualReader, []InstrumentOption, *tracetest.SpanRecorder) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
		_ = tp.Shutdown(context.Background())
	})
	return reader, []InstrumentOption{WithMeterProvider(mp), WithTracerProvider(tp)}, recorder
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumFor(t *testing.T, m metricdata.Metrics, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	want := attribute.NewSet(attrs...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	return 0
}

func TestInstrumentedNotifier_Success(t *testing.T) {
	reader, opts, recorder := newTestProviders(t)

	n, err := NewInstrumentedNotifier(&stubNotifier{}, "resend", opts...)
	require.NoError(t, err)
	assert.True(t, n.Enabled())

	require.NoError(t, n.Send(context.Background(), notify.Message{FromName: "Newsletter", To: "owner@example.com"}))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "notify.Send", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String("notify.provider", "resend"))
	for _, kv := range spans[0].Attributes() {
		assert.NotEqual(t, "owner@example.com", kv.Value.AsString())
	}

	metrics := collect(t, reader)
	hist, ok := metrics["notify.send.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	_, hasErrors := metrics["notify.send.errors"]
	assert.False(t, hasErrors)
}

func TestInstrumentedNotifier_Failure(t *testing.T) {
	reader, opts, recorder := newTestProviders(t)
	sendErr := errors.New("relay unavailable")

	n, err := NewInstrumentedNotifier(&stubNotifier{err: sendErr}, "smtp", opts...)
	require.NoError(t, err)

	err = n.Send(context.Background(), notify.Message{})
	assert.ErrorIs(t, err, sendErr)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "relay unavailable", spans[0].Status().Description)

	metrics := collect(t, reader)
	assert.Equal(t, int64(1), sumFor(t, metrics["notify.send.errors"], attribute.String("provider", "smtp")))
}

func TestSubmissionMetrics_Record(t *testing.T) {
	reader, opts, _ := newTestProviders(t)

	m, err := NewSubmissionMetrics(stubLimiter(7), opts...)
	require.NoError(t, err)
	defer m.Close()

	ctx := context.Background()
	m.Record(ctx, "contact", "ok", 10*time.Millisecond)
	m.Record(ctx, "contact", "ok", 12*time.Millisecond)
	m.Record(ctx, "contact", "rate_limited", time.Millisecond)
	m.Record(ctx, "subscribe", "invalid_input", time.Millisecond)

	metrics := collect(t, reader)
	submissions := metrics["formgate.submissions"]
	assert.Equal(t, int64(2), sumFor(t, submissions, attribute.String("form", "contact"), attribute.String("outcome", "ok")))
	assert.Equal(t, int64(1), sumFor(t, submissions, attribute.String("form", "contact"), attribute.String("outcome", "rate_limited")))
	assert.Equal(t, int64(1), sumFor(t, submissions, attribute.String("form", "subscribe"), attribute.String("outcome", "invalid_input")))

	gauge, ok := metrics["formgate.ratelimit.tracked_keys"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(7), gauge.DataPoints[0].Value)
}

func TestSubmissionMetrics_WithoutLimiter(t *testing.T) {
	reader, opts, _ := newTestProviders(t)

	m, err := NewSubmissionMetrics(nil, opts...)
	require.NoError(t, err)
	assert.NoError(t, m.Close())

	m.Record(context.Background(), "subscribe", "ok", time.Millisecond)

	metrics := collect(t, reader)
	_, hasGauge := metrics["formgate.ratelimit.tracked_keys"]
	assert.False(t, hasGauge)
	assert.Equal(t, int64(1), sumFor(t, metrics["formgate.submissions"], attribute.String("form", "subscribe"), attribute.String("outcome", "ok")))
}
