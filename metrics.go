package crypto

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/stravaconnect/token-crypto"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)

	opTotal    metric.Int64Counter
	opFailures metric.Int64Counter
	opDuration metric.Float64Histogram
)

func init() {
	// Instrument creation only fails on invalid names; the blank error
	// keeps the instruments usable as no-ops either way.
	opTotal, _ = meter.Int64Counter("crypto.operations",
		metric.WithDescription("Completed encrypt/decrypt operations."))
	opFailures, _ = meter.Int64Counter("crypto.failures",
		metric.WithDescription("Failed encrypt/decrypt operations."))
	opDuration, _ = meter.Float64Histogram("crypto.operation.duration",
		metric.WithDescription("Encrypt/decrypt latency."),
		metric.WithUnit("s"))
}

// startOp opens a span for one operation. Operations take no context, so
// spans are roots; with no tracer provider installed this is a no-op.
func (e *Engine) startOp(name string) (trace.Span, time.Time) {
	_, span := tracer.Start(context.Background(), "crypto."+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("crypto.source", e.source)))
	return span, time.Now()
}

// endOp records the operation outcome on the span and the meters.
func (e *Engine) endOp(span trace.Span, op string, start time.Time, err error) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("crypto.operation", op),
		attribute.String("crypto.source", e.source),
	)

	opTotal.Add(ctx, 1, attrs)
	opDuration.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		opFailures.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
