package mailbox

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/rbaliyan/conversation/mailbox"

// instrumentation records one span and one set of measurements per
// service operation, labelled by operation name.
type instrumentation struct {
	tracer trace.Tracer // nil when tracing is disabled

	// nil when metrics are disabled
	duration   metric.Float64Histogram
	operations metric.Int64Counter
	errors     metric.Int64Counter
	delivered  metric.Int64Counter
}

func newInstrumentation(o *options) (*instrumentation, error) {
	in := &instrumentation{}

	if o.tracingEnabled {
		tp := o.tracerProvider
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		in.tracer = tp.Tracer(instrumentationName)
	}

	if o.metricsEnabled {
		mp := o.meterProvider
		if mp == nil {
			mp = otel.GetMeterProvider()
		}
		if err := in.initMetrics(mp.Meter(instrumentationName)); err != nil {
			return nil, err
		}
	}
	return in, nil
}

func (in *instrumentation) initMetrics(meter metric.Meter) error {
	var err error
	if in.duration, err = meter.Float64Histogram(
		"conversation.operation.duration",
		metric.WithDescription("Duration of mailbox operations"),
		metric.WithUnit("s"),
	); err != nil {
		return err
	}
	if in.operations, err = meter.Int64Counter(
		"conversation.operation.count",
		metric.WithDescription("Number of mailbox operations"),
	); err != nil {
		return err
	}
	if in.errors, err = meter.Int64Counter(
		"conversation.operation.errors",
		metric.WithDescription("Number of failed mailbox operations"),
	); err != nil {
		return err
	}
	in.delivered, err = meter.Int64Counter(
		"conversation.send.delivered",
		metric.WithDescription("Recipient copies written by send"),
	)
	return err
}

// start opens a span for op. The returned function ends it and records
// the measurements; pass it the operation's final error.
func (in *instrumentation) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	begin := time.Now()

	var span trace.Span
	if in.tracer != nil {
		ctx, span = in.tracer.Start(ctx, "conversation."+op,
			trace.WithAttributes(attrs...),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
	}

	return ctx, func(err error) {
		if in.duration != nil {
			set := metric.WithAttributes(attribute.String("operation", op))
			in.duration.Record(ctx, time.Since(begin).Seconds(), set)
			in.operations.Add(ctx, 1, set)
			if err != nil {
				in.errors.Add(ctx, 1, set)
			}
		}
		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			span.End()
		}
	}
}

func (in *instrumentation) recordDelivered(ctx context.Context, n int) {
	if in.delivered != nil && n > 0 {
		in.delivered.Add(ctx, int64(n))
	}
}
