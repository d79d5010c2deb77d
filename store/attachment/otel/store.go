// Package otel instruments an AttachmentFileStore with OpenTelemetry spans
// and metrics.
package otel

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rbaliyan/conversation/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/rbaliyan/conversation/store/attachment/otel"

// Store wraps an AttachmentFileStore.
type Store struct {
	backend store.AttachmentFileStore
	tracer  trace.Tracer // nil when tracing is disabled

	// nil when metrics are disabled
	duration metric.Float64Histogram
	ops      metric.Int64Counter
	errors   metric.Int64Counter
	bytes    metric.Int64Counter
}

var _ store.AttachmentFileStore = (*Store)(nil)

// New wraps backend.
func New(backend store.AttachmentFileStore, opts ...Option) (*Store, error) {
	o := newOptions(opts...)
	s := &Store{backend: backend}

	if o.tracing {
		s.tracer = o.tracerProvider.Tracer(instrumentationName)
	}
	if o.metrics {
		if err := s.initMetrics(o.meterProvider.Meter(instrumentationName)); err != nil {
			return nil, fmt.Errorf("otel: init metrics: %w", err)
		}
	}
	return s, nil
}

func (s *Store) initMetrics(meter metric.Meter) error {
	var err error
	if s.duration, err = meter.Float64Histogram(
		"conversation.attachment.duration",
		metric.WithDescription("Duration of attachment store operations"),
		metric.WithUnit("s"),
	); err != nil {
		return err
	}
	if s.ops, err = meter.Int64Counter(
		"conversation.attachment.operations",
		metric.WithDescription("Attachment store operations"),
	); err != nil {
		return err
	}
	if s.errors, err = meter.Int64Counter(
		"conversation.attachment.errors",
		metric.WithDescription("Failed attachment store operations"),
	); err != nil {
		return err
	}
	s.bytes, err = meter.Int64Counter(
		"conversation.attachment.bytes",
		metric.WithDescription("Attachment bytes transferred"),
		metric.WithUnit("By"),
	)
	return err
}

// op tracks a single call from start to finish.
type op struct {
	s     *Store
	ctx   context.Context
	name  string
	span  trace.Span
	start time.Time
	attrs []attribute.KeyValue
}

func (s *Store) begin(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *op) {
	o := &op{s: s, name: name, start: time.Now(), attrs: attrs}
	if s.tracer != nil {
		ctx, o.span = s.tracer.Start(ctx, "attachment."+name,
			trace.WithAttributes(attrs...),
			trace.WithSpanKind(trace.SpanKindClient),
		)
	}
	o.ctx = ctx
	return ctx, o
}

func (o *op) end(n int64, err error) {
	if o.s.duration != nil {
		attrs := metric.WithAttributes(attribute.String("operation", o.name))
		o.s.duration.Record(o.ctx, time.Since(o.start).Seconds(), attrs)
		o.s.ops.Add(o.ctx, 1, attrs)
		if n > 0 {
			o.s.bytes.Add(o.ctx, n, attrs)
		}
		if err != nil {
			o.s.errors.Add(o.ctx, 1, attrs)
		}
	}
	if o.span != nil {
		if n > 0 {
			o.span.SetAttributes(attribute.Int64("attachment.bytes", n))
		}
		if err != nil {
			o.span.RecordError(err)
			o.span.SetStatus(codes.Error, err.Error())
		} else {
			o.span.SetStatus(codes.Ok, "")
		}
		o.span.End()
	}
}

// Upload instruments the backend upload, counting the bytes consumed.
func (s *Store) Upload(ctx context.Context, filename, contentType string, content io.Reader) (string, error) {
	ctx, o := s.begin(ctx, "upload",
		attribute.String("attachment.filename", filename),
		attribute.String("attachment.content_type", contentType),
	)
	cr := &countingReader{r: content}
	uri, err := s.backend.Upload(ctx, filename, contentType, cr)
	o.end(cr.n, err)
	return uri, err
}

// Load instruments the backend load. The operation ends when the returned
// reader is closed so transfer time and size are included.
func (s *Store) Load(ctx context.Context, uri string) (io.ReadCloser, error) {
	ctx, o := s.begin(ctx, "load", attribute.String("attachment.uri", uri))
	rc, err := s.backend.Load(ctx, uri)
	if err != nil {
		o.end(0, err)
		return nil, err
	}
	return &trackedReader{rc: rc, op: o}, nil
}

// Delete instruments the backend delete.
func (s *Store) Delete(ctx context.Context, uri string) error {
	ctx, o := s.begin(ctx, "delete", attribute.String("attachment.uri", uri))
	err := s.backend.Delete(ctx, uri)
	o.end(0, err)
	return err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

type trackedReader struct {
	rc     io.ReadCloser
	op     *op
	n      int64
	closed bool
}

func (t *trackedReader) Read(p []byte) (int, error) {
	n, err := t.rc.Read(p)
	t.n += int64(n)
	return n, err
}

func (t *trackedReader) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	err := t.rc.Close()
	t.op.end(t.n, err)
	return err
}
