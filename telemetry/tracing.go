package telemetry

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer for one HTTP/JSON-RPC call at a
// time. A nil *Tracer is valid: Start returns the unmodified context and a
// no-op Span, so a caller that never configures tracing pays no cost.
type Tracer struct {
	t oteltrace.Tracer
}

// NewTracer wraps t (typically obtained from otel.Tracer("reactor")) for
// use by the mcp package.
func NewTracer(t oteltrace.Tracer) *Tracer {
	return &Tracer{t: t}
}

// NewStdoutTracerProvider builds an sdktrace.TracerProvider that writes
// spans as JSON to w, for local inspection or development use. Production
// callers wire a different otel/sdk/trace exporter and construct Tracer
// from whatever oteltrace.Tracer they already have.
func NewStdoutTracerProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp)), nil
}

// Span is the subset of oteltrace.Span this package's callers need.
type Span struct {
	span oteltrace.Span
}

// Start opens a span named "mcp.<method>" carrying session-id/method
// attributes, per spec.md's tracing expansion (one span per HTTP/JSON-RPC
// call). Callers must call End on the returned Span.
func (t *Tracer) Start(ctx context.Context, method, sessionID string) (context.Context, Span) {
	if t == nil {
		return ctx, Span{}
	}
	ctx, span := t.t.Start(ctx, "mcp."+method,
		oteltrace.WithAttributes(
			attribute.String("mcp.method", method),
			attribute.String("mcp.session_id", sessionID),
		),
	)
	return ctx, Span{span: span}
}

// Fail records err on the span and marks its status as an error. No-op on
// a zero-value Span (the nil-Tracer case).
func (s Span) Fail(err error) {
	if s.span == nil || err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// End closes the span. No-op on a zero-value Span.
func (s Span) End() {
	if s.span != nil {
		s.span.End()
	}
}

// DefaultTracer returns a Tracer backed by the global otel TracerProvider
// (otel.Tracer("github.com/fenwicklabs/reactor")), for callers that don't
// need a dedicated provider.
func DefaultTracer() *Tracer {
	return NewTracer(otel.Tracer("github.com/fenwicklabs/reactor"))
}
