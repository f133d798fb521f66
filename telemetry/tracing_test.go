package telemetry

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestNilTracerIsNoOp(t *testing.T) {
	var tr *Tracer
	ctx, span := tr.Start(context.Background(), "initialize", "sess-1")
	if ctx == nil {
		t.Error("Start on nil Tracer returned nil context")
	}
	span.Fail(errors.New("boom"))
	span.End()
}

func TestStdoutTracerProviderEmitsSpan(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewStdoutTracerProvider(&buf)
	if err != nil {
		t.Fatalf("NewStdoutTracerProvider: %v", err)
	}
	defer tp.Shutdown(context.Background())

	tr := NewTracer(tp.Tracer("telemetry_test"))
	_, span := tr.Start(context.Background(), "tools/call", "sess-1")
	span.End()

	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected a span to be written to the exporter")
	}
}
