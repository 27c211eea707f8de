package zaplog

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogf(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logf := Logf(zap.New(core).Sugar())

	logf(context.Background(), "Create #%d, key=%s", 1, "/players,p1")

	entries := logs.TakeAll()
	if v := len(entries); v != 1 {
		t.Fatalf("unexpected: %v", v)
	}
	if v := entries[0].Message; v != "Create #1, key=/players,p1" {
		t.Fatalf("unexpected: %v", v)
	}
	if v := entries[0].Level; v != zapcore.DebugLevel {
		t.Fatalf("unexpected: %v", v)
	}
	if v := len(entries[0].Context); v != 0 {
		t.Fatalf("unexpected: %v", v)
	}
}

func TestLogf_WithSpan(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logf := Logf(zap.New(core).Sugar())

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{2},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logf(ctx, "hello")

	entries := logs.TakeAll()
	if v := len(entries); v != 1 {
		t.Fatalf("unexpected: %v", v)
	}
	fields := entries[0].ContextMap()
	if v := fields["trace_id"]; v != sc.TraceID().String() {
		t.Fatalf("unexpected: %v", v)
	}
	if v := fields["span_id"]; v != sc.SpanID().String() {
		t.Fatalf("unexpected: %v", v)
	}
}

func TestNew(t *testing.T) {
	for _, mode := range []string{"prod", "dev"} {
		l, err := New(mode)
		if err != nil {
			t.Fatal(err)
		}
		if l == nil {
			t.Fatalf("unexpected: %v", l)
		}
	}
}
