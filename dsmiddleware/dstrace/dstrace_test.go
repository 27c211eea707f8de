package dstrace

import (
	"context"
	"errors"
	"testing"

	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/internal/testutils"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func attr(span sdktrace.ReadOnlySpan, key attribute.Key) attribute.Value {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestTrace_Spans(t *testing.T) {
	ctx, client, _, cleanUp := testutils.SetupMemstore(t)
	defer cleanUp()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() {
		_ = tp.Shutdown(ctx)
	}()

	th := New(WithTracerProvider(tp))
	client.AppendMiddleware(th)
	defer client.RemoveMiddleware(th)

	key := worldstore.NewKey("players", "p1")
	if err := client.Create(ctx, &worldstore.Record{Key: key, V: 2}); err != nil {
		t.Fatal(err)
	}
	if _, err := client.FindByID(ctx, key); err != nil {
		t.Fatal(err)
	}
	_, err := client.FindByID(ctx, worldstore.NewKey("players", "missing"))
	if !errors.Is(err, worldstore.ErrNoSuchRecord) {
		t.Fatalf("unexpected: %v", err)
	}

	spans := sr.Ended()
	if v := len(spans); v != 3 {
		t.Fatalf("unexpected: %v", v)
	}

	if v := spans[0].Name(); v != "worldstore.Create" {
		t.Errorf("unexpected: %v", v)
	}
	if v := attr(spans[0], "worldstore.collection").AsString(); v != "players" {
		t.Errorf("unexpected: %v", v)
	}

	if v := spans[1].Name(); v != "worldstore.FindByID" {
		t.Errorf("unexpected: %v", v)
	}
	if v := attr(spans[1], "worldstore.version").AsInt64(); v != 2 {
		t.Errorf("unexpected: %v", v)
	}

	// a missing record is not an error status.
	if v := spans[2].Status().Code; v != codes.Unset {
		t.Errorf("unexpected: %v", v)
	}
	if v := attr(spans[2], "worldstore.result").AsString(); v != worldstore.ErrNoSuchRecord.Error() {
		t.Errorf("unexpected: %v", v)
	}
}

type failing struct{ worldstore.Backend }

func (failing) Delete(ctx context.Context, key worldstore.Key) error {
	return errors.New("boom")
}

func TestTrace_ErrorStatus(t *testing.T) {
	ctx, _, store, cleanUp := testutils.SetupMemstore(t)
	defer cleanUp()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() {
		_ = tp.Shutdown(ctx)
	}()

	client := worldstore.NewClient(failing{store})
	client.AppendMiddleware(New(WithTracerProvider(tp)))

	if err := client.Delete(ctx, worldstore.NewKey("players", "p1")); err == nil {
		t.Fatal("expected error")
	}

	spans := sr.Ended()
	if v := len(spans); v != 1 {
		t.Fatalf("unexpected: %v", v)
	}
	if v := spans[0].Status(); v.Code != codes.Error || v.Description != "boom" {
		t.Errorf("unexpected: %v", v)
	}
}
