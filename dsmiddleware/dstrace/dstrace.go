// Package dstrace records an OpenTelemetry span around every store call.
package dstrace

import (
	"errors"

	"go.mercari.io/worldstore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "go.mercari.io/worldstore/dsmiddleware/dstrace"

var _ worldstore.Middleware = &traceHandler{}

// New returns the tracing middleware. Spans go to the global tracer
// provider unless WithTracerProvider is given.
func New(opts ...Option) worldstore.Middleware {
	th := &traceHandler{}
	for _, opt := range opts {
		opt.Apply(th)
	}
	if th.provider == nil {
		th.provider = otel.GetTracerProvider()
	}
	th.tracer = th.provider.Tracer(instrumentationName)

	return th
}

type Option interface {
	Apply(*traceHandler)
}

// WithTracerProvider sets the provider spans are created from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return &withTracerProvider{tp}
}

type withTracerProvider struct{ tp trace.TracerProvider }

func (w *withTracerProvider) Apply(th *traceHandler) {
	th.provider = w.tp
}

type traceHandler struct {
	provider trace.TracerProvider
	tracer   trace.Tracer
}

func (th *traceHandler) start(info *worldstore.MiddlewareInfo, op string, attrs ...attribute.KeyValue) (*worldstore.MiddlewareInfo, trace.Span) {
	ctx, span := th.tracer.Start(info.Context, "worldstore."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return &worldstore.MiddlewareInfo{Context: ctx, Client: info.Client, Next: info.Next}, span
}

func keyAttrs(key worldstore.Key) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("worldstore.collection", key.Collection),
		attribute.String("worldstore.id", key.ID),
	}
}

func end(span trace.Span, err error) {
	switch {
	case err == nil:
	case errors.Is(err, worldstore.ErrNoSuchRecord), errors.Is(err, worldstore.ErrRecordExists):
		// an answer, not a failure.
		span.SetAttributes(attribute.String("worldstore.result", err.Error()))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (th *traceHandler) FindByID(info *worldstore.MiddlewareInfo, key worldstore.Key) (*worldstore.Record, error) {
	info, span := th.start(info, "FindByID", keyAttrs(key)...)
	rec, err := info.Next.FindByID(info, key)
	if err == nil {
		span.SetAttributes(attribute.Int("worldstore.version", rec.V))
	}
	end(span, err)
	return rec, err
}

func (th *traceHandler) Find(info *worldstore.MiddlewareInfo, q *worldstore.Query) ([]*worldstore.Record, error) {
	info, span := th.start(info, "Find",
		attribute.String("worldstore.collection", q.Collection),
		attribute.Int("worldstore.ids", len(q.IDs)),
		attribute.Int("worldstore.limit", q.Limit),
	)
	recs, err := info.Next.Find(info, q)
	span.SetAttributes(attribute.Int("worldstore.records", len(recs)))
	end(span, err)
	return recs, err
}

func (th *traceHandler) Create(info *worldstore.MiddlewareInfo, rec *worldstore.Record) error {
	info, span := th.start(info, "Create", keyAttrs(rec.Key)...)
	err := info.Next.Create(info, rec)
	end(span, err)
	return err
}

func (th *traceHandler) FindByIDAndUpdate(info *worldstore.MiddlewareInfo, key worldstore.Key, rec *worldstore.Record, upsert bool) (*worldstore.Record, error) {
	attrs := append(keyAttrs(key), attribute.Bool("worldstore.upsert", upsert), attribute.Int("worldstore.version", rec.V))
	info, span := th.start(info, "FindByIDAndUpdate", attrs...)
	stored, err := info.Next.FindByIDAndUpdate(info, key, rec, upsert)
	end(span, err)
	return stored, err
}

func (th *traceHandler) Exists(info *worldstore.MiddlewareInfo, key worldstore.Key) (bool, error) {
	info, span := th.start(info, "Exists", keyAttrs(key)...)
	ok, err := info.Next.Exists(info, key)
	span.SetAttributes(attribute.Bool("worldstore.exists", ok))
	end(span, err)
	return ok, err
}

func (th *traceHandler) Delete(info *worldstore.MiddlewareInfo, key worldstore.Key) error {
	info, span := th.start(info, "Delete", keyAttrs(key)...)
	err := info.Next.Delete(info, key)
	end(span, err)
	return err
}
