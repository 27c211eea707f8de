package manager

import (
	"context"

	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/codec"
)

const defaultBatchSize = 100

// Option configures a Manager.
type Option interface {
	Apply(*settings)
}

type settings struct {
	logf      worldstore.Logf
	onAccess  func(ctx context.Context, v interface{})
	afterLoad func(ctx context.Context, v interface{}) error
	batchSize int
	ready     bool
	codec     *codec.Codec
}

func newSettings(opts []Option) *settings {
	s := &settings{}
	for _, opt := range opts {
		opt.Apply(s)
	}
	if s.logf == nil {
		s.logf = worldstore.NopLogf
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	if s.codec == nil {
		s.codec = codec.Default
	}
	return s
}

func WithLogger(logf worldstore.Logf) Option {
	return &withLogger{logf}
}

type withLogger struct{ logf worldstore.Logf }

func (w *withLogger) Apply(s *settings) {
	s.logf = w.logf
}

// WithOnAccess registers a hook called on every successful Get, for
// example to touch a last-accessed timestamp.
func WithOnAccess[T any](fn func(ctx context.Context, v *T)) Option {
	return &withOnAccess{func(ctx context.Context, v interface{}) {
		fn(ctx, v.(*T))
	}}
}

type withOnAccess struct {
	fn func(ctx context.Context, v interface{})
}

func (w *withOnAccess) Apply(s *settings) {
	s.onAccess = w.fn
}

// WithAfterLoad registers a hook run on every entity built from storage
// before it enters the cache. It attaches runtime-only companions; an
// error fails the load.
func WithAfterLoad[T any](fn func(ctx context.Context, v *T) error) Option {
	return &withAfterLoad{func(ctx context.Context, v interface{}) error {
		return fn(ctx, v.(*T))
	}}
}

type withAfterLoad struct {
	fn func(ctx context.Context, v interface{}) error
}

func (w *withAfterLoad) Apply(s *settings) {
	s.afterLoad = w.fn
}

// WithBatchSize sets how many records LoadAll reads per query.
func WithBatchSize(n int) Option {
	return &withBatchSize{n}
}

type withBatchSize struct{ n int }

func (w *withBatchSize) Apply(s *settings) {
	s.batchSize = w.n
}

// WithReady opens the readiness gate at construction, for managers that
// are never bulk loaded.
func WithReady() Option {
	return &withReady{}
}

type withReady struct{}

func (w *withReady) Apply(s *settings) {
	s.ready = true
}

func WithCodec(c *codec.Codec) Option {
	return &withCodec{c}
}

type withCodec struct{ c *codec.Codec }

func (w *withCodec) Apply(s *settings) {
	s.codec = w.c
}
