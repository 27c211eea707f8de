package migrator

import (
	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/codec"
)

// WithBatchSize sets how many records one Find returns.
func WithBatchSize(n int) Option {
	return &withBatchSize{n}
}

type withBatchSize struct{ n int }

func (w *withBatchSize) Apply(m *Migrator) {
	if 0 < w.n {
		m.batchSize = w.n
	}
}

// WithConcurrency sets how many collections are migrated at once.
func WithConcurrency(n int) Option {
	return &withConcurrency{n}
}

type withConcurrency struct{ n int }

func (w *withConcurrency) Apply(m *Migrator) {
	if 0 < w.n {
		m.concurrency = w.n
	}
}

// WithDryRun reports what would be rewritten without writing.
func WithDryRun() Option {
	return &withDryRun{}
}

type withDryRun struct{}

func (w *withDryRun) Apply(m *Migrator) {
	m.dryRun = true
}

func WithLogger(logf worldstore.Logf) Option {
	return &withLogger{logf}
}

type withLogger struct{ logf worldstore.Logf }

func (w *withLogger) Apply(m *Migrator) {
	m.logf = w.logf
}

func WithCodec(c *codec.Codec) Option {
	return &withCodec{c}
}

type withCodec struct{ c *codec.Codec }

func (w *withCodec) Apply(m *Migrator) {
	m.codec = w.c
}
