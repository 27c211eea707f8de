package storagecache

import (
	"context"
	"time"

	"go.mercari.io/worldstore"
)

// KeyFilter decides whether records of key are cached.
type KeyFilter func(ctx context.Context, key worldstore.Key) bool

// Config is shared by every cache built on this package. A Storage reads
// the fields it supports and ignores the others.
type Config struct {
	Logf    worldstore.Logf
	Filters []KeyFilter
	// TTL is how long an entry is served. Zero or less keeps entries until
	// they are evicted.
	TTL time.Duration
	// Prefix is prepended to the cache keys of remote storages.
	Prefix string
	// MaxEntries bounds in-process storages. Zero means no limit.
	MaxEntries int
	Now        func() time.Time
}

// Option configures a cache.
type Option interface {
	Apply(*Config)
}

type optionFunc func(*Config)

func (f optionFunc) Apply(c *Config) { f(c) }

// NewConfig applies opts over defaults.
func NewConfig(defaults Config, opts ...Option) *Config {
	c := defaults
	c.Filters = append([]KeyFilter(nil), defaults.Filters...)
	for _, opt := range opts {
		opt.Apply(&c)
	}
	if c.Logf == nil {
		c.Logf = worldstore.NopLogf
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return &c
}

// Target reports whether every filter accepts key.
func (c *Config) Target(ctx context.Context, key worldstore.Key) bool {
	for _, f := range c.Filters {
		if !f(ctx, key) {
			return false
		}
	}
	return true
}

// CacheKey returns the remote cache key of key.
func (c *Config) CacheKey(key worldstore.Key) string {
	return c.Prefix + key.Encode()
}

func WithLogger(logf worldstore.Logf) Option {
	return optionFunc(func(c *Config) { c.Logf = logf })
}

// WithKeyFilter adds a filter deciding which keys are cached.
func WithKeyFilter(f KeyFilter) Option {
	return optionFunc(func(c *Config) { c.Filters = append(c.Filters, f) })
}

// WithIncludeCollections caches only records of the given collections.
func WithIncludeCollections(collections ...string) Option {
	return WithKeyFilter(func(ctx context.Context, key worldstore.Key) bool {
		for _, coll := range collections {
			if key.Collection == coll {
				return true
			}
		}
		return false
	})
}

// WithExcludeCollections never caches records of the given collections.
func WithExcludeCollections(collections ...string) Option {
	return WithKeyFilter(func(ctx context.Context, key worldstore.Key) bool {
		for _, coll := range collections {
			if key.Collection == coll {
				return false
			}
		}
		return true
	})
}

func WithTTL(d time.Duration) Option {
	return optionFunc(func(c *Config) { c.TTL = d })
}

func WithPrefix(prefix string) Option {
	return optionFunc(func(c *Config) { c.Prefix = prefix })
}

func WithMaxEntries(n int) Option {
	return optionFunc(func(c *Config) { c.MaxEntries = n })
}

// WithClock replaces time.Now for storages expiring entries themselves.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(c *Config) { c.Now = now })
}
