package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/caarlos0/env/v11"
	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/clouddatastore"
	"go.mercari.io/worldstore/dsmiddleware/dslog"
	"go.mercari.io/worldstore/dsmiddleware/dsmemcache"
	"go.mercari.io/worldstore/dsmiddleware/localcache"
	"go.mercari.io/worldstore/dsmiddleware/rediscache"
	"go.mercari.io/worldstore/dsmiddleware/rpcretry"
	"go.mercari.io/worldstore/dsmiddleware/storagecache"
	"go.mercari.io/worldstore/gormstore"
	"go.mercari.io/worldstore/memstore"
	"go.mercari.io/worldstore/migrator"
	"go.mercari.io/worldstore/redisstore"
	"go.mercari.io/worldstore/sqlitestore"
	"go.mercari.io/worldstore/world"
)

type config struct {
	Backend     string   `env:"WORLDSTORE_BACKEND" envDefault:"sqlite"`
	SQLitePath  string   `env:"WORLDSTORE_SQLITE_PATH" envDefault:"world.db"`
	PostgresDSN string   `env:"WORLDSTORE_POSTGRES_DSN"`
	RedisAddr   string   `env:"WORLDSTORE_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPrefix string   `env:"WORLDSTORE_REDIS_PREFIX" envDefault:"worldstore:"`
	ProjectID   string   `env:"WORLDSTORE_PROJECT_ID"`
	Namespace   string   `env:"WORLDSTORE_NAMESPACE"`
	Collections []string `env:"WORLDSTORE_COLLECTIONS" envSeparator:","`
	BatchSize   int      `env:"WORLDSTORE_BATCH_SIZE" envDefault:"100"`
	Concurrency int      `env:"WORLDSTORE_CONCURRENCY" envDefault:"2"`
	RetryLimit  int      `env:"WORLDSTORE_RETRY_LIMIT" envDefault:"3"`
	DryRun      bool     `env:"WORLDSTORE_DRY_RUN"`
	Verbose     bool     `env:"WORLDSTORE_VERBOSE"`
	Trace       bool     `env:"WORLDSTORE_TRACE"`
	LogMode     string   `env:"WORLDSTORE_LOG_MODE" envDefault:"dev"`

	// Cache is the record cache the game servers share with this tool:
	// local, redis or memcache. Rewritten records replace what it holds.
	Cache       string        `env:"WORLDSTORE_CACHE"`
	CacheAddr   string        `env:"WORLDSTORE_CACHE_ADDR"`
	CachePrefix string        `env:"WORLDSTORE_CACHE_PREFIX" envDefault:"worldstore:cache:"`
	CacheTTL    time.Duration `env:"WORLDSTORE_CACHE_TTL" envDefault:"15m"`
}

// loadConfig reads the environment first; flags given in args win.
func loadConfig(args []string) (*config, error) {
	cfg := &config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("worldmigrate", flag.ContinueOnError)
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "sqlite, postgres, redis, datastore or memory")
	fs.StringVar(&cfg.SQLitePath, "sqlite", cfg.SQLitePath, "sqlite database file")
	fs.StringVar(&cfg.PostgresDSN, "postgres", cfg.PostgresDSN, "postgres dsn")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "redis address")
	fs.StringVar(&cfg.ProjectID, "project", cfg.ProjectID, "cloud datastore project id")
	fs.StringVar(&cfg.Namespace, "namespace", cfg.Namespace, "cloud datastore namespace")
	collections := fs.String("collections", strings.Join(cfg.Collections, ","), "comma separated collections (default: all)")
	fs.IntVar(&cfg.BatchSize, "batch", cfg.BatchSize, "records per query")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "collections migrated at once")
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "report without writing")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "log every store operation")
	fs.BoolVar(&cfg.Trace, "trace", cfg.Trace, "print a span per store operation to stdout")
	fs.StringVar(&cfg.Cache, "cache", cfg.Cache, "record cache to keep up to date: local, redis or memcache")
	fs.StringVar(&cfg.CacheAddr, "cache-addr", cfg.CacheAddr, "redis or memcached address of the cache")
	fs.DurationVar(&cfg.CacheTTL, "cache-ttl", cfg.CacheTTL, "lifetime of cached records")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Collections = nil
	for _, c := range strings.Split(*collections, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cfg.Collections = append(cfg.Collections, c)
		}
	}

	return cfg, nil
}

var knownTargets = []migrator.Target{
	{Collection: world.PlayerCollection, Class: world.PlayerClass},
	{Collection: world.QuestCollection, Class: world.QuestClass},
	{Collection: world.LetterCollection, Class: world.LetterClass},
	{Collection: world.LocationCollection, Class: world.LocationClass},
}

func (cfg *config) targets() ([]migrator.Target, error) {
	if len(cfg.Collections) == 0 {
		return knownTargets, nil
	}

	var list []migrator.Target
	for _, name := range cfg.Collections {
		found := false
		for _, t := range knownTargets {
			if t.Collection == name {
				list = append(list, t)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown collection %q", name)
		}
	}
	return list, nil
}

func (cfg *config) openClient(ctx context.Context, logf worldstore.Logf) (worldstore.Client, error) {
	var client worldstore.Client
	switch cfg.Backend {
	case "memory":
		client, _ = memstore.NewClient()
	case "sqlite":
		var err error
		client, err = sqlitestore.NewClient(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
	case "postgres":
		s, err := gormstore.Open(cfg.PostgresDSN, gormstore.WithLogger(logf))
		if err != nil {
			return nil, err
		}
		client = worldstore.NewClient(s)
	case "redis":
		s, err := redisstore.Open(ctx, cfg.RedisAddr, redisstore.WithPrefix(cfg.RedisPrefix))
		if err != nil {
			return nil, err
		}
		client = worldstore.NewClient(s)
	case "datastore":
		opts := []clouddatastore.ClientOption{clouddatastore.WithNamespace(cfg.Namespace)}
		if cfg.ProjectID != "" {
			opts = append(opts, clouddatastore.WithProjectID(cfg.ProjectID))
		}
		var err error
		client, err = clouddatastore.FromContext(ctx, opts...)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	if cfg.Cache != "" {
		mw, err := cfg.cacheMiddleware(logf)
		if err != nil {
			client.Close()
			return nil, err
		}
		client.AppendMiddleware(mw)
	}
	if cfg.Verbose {
		client.AppendMiddleware(dslog.NewLogger("worldmigrate: ", logf))
	}
	if 0 < cfg.RetryLimit {
		client.AppendMiddleware(rpcretry.New(
			rpcretry.WithRetryLimit(cfg.RetryLimit),
			rpcretry.WithBackoff(rpcretry.Backoff{Min: 100 * time.Millisecond, Max: 5 * time.Second}),
			rpcretry.WithLogger(logf),
		))
	}

	return client, nil
}

// cacheMiddleware builds the record cache named by cfg.Cache.
func (cfg *config) cacheMiddleware(logf worldstore.Logf) (worldstore.Middleware, error) {
	opts := []storagecache.Option{
		storagecache.WithLogger(logf),
		storagecache.WithTTL(cfg.CacheTTL),
		storagecache.WithPrefix(cfg.CachePrefix),
	}
	switch cfg.Cache {
	case "local":
		return localcache.New(opts...), nil
	case "redis":
		if cfg.CacheAddr == "" {
			return nil, errors.New("redis cache needs -cache-addr")
		}
		return rediscache.New(rediscache.NewPool(cfg.CacheAddr, cfg.Concurrency), opts...), nil
	case "memcache":
		if cfg.CacheAddr == "" {
			return nil, errors.New("memcache cache needs -cache-addr")
		}
		return dsmemcache.New(memcache.New(cfg.CacheAddr), opts...), nil
	}
	return nil, fmt.Errorf("unknown cache %q", cfg.Cache)
}

func (cfg *config) migratorOptions(logf worldstore.Logf) []migrator.Option {
	opts := []migrator.Option{
		migrator.WithBatchSize(cfg.BatchSize),
		migrator.WithConcurrency(cfg.Concurrency),
		migrator.WithLogger(logf),
	}
	if cfg.DryRun {
		opts = append(opts, migrator.WithDryRun())
	}
	return opts
}
