// Package rediscache keeps records in redis, shared by every process
// pointing at the same server. Connections come from a redigo pool.
package rediscache

import (
	"context"
	"time"

	"github.com/gomodule/redigo/redis"
	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/dsmiddleware/storagecache"
)

var _ storagecache.Storage = &Cache{}
var _ worldstore.Middleware = &Cache{}

const (
	defaultTTL    = 15 * time.Minute
	defaultPrefix = "worldstore:cache:"
)

// Cache is a redis backed record cache. Append it to a client to use it.
type Cache struct {
	worldstore.Middleware

	pool *redis.Pool
	cfg  *storagecache.Config
}

// New returns a Cache over pool. Entries expire after 15 minutes unless
// opts say otherwise.
func New(pool *redis.Pool, opts ...storagecache.Option) *Cache {
	cfg := storagecache.NewConfig(storagecache.Config{
		TTL:    defaultTTL,
		Prefix: defaultPrefix,
	}, opts...)

	c := &Cache{pool: pool, cfg: cfg}
	c.Middleware = storagecache.New(c, cfg)
	return c
}

// NewPool returns a pool dialing addr.
func NewPool(addr string, maxIdle int) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     maxIdle,
		IdleTimeout: 4 * time.Minute,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr)
		},
	}
}

func (c *Cache) args(keys []worldstore.Key) []interface{} {
	args := make([]interface{}, 0, len(keys))
	for _, key := range keys {
		args = append(args, c.cfg.CacheKey(key))
	}
	return args
}

func (c *Cache) Get(ctx context.Context, keys []worldstore.Key) ([]*worldstore.Record, error) {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	bs, err := redis.ByteSlices(conn.Do("MGET", c.args(keys)...))
	if err != nil {
		return nil, err
	}

	list := make([]*worldstore.Record, len(keys))
	hit, miss := 0, 0
	for idx, b := range bs {
		if b == nil {
			miss++
			continue
		}
		rec, err := storagecache.Unmarshal(keys[idx], b)
		if err != nil {
			c.cfg.Logf(ctx, "rediscache.Get: key=%s err=%s", keys[idx].String(), err.Error())
			miss++
			continue
		}
		list[idx] = rec
		hit++
	}

	c.cfg.Logf(ctx, "rediscache.Get: hit=%d miss=%d", hit, miss)
	return list, nil
}

// Put pipelines one SET per record.
func (c *Cache) Put(ctx context.Context, recs []*worldstore.Record) error {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	sent := 0
	for _, rec := range recs {
		b, err := storagecache.Marshal(rec)
		if err != nil {
			c.cfg.Logf(ctx, "rediscache.Put: key=%s err=%s", rec.Key.String(), err.Error())
			continue
		}
		args := []interface{}{c.cfg.CacheKey(rec.Key), b}
		if 0 < c.cfg.TTL {
			args = append(args, "PX", c.cfg.TTL.Milliseconds())
		}
		if err := conn.Send("SET", args...); err != nil {
			return err
		}
		sent++
	}
	if err := conn.Flush(); err != nil {
		return err
	}
	for i := 0; i < sent; i++ {
		if _, err := conn.Receive(); err != nil {
			return err
		}
	}

	c.cfg.Logf(ctx, "rediscache.Put: len=%d", sent)
	return nil
}

func (c *Cache) Evict(ctx context.Context, keys []worldstore.Key) error {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	n, err := redis.Int(conn.Do("DEL", c.args(keys)...))
	if err != nil {
		return err
	}
	c.cfg.Logf(ctx, "rediscache.Evict: len=%d deleted=%d", len(keys), n)
	return nil
}
