// Package localcache keeps records in process memory. Once MaxEntries is
// reached the least recently used record is dropped.
package localcache

import (
	"context"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/dsmiddleware/storagecache"
)

var _ storagecache.Storage = &Cache{}
var _ worldstore.Middleware = &Cache{}

const (
	defaultTTL        = 3 * time.Minute
	defaultMaxEntries = 10000
)

// Cache is a per-process record cache. Append it to a client to use it.
type Cache struct {
	worldstore.Middleware
	cfg *storagecache.Config

	m       sync.Mutex
	lru     *lru.Cache
	dropped int
}

type item struct {
	rec   worldstore.Record
	setAt time.Time
}

// New returns a Cache. Entries live for 3 minutes and at most 10000 are
// kept unless opts say otherwise.
func New(opts ...storagecache.Option) *Cache {
	cfg := storagecache.NewConfig(storagecache.Config{
		TTL:        defaultTTL,
		MaxEntries: defaultMaxEntries,
	}, opts...)

	c := &Cache{cfg: cfg, lru: lru.New(cfg.MaxEntries)}
	c.lru.OnEvicted = func(lru.Key, interface{}) { c.dropped++ }
	c.Middleware = storagecache.New(c, cfg)
	return c
}

func (c *Cache) expired(it *item, now time.Time) bool {
	return 0 < c.cfg.TTL && !now.Before(it.setAt.Add(c.cfg.TTL))
}

func (c *Cache) Get(ctx context.Context, keys []worldstore.Key) ([]*worldstore.Record, error) {
	c.m.Lock()
	defer c.m.Unlock()

	now := c.cfg.Now()
	list := make([]*worldstore.Record, len(keys))
	hit, miss, expired := 0, 0, 0
	for idx, key := range keys {
		v, ok := c.lru.Get(key.Encode())
		if !ok {
			miss++
			continue
		}
		it := v.(*item)
		if c.expired(it, now) {
			c.lru.Remove(key.Encode())
			expired++
			continue
		}
		rec := it.rec
		rec.D = append([]byte(nil), it.rec.D...)
		list[idx] = &rec
		hit++
	}

	c.cfg.Logf(ctx, "localcache.Get: hit=%d miss=%d expired=%d", hit, miss, expired)
	return list, nil
}

func (c *Cache) Put(ctx context.Context, recs []*worldstore.Record) error {
	c.m.Lock()
	defer c.m.Unlock()

	now := c.cfg.Now()
	before := c.dropped
	for _, rec := range recs {
		it := &item{rec: *rec, setAt: now}
		it.rec.D = append([]byte(nil), rec.D...)
		c.lru.Add(rec.Key.Encode(), it)
	}

	c.cfg.Logf(ctx, "localcache.Put: len=%d dropped=%d", len(recs), c.dropped-before)
	return nil
}

func (c *Cache) Evict(ctx context.Context, keys []worldstore.Key) error {
	c.m.Lock()
	defer c.m.Unlock()

	for _, key := range keys {
		c.lru.Remove(key.Encode())
	}
	c.cfg.Logf(ctx, "localcache.Evict: len=%d", len(keys))
	return nil
}

// HasCache reports whether key is cached, expired or not.
func (c *Cache) HasCache(key worldstore.Key) bool {
	c.m.Lock()
	defer c.m.Unlock()

	_, ok := c.lru.Get(key.Encode())
	return ok
}

func (c *Cache) CacheLen() int {
	c.m.Lock()
	defer c.m.Unlock()

	return c.lru.Len()
}

// Flush drops every entry.
func (c *Cache) Flush() {
	c.m.Lock()
	defer c.m.Unlock()

	c.lru.Clear()
}
