package dsmemcache

import (
	"context"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/dsmiddleware/storagecache"
)

var _ storagecache.Storage = &Cache{}
var _ worldstore.Middleware = &Cache{}

const defaultPrefix = "worldstore:cache:"

// Cache is a memcached backed record cache. Append it to a client to use
// it.
type Cache struct {
	worldstore.Middleware

	client *memcache.Client
	cfg    *storagecache.Config
}

// New returns a Cache over client. Entries don't expire unless
// storagecache.WithTTL is given.
func New(client *memcache.Client, opts ...storagecache.Option) *Cache {
	cfg := storagecache.NewConfig(storagecache.Config{Prefix: defaultPrefix}, opts...)
	c := &Cache{client: client, cfg: cfg}
	c.Middleware = storagecache.New(c, cfg)
	return c
}

func (c *Cache) expiration() int32 {
	if c.cfg.TTL <= 0 {
		return 0
	}
	return int32((c.cfg.TTL + time.Second - 1) / time.Second)
}

func (c *Cache) Get(ctx context.Context, keys []worldstore.Key) ([]*worldstore.Record, error) {
	cacheKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		cacheKeys = append(cacheKeys, c.cfg.CacheKey(key))
	}
	items, err := c.client.GetMulti(cacheKeys)
	if err != nil {
		return nil, err
	}

	list := make([]*worldstore.Record, len(keys))
	hit, miss := 0, 0
	for idx, key := range keys {
		item, ok := items[cacheKeys[idx]]
		if !ok {
			miss++
			continue
		}
		rec, err := storagecache.Unmarshal(key, item.Value)
		if err != nil {
			c.cfg.Logf(ctx, "dsmemcache.Get: key=%s err=%s", key.String(), err.Error())
			miss++
			continue
		}
		list[idx] = rec
		hit++
	}

	c.cfg.Logf(ctx, "dsmemcache.Get: hit=%d miss=%d", hit, miss)
	return list, nil
}

func (c *Cache) Put(ctx context.Context, recs []*worldstore.Record) error {
	var errs worldstore.MultiError
	for _, rec := range recs {
		b, err := storagecache.Marshal(rec)
		if err == nil {
			err = c.client.Set(&memcache.Item{
				Key:        c.cfg.CacheKey(rec.Key),
				Value:      b,
				Expiration: c.expiration(),
			})
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	c.cfg.Logf(ctx, "dsmemcache.Put: len=%d failed=%d", len(recs), len(errs))
	if len(errs) != 0 {
		return errs
	}
	return nil
}

func (c *Cache) Evict(ctx context.Context, keys []worldstore.Key) error {
	var errs worldstore.MultiError
	for _, key := range keys {
		err := c.client.Delete(c.cfg.CacheKey(key))
		if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
			errs = append(errs, err)
		}
	}

	c.cfg.Logf(ctx, "dsmemcache.Evict: len=%d", len(keys))
	if len(errs) != 0 {
		return errs
	}
	return nil
}
