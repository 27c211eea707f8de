// Package storagecache is the read-through record cache behind the
// localcache, rediscache and dsmemcache middlewares.
//
// A Storage only keeps records. This package decides what goes through it:
// FindByID, id lookups by Find and Exists are answered from the cache when
// possible, records read or written are put back, and failed or deleting
// writes evict the key. Paging and version queries always reach the store.
package storagecache

import (
	"context"
	"errors"
	"sort"

	"go.mercari.io/worldstore"
)

var _ worldstore.Middleware = &cacheHandler{}

// Storage keeps cached records.
type Storage interface {
	// Get returns one record per key, nil where the cache misses.
	Get(ctx context.Context, keys []worldstore.Key) ([]*worldstore.Record, error)
	Put(ctx context.Context, recs []*worldstore.Record) error
	Evict(ctx context.Context, keys []worldstore.Key) error
}

// New returns a read-through cache middleware over s.
func New(s Storage, cfg *Config) worldstore.Middleware {
	if cfg == nil {
		cfg = NewConfig(Config{})
	}
	return &cacheHandler{s: s, cfg: cfg}
}

type cacheHandler struct {
	s   Storage
	cfg *Config
}

func (ch *cacheHandler) lookup(ctx context.Context, op string, keys []worldstore.Key) map[string]*worldstore.Record {
	targets := keys[:0:0]
	for _, key := range keys {
		if ch.cfg.Target(ctx, key) {
			targets = append(targets, key)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	recs, err := ch.s.Get(ctx, targets)
	if err != nil {
		ch.cfg.Logf(ctx, "storagecache.%s: get err=%s", op, err.Error())
		return nil
	}
	found := make(map[string]*worldstore.Record, len(recs))
	for _, rec := range recs {
		if rec != nil {
			found[rec.Key.ID] = rec
		}
	}
	return found
}

func (ch *cacheHandler) put(ctx context.Context, op string, recs ...*worldstore.Record) {
	list := make([]*worldstore.Record, 0, len(recs))
	for _, rec := range recs {
		if rec != nil && !rec.Key.Incomplete() && ch.cfg.Target(ctx, rec.Key) {
			list = append(list, rec)
		}
	}
	if len(list) == 0 {
		return
	}
	if err := ch.s.Put(ctx, list); err != nil {
		ch.cfg.Logf(ctx, "storagecache.%s: put err=%s", op, err.Error())
	}
}

func (ch *cacheHandler) evict(ctx context.Context, op string, key worldstore.Key) {
	if !ch.cfg.Target(ctx, key) {
		return
	}
	if err := ch.s.Evict(ctx, []worldstore.Key{key}); err != nil {
		ch.cfg.Logf(ctx, "storagecache.%s: evict err=%s", op, err.Error())
	}
}

func (ch *cacheHandler) FindByID(info *worldstore.MiddlewareInfo, key worldstore.Key) (*worldstore.Record, error) {
	if rec, ok := ch.lookup(info.Context, "FindByID", []worldstore.Key{key})[key.ID]; ok {
		return rec, nil
	}

	rec, err := info.Next.FindByID(info, key)
	if err != nil {
		return nil, err
	}
	ch.put(info.Context, "FindByID", rec)
	return rec, nil
}

// byIDs reports whether q is a pure id lookup, the only query shape served
// from the cache.
func byIDs(q *worldstore.Query) bool {
	return len(q.IDs) != 0 && q.StartAfter == "" && q.Limit == 0 && q.VersionBelow == 0
}

func (ch *cacheHandler) Find(info *worldstore.MiddlewareInfo, q *worldstore.Query) ([]*worldstore.Record, error) {
	if !byIDs(q) {
		return info.Next.Find(info, q)
	}

	keys := make([]worldstore.Key, 0, len(q.IDs))
	for _, id := range q.IDs {
		keys = append(keys, worldstore.NewKey(q.Collection, id))
	}
	found := ch.lookup(info.Context, "Find", keys)
	if found == nil {
		found = make(map[string]*worldstore.Record, len(q.IDs))
	}

	var missing []string
	for _, id := range q.IDs {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) != 0 {
		recs, err := info.Next.Find(info, &worldstore.Query{Collection: q.Collection, IDs: missing})
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			found[rec.Key.ID] = rec
		}
		ch.put(info.Context, "Find", recs...)
	}

	list := make([]*worldstore.Record, 0, len(found))
	for _, rec := range found {
		list = append(list, rec)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Key.ID < list[j].Key.ID })
	return list, nil
}

func (ch *cacheHandler) Create(info *worldstore.MiddlewareInfo, rec *worldstore.Record) error {
	err := info.Next.Create(info, rec)
	if errors.Is(err, worldstore.ErrRecordExists) {
		// whatever is cached for the key may be stale
		ch.evict(info.Context, "Create", rec.Key)
		return err
	} else if err != nil {
		return err
	}
	ch.put(info.Context, "Create", rec)
	return nil
}

func (ch *cacheHandler) FindByIDAndUpdate(info *worldstore.MiddlewareInfo, key worldstore.Key, rec *worldstore.Record, upsert bool) (*worldstore.Record, error) {
	stored, err := info.Next.FindByIDAndUpdate(info, key, rec, upsert)
	if err != nil {
		ch.evict(info.Context, "FindByIDAndUpdate", key)
		return nil, err
	}
	ch.put(info.Context, "FindByIDAndUpdate", stored)
	return stored, nil
}

func (ch *cacheHandler) Exists(info *worldstore.MiddlewareInfo, key worldstore.Key) (bool, error) {
	if _, ok := ch.lookup(info.Context, "Exists", []worldstore.Key{key})[key.ID]; ok {
		return true, nil
	}
	return info.Next.Exists(info, key)
}

func (ch *cacheHandler) Delete(info *worldstore.MiddlewareInfo, key worldstore.Key) error {
	err := info.Next.Delete(info, key)
	ch.evict(info.Context, "Delete", key)
	return err
}
