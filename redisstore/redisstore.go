// Package redisstore is a worldstore.Backend on top of Redis.
//
// Each record is a hash with the fields "v" and "d". Every collection
// keeps a sorted set of its ids, scored 0, so that paging can walk the ids
// in lexical order.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.mercari.io/worldstore"
)

var _ worldstore.Backend = (*Store)(nil)

const defaultPrefix = "worldstore:"

// KEYS[1] record hash, KEYS[2] collection index. ARGV: id, v, d.
var createScript = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "v", ARGV[2], "d", ARGV[3])
redis.call("ZADD", KEYS[2], 0, ARGV[1])
return 1
`)

// ARGV[4] is "1" for upsert.
var updateScript = goredis.NewScript(`
if ARGV[4] ~= "1" and redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], "v", ARGV[2], "d", ARGV[3])
redis.call("ZADD", KEYS[2], 0, ARGV[1])
return 1
`)

// Store keeps records in a single Redis database.
type Store struct {
	rdb    goredis.UniversalClient
	prefix string
	owned  bool
}

type Option interface {
	Apply(*Store)
}

// WithPrefix namespaces every Redis key the store touches.
func WithPrefix(prefix string) Option {
	return &withPrefix{prefix}
}

type withPrefix struct{ prefix string }

func (w *withPrefix) Apply(s *Store) {
	s.prefix = w.prefix
}

// Open dials addr and checks the connection.
func Open(ctx context.Context, addr string, opts ...Option) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redisstore: ping: %w", err)
	}

	s := New(rdb, opts...)
	s.owned = true
	return s, nil
}

// New wraps an existing client. Close leaves rdb open.
func New(rdb goredis.UniversalClient, opts ...Option) *Store {
	s := &Store{rdb: rdb, prefix: defaultPrefix}
	for _, opt := range opts {
		opt.Apply(s)
	}
	return s
}

func (s *Store) recordKey(key worldstore.Key) string {
	return s.prefix + "r:" + key.Encode()
}

func (s *Store) indexKey(collection string) string {
	return s.prefix + "c:" + collection
}

func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.rdb.Close()
}

func toRecord(key worldstore.Key, fields map[string]string) (*worldstore.Record, error) {
	if len(fields) == 0 {
		return nil, worldstore.ErrNoSuchRecord
	}
	v, err := strconv.Atoi(fields["v"])
	if err != nil {
		return nil, fmt.Errorf("redisstore: broken version on %s: %w", key.String(), err)
	}
	return &worldstore.Record{Key: key, V: v, D: []byte(fields["d"])}, nil
}

func (s *Store) FindByID(ctx context.Context, key worldstore.Key) (*worldstore.Record, error) {
	fields, err := s.rdb.HGetAll(ctx, s.recordKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: find %s: %w", key.String(), err)
	}
	return toRecord(key, fields)
}

func (s *Store) Find(ctx context.Context, q *worldstore.Query) ([]*worldstore.Record, error) {
	ids := q.IDs
	if len(ids) == 0 {
		var err error
		ids, err = s.scanIDs(ctx, q)
		if err != nil {
			return nil, err
		}
	} else {
		ids = append([]string(nil), ids...)
		sort.Strings(ids)
	}

	keys := make([]worldstore.Key, 0, len(ids))
	cmds := make([]*goredis.MapStringStringCmd, 0, len(ids))
	_, err := s.rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for _, id := range ids {
			key := worldstore.NewKey(q.Collection, id)
			keys = append(keys, key)
			cmds = append(cmds, pipe.HGetAll(ctx, s.recordKey(key)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redisstore: find in %s: %w", q.Collection, err)
	}

	var list []*worldstore.Record
	for idx, cmd := range cmds {
		rec, err := toRecord(keys[idx], cmd.Val())
		if errors.Is(err, worldstore.ErrNoSuchRecord) {
			continue
		} else if err != nil {
			return nil, err
		}
		if !q.Match(rec) {
			continue
		}
		list = append(list, rec)
		if 0 < q.Limit && q.Limit <= len(list) {
			break
		}
	}

	return list, nil
}

func (s *Store) scanIDs(ctx context.Context, q *worldstore.Query) ([]string, error) {
	start := "-"
	if q.StartAfter != "" {
		start = "(" + q.StartAfter
	}
	args := goredis.ZRangeArgs{
		Key:   s.indexKey(q.Collection),
		Start: start,
		Stop:  "+",
		ByLex: true,
	}
	// the version filter runs after loading, so the count can't be pushed down.
	if 0 < q.Limit && q.VersionBelow == 0 {
		args.Count = int64(q.Limit)
	}
	ids, err := s.rdb.ZRangeArgs(ctx, args).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: scan %s: %w", q.Collection, err)
	}
	return ids, nil
}

func (s *Store) Create(ctx context.Context, rec *worldstore.Record) error {
	keys := []string{s.recordKey(rec.Key), s.indexKey(rec.Key.Collection)}
	n, err := createScript.Run(ctx, s.rdb, keys, rec.Key.ID, rec.V, rec.D).Int()
	if err != nil {
		return fmt.Errorf("redisstore: create %s: %w", rec.Key.String(), err)
	}
	if n == 0 {
		return worldstore.ErrRecordExists
	}
	return nil
}

func (s *Store) FindByIDAndUpdate(ctx context.Context, key worldstore.Key, rec *worldstore.Record, upsert bool) (*worldstore.Record, error) {
	flag := "0"
	if upsert {
		flag = "1"
	}
	keys := []string{s.recordKey(key), s.indexKey(key.Collection)}
	n, err := updateScript.Run(ctx, s.rdb, keys, key.ID, rec.V, rec.D, flag).Int()
	if err != nil {
		return nil, fmt.Errorf("redisstore: update %s: %w", key.String(), err)
	}
	if n == 0 {
		return nil, worldstore.ErrNoSuchRecord
	}
	return &worldstore.Record{Key: key, V: rec.V, D: append([]byte(nil), rec.D...)}, nil
}

func (s *Store) Exists(ctx context.Context, key worldstore.Key) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.recordKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redisstore: exists %s: %w", key.String(), err)
	}
	return n == 1, nil
}

func (s *Store) Delete(ctx context.Context, key worldstore.Key) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, s.recordKey(key))
		pipe.ZRem(ctx, s.indexKey(key.Collection), key.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstore: delete %s: %w", key.String(), err)
	}
	return nil
}

// Purge removes every key under the store's prefix.
func (s *Store) Purge(ctx context.Context) error {
	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redisstore: purge: %w", err)
		}
	}
	return iter.Err()
}
