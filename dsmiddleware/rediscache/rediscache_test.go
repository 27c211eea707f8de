package rediscache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/gomodule/redigo/redis"
	"github.com/google/uuid"
	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/dsmiddleware/dslog"
	"go.mercari.io/worldstore/dsmiddleware/storagecache"
	"go.mercari.io/worldstore/internal/testutils"
)

func inCache(ctx context.Context, ch storagecache.Storage, key worldstore.Key) (bool, error) {
	resp, err := ch.Get(ctx, []worldstore.Key{key})
	if err != nil {
		return false, err
	} else if v := len(resp); v != 1 {
		return false, nil
	}
	return resp[0] != nil, nil
}

func newPool(t *testing.T) *redis.Pool {
	host := testutils.RequireEnv(t, "REDIS_HOST")
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	return NewPool(host+":"+port, 2)
}

func TestRedisCache_Basic(t *testing.T) {
	ctx, client, _, cleanUp := testutils.SetupMemstore(t)
	defer cleanUp()

	logs := &testutils.LogRecorder{}

	// setup. strategies are first in - first apply.

	bLog := dslog.NewLogger("before: ", logs.Logf)
	client.AppendMiddleware(bLog)
	defer client.RemoveMiddleware(bLog)

	pool := newPool(t)
	defer pool.Close()
	ch := New(
		pool,
		storagecache.WithLogger(logs.Logf),
		storagecache.WithPrefix("test:"+uuid.NewString()+":"),
	)
	client.AppendMiddleware(ch)
	defer client.RemoveMiddleware(ch)

	aLog := dslog.NewLogger("after: ", logs.Logf)
	client.AppendMiddleware(aLog)
	defer client.RemoveMiddleware(aLog)

	// Create. add to cache.
	key := worldstore.NewKey("players", "p1")
	err := client.Create(ctx, &worldstore.Record{Key: key, V: 1, D: []byte("abc")})
	if err != nil {
		t.Fatal(err)
	}

	hit, err := inCache(ctx, ch, key)
	if err != nil {
		t.Fatal(err)
	} else if v := hit; !v {
		t.Fatalf("unexpected: %v", v)
	}

	// FindByID. from cache.
	rec, err := client.FindByID(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if v := string(rec.D); v != "abc" {
		t.Fatalf("unexpected: %v", v)
	}

	// Delete.
	err = client.Delete(ctx, key)
	if err != nil {
		t.Fatal(err)
	}

	hit, err = inCache(ctx, ch, key)
	if err != nil {
		t.Fatal(err)
	} else if v := hit; v {
		t.Fatalf("unexpected: %v", v)
	}

	expected := heredoc.Doc(`
		before: Create #1, key=/players,p1, v=1
		after: Create #1, key=/players,p1, v=1
		rediscache.Put: len=1
		rediscache.Get: hit=1 miss=0
		before: FindByID #2, key=/players,p1
		rediscache.Get: hit=1 miss=0
		before: FindByID #2, v=1, len(d)=3
		before: Delete #3, key=/players,p1
		after: Delete #2, key=/players,p1
		rediscache.Evict: len=1 deleted=1
		rediscache.Get: hit=0 miss=1
	`)

	if v := logs.String(); v != expected {
		t.Errorf("unexpected: %v", v)
	}
}

func TestRedisCache_TTL(t *testing.T) {
	ctx, client, _, cleanUp := testutils.SetupMemstore(t)
	defer cleanUp()

	pool := newPool(t)
	defer pool.Close()
	prefix := "test:" + uuid.NewString() + ":"

	forever := New(pool, storagecache.WithTTL(0), storagecache.WithPrefix(prefix+"forever:"))
	client.AppendMiddleware(forever)
	defer client.RemoveMiddleware(forever)
	short := New(pool, storagecache.WithTTL(time.Minute), storagecache.WithPrefix(prefix+"short:"))
	client.AppendMiddleware(short)
	defer client.RemoveMiddleware(short)

	key := worldstore.NewKey("players", "p1")
	if err := client.Create(ctx, &worldstore.Record{Key: key, V: 1}); err != nil {
		t.Fatal(err)
	}

	conn := pool.Get()
	defer conn.Close()
	defer conn.Do("DEL", prefix+"forever:"+key.Encode(), prefix+"short:"+key.Encode())

	ttl, err := redis.Int(conn.Do("PTTL", prefix+"forever:"+key.Encode()))
	if err != nil {
		t.Fatal(err)
	}
	// -1 means the key has no expiration.
	if v := ttl; v != -1 {
		t.Fatalf("unexpected: %v", v)
	}

	ttl, err = redis.Int(conn.Do("PTTL", prefix+"short:"+key.Encode()))
	if err != nil {
		t.Fatal(err)
	}
	if v := ttl; v <= 0 || 60000 < v {
		t.Fatalf("unexpected: %v", v)
	}
}

func TestRedisCache_ForeignEntryIsAMiss(t *testing.T) {
	ctx := context.Background()

	pool := newPool(t)
	defer pool.Close()
	ch := New(pool, storagecache.WithPrefix("test:"+uuid.NewString()+":"))

	p1 := worldstore.NewKey("players", "p1")
	p2 := worldstore.NewKey("players", "p2")
	b, err := storagecache.Marshal(&worldstore.Record{Key: p1, V: 1})
	if err != nil {
		t.Fatal(err)
	}

	conn := pool.Get()
	defer conn.Close()
	if _, err := conn.Do("SET", ch.cfg.CacheKey(p2), b); err != nil {
		t.Fatal(err)
	}
	defer conn.Do("DEL", ch.cfg.CacheKey(p2))

	hit, err := inCache(ctx, ch, p2)
	if err != nil {
		t.Fatal(err)
	} else if v := hit; v {
		t.Fatalf("unexpected: %v", v)
	}
}
