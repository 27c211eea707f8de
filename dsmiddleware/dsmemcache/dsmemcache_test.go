package dsmemcache

import (
	"context"
	"testing"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/bradfitz/gomemcache/memcache"
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

func TestMemcache_Basic(t *testing.T) {
	addr := testutils.RequireEnv(t, "MEMCACHE_ADDR")

	ctx, client, _, cleanUp := testutils.SetupMemstore(t)
	defer cleanUp()

	logs := &testutils.LogRecorder{}

	// setup. strategies are first in - first apply.

	bLog := dslog.NewLogger("before: ", logs.Logf)
	client.AppendMiddleware(bLog)
	defer client.RemoveMiddleware(bLog)

	ch := New(
		memcache.New(addr),
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
		dsmemcache.Put: len=1 failed=0
		dsmemcache.Get: hit=1 miss=0
		before: FindByID #2, key=/players,p1
		dsmemcache.Get: hit=1 miss=0
		before: FindByID #2, v=1, len(d)=3
		before: Delete #3, key=/players,p1
		after: Delete #2, key=/players,p1
		dsmemcache.Evict: len=1
		dsmemcache.Get: hit=0 miss=1
	`)

	if v := logs.String(); v != expected {
		t.Errorf("unexpected: %v", v)
	}
}

func TestMemcache_WithExcludeCollections(t *testing.T) {
	addr := testutils.RequireEnv(t, "MEMCACHE_ADDR")

	ctx, client, _, cleanUp := testutils.SetupMemstore(t)
	defer cleanUp()

	ch := New(
		memcache.New(addr),
		storagecache.WithExcludeCollections("letters"),
		storagecache.WithPrefix("test:"+uuid.NewString()+":"),
	)
	client.AppendMiddleware(ch)
	defer client.RemoveMiddleware(ch)

	key := worldstore.NewKey("letters", "l1")
	if err := client.Create(ctx, &worldstore.Record{Key: key, V: 1}); err != nil {
		t.Fatal(err)
	}

	hit, err := inCache(ctx, ch, key)
	if err != nil {
		t.Fatal(err)
	} else if v := hit; v {
		t.Fatalf("unexpected: %v", v)
	}
}

func TestMemcache_Expiration(t *testing.T) {
	for _, tt := range []struct {
		ttl  time.Duration
		want int32
	}{
		{0, 0},
		{-time.Second, 0},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{time.Minute, 60},
	} {
		ch := New(nil, storagecache.WithTTL(tt.ttl))
		if v := ch.expiration(); v != tt.want {
			t.Errorf("unexpected: %v for %v", v, tt.ttl)
		}
	}
}
