package splitop

import (
	"fmt"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/dsmiddleware/dslog"
	"go.mercari.io/worldstore/internal/testutils"
)

func TestSplitOp_Basic(t *testing.T) {
	ctx, client, store, cleanUp := testutils.SetupMemstore(t)
	defer cleanUp()

	var ids []string
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("p%d", i)
		ids = append(ids, id)
		// 2 and 4 are missing.
		if i%2 == 0 {
			continue
		}
		err := store.Create(ctx, &worldstore.Record{Key: worldstore.NewKey("players", id), V: 1})
		if err != nil {
			t.Fatal(err)
		}
	}

	logs := &testutils.LogRecorder{}

	// setup. strategies are first in - first apply.

	bLog := dslog.NewLogger("before: ", logs.Logf)
	client.AppendMiddleware(bLog)
	defer client.RemoveMiddleware(bLog)

	sh := New(
		WithLogger(logs.Logf),
		WithSplitThreshold(3),
	)
	client.AppendMiddleware(sh)
	defer client.RemoveMiddleware(sh)

	aLog := dslog.NewLogger("after: ", logs.Logf)
	client.AppendMiddleware(aLog)
	defer client.RemoveMiddleware(aLog)

	recs, err := client.Find(ctx, &worldstore.Query{Collection: "players", IDs: ids})
	if err != nil {
		t.Fatal(err)
	}
	if v := len(recs); v != 3 {
		t.Fatalf("unexpected: %v", v)
	}

	expected := heredoc.Doc(`
		before: Find #1, collection=players, len(ids)=5, startAfter="", limit=0, versionBelow=0
		splitop.Find: ids=5 chunks=2
		splitop.Find: chunk [0, 3)
		after: Find #1, collection=players, len(ids)=3, startAfter="", limit=0, versionBelow=0
		after: Find #1, len(recs)=2, keys=[/players,p1, /players,p3]
		splitop.Find: chunk [3, 5)
		after: Find #2, collection=players, len(ids)=2, startAfter="", limit=0, versionBelow=0
		after: Find #2, len(recs)=1, keys=[/players,p5]
		before: Find #1, len(recs)=3, keys=[/players,p1, /players,p3, /players,p5]
	`)

	if v := logs.String(); v != expected {
		t.Errorf("unexpected: %v", v)
	}
}

func TestSplitOp_Limit(t *testing.T) {
	ctx, client, store, cleanUp := testutils.SetupMemstore(t)
	defer cleanUp()

	var ids []string
	for i := 5; 1 <= i; i-- {
		id := fmt.Sprintf("p%d", i)
		ids = append(ids, id)
		err := store.Create(ctx, &worldstore.Record{Key: worldstore.NewKey("players", id), V: 1})
		if err != nil {
			t.Fatal(err)
		}
	}

	sh := New(WithSplitThreshold(2))
	client.AppendMiddleware(sh)
	defer client.RemoveMiddleware(sh)

	before := store.Calls.Load()
	recs, err := client.Find(ctx, &worldstore.Query{Collection: "players", IDs: ids, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if v := store.Calls.Load() - before; v != 3 {
		t.Fatalf("unexpected: %v", v)
	}
	if v := len(recs); v != 2 {
		t.Fatalf("unexpected: %v", v)
	}
	if v := recs[0].Key.ID + "," + recs[1].Key.ID; v != "p1,p2" {
		t.Fatalf("unexpected: %v", v)
	}
}

func TestSplitOp_Concurrent(t *testing.T) {
	ctx, client, store, cleanUp := testutils.SetupMemstore(t)
	defer cleanUp()

	var ids []string
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("p%02d", i)
		ids = append(ids, id)
		err := store.Create(ctx, &worldstore.Record{Key: worldstore.NewKey("players", id), V: 1})
		if err != nil {
			t.Fatal(err)
		}
	}

	sh := New(WithSplitThreshold(7), WithConcurrency(4))
	client.AppendMiddleware(sh)
	defer client.RemoveMiddleware(sh)

	before := store.Calls.Load()
	recs, err := client.Find(ctx, &worldstore.Query{Collection: "players", IDs: ids})
	if err != nil {
		t.Fatal(err)
	}
	if v := store.Calls.Load() - before; v != 8 {
		t.Fatalf("unexpected: %v", v)
	}
	if v := len(recs); v != 50 {
		t.Fatalf("unexpected: %v", v)
	}
	for idx, rec := range recs {
		if v := rec.Key.ID; v != ids[idx] {
			t.Fatalf("unexpected: #%d %v", idx, v)
		}
	}
}
