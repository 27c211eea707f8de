package dslog

import (
	"errors"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/internal/testutils"
)

func TestLogger_Basic(t *testing.T) {
	ctx, client, _, cleanUp := testutils.SetupMemstore(t)
	defer cleanUp()

	rec := &testutils.LogRecorder{}
	l := NewLogger("log: ", rec.Logf)
	client.AppendMiddleware(l)
	defer client.RemoveMiddleware(l)

	key := worldstore.NewKey("players", "p1")
	err := client.Create(ctx, &worldstore.Record{Key: key, V: 1, D: []byte("abc")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.FindByID(ctx, key); err != nil {
		t.Fatal(err)
	}
	if _, err := client.Find(ctx, &worldstore.Query{Collection: "players", Limit: 10}); err != nil {
		t.Fatal(err)
	}
	if _, err := client.FindByIDAndUpdate(ctx, key, &worldstore.Record{Key: key, V: 2, D: []byte("abcd")}, false); err != nil {
		t.Fatal(err)
	}
	if ok, err := client.Exists(ctx, key); err != nil {
		t.Fatal(err)
	} else if !ok {
		t.Fatalf("unexpected: %v", ok)
	}
	if err := client.Delete(ctx, key); err != nil {
		t.Fatal(err)
	}
	if _, err := client.FindByID(ctx, key); !errors.Is(err, worldstore.ErrNoSuchRecord) {
		t.Fatalf("unexpected: %v", err)
	}

	expected := heredoc.Doc(`
		log: Create #1, key=/players,p1, v=1
		log: FindByID #2, key=/players,p1
		log: FindByID #2, v=1, len(d)=3
		log: Find #3, collection=players, len(ids)=0, startAfter="", limit=10, versionBelow=0
		log: Find #3, len(recs)=1, keys=[/players,p1]
		log: FindByIDAndUpdate #4, key=/players,p1, v=2, upsert=false
		log: Exists #5, key=/players,p1
		log: Exists #5, exists=true
		log: Delete #6, key=/players,p1
		log: FindByID #7, key=/players,p1
		log: FindByID #7, err=worldstore: no such record
	`)

	if v := rec.String(); v != expected {
		t.Errorf("unexpected: %v", v)
	}
}
