package migrator

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/codec"
	"go.mercari.io/worldstore/internal/testutils"
	"go.mercari.io/worldstore/schema"
	"go.mercari.io/worldstore/world"
)

func createV1Players(t *testing.T, ctx context.Context, client worldstore.Client, n int) {
	t.Helper()

	for i := 1; i <= n; i++ {
		data := &schema.Data{
			ID: fmt.Sprintf("p%02d", i),
			V:  1,
			D:  map[int]interface{}{0: fmt.Sprintf("nick%d", i)},
		}
		rec, err := codec.ToRecord(world.PlayerCollection, data)
		if err != nil {
			t.Fatal(err)
		}
		if err := client.Create(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
}

func TestMigrator_Run(t *testing.T) {
	ctx, client, _, cleanUp := testutils.SetupMemstore(t)
	defer cleanUp()

	createV1Players(t, ctx, client, 5)

	logs := &testutils.LogRecorder{}
	m := New(client, WithBatchSize(2), WithLogger(logs.Logf))
	reports, err := m.Run(ctx, Target{Collection: world.PlayerCollection, Class: world.PlayerClass})
	if err != nil {
		t.Fatal(err)
	}

	if v := strings.Join(Summary(reports), "\n"); v != "players: scanned=5 rewritten=5 failed=0" {
		t.Fatalf("unexpected: %v", v)
	}

	rec, err := client.FindByID(ctx, worldstore.NewKey(world.PlayerCollection, "p03"))
	if err != nil {
		t.Fatal(err)
	}
	if v := rec.V; v != world.PlayerClass.Version() {
		t.Fatalf("unexpected: %v", v)
	}

	data, err := codec.FromRecord(rec)
	if err != nil {
		t.Fatal(err)
	}
	v, err := world.PlayerClass.Deserialize(ctx, data)
	if err != nil {
		t.Fatal(err)
	}
	p := v.(*world.Player)
	if v := p.ID; v != "p03" {
		t.Fatalf("unexpected: %v", v)
	}
	if v := p.Name; v != "nick3" {
		t.Fatalf("unexpected: %v", v)
	}
	if v := p.Level; v != 1 {
		t.Fatalf("unexpected: %v", v)
	}
	if v := p.Gold; v != 10 {
		t.Fatalf("unexpected: %v", v)
	}

	// nothing is left behind.
	reports, err = m.Run(ctx, Target{Collection: world.PlayerCollection, Class: world.PlayerClass})
	if err != nil {
		t.Fatal(err)
	}
	if v := reports[0].Scanned; v != 0 {
		t.Fatalf("unexpected: %v", v)
	}
}

func TestMigrator_DryRun(t *testing.T) {
	ctx, client, _, cleanUp := testutils.SetupMemstore(t)
	defer cleanUp()

	createV1Players(t, ctx, client, 3)

	m := New(client, WithDryRun())
	reports, err := m.Run(ctx, Target{Collection: world.PlayerCollection, Class: world.PlayerClass})
	if err != nil {
		t.Fatal(err)
	}
	if v := reports[0].Rewritten; v != 3 {
		t.Fatalf("unexpected: %v", v)
	}

	rec, err := client.FindByID(ctx, worldstore.NewKey(world.PlayerCollection, "p01"))
	if err != nil {
		t.Fatal(err)
	}
	if v := rec.V; v != 1 {
		t.Fatalf("unexpected: %v", v)
	}
}

func TestMigrator_BrokenRecordIsCounted(t *testing.T) {
	ctx, client, _, cleanUp := testutils.SetupMemstore(t)
	defer cleanUp()

	createV1Players(t, ctx, client, 2)
	err := client.Create(ctx, &worldstore.Record{
		Key: worldstore.NewKey(world.PlayerCollection, "broken"),
		V:   1,
		D:   []byte("not a blob"),
	})
	if err != nil {
		t.Fatal(err)
	}

	logs := &testutils.LogRecorder{}
	m := New(client, WithLogger(logs.Logf))
	reports, err := m.Run(ctx, Target{Collection: world.PlayerCollection, Class: world.PlayerClass})
	if err != nil {
		t.Fatal(err)
	}
	r := reports[0]
	if r.Scanned != 3 || r.Rewritten != 2 || r.Failed != 1 {
		t.Fatalf("unexpected: %+v", r)
	}
	if v := logs.String(); !strings.Contains(v, "migrator: /players,broken err=") {
		t.Fatalf("unexpected: %v", v)
	}
}

func TestMigrator_ManyCollections(t *testing.T) {
	ctx, client, _, cleanUp := testutils.SetupMemstore(t)
	defer cleanUp()

	createV1Players(t, ctx, client, 2)

	m := New(client, WithConcurrency(4))
	reports, err := m.Run(ctx,
		Target{Collection: world.QuestCollection, Class: world.QuestClass},
		Target{Collection: world.PlayerCollection, Class: world.PlayerClass},
	)
	if err != nil {
		t.Fatal(err)
	}
	if v := len(reports); v != 2 {
		t.Fatalf("unexpected: %v", v)
	}
	if v := reports[0].Collection; v != world.QuestCollection {
		t.Fatalf("unexpected: %v", v)
	}
	if v := reports[1].Rewritten; v != 2 {
		t.Fatalf("unexpected: %v", v)
	}
}
