package worldstore_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/dsmiddleware/noop"
	"go.mercari.io/worldstore/memstore"
)

type tracer struct {
	worldstore.Middleware
	name  string
	trail *[]string
}

func (t *tracer) FindByID(info *worldstore.MiddlewareInfo, key worldstore.Key) (*worldstore.Record, error) {
	*t.trail = append(*t.trail, t.name+" in")
	rec, err := info.Next.FindByID(info, key)
	*t.trail = append(*t.trail, t.name+" out")
	return rec, err
}

type shortCircuit struct {
	worldstore.Middleware
}

func (*shortCircuit) Exists(info *worldstore.MiddlewareInfo, key worldstore.Key) (bool, error) {
	return true, nil
}

func TestClient_MiddlewareOrder(t *testing.T) {
	ctx := context.Background()
	client, _ := memstore.NewClient()
	defer client.Close()

	var trail []string
	a := &tracer{Middleware: noop.New(), name: "a", trail: &trail}
	b := &tracer{Middleware: noop.New(), name: "b", trail: &trail}
	client.AppendMiddleware(a)
	client.AppendMiddleware(b)

	_, err := client.FindByID(ctx, worldstore.NewKey("players", "p1"))
	if !errors.Is(err, worldstore.ErrNoSuchRecord) {
		t.Fatalf("unexpected: %v", err)
	}
	if v := strings.Join(trail, ","); v != "a in,b in,b out,a out" {
		t.Fatalf("unexpected: %v", v)
	}

	if v := client.RemoveMiddleware(a); !v {
		t.Fatalf("unexpected: %v", v)
	}
	if v := client.RemoveMiddleware(a); v {
		t.Fatalf("unexpected: %v", v)
	}

	trail = nil
	_, _ = client.FindByID(ctx, worldstore.NewKey("players", "p1"))
	if v := strings.Join(trail, ","); v != "b in,b out" {
		t.Fatalf("unexpected: %v", v)
	}
}

func TestClient_MiddlewareShortCircuit(t *testing.T) {
	ctx := context.Background()
	client, store := memstore.NewClient()
	defer client.Close()

	client.AppendMiddleware(&shortCircuit{Middleware: noop.New()})

	ok, err := client.Exists(ctx, worldstore.NewKey("players", "nobody"))
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatalf("unexpected: %v", ok)
	}
	if v := store.Calls.Load(); v != 0 {
		t.Fatalf("unexpected: %v", v)
	}
}

func TestBatch_ErrorsAreCollected(t *testing.T) {
	ctx := context.Background()
	client, _ := memstore.NewClient()
	defer client.Close()

	bt := client.Batch()
	bt.Put(&worldstore.Record{Key: worldstore.NewKey("players", "p1"), V: 1}, nil)
	for i := 0; i < 2; i++ {
		bt.Get(worldstore.NewKey("players", fmt.Sprintf("missing%d", i)), nil)
	}

	err := bt.Exec(ctx)
	merr, ok := err.(worldstore.MultiError)
	if !ok {
		t.Fatalf("unexpected: %v", err)
	}
	if v := len(merr); v != 2 {
		t.Fatalf("unexpected: %v", v)
	}
	if v := merr.Error(); v != "worldstore: no such record (and 1 other error)" {
		t.Fatalf("unexpected: %v", v)
	}
	if !errors.Is(err, worldstore.ErrNoSuchRecord) {
		t.Fatalf("unexpected: %v", err)
	}
}
