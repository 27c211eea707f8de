package testsuite

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"go.mercari.io/worldstore"
)

func recordCreateAndFindByID(t *testing.T, ctx context.Context, client worldstore.Client) {
	key := worldstore.NewKey("Data", "a")
	err := client.Create(ctx, &worldstore.Record{Key: key, V: 3, D: []byte("payload")})
	if err != nil {
		t.Fatal(err)
	}

	rec, err := client.FindByID(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if v := rec.Key; !v.Equal(key) {
		t.Errorf("unexpected: %v", v)
	}
	if v := rec.V; v != 3 {
		t.Errorf("unexpected: %v", v)
	}
	if v := string(rec.D); v != "payload" {
		t.Errorf("unexpected: %v", v)
	}
}

func recordCreateExists(t *testing.T, ctx context.Context, client worldstore.Client) {
	key := worldstore.NewKey("Data", "a")
	err := client.Create(ctx, &worldstore.Record{Key: key, V: 1, D: []byte("first")})
	if err != nil {
		t.Fatal(err)
	}

	err = client.Create(ctx, &worldstore.Record{Key: key, V: 1, D: []byte("second")})
	if !errors.Is(err, worldstore.ErrRecordExists) {
		t.Fatalf("unexpected: %v", err)
	}

	rec, err := client.FindByID(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if v := string(rec.D); v != "first" {
		t.Errorf("unexpected: %v", v)
	}
}

func recordFindByIDNotFound(t *testing.T, ctx context.Context, client worldstore.Client) {
	_, err := client.FindByID(ctx, worldstore.NewKey("Data", "missing"))
	if !errors.Is(err, worldstore.ErrNoSuchRecord) {
		t.Fatalf("unexpected: %v", err)
	}
}

func recordUpdateWithoutUpsert(t *testing.T, ctx context.Context, client worldstore.Client) {
	key := worldstore.NewKey("Data", "a")
	_, err := client.FindByIDAndUpdate(ctx, key, &worldstore.Record{Key: key, V: 1}, false)
	if !errors.Is(err, worldstore.ErrNoSuchRecord) {
		t.Fatalf("unexpected: %v", err)
	}
	if ok, err := client.Exists(ctx, key); err != nil {
		t.Fatal(err)
	} else if ok {
		t.Fatalf("unexpected: %v", ok)
	}

	err = client.Create(ctx, &worldstore.Record{Key: key, V: 1, D: []byte("old")})
	if err != nil {
		t.Fatal(err)
	}
	stored, err := client.FindByIDAndUpdate(ctx, key, &worldstore.Record{Key: key, V: 2, D: []byte("new")}, false)
	if err != nil {
		t.Fatal(err)
	}
	if v := stored.V; v != 2 {
		t.Errorf("unexpected: %v", v)
	}

	rec, err := client.FindByID(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if v := string(rec.D); v != "new" {
		t.Errorf("unexpected: %v", v)
	}
}

func recordUpdateWithUpsert(t *testing.T, ctx context.Context, client worldstore.Client) {
	key := worldstore.NewKey("Data", "a")
	stored, err := client.FindByIDAndUpdate(ctx, key, &worldstore.Record{Key: key, V: 1, D: []byte("x")}, true)
	if err != nil {
		t.Fatal(err)
	}
	if v := stored.Key; !v.Equal(key) {
		t.Errorf("unexpected: %v", v)
	}

	stored, err = client.FindByIDAndUpdate(ctx, key, &worldstore.Record{Key: key, V: 2, D: []byte("y")}, true)
	if err != nil {
		t.Fatal(err)
	}
	if v := stored.V; v != 2 {
		t.Errorf("unexpected: %v", v)
	}

	recs, err := client.Find(ctx, &worldstore.Query{Collection: "Data"})
	if err != nil {
		t.Fatal(err)
	}
	if v := len(recs); v != 1 {
		t.Fatalf("unexpected: %v", v)
	}
	if v := string(recs[0].D); v != "y" {
		t.Errorf("unexpected: %v", v)
	}
}

func recordExists(t *testing.T, ctx context.Context, client worldstore.Client) {
	key := worldstore.NewKey("Data", "a")
	if ok, err := client.Exists(ctx, key); err != nil {
		t.Fatal(err)
	} else if ok {
		t.Fatalf("unexpected: %v", ok)
	}

	if err := client.Create(ctx, &worldstore.Record{Key: key, V: 1}); err != nil {
		t.Fatal(err)
	}

	if ok, err := client.Exists(ctx, key); err != nil {
		t.Fatal(err)
	} else if !ok {
		t.Fatalf("unexpected: %v", ok)
	}
}

func recordDelete(t *testing.T, ctx context.Context, client worldstore.Client) {
	key := worldstore.NewKey("Data", "a")
	if err := client.Create(ctx, &worldstore.Record{Key: key, V: 1}); err != nil {
		t.Fatal(err)
	}

	if err := client.Delete(ctx, key); err != nil {
		t.Fatal(err)
	}
	_, err := client.FindByID(ctx, key)
	if !errors.Is(err, worldstore.ErrNoSuchRecord) {
		t.Fatalf("unexpected: %v", err)
	}

	// deleting twice is not an error.
	if err := client.Delete(ctx, key); err != nil {
		t.Fatal(err)
	}
}

func recordBinarySafe(t *testing.T, ctx context.Context, client worldstore.Client) {
	payload := []byte{0x00, 0xff, 0x0a, 0x00, '\'', '"', 0x7f}
	key := worldstore.NewKey("Data", "bin")
	if err := client.Create(ctx, &worldstore.Record{Key: key, V: 1, D: payload}); err != nil {
		t.Fatal(err)
	}

	rec, err := client.FindByID(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if v := rec.D; !bytes.Equal(v, payload) {
		t.Errorf("unexpected: %v", v)
	}
}

func recordCollectionIsolation(t *testing.T, ctx context.Context, client worldstore.Client) {
	for _, coll := range []string{"A", "B"} {
		key := worldstore.NewKey(coll, "same")
		if err := client.Create(ctx, &worldstore.Record{Key: key, V: 1, D: []byte(coll)}); err != nil {
			t.Fatal(err)
		}
	}

	rec, err := client.FindByID(ctx, worldstore.NewKey("B", "same"))
	if err != nil {
		t.Fatal(err)
	}
	if v := string(rec.D); v != "B" {
		t.Errorf("unexpected: %v", v)
	}

	if err := client.Delete(ctx, worldstore.NewKey("A", "same")); err != nil {
		t.Fatal(err)
	}
	recs, err := client.Find(ctx, &worldstore.Query{Collection: "B"})
	if err != nil {
		t.Fatal(err)
	}
	if v := len(recs); v != 1 {
		t.Errorf("unexpected: %v", v)
	}
}
