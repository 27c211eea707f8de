package testsuite

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"go.mercari.io/worldstore"
)

func batchPutGetDelete(t *testing.T, ctx context.Context, client worldstore.Client) {
	b := client.Batch()
	for i := 1; i <= 3; i++ {
		key := worldstore.NewKey("Data", fmt.Sprintf("id%d", i))
		b.Put(&worldstore.Record{Key: key, V: 1, D: []byte(key.ID)}, nil)
	}
	if err := b.Exec(ctx); err != nil {
		t.Fatal(err)
	}

	got := make(map[string]string)
	for i := 1; i <= 3; i++ {
		key := worldstore.NewKey("Data", fmt.Sprintf("id%d", i))
		b.Get(key, func(rec *worldstore.Record, err error) error {
			if err != nil {
				return err
			}
			got[rec.Key.ID] = string(rec.D)
			return nil
		})
	}
	if err := b.Exec(ctx); err != nil {
		t.Fatal(err)
	}
	if v := len(got); v != 3 {
		t.Fatalf("unexpected: %v", v)
	}
	if v := got["id2"]; v != "id2" {
		t.Errorf("unexpected: %v", v)
	}

	b.Delete(worldstore.NewKey("Data", "id1"), nil)
	if err := b.Exec(ctx); err != nil {
		t.Fatal(err)
	}
	recs, err := client.Find(ctx, &worldstore.Query{Collection: "Data"})
	if err != nil {
		t.Fatal(err)
	}
	if v := ids(recs); v != "id2,id3" {
		t.Errorf("unexpected: %v", v)
	}
}

func batchGetMissing(t *testing.T, ctx context.Context, client worldstore.Client) {
	createRecords(t, ctx, client, "Data", 1)

	b := client.Batch()
	b.Get(worldstore.NewKey("Data", "id01"), nil)
	b.Get(worldstore.NewKey("Data", "missing"), nil)
	err := b.Exec(ctx)

	var merr worldstore.MultiError
	if !errors.As(err, &merr) {
		t.Fatalf("unexpected: %v", err)
	}
	if v := len(merr); v != 1 {
		t.Fatalf("unexpected: %v", v)
	}
	if !errors.Is(merr[0], worldstore.ErrNoSuchRecord) {
		t.Errorf("unexpected: %v", merr[0])
	}

	// a handler may swallow the error.
	b.Get(worldstore.NewKey("Data", "missing"), func(rec *worldstore.Record, err error) error {
		if errors.Is(err, worldstore.ErrNoSuchRecord) {
			return nil
		}
		return err
	})
	if err := b.Exec(ctx); err != nil {
		t.Fatal(err)
	}
}

func batchHandlerQueuesMore(t *testing.T, ctx context.Context, client worldstore.Client) {
	var puts int32
	b := client.Batch()
	var put func(depth int)
	put = func(depth int) {
		key := worldstore.NewKey("Data", fmt.Sprintf("depth%d", depth))
		b.Put(&worldstore.Record{Key: key, V: 1}, func(rec *worldstore.Record, err error) error {
			if err != nil {
				return err
			}
			atomic.AddInt32(&puts, 1)
			if depth < 3 {
				put(depth + 1)
			}
			return nil
		})
	}
	put(1)

	if err := b.Exec(ctx); err != nil {
		t.Fatal(err)
	}
	if v := atomic.LoadInt32(&puts); v != 3 {
		t.Errorf("unexpected: %v", v)
	}
}
