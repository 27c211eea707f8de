package worldstore_test

import (
	"context"
	"fmt"

	"go.mercari.io/worldstore"
	"go.mercari.io/worldstore/dsmiddleware/localcache"
	"go.mercari.io/worldstore/memstore"
)

func Example_clientFindByID() {
	ctx := context.Background()
	client, _ := memstore.NewClient()
	defer client.Close()

	key := worldstore.NewKey("players", "mercari")
	err := client.Create(ctx, &worldstore.Record{Key: key, V: 1, D: []byte("hello")})
	if err != nil {
		panic(err)
	}

	rec, err := client.FindByID(ctx, key)
	if err != nil {
		panic(err)
	}

	fmt.Println(rec.Key.String(), rec.V, string(rec.D))
	// Output: /players,mercari 1 hello
}

func Example_batch() {
	ctx := context.Background()
	client, _ := memstore.NewClient()
	defer client.Close()

	// preparing records
	for i := 1; i <= 3; i++ {
		key := worldstore.NewKey("letters", fmt.Sprintf("l%d", i))
		err := client.Create(ctx, &worldstore.Record{Key: key, V: 1, D: []byte(fmt.Sprintf("letter #%d", i))})
		if err != nil {
			panic(err)
		}
	}

	// start fetching...
	bt := client.Batch()
	var bodies []string
	for i := 1; i <= 3; i++ {
		idx := i
		bt.Get(worldstore.NewKey("letters", fmt.Sprintf("l%d", idx)), func(rec *worldstore.Record, err error) error {
			if err != nil {
				return err
			}
			// queue more work from the handler.
			if idx == 3 {
				bt.Delete(rec.Key, nil)
			}
			return nil
		})
	}
	bt.Get(worldstore.NewKey("letters", "l1"), func(rec *worldstore.Record, err error) error {
		if err != nil {
			return err
		}
		bodies = append(bodies, string(rec.D))
		return nil
	})

	if err := bt.Exec(ctx); err != nil {
		panic(err)
	}

	ok, err := client.Exists(ctx, worldstore.NewKey("letters", "l3"))
	if err != nil {
		panic(err)
	}

	fmt.Println(bodies, ok)
	// Output: [letter #1] false
}

func Example_middleware() {
	ctx := context.Background()
	client, store := memstore.NewClient()
	defer client.Close()

	client.AppendMiddleware(localcache.New())

	key := worldstore.NewKey("players", "p1")
	if err := client.Create(ctx, &worldstore.Record{Key: key, V: 1}); err != nil {
		panic(err)
	}

	before := store.Calls.Load()
	if _, err := client.FindByID(ctx, key); err != nil {
		panic(err)
	}

	fmt.Println(store.Calls.Load() - before)
	// Output: 0
}
