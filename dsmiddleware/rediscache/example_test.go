package rediscache_test

import (
	"os"

	"go.mercari.io/worldstore/dsmiddleware/rediscache"
	"go.mercari.io/worldstore/dsmiddleware/storagecache"
	"go.mercari.io/worldstore/memstore"
)

func Example_howToUse() {
	client, _ := memstore.NewClient()
	defer client.Close()

	pool := rediscache.NewPool(os.Getenv("REDIS_HOST")+":"+os.Getenv("REDIS_PORT"), 8)
	defer pool.Close()

	mw := rediscache.New(pool, storagecache.WithIncludeCollections("players"))
	client.AppendMiddleware(mw)
}
