package localcache_test

import (
	"time"

	"go.mercari.io/worldstore/dsmiddleware/localcache"
	"go.mercari.io/worldstore/dsmiddleware/storagecache"
	"go.mercari.io/worldstore/memstore"
)

func Example_howToUse() {
	client, _ := memstore.NewClient()
	defer client.Close()

	mw := localcache.New(
		storagecache.WithTTL(time.Minute),
		storagecache.WithMaxEntries(500),
		storagecache.WithIncludeCollections("locations"),
	)
	client.AppendMiddleware(mw)
}
