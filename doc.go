/*
Package worldstore persists the objects of a long running game world.

# Basic usage

Pick a backend and wrap it with NewClient.
Backends live in memstore, sqlitestore, gormstore (Postgres), redisstore and clouddatastore.
Each of them passes the same suite in package testsuite.

	client, err := sqlitestore.NewClient("world.db")
	if err != nil {
		panic(err)
	}
	defer client.Close()

	store, err := world.Open(ctx, client, nil)

A Record is a versioned opaque blob under a Key, a collection and an id.
Packages schema and codec turn Go values into those blobs and back.
Package manager caches the decoded values per collection.

# Records and versions

Every record carries the version of the class shape it was written with.
Readers migrate older records on the fly, so a deploy that adds fields never has to stop the world.
Records that stay untouched keep their old version until cmd/worldmigrate rewrites them.

Fields the running binary does not know survive a read and write cycle when the class embeds schema.Base.
This lets an old binary run next to a new one without erasing what the new one wrote.

# Middleware layer

We are forced to make functions that are not directly related to the value of the game for speed and stability.
Such functions can be abstracted and used as middleware.

Put a record to the backend and also set it to a cache like Memcache or Redis.
Next, when reading, look into the cache first, and read the backend again if it misses.
If the middleware intervenes with every backend call, you can do this transparently without touching the game code.

As another case, calls sometimes fail.
If it fails, the process often succeeds simply by retrying.
rpcretry does that for every call.

Please refer to the dsmiddleware directory for the middleware already provided.
Middleware is first in, first apply.

# Batch processing

Reading 10 records with one Find is better than reading them one by one.
Batch() queues Put, Get and Delete and runs them together on Exec.
Gets of one collection are merged into a single Find.
Handlers may queue more work, Exec keeps going until nothing is left.
*/
package worldstore // import "go.mercari.io/worldstore"
