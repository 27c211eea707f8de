/*
Package dsmemcache keeps records in memcached. Which operations read and
write the cache is described in the storagecache package.

Memcached expirations are whole seconds, so TTLs are rounded up.
*/
package dsmemcache // import "go.mercari.io/worldstore/dsmiddleware/dsmemcache"
