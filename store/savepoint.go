package store

// Savepoint runs fn on a cache wrap of db. All writes done by fn reach db
// only if fn returns no error, otherwise they are discarded.
func Savepoint(db KVStore, fn func(KVStore) error) error {
	var cache KVCacheWrap
	if c, ok := db.(CacheableKVStore); ok {
		cache = c.CacheWrap()
	} else {
		cache = BTreeCacheable{db}.CacheWrap()
	}
	if err := fn(cache); err != nil {
		cache.Discard()
		return err
	}
	return cache.Write()
}
