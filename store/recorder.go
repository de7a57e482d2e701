package store

// Recorder is implemented by stores that keep track of every key they
// changed.
type Recorder interface {
	// KVPairs returns all changed keys. The value is the new value, or
	// nil for a deleted key.
	KVPairs() map[string][]byte
}

// RecordingStore is a cacheable store that records every change written
// through it. Nested cache wraps report their changes only once they are
// written.
type RecordingStore struct {
	CacheableKVStore
	changes map[string][]byte
}

var (
	_ CacheableKVStore = (*RecordingStore)(nil)
	_ Recorder         = (*RecordingStore)(nil)
)

// NewRecordingStore wraps given store. Stores that do not support cache
// wrapping get a btree cache.
func NewRecordingStore(db KVStore) *RecordingStore {
	cached, ok := db.(CacheableKVStore)
	if !ok {
		cached = BTreeCacheable{db}
	}
	return &RecordingStore{
		CacheableKVStore: cached,
		changes:          make(map[string][]byte),
	}
}

// KVPairs implements Recorder.
func (r *RecordingStore) KVPairs() map[string][]byte {
	return r.changes
}

// Set records the change while performing it.
func (r *RecordingStore) Set(key, value []byte) error {
	if err := r.CacheableKVStore.Set(key, value); err != nil {
		return err
	}
	r.changes[string(key)] = value
	return nil
}

// Delete records the change while performing it.
func (r *RecordingStore) Delete(key []byte) error {
	if err := r.CacheableKVStore.Delete(key); err != nil {
		return err
	}
	r.changes[string(key)] = nil
	return nil
}

// NewBatch makes sure all batched writes are recorded.
func (r *RecordingStore) NewBatch() Batch {
	return NewNonAtomicBatch(r)
}

// CacheWrap makes sure all cached writes are recorded once written.
func (r *RecordingStore) CacheWrap() KVCacheWrap {
	return NewBTreeCacheWrap(r, r.NewBatch(), nil)
}
