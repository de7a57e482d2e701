package store

import "github.com/iov-one/settle"

// Storage types are declared in the root package. These aliases keep the
// names short inside this package.
type (
	ReadOnlyKVStore  = settle.ReadOnlyKVStore
	SetDeleter       = settle.SetDeleter
	KVStore          = settle.KVStore
	Batch            = settle.Batch
	Iterator         = settle.Iterator
	CacheableKVStore = settle.CacheableKVStore
	KVCacheWrap      = settle.KVCacheWrap
	CommitKVStore    = settle.CommitKVStore
	CommitID         = settle.CommitID
	Model            = settle.Model
)

// Pair constructs a model from a key-value pair.
var Pair = settle.Pair
