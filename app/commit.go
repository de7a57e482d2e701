package app

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
)

// CommitStore handles loading from a CommitKVStore, maintaining the cache
// wrap used for delivering blocks and returning useful state info.
type CommitStore struct {
	committed settle.CommitKVStore
	deliver   settle.KVCacheWrap
}

// NewCommitStore loads the latest version of the store and sets up the
// deliver cache.
func NewCommitStore(store settle.CommitKVStore) (*CommitStore, error) {
	if err := store.LoadLatestVersion(); err != nil {
		return nil, errors.Wrap(err, "load latest version")
	}
	return &CommitStore{
		committed: store,
		deliver:   store.CacheWrap(),
	}, nil
}

// CommitInfo returns the current height and hash.
func (cs *CommitStore) CommitInfo() (settle.CommitID, error) {
	return cs.committed.LatestVersion()
}

// Commit will flush deliver to the underlying store and commit it to disk.
// It then sets up a new deliver cache.
func (cs *CommitStore) Commit() (settle.CommitID, error) {
	if err := cs.deliver.Write(); err != nil {
		return settle.CommitID{}, errors.Wrap(err, "write deliver cache")
	}
	res, err := cs.committed.Commit()
	if err != nil {
		return res, err
	}
	cs.deliver = cs.committed.CacheWrap()
	return res, nil
}

// DeliverStore returns the store used while processing a block.
func (cs *CommitStore) DeliverStore() settle.CacheableKVStore {
	return cs.deliver
}

// _s: is a prefix for runtime internal data
const chainIDKey = "_s:chainID"

func loadChainID(kv settle.ReadOnlyKVStore) (string, error) {
	v, err := kv.Get([]byte(chainIDKey))
	if err != nil {
		return "", errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return string(v), nil
}

// saveChainID stores a chain id in the kv store.
// Returns error if already set, or invalid name
func saveChainID(kv settle.KVStore, chainID string) error {
	if !settle.IsValidChainID(chainID) {
		return errors.Wrapf(errors.ErrInvalidInput, "chain id: %v", chainID)
	}
	k := []byte(chainIDKey)
	exists, err := kv.Has(k)
	if err != nil {
		return errors.Wrap(err, "load chain id")
	}
	if exists {
		return errors.Wrap(errors.ErrUnauthorized, "can't modify chain id after genesis init")
	}
	if err := kv.Set(k, []byte(chainID)); err != nil {
		return errors.Wrap(err, "save chain id")
	}
	return nil
}
