package app

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/store"
	"github.com/tendermint/tendermint/libs/common"
)

var (
	recordSet    = []byte("s")
	recordDelete = []byte("d")
)

// kvPairs returns the keys changed through given store as block tags. The
// value of a tag tells if the key was set or deleted.
func kvPairs(db settle.KVStore) common.KVPairs {
	r, ok := db.(store.Recorder)
	if !ok {
		return nil
	}
	changes := r.KVPairs()
	if len(changes) == 0 {
		return nil
	}
	res := make(common.KVPairs, 0, len(changes))
	for k, v := range changes {
		tag := recordSet
		if v == nil {
			tag = recordDelete
		}
		res = append(res, common.KVPair{Key: []byte(k), Value: tag})
	}
	res.Sort()
	return res
}
