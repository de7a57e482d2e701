/*
Package orm provides an easy to use db wrapper

Break state space into prefixed sections called Buckets. Each bucket
contains only one type of model, stored under its primary key and encoded
with the state codec.
*/
package orm

import (
	"fmt"
	"regexp"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
)

var isBucketName = regexp.MustCompile(`^[a-z_]{3,16}$`).MatchString

// Bucket is a prefixed subspace of the DB. Every key stored through a
// bucket is prefixed with "<name>:".
type Bucket struct {
	name   string
	prefix []byte
}

// NewBucket creates a bucket to store data
func NewBucket(name string) Bucket {
	if !isBucketName(name) {
		panic(fmt.Sprintf("illegal bucket: %s", name))
	}
	return Bucket{
		name:   name,
		prefix: append([]byte(name), ':'),
	}
}

// Name returns the name of the bucket.
func (b Bucket) Name() string {
	return b.name
}

// DBKey is the full key we store in the db, including prefix.
// A new slice is allocated so that consecutive calls never share memory.
func (b Bucket) DBKey(key []byte) []byte {
	l := len(b.prefix)
	out := make([]byte, l+len(key))
	copy(out, b.prefix)
	copy(out[l:], key)
	return out
}

// Has returns true if a value is stored under given key.
func (b Bucket) Has(db settle.ReadOnlyKVStore, key []byte) (bool, error) {
	ok, err := db.Has(b.DBKey(key))
	if err != nil {
		return false, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return ok, nil
}

// GetRaw returns the raw value stored under given key or nil.
func (b Bucket) GetRaw(db settle.ReadOnlyKVStore, key []byte) ([]byte, error) {
	raw, err := db.Get(b.DBKey(key))
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return raw, nil
}

// prefixRange returns the key range covering every key that starts with
// given prefix.
func prefixRange(prefix []byte) (start, end []byte) {
	start = prefix
	end = make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xFF {
			end[i]++
			return start, end[:i+1]
		}
	}
	// Prefix of only 0xFF bytes has no upper bound.
	return start, nil
}
