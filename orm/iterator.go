package orm

import (
	"reflect"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
)

// ModelIterator walks over models stored in a bucket.
type ModelIterator interface {
	// LoadNext loads the current model into dest, advances the iterator
	// and returns the key (without the bucket prefix) of the loaded
	// model. ErrIteratorDone is returned when there are no more models.
	LoadNext(dest Model) ([]byte, error)

	// Release releases the Iterator.
	Release()
}

type modelIterator struct {
	// this is the raw KVStoreIterator
	iterator settle.Iterator
	// this is the bucketPrefix to strip from each key
	bucketPrefix []byte
	model        reflect.Type
}

var _ ModelIterator = (*modelIterator)(nil)

func (i *modelIterator) LoadNext(dest Model) ([]byte, error) {
	if !i.iterator.Valid() {
		return nil, errors.ErrIteratorDone
	}
	if t := reflect.TypeOf(dest); t != i.model {
		return nil, errors.Wrapf(errors.ErrInvalidType, "%s cannot load %s", t, i.model)
	}
	key := append([]byte(nil), i.iterator.Key()[len(i.bucketPrefix):]...)
	if err := settle.UnmarshalBinary(i.iterator.Value(), dest); err != nil {
		return nil, errors.Wrapf(err, "key %X", key)
	}
	if err := i.iterator.Next(); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return key, nil
}

func (i *modelIterator) Release() {
	i.iterator.Close()
}
