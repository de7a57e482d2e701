package orm

import (
	"reflect"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
)

// Model is implemented by any entity that can be stored using ModelBucket.
// Models are encoded with settle.MarshalBinary.
type Model interface {
	Validate() error
}

// ModelBucket is implemented by buckets that operates on Models rather than
// raw bytes.
type ModelBucket interface {
	// One query the database for a single model instance. Lookup is done
	// by the primary index key. Result is loaded into given destination
	// model.
	// This method returns ErrNotFound if the entity does not exist in the
	// database.
	// If given model type cannot be used to contain stored entity,
	// ErrInvalidType is returned.
	One(db settle.ReadOnlyKVStore, key []byte, dest Model) error

	// Has returns nil if an entity with given key exists and ErrNotFound
	// otherwise.
	Has(db settle.ReadOnlyKVStore, key []byte) error

	// Put saves given model in the database.
	Put(db settle.KVStore, key []byte, m Model) error

	// Delete removes an entity with given primary key from the database.
	// It returns ErrNotFound if an entity with given key does not exist.
	Delete(db settle.KVStore, key []byte) error

	// PrefixScan returns an iterator over all models which key starts
	// with given prefix.
	PrefixScan(db settle.ReadOnlyKVStore, prefix []byte, reverse bool) (ModelIterator, error)
}

// NewModelBucket returns a ModelBucket instance. The bucket accepts only
// models of the same type as the given one.
func NewModelBucket(name string, m Model) ModelBucket {
	return &modelBucket{
		b:     NewBucket(name),
		model: reflect.TypeOf(m),
	}
}

type modelBucket struct {
	b     Bucket
	model reflect.Type
}

var _ ModelBucket = (*modelBucket)(nil)

func (mb *modelBucket) One(db settle.ReadOnlyKVStore, key []byte, dest Model) error {
	if err := mb.checkType(dest); err != nil {
		return err
	}
	raw, err := mb.b.GetRaw(db, key)
	if err != nil {
		return err
	}
	if raw == nil {
		return errors.Wrapf(errors.ErrNotFound, "%s %X", mb.b.Name(), key)
	}
	return settle.UnmarshalBinary(raw, dest)
}

func (mb *modelBucket) Has(db settle.ReadOnlyKVStore, key []byte) error {
	ok, err := mb.b.Has(db, key)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "%s %X", mb.b.Name(), key)
	}
	return nil
}

func (mb *modelBucket) Put(db settle.KVStore, key []byte, m Model) error {
	if err := mb.checkType(m); err != nil {
		return err
	}
	if len(key) == 0 {
		return errors.Wrap(errors.ErrEmpty, "key")
	}
	if err := m.Validate(); err != nil {
		return errors.Wrap(err, "invalid model")
	}
	raw, err := settle.MarshalBinary(m)
	if err != nil {
		return errors.Wrap(err, "cannot serialize")
	}
	if err := db.Set(mb.b.DBKey(key), raw); err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return nil
}

func (mb *modelBucket) Delete(db settle.KVStore, key []byte) error {
	if err := mb.Has(db, key); err != nil {
		return err
	}
	if err := db.Delete(mb.b.DBKey(key)); err != nil {
		return errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return nil
}

func (mb *modelBucket) PrefixScan(db settle.ReadOnlyKVStore, prefix []byte, reverse bool) (ModelIterator, error) {
	start, end := prefixRange(mb.b.DBKey(prefix))
	var (
		it  settle.Iterator
		err error
	)
	if reverse {
		it, err = db.ReverseIterator(start, end)
	} else {
		it, err = db.Iterator(start, end)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, err.Error())
	}
	return &modelIterator{
		iterator:     it,
		bucketPrefix: mb.b.DBKey(nil),
		model:        mb.model,
	}, nil
}

func (mb *modelBucket) checkType(m Model) error {
	if t := reflect.TypeOf(m); t != mb.model {
		return errors.Wrapf(errors.ErrInvalidType, "%s cannot store %s", mb.model, t)
	}
	return nil
}
