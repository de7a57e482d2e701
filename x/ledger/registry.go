package ledger

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/orm"
)

// Registry stores the asset definitions.
type Registry struct {
	assets orm.ModelBucket
}

// NewRegistry returns a registry using the "asset" bucket.
func NewRegistry() *Registry {
	return &Registry{
		assets: orm.NewModelBucket("asset", &Asset{}),
	}
}

// Register stores a new asset definition. Only one native asset may exist.
func (r *Registry) Register(db settle.KVStore, a *Asset) error {
	if err := a.Validate(); err != nil {
		return errors.Wrap(err, "asset")
	}
	if err := r.assets.Has(db, []byte(a.ID)); err == nil {
		return errors.Wrapf(errors.ErrDuplicate, "asset %s", a.ID)
	}
	if a.Backend == NativeBackend {
		native, err := r.Native(db)
		switch {
		case err == nil:
			return errors.Wrapf(errors.ErrDuplicate, "native asset already registered as %s", native.ID)
		case !errors.ErrNotFound.Is(err):
			return err
		}
	}
	return r.assets.Put(db, []byte(a.ID), a)
}

// Get returns the definition of an asset or ErrUnknownAsset.
func (r *Registry) Get(db settle.ReadOnlyKVStore, id AssetID) (*Asset, error) {
	var a Asset
	switch err := r.assets.One(db, []byte(id), &a); {
	case err == nil:
		return &a, nil
	case errors.ErrNotFound.Is(err):
		return nil, errors.Wrapf(errors.ErrUnknownAsset, "%q", id)
	default:
		return nil, err
	}
}

// Native returns the native asset definition or ErrNotFound.
func (r *Registry) Native(db settle.ReadOnlyKVStore) (*Asset, error) {
	all, err := r.All(db)
	if err != nil {
		return nil, err
	}
	for _, a := range all {
		if a.Backend == NativeBackend {
			return a, nil
		}
	}
	return nil, errors.Wrap(errors.ErrNotFound, "native asset")
}

// All returns every registered asset ordered by ticker.
func (r *Registry) All(db settle.ReadOnlyKVStore) ([]*Asset, error) {
	it, err := r.assets.PrefixScan(db, nil, false)
	if err != nil {
		return nil, err
	}
	defer it.Release()

	var res []*Asset
	for {
		var a Asset
		switch _, err := it.LoadNext(&a); {
		case err == nil:
			res = append(res, &a)
		case errors.ErrIteratorDone.Is(err):
			return res, nil
		default:
			return nil, err
		}
	}
}
