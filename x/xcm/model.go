package xcm

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/orm"
)

// TrappedAssets are the assets left in the holding register after the
// execution of a message.
type TrappedAssets struct {
	Origin Location `json:"origin"`
	Assets []Asset  `json:"assets"`
	Height int64    `json:"height"`
}

var _ orm.Model = (*TrappedAssets)(nil)

// Validate implements orm.Model.
func (t *TrappedAssets) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Origin", t.Origin.Validate())
	errs = errors.AppendField(errs, "Assets", validateAssets(t.Assets))
	return errs
}

// NewTrapBucket returns the bucket of trapped assets keyed by origin and
// message hash.
func NewTrapBucket() orm.ModelBucket {
	return orm.NewModelBucket("trap", &TrappedAssets{})
}

// trapKey is the origin and the message hash separated by a zero byte,
// which cannot be part of a location.
func trapKey(origin Location, hash []byte) []byte {
	key := make([]byte, 0, len(origin)+1+len(hash))
	key = append(key, origin...)
	key = append(key, 0)
	return append(key, hash...)
}

func loadTrap(db settle.ReadOnlyKVStore, b orm.ModelBucket, origin Location, hash []byte) (*TrappedAssets, error) {
	var t TrappedAssets
	if err := b.One(db, trapKey(origin, hash), &t); err != nil {
		return nil, err
	}
	return &t, nil
}
