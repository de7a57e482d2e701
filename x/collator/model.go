package collator

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/orm"
)

// LastAuthored is the height of the last block produced by an author.
type LastAuthored struct {
	Height int64 `json:"height"`
}

var _ orm.Model = (*LastAuthored)(nil)

// Validate implements orm.Model.
func (l *LastAuthored) Validate() error {
	if l.Height < 0 {
		return errors.Wrapf(errors.ErrInvalidModel, "negative height %d", l.Height)
	}
	return nil
}

// NewLastAuthoredBucket returns the bucket keeping LastAuthored records
// keyed by author address.
func NewLastAuthoredBucket() orm.ModelBucket {
	return orm.NewModelBucket("lastauthored", &LastAuthored{})
}

func lastAuthored(db settle.ReadOnlyKVStore, b orm.ModelBucket, author settle.Address) (int64, error) {
	var l LastAuthored
	if err := b.One(db, author, &l); err != nil {
		return 0, err
	}
	return l.Height, nil
}
