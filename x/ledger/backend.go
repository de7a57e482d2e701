package ledger

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/orm"
)

// Backend stores balances of assets of one storage kind. A missing record
// reads as an empty balance.
type Backend interface {
	// Balance returns the balance of an account.
	Balance(db settle.ReadOnlyKVStore, account settle.Address, asset AssetID) (Balance, error)
	// SetBalance stores the balance of an account. Storing an empty
	// balance removes the record.
	SetBalance(db settle.KVStore, account settle.Address, asset AssetID, b Balance) error
	// Reap removes the account record.
	Reap(db settle.KVStore, account settle.Address, asset AssetID) error
	// Accounts calls fn for every account holding given asset.
	Accounts(db settle.ReadOnlyKVStore, asset AssetID, fn func(settle.Address, Balance) error) error
}

// nativeBackend keeps the balances of the single native asset, keyed by
// account only.
type nativeBackend struct {
	bucket orm.ModelBucket
}

var _ Backend = (*nativeBackend)(nil)

func newNativeBackend() *nativeBackend {
	return &nativeBackend{bucket: orm.NewModelBucket("native", &balanceRecord{})}
}

func (n *nativeBackend) Balance(db settle.ReadOnlyKVStore, account settle.Address, asset AssetID) (Balance, error) {
	return loadBalance(db, n.bucket, account)
}

func (n *nativeBackend) SetBalance(db settle.KVStore, account settle.Address, asset AssetID, b Balance) error {
	return storeBalance(db, n.bucket, account, b)
}

func (n *nativeBackend) Reap(db settle.KVStore, account settle.Address, asset AssetID) error {
	return reap(db, n.bucket, account)
}

func (n *nativeBackend) Accounts(db settle.ReadOnlyKVStore, asset AssetID, fn func(settle.Address, Balance) error) error {
	return iterate(db, n.bucket, nil, fn)
}

// tokensBackend keeps balances of any number of assets, keyed by asset and
// account.
type tokensBackend struct {
	bucket orm.ModelBucket
}

var _ Backend = (*tokensBackend)(nil)

func newTokensBackend() *tokensBackend {
	return &tokensBackend{bucket: orm.NewModelBucket("tokens", &balanceRecord{})}
}

func tokenKey(asset AssetID, account settle.Address) []byte {
	key := make([]byte, 0, len(asset)+1+len(account))
	key = append(key, asset...)
	key = append(key, '/')
	return append(key, account...)
}

func (t *tokensBackend) Balance(db settle.ReadOnlyKVStore, account settle.Address, asset AssetID) (Balance, error) {
	return loadBalance(db, t.bucket, tokenKey(asset, account))
}

func (t *tokensBackend) SetBalance(db settle.KVStore, account settle.Address, asset AssetID, b Balance) error {
	return storeBalance(db, t.bucket, tokenKey(asset, account), b)
}

func (t *tokensBackend) Reap(db settle.KVStore, account settle.Address, asset AssetID) error {
	return reap(db, t.bucket, tokenKey(asset, account))
}

func (t *tokensBackend) Accounts(db settle.ReadOnlyKVStore, asset AssetID, fn func(settle.Address, Balance) error) error {
	return iterate(db, t.bucket, tokenKey(asset, nil), fn)
}

func loadBalance(db settle.ReadOnlyKVStore, b orm.ModelBucket, key []byte) (Balance, error) {
	var rec balanceRecord
	switch err := b.One(db, key, &rec); {
	case err == nil:
		return rec.balance()
	case errors.ErrNotFound.Is(err):
		return Balance{}, nil
	default:
		return Balance{}, err
	}
}

func storeBalance(db settle.KVStore, b orm.ModelBucket, key []byte, bal Balance) error {
	if bal.IsEmpty() {
		return reap(db, b, key)
	}
	return b.Put(db, key, newBalanceRecord(bal))
}

func reap(db settle.KVStore, b orm.ModelBucket, key []byte) error {
	if err := b.Delete(db, key); err != nil && !errors.ErrNotFound.Is(err) {
		return err
	}
	return nil
}

func iterate(db settle.ReadOnlyKVStore, b orm.ModelBucket, prefix []byte, fn func(settle.Address, Balance) error) error {
	it, err := b.PrefixScan(db, prefix, false)
	if err != nil {
		return err
	}
	defer it.Release()

	for {
		var rec balanceRecord
		key, err := it.LoadNext(&rec)
		if errors.ErrIteratorDone.Is(err) {
			return nil
		}
		if err != nil {
			return err
		}
		bal, err := rec.balance()
		if err != nil {
			return err
		}
		if err := fn(settle.Address(key[len(prefix):]), bal); err != nil {
			return err
		}
	}
}
