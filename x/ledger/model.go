package ledger

import (
	"regexp"

	"github.com/iov-one/settle/coin"
	"github.com/iov-one/settle/errors"
)

// AssetID is the ticker of an asset.
type AssetID string

var isAssetID = regexp.MustCompile(`^[A-Z][A-Z0-9]{1,15}$`).MatchString

// Validate returns an error if the ticker is not well formed.
func (id AssetID) Validate() error {
	if !isAssetID(string(id)) {
		return errors.Wrapf(errors.ErrInvalidInput, "asset id %q", id)
	}
	return nil
}

// BackendKind selects the storage of an asset balances.
type BackendKind string

const (
	// NativeBackend stores balances of the single native asset.
	NativeBackend BackendKind = "native"
	// TokensBackend stores balances of any number of other assets.
	TokensBackend BackendKind = "tokens"
)

// Asset is the registry entry of an asset.
type Asset struct {
	ID AssetID `json:"id"`
	// MinimumBalance is the existential deposit, stored as big endian
	// bytes.
	MinimumBalance []byte      `json:"minimum_balance"`
	Backend        BackendKind `json:"backend"`
}

// NewAsset returns an asset entry with given minimum balance.
func NewAsset(id AssetID, minimum coin.Amount, backend BackendKind) *Asset {
	return &Asset{
		ID:             id,
		MinimumBalance: minimum.Bytes(),
		Backend:        backend,
	}
}

// Minimum returns the existential deposit of the asset.
func (a *Asset) Minimum() coin.Amount {
	m, err := coin.AmountFromBytes(a.MinimumBalance)
	if err != nil {
		// Validated on save.
		panic(errors.Wrap(errors.ErrHuman, err.Error()))
	}
	return m
}

// Validate implements orm.Model.
func (a *Asset) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "ID", a.ID.Validate())
	if _, err := coin.AmountFromBytes(a.MinimumBalance); err != nil {
		errs = errors.AppendField(errs, "MinimumBalance", err)
	}
	switch a.Backend {
	case NativeBackend, TokensBackend:
	default:
		errs = errors.AppendField(errs, "Backend", errors.Wrapf(errors.ErrInvalidInput, "unknown backend %q", a.Backend))
	}
	return errs
}

// Balance is the state of a single (account, asset) pair.
type Balance struct {
	Free     coin.Amount
	Reserved coin.Amount
}

// Total returns free and reserved value together.
func (b Balance) Total() (coin.Amount, error) {
	return b.Free.Add(b.Reserved)
}

// IsEmpty returns true if the account holds nothing.
func (b Balance) IsEmpty() bool {
	return b.Free.IsZero() && b.Reserved.IsZero()
}

// balanceRecord is the stored form of a Balance.
type balanceRecord struct {
	Free     []byte
	Reserved []byte
}

var _ interface{ Validate() error } = (*balanceRecord)(nil)

func (r *balanceRecord) Validate() error {
	if len(r.Free) > 32 || len(r.Reserved) > 32 {
		return errors.Wrap(errors.ErrInvalidModel, "amount too long")
	}
	return nil
}

func newBalanceRecord(b Balance) *balanceRecord {
	return &balanceRecord{
		Free:     b.Free.Bytes(),
		Reserved: b.Reserved.Bytes(),
	}
}

func (r *balanceRecord) balance() (Balance, error) {
	free, err := coin.AmountFromBytes(r.Free)
	if err != nil {
		return Balance{}, errors.Wrap(err, "free")
	}
	reserved, err := coin.AmountFromBytes(r.Reserved)
	if err != nil {
		return Balance{}, errors.Wrap(err, "reserved")
	}
	return Balance{Free: free, Reserved: reserved}, nil
}

// issuance is the stored total supply of an asset.
type issuance struct {
	Total []byte
}

func (i *issuance) Validate() error {
	if len(i.Total) > 32 {
		return errors.Wrap(errors.ErrInvalidModel, "total too long")
	}
	return nil
}
