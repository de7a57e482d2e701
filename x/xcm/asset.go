package xcm

import (
	"sort"

	"github.com/iov-one/settle/coin"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/x/ledger"
)

// Asset is an amount of a fungible asset.
type Asset struct {
	ID     ledger.AssetID `json:"id"`
	Amount coin.Amount    `json:"amount"`
}

// NewAsset returns an asset of given amount.
func NewAsset(id ledger.AssetID, amount uint64) Asset {
	return Asset{ID: id, Amount: coin.NewAmount(amount)}
}

// Validate returns an error if the asset id is not well formed.
func (a Asset) Validate() error {
	return a.ID.Validate()
}

func (a Asset) String() string {
	return a.Amount.String() + " " + string(a.ID)
}

// AssetFilter selects assets from the holding register. All selects
// everything, otherwise at most the given amounts are selected.
type AssetFilter struct {
	All      bool    `json:"all"`
	Definite []Asset `json:"definite"`
}

// AllAssets selects the whole holding register.
var AllAssets = AssetFilter{All: true}

// Definite selects at most given assets.
func Definite(assets ...Asset) AssetFilter {
	return AssetFilter{Definite: assets}
}

// Holding is the register of assets held by a single execution. The zero
// value is not usable, use NewHolding.
type Holding struct {
	assets map[ledger.AssetID]coin.Amount
}

// NewHolding returns an empty register.
func NewHolding() *Holding {
	return &Holding{assets: make(map[ledger.AssetID]coin.Amount)}
}

// Clone returns an independent copy of the register.
func (h *Holding) Clone() *Holding {
	c := NewHolding()
	for id, a := range h.assets {
		c.assets[id] = a
	}
	return c
}

// Add puts an asset into the register.
func (h *Holding) Add(a Asset) error {
	if a.Amount.IsZero() {
		return nil
	}
	total, err := h.assets[a.ID].Add(a.Amount)
	if err != nil {
		return errors.Wrapf(err, "holding %s", a.ID)
	}
	h.assets[a.ID] = total
	return nil
}

// Amount returns the held amount of an asset.
func (h *Holding) Amount(id ledger.AssetID) coin.Amount {
	return h.assets[id]
}

// Subtract removes an asset from the register or fails without change if
// not enough is held.
func (h *Holding) Subtract(a Asset) error {
	rest, err := h.assets[a.ID].Sub(a.Amount)
	if err != nil {
		return errors.Wrapf(ErrNotHoldingFees, "holding %s of %s, need %s", h.assets[a.ID], a.ID, a.Amount)
	}
	h.set(a.ID, rest)
	return nil
}

// Take removes the assets selected by the filter and returns them. A
// definite filter takes at most the held amount of each asset.
func (h *Holding) Take(f AssetFilter) []Asset {
	if f.All {
		taken := h.Assets()
		h.assets = make(map[ledger.AssetID]coin.Amount)
		return taken
	}
	var taken []Asset
	for _, want := range f.Definite {
		amount := h.assets[want.ID].Min(want.Amount)
		if amount.IsZero() {
			continue
		}
		h.set(want.ID, h.assets[want.ID].SaturatingSub(amount))
		taken = append(taken, Asset{ID: want.ID, Amount: amount})
	}
	return taken
}

// Assets returns the content of the register ordered by asset id.
func (h *Holding) Assets() []Asset {
	res := make([]Asset, 0, len(h.assets))
	for id, a := range h.assets {
		res = append(res, Asset{ID: id, Amount: a})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// IsEmpty returns true if nothing is held.
func (h *Holding) IsEmpty() bool {
	return len(h.assets) == 0
}

func (h *Holding) set(id ledger.AssetID, a coin.Amount) {
	if a.IsZero() {
		delete(h.assets, id)
		return
	}
	h.assets[id] = a
}
