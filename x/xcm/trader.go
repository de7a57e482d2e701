package xcm

import (
	"github.com/iov-one/settle/coin"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/x/ledger"
)

// WeightPerSecond is the reference time weight of one second of
// execution.
const WeightPerSecond = 1000000000000

// Trader sells weight for assets. A trader is used by a single execution.
type Trader interface {
	// Buy charges for weight out of payment and returns the unused part
	// of the payment.
	Buy(w Weight, payment Asset) (Asset, error)
	// Refund returns the price of up to w of the bought weight. The
	// returned asset is zero if nothing can be refunded.
	Refund(w Weight) Asset
	// Bought returns the weight bought and not refunded.
	Bought() Weight
	// Revenue returns the charge that was not refunded.
	Revenue() (Asset, bool)
	// Clone returns an independent copy of the trader state.
	Clone() Trader
}

// FeeRate is the price of one second of execution weight in an asset.
type FeeRate struct {
	Asset          ledger.AssetID `json:"asset"`
	UnitsPerSecond uint64         `json:"units_per_second"`
}

// FixedRateTrader sells weight at a constant per asset rate. Only one asset
// can be used to pay during an execution.
type FixedRateTrader struct {
	rates   map[ledger.AssetID]uint64
	asset   ledger.AssetID
	bought  Weight
	charged coin.Amount
}

var _ Trader = (*FixedRateTrader)(nil)

// NewFixedRateTrader returns a trader accepting assets of given rates.
func NewFixedRateTrader(rates []FeeRate) *FixedRateTrader {
	t := &FixedRateTrader{rates: make(map[ledger.AssetID]uint64, len(rates))}
	for _, r := range rates {
		t.rates[r.Asset] = r.UnitsPerSecond
	}
	return t
}

// Fee returns floor(w.RefTime * rate / WeightPerSecond).
func Fee(w Weight, unitsPerSecond uint64) coin.Amount {
	// The product is computed on 256 bits, so it cannot overflow.
	fee, _ := coin.NewAmount(w.RefTime).MulFrac(unitsPerSecond, WeightPerSecond)
	return fee
}

// Buy implements Trader.
func (t *FixedRateTrader) Buy(w Weight, payment Asset) (Asset, error) {
	rate, ok := t.rates[payment.ID]
	if !ok {
		return payment, errors.Wrapf(ErrTooExpensive, "%s is not accepted as fee", payment.ID)
	}
	if t.asset != "" && t.asset != payment.ID {
		return payment, errors.Wrapf(ErrTooExpensive, "already paying with %s", t.asset)
	}
	fee := Fee(w, rate)
	rest, err := payment.Amount.Sub(fee)
	if err != nil {
		return payment, errors.Wrapf(ErrTooExpensive, "%s costs %s %s, offered %s", w, fee, payment.ID, payment.Amount)
	}
	charged, err := t.charged.Add(fee)
	if err != nil {
		return payment, err
	}
	t.asset = payment.ID
	t.bought = t.bought.Add(w)
	t.charged = charged
	return Asset{ID: payment.ID, Amount: rest}, nil
}

// Refund implements Trader.
func (t *FixedRateTrader) Refund(w Weight) Asset {
	if t.asset == "" {
		return Asset{}
	}
	w = w.Min(t.bought)
	amount := Fee(w, t.rates[t.asset]).Min(t.charged)
	t.bought = t.bought.Sub(w)
	t.charged = t.charged.SaturatingSub(amount)
	return Asset{ID: t.asset, Amount: amount}
}

// Bought implements Trader.
func (t *FixedRateTrader) Bought() Weight {
	return t.bought
}

// Revenue implements Trader.
func (t *FixedRateTrader) Revenue() (Asset, bool) {
	if t.charged.IsZero() {
		return Asset{}, false
	}
	return Asset{ID: t.asset, Amount: t.charged}, true
}

// Clone implements Trader.
func (t *FixedRateTrader) Clone() Trader {
	c := *t
	return &c
}
