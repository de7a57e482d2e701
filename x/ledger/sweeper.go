package ledger

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/coin"
)

// DustSweeper decides which balances must be reaped.
type DustSweeper struct {
	conf *Configuration
}

// NewDustSweeper returns a sweeper using the exemptions of given
// configuration.
func NewDustSweeper(conf *Configuration) DustSweeper {
	return DustSweeper{conf: conf}
}

// Dust returns the amount to remove from an account and true if the
// account must be reaped. A balance is dust when nothing is reserved and
// the free part is positive but below the minimum.
func (s DustSweeper) Dust(account settle.Address, asset *Asset, b Balance) (coin.Amount, bool) {
	if s.conf.IsExempt(account) {
		return coin.Zero(), false
	}
	if !b.Reserved.IsZero() || b.Free.IsZero() {
		return coin.Zero(), false
	}
	if b.Free.GTE(asset.Minimum()) {
		return coin.Zero(), false
	}
	return b.Free, true
}

// Sink returns the account receiving the dust.
func (s DustSweeper) Sink() settle.Address {
	return s.conf.SinkAccount
}
