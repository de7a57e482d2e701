package ledger

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/coin"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/gconf"
)

const optKey = "ledger"

// GenesisAsset is used to parse the assets from the genesis file.
type GenesisAsset struct {
	ID             AssetID     `json:"id"`
	MinimumBalance coin.Amount `json:"minimum_balance"`
	Backend        BackendKind `json:"backend"`
}

// GenesisBalance is used to parse initial balances from the genesis file.
type GenesisBalance struct {
	Address  settle.Address `json:"address"`
	Asset    AssetID        `json:"asset"`
	Free     coin.Amount    `json:"free"`
	Reserved coin.Amount    `json:"reserved"`
}

// Genesis is the content of the "ledger" genesis section.
type Genesis struct {
	Assets   []GenesisAsset   `json:"assets"`
	Balances []GenesisBalance `json:"balances"`
}

// Initializer fulfils the settle.Initializer interface to load the
// configuration, the asset registry and the initial balances from the
// genesis file.
type Initializer struct{}

var _ settle.Initializer = Initializer{}

// FromGenesis will parse the ledger section of the genesis and save it to
// the database. A genesis balance that would be reaped is rejected.
func (Initializer) FromGenesis(opts settle.Options, db settle.KVStore) error {
	var conf Configuration
	if err := gconf.InitConfig(db, opts, ConfigurationKey, &conf); err != nil {
		return errors.Wrap(err, "init config")
	}
	ctrl, err := NewController(conf)
	if err != nil {
		return err
	}

	var gen Genesis
	if err := opts.ReadOptions(optKey, &gen); err != nil {
		return err
	}
	for _, ga := range gen.Assets {
		if err := ctrl.registry.Register(db, NewAsset(ga.ID, ga.MinimumBalance, ga.Backend)); err != nil {
			return errors.Wrapf(err, "asset %s", ga.ID)
		}
	}
	for i, gb := range gen.Balances {
		if err := gb.Address.Validate(); err != nil {
			return errors.Wrapf(err, "balance %d", i)
		}
		a, be, err := ctrl.asset(db, gb.Asset)
		if err != nil {
			return errors.Wrapf(err, "balance %d", i)
		}
		prev, err := be.Balance(db, gb.Address, a.ID)
		if err != nil {
			return err
		}
		if !prev.IsEmpty() {
			return errors.Wrapf(errors.ErrDuplicate, "balance %d: %s %s", i, gb.Address, gb.Asset)
		}
		next := Balance{Free: gb.Free, Reserved: gb.Reserved}
		if _, dust := ctrl.sweeper.Dust(gb.Address, a, next); dust {
			return errors.Wrapf(errors.ErrInvalidState, "balance %d: %s is below the %s minimum", i, gb.Free, a.ID)
		}
		if err := be.SetBalance(db, gb.Address, a.ID, next); err != nil {
			return err
		}
		if err := ctrl.adjustIssuance(db, a.ID, prev, next); err != nil {
			return err
		}
	}
	return nil
}
