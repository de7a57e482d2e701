package collator

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/coin"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/gconf"
	"github.com/iov-one/settle/x/ledger"
)

// ConfigurationKey is the gconf package name of the collator configuration.
const ConfigurationKey = "collator"

// DefaultPoolFraction is used when no pool fraction is configured.
var DefaultPoolFraction = settle.Fraction{Numerator: 1, Denominator: 5}

// DefaultPool is the address of the reward pool used by the genesis files
// generated for tests and local networks.
var DefaultPool = settle.NewCondition("collator", "pool", []byte("pot")).Address()

// Configuration is the immutable fee distribution configuration.
type Configuration struct {
	// PoolAccount receives the pool fraction of the fees and pays the
	// author rewards.
	PoolAccount settle.Address `json:"pool_account"`
	// PoolFraction is the part of the fees deposited into the pool.
	PoolFraction settle.Fraction `json:"pool_fraction"`
	// MinRewardDistribution is the smallest distributable pool amount
	// that triggers a payout.
	MinRewardDistribution coin.Amount `json:"min_reward_distribution"`
	// PoolReserve is kept in the pool and never distributed.
	PoolReserve coin.Amount `json:"pool_reserve"`
	// RemainderAccount receives the fees not routed into the pool. When
	// empty the remainder is burned.
	RemainderAccount settle.Address `json:"remainder_account"`
	// Asset is the asset in which fees are collected and rewards paid.
	Asset ledger.AssetID `json:"asset"`
}

var _ gconf.Configuration = (*Configuration)(nil)

// Validate implements gconf.Configuration.
func (c *Configuration) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "PoolAccount", c.PoolAccount.Validate())
	if c.PoolFraction != (settle.Fraction{}) {
		if err := c.PoolFraction.Validate(); err != nil {
			errs = errors.AppendField(errs, "PoolFraction", err)
		} else if c.PoolFraction.Numerator > c.PoolFraction.Denominator {
			errs = errors.AppendField(errs, "PoolFraction",
				errors.Wrapf(errors.ErrInvalidInput, "%s is greater than one", c.PoolFraction))
		}
	}
	if len(c.RemainderAccount) != 0 {
		errs = errors.AppendField(errs, "RemainderAccount", c.RemainderAccount.Validate())
	}
	errs = errors.AppendField(errs, "Asset", c.Asset.Validate())
	return errs
}

func (c Configuration) withDefaults() Configuration {
	if c.PoolFraction == (settle.Fraction{}) {
		c.PoolFraction = DefaultPoolFraction
	}
	return c
}

// LoadConfiguration reads the collator configuration from the database.
func LoadConfiguration(db gconf.ReadStore) (Configuration, error) {
	var conf Configuration
	if err := gconf.Load(db, ConfigurationKey, &conf); err != nil {
		return conf, errors.Wrap(err, "load collator configuration")
	}
	return conf, nil
}
