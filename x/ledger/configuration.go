package ledger

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/gconf"
)

// ConfigurationKey is the gconf package name of the ledger configuration.
const ConfigurationKey = "ledger"

// DefaultSink is the address of the sink account used by the genesis
// files generated for tests and local networks.
var DefaultSink = settle.NewCondition("ledger", "sink", []byte("treasury")).Address()

// Configuration is the immutable ledger configuration.
type Configuration struct {
	// SinkAccount absorbs dust and settled execution fees.
	SinkAccount settle.Address `json:"sink_account"`
	// RewardPool accumulates fee revenue paid out to block authors.
	RewardPool settle.Address `json:"reward_pool"`
	// Exempt lists additional accounts that are never reaped.
	Exempt []settle.Address `json:"exempt"`
}

var _ gconf.Configuration = (*Configuration)(nil)

// Validate implements gconf.Configuration.
func (c *Configuration) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "SinkAccount", c.SinkAccount.Validate())
	if len(c.RewardPool) != 0 {
		errs = errors.AppendField(errs, "RewardPool", c.RewardPool.Validate())
	}
	for i, a := range c.Exempt {
		if err := a.Validate(); err != nil {
			errs = errors.AppendField(errs, "Exempt", errors.Wrapf(err, "address %d", i))
		}
	}
	return errs
}

// IsExempt returns true for accounts that are never reaped.
func (c *Configuration) IsExempt(a settle.Address) bool {
	if a.Equals(c.SinkAccount) {
		return true
	}
	if len(c.RewardPool) != 0 && a.Equals(c.RewardPool) {
		return true
	}
	for _, e := range c.Exempt {
		if a.Equals(e) {
			return true
		}
	}
	return false
}

// LoadConfiguration reads the ledger configuration from the database.
func LoadConfiguration(db gconf.ReadStore) (Configuration, error) {
	var conf Configuration
	if err := gconf.Load(db, ConfigurationKey, &conf); err != nil {
		return conf, errors.Wrap(err, "load ledger configuration")
	}
	return conf, nil
}
