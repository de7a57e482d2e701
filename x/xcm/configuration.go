package xcm

import (
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/gconf"
	"github.com/iov-one/settle/x/ledger"
)

// ConfigurationKey is the gconf package name of the xcm configuration.
const ConfigurationKey = "xcm"

// DefaultMaxInstructions is used when no instruction limit is configured.
const DefaultMaxInstructions = 100

// Reserve declares the location that is the reserve of an asset. Only the
// reserve may deposit the asset with ReserveAssetDeposited.
type Reserve struct {
	Asset    ledger.AssetID `json:"asset"`
	Location Location       `json:"location"`
}

// Configuration is the immutable message execution configuration.
type Configuration struct {
	// MaxInstructions limits the length of a message.
	MaxInstructions uint32 `json:"max_instructions"`
	// UnitWeight is the weight of a single instruction used by the
	// default weigher.
	UnitWeight Weight `json:"unit_weight"`
	// DefaultBound is the message weight used when weighing fails.
	DefaultBound Weight `json:"default_bound"`
	// Reserves lists the assets that can be deposited from outside.
	Reserves []Reserve `json:"reserves"`
	// FeeRates lists the assets accepted as execution fees.
	FeeRates []FeeRate `json:"fee_rates"`
	// TrustedOrigins may execute messages without paying for them.
	TrustedOrigins []Location `json:"trusted_origins"`
}

var _ gconf.Configuration = (*Configuration)(nil)

// Validate implements gconf.Configuration.
func (c *Configuration) Validate() error {
	var errs error
	seen := make(map[ledger.AssetID]bool)
	for i, r := range c.Reserves {
		if err := r.Asset.Validate(); err != nil {
			errs = errors.AppendField(errs, "Reserves", errors.Wrapf(err, "reserve %d", i))
		}
		if err := r.Location.Validate(); err != nil {
			errs = errors.AppendField(errs, "Reserves", errors.Wrapf(err, "reserve %d", i))
		}
		if seen[r.Asset] {
			errs = errors.AppendField(errs, "Reserves", errors.Wrapf(errors.ErrDuplicate, "reserve of %s", r.Asset))
		}
		seen[r.Asset] = true
	}
	for i, r := range c.FeeRates {
		if err := r.Asset.Validate(); err != nil {
			errs = errors.AppendField(errs, "FeeRates", errors.Wrapf(err, "rate %d", i))
		}
	}
	for i, l := range c.TrustedOrigins {
		if err := l.Validate(); err != nil {
			errs = errors.AppendField(errs, "TrustedOrigins", errors.Wrapf(err, "origin %d", i))
		}
	}
	return errs
}

func (c Configuration) withDefaults() Configuration {
	if c.MaxInstructions == 0 {
		c.MaxInstructions = DefaultMaxInstructions
	}
	return c
}

func (c *Configuration) reserve(id ledger.AssetID) (Location, bool) {
	for _, r := range c.Reserves {
		if r.Asset == id {
			return r.Location, true
		}
	}
	return "", false
}

func (c *Configuration) isTrusted(l Location) bool {
	for _, t := range c.TrustedOrigins {
		if t == l {
			return true
		}
	}
	return false
}

// LoadConfiguration reads the xcm configuration from the database.
func LoadConfiguration(db gconf.ReadStore) (Configuration, error) {
	var conf Configuration
	if err := gconf.Load(db, ConfigurationKey, &conf); err != nil {
		return conf, errors.Wrap(err, "load xcm configuration")
	}
	return conf, nil
}
