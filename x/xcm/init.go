package xcm

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/gconf"
)

// Initializer fulfils the settle.Initializer interface to load the xcm
// configuration from the genesis file.
type Initializer struct{}

var _ settle.Initializer = Initializer{}

// FromGenesis stores the "xcm" configuration.
func (Initializer) FromGenesis(opts settle.Options, db settle.KVStore) error {
	var conf Configuration
	if err := gconf.InitConfig(db, opts, ConfigurationKey, &conf); err != nil {
		return errors.Wrap(err, "init config")
	}
	return nil
}
