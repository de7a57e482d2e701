package gconf

import (
	"github.com/iov-one/settle"
)

// Initializer fulfils the settle.Initializer interface to load the
// configuration of every registered package from the genesis file.
type Initializer struct {
	configs map[string]func() Configuration
}

var _ settle.Initializer = (*Initializer)(nil)

// NewInitializer returns an initializer that does not know any package
// yet.
func NewInitializer() *Initializer {
	return &Initializer{configs: make(map[string]func() Configuration)}
}

// Register declares that the genesis must contain a configuration for given
// package. The constructor returns a fresh, empty configuration object.
func (i *Initializer) Register(pkg string, fn func() Configuration) *Initializer {
	i.configs[pkg] = fn
	return i
}

// FromGenesis reads, validates and stores the configuration of every
// registered package.
func (i *Initializer) FromGenesis(opts settle.Options, db settle.KVStore) error {
	for pkg, fn := range i.configs {
		if err := InitConfig(db, opts, pkg, fn()); err != nil {
			return err
		}
	}
	return nil
}
