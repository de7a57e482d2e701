package ledger

import (
	"github.com/iov-one/settle"
	"github.com/iov-one/settle/coin"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/orm"
	"github.com/iov-one/settle/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendermint/tendermint/libs/log"
)

// Controller implements the balance operations. All mutating operations
// are atomic: on error no change is written.
type Controller struct {
	conf     Configuration
	sweeper  DustSweeper
	registry *Registry
	backends map[BackendKind]Backend
	issuance orm.ModelBucket

	logger     log.Logger
	registerer prometheus.Registerer
	metrics    *metrics
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used by the controller.
func WithLogger(l log.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithMetrics registers the controller metrics on given registerer.
func WithMetrics(r prometheus.Registerer) Option {
	return func(c *Controller) {
		c.registerer = r
	}
}

// NewController returns a controller using given configuration. The
// configuration is copied and never changes afterwards.
func NewController(conf Configuration, opts ...Option) (*Controller, error) {
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration")
	}
	c := &Controller{
		conf:     conf,
		registry: NewRegistry(),
		backends: map[BackendKind]Backend{
			NativeBackend: newNativeBackend(),
			TokensBackend: newTokensBackend(),
		},
		issuance: orm.NewModelBucket("issuance", &issuance{}),
		logger:   settle.DefaultLogger,
	}
	c.conf.Exempt = append([]settle.Address(nil), conf.Exempt...)
	c.sweeper = NewDustSweeper(&c.conf)
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("module", "ledger")
	m, err := newMetrics(c.registerer)
	if err != nil {
		return nil, err
	}
	c.metrics = m
	return c, nil
}

// LoadController reads the configuration from the database and returns a
// controller using it.
func LoadController(db settle.ReadOnlyKVStore, opts ...Option) (*Controller, error) {
	conf, err := LoadConfiguration(db)
	if err != nil {
		return nil, err
	}
	return NewController(conf, opts...)
}

// Configuration returns a copy of the controller configuration.
func (c *Controller) Configuration() Configuration {
	conf := c.conf
	conf.Exempt = append([]settle.Address(nil), c.conf.Exempt...)
	return conf
}

// Registry returns the asset registry.
func (c *Controller) Registry() *Registry {
	return c.registry
}

// Sink returns the sink account.
func (c *Controller) Sink() settle.Address {
	return c.conf.SinkAccount
}

// IsExempt returns true if the account is never reaped.
func (c *Controller) IsExempt(a settle.Address) bool {
	return c.conf.IsExempt(a)
}

func (c *Controller) asset(db settle.ReadOnlyKVStore, id AssetID) (*Asset, Backend, error) {
	a, err := c.registry.Get(db, id)
	if err != nil {
		return nil, nil, err
	}
	be, ok := c.backends[a.Backend]
	if !ok {
		return nil, nil, errors.Wrapf(errors.ErrInvalidState, "no %q backend for %s", a.Backend, id)
	}
	return a, be, nil
}

// Balance returns the free and reserved balance of an account.
func (c *Controller) Balance(db settle.ReadOnlyKVStore, account settle.Address, asset AssetID) (Balance, error) {
	a, be, err := c.asset(db, asset)
	if err != nil {
		return Balance{}, err
	}
	return be.Balance(db, account, a.ID)
}

// FreeBalance returns the spendable balance of an account.
func (c *Controller) FreeBalance(db settle.ReadOnlyKVStore, account settle.Address, asset AssetID) (coin.Amount, error) {
	b, err := c.Balance(db, account, asset)
	if err != nil {
		return coin.Amount{}, err
	}
	return b.Free, nil
}

// TotalIssuance returns the value of an asset held by all accounts.
func (c *Controller) TotalIssuance(db settle.ReadOnlyKVStore, asset AssetID) (coin.Amount, error) {
	if _, _, err := c.asset(db, asset); err != nil {
		return coin.Amount{}, err
	}
	var i issuance
	switch err := c.issuance.One(db, []byte(asset), &i); {
	case errors.ErrNotFound.Is(err):
		return coin.Zero(), nil
	case err != nil:
		return coin.Amount{}, err
	}
	return coin.AmountFromBytes(i.Total)
}

// Accounts calls fn for every account holding given asset.
func (c *Controller) Accounts(db settle.ReadOnlyKVStore, asset AssetID, fn func(settle.Address, Balance) error) error {
	a, be, err := c.asset(db, asset)
	if err != nil {
		return err
	}
	return be.Accounts(db, a.ID, fn)
}

// Credit increases the free balance of an account. A resulting balance
// below the minimum is swept to the sink unless the account is exempt.
func (c *Controller) Credit(db settle.KVStore, account settle.Address, asset AssetID, amount coin.Amount) error {
	if err := account.Validate(); err != nil {
		return errors.Wrap(err, "account")
	}
	return store.Savepoint(db, func(db settle.KVStore) error {
		a, be, err := c.asset(db, asset)
		if err != nil {
			return err
		}
		return c.credit(db, a, be, account, amount)
	})
}

// Debit decreases the free balance of an account. ErrInsufficientBalance
// is returned if the free balance is lower than the amount.
func (c *Controller) Debit(db settle.KVStore, account settle.Address, asset AssetID, amount coin.Amount) error {
	return store.Savepoint(db, func(db settle.KVStore) error {
		a, be, err := c.asset(db, asset)
		if err != nil {
			return err
		}
		return c.debit(db, a, be, account, amount)
	})
}

// Transfer moves value between two accounts. No change is written if any
// step fails.
func (c *Controller) Transfer(db settle.KVStore, from, to settle.Address, asset AssetID, amount coin.Amount) error {
	if err := to.Validate(); err != nil {
		return errors.Wrap(err, "destination")
	}
	err := store.Savepoint(db, func(db settle.KVStore) error {
		a, be, err := c.asset(db, asset)
		if err != nil {
			return err
		}
		if from.Equals(to) {
			// Moving value to itself must not leave a dust window.
			b, err := be.Balance(db, from, a.ID)
			if err != nil {
				return err
			}
			if b.Free.LT(amount) {
				return errors.Wrapf(errors.ErrInsufficientBalance, "%s has %s, needs %s", from, b.Free, amount)
			}
			return nil
		}
		if err := c.debit(db, a, be, from, amount); err != nil {
			return err
		}
		return c.credit(db, a, be, to, amount)
	})
	if err != nil {
		c.metrics.transfers.WithLabelValues(string(asset), "failed").Inc()
		return err
	}
	c.metrics.transfers.WithLabelValues(string(asset), "ok").Inc()
	return nil
}

// Withdraw debits an account and returns the taken value as a credit
// issued from given book.
func (c *Controller) Withdraw(db settle.KVStore, book *CreditBook, account settle.Address, asset AssetID, amount coin.Amount) (*Credit, error) {
	if err := c.Debit(db, account, asset, amount); err != nil {
		return nil, err
	}
	return book.issue(asset, amount), nil
}

// Resolve deposits the whole credit into an account. The credit is
// consumed only if the deposit succeeds.
func (c *Controller) Resolve(db settle.KVStore, credit *Credit, account settle.Address) error {
	credit.mustBeLive()
	if err := c.Credit(db, account, credit.asset, credit.amount); err != nil {
		return err
	}
	credit.consume()
	return nil
}

// Reserve moves value from the free to the reserved balance. An account
// with a reserved balance is never reaped.
func (c *Controller) Reserve(db settle.KVStore, account settle.Address, asset AssetID, amount coin.Amount) error {
	return store.Savepoint(db, func(db settle.KVStore) error {
		a, be, err := c.asset(db, asset)
		if err != nil {
			return err
		}
		return c.update(db, a, be, account, func(b Balance) (Balance, error) {
			free, err := b.Free.Sub(amount)
			if err != nil {
				return b, errors.Wrapf(errors.ErrInsufficientBalance, "%s has %s free, needs %s", account, b.Free, amount)
			}
			reserved, err := b.Reserved.Add(amount)
			if err != nil {
				return b, err
			}
			return Balance{Free: free, Reserved: reserved}, nil
		})
	})
}

// Unreserve moves value from the reserved back to the free balance.
func (c *Controller) Unreserve(db settle.KVStore, account settle.Address, asset AssetID, amount coin.Amount) error {
	return store.Savepoint(db, func(db settle.KVStore) error {
		a, be, err := c.asset(db, asset)
		if err != nil {
			return err
		}
		return c.update(db, a, be, account, func(b Balance) (Balance, error) {
			reserved, err := b.Reserved.Sub(amount)
			if err != nil {
				return b, errors.Wrapf(errors.ErrInsufficientBalance, "%s has %s reserved, needs %s", account, b.Reserved, amount)
			}
			free, err := b.Free.Add(amount)
			if err != nil {
				return b, err
			}
			return Balance{Free: free, Reserved: reserved}, nil
		})
	})
}

func (c *Controller) credit(db settle.KVStore, a *Asset, be Backend, account settle.Address, amount coin.Amount) error {
	if amount.IsZero() {
		return nil
	}
	return c.update(db, a, be, account, func(b Balance) (Balance, error) {
		free, err := b.Free.Add(amount)
		if err != nil {
			return b, err
		}
		b.Free = free
		return b, nil
	})
}

func (c *Controller) debit(db settle.KVStore, a *Asset, be Backend, account settle.Address, amount coin.Amount) error {
	if amount.IsZero() {
		return nil
	}
	return c.update(db, a, be, account, func(b Balance) (Balance, error) {
		if b.Free.LT(amount) {
			return b, errors.Wrapf(errors.ErrInsufficientBalance, "%s has %s, needs %s", account, b.Free, amount)
		}
		b.Free = b.Free.SaturatingSub(amount)
		return b, nil
	})
}

// update applies fn to the balance of an account, stores the result and
// applies the dust policy.
func (c *Controller) update(db settle.KVStore, a *Asset, be Backend, account settle.Address, fn func(Balance) (Balance, error)) error {
	prev, err := be.Balance(db, account, a.ID)
	if err != nil {
		return err
	}
	next, err := fn(prev)
	if err != nil {
		return err
	}
	if err := be.SetBalance(db, account, a.ID, next); err != nil {
		return err
	}
	if err := c.adjustIssuance(db, a.ID, prev, next); err != nil {
		return err
	}
	return c.sweep(db, a, be, account, next)
}

// sweep reaps the account if its balance is dust and credits the dust to
// the sink. The sink is exempt, so this never recurses more than once.
func (c *Controller) sweep(db settle.KVStore, a *Asset, be Backend, account settle.Address, b Balance) error {
	dust, ok := c.sweeper.Dust(account, a, b)
	if !ok {
		return nil
	}
	if err := be.Reap(db, account, a.ID); err != nil {
		return errors.Wrap(err, "reap")
	}
	if err := c.adjustIssuance(db, a.ID, b, Balance{}); err != nil {
		return err
	}
	c.logger.Debug("dust swept", "account", account, "asset", a.ID, "amount", dust)
	c.metrics.dustSwept.WithLabelValues(string(a.ID)).Inc()
	c.metrics.reaped.WithLabelValues(string(a.ID)).Inc()
	return c.credit(db, a, be, c.sweeper.Sink(), dust)
}

func (c *Controller) adjustIssuance(db settle.KVStore, asset AssetID, prev, next Balance) error {
	before, err := prev.Total()
	if err != nil {
		return err
	}
	after, err := next.Total()
	if err != nil {
		return err
	}
	if before.Equals(after) {
		return nil
	}

	var i issuance
	if err := c.issuance.One(db, []byte(asset), &i); err != nil && !errors.ErrNotFound.Is(err) {
		return err
	}
	total, err := coin.AmountFromBytes(i.Total)
	if err != nil {
		return err
	}
	if after.GTE(before) {
		total, err = total.Add(after.SaturatingSub(before))
	} else {
		total, err = total.Sub(before.SaturatingSub(after))
	}
	if err != nil {
		return errors.Wrapf(err, "%s issuance", asset)
	}
	i.Total = total.Bytes()
	return c.issuance.Put(db, []byte(asset), &i)
}
