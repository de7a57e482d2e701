package collator

import (
	"context"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/coin"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/orm"
	"github.com/iov-one/settle/store"
	"github.com/iov-one/settle/x/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendermint/tendermint/libs/log"
)

// Ledger is the part of the ledger controller used by the distributor.
type Ledger interface {
	Resolve(db settle.KVStore, credit *ledger.Credit, account settle.Address) error
	Transfer(db settle.KVStore, from, to settle.Address, asset ledger.AssetID, amount coin.Amount) error
	FreeBalance(db settle.ReadOnlyKVStore, account settle.Address, asset ledger.AssetID) (coin.Amount, error)
}

var _ Ledger = (*ledger.Controller)(nil)

// Distributor splits fee revenue and pays rewards to block authors.
type Distributor struct {
	conf     Configuration
	ledger   Ledger
	authored orm.ModelBucket

	logger     log.Logger
	registerer prometheus.Registerer
	metrics    *metrics
}

// Option configures a Distributor.
type Option func(*Distributor)

// WithLogger sets the logger used by the distributor.
func WithLogger(l log.Logger) Option {
	return func(d *Distributor) {
		d.logger = l
	}
}

// WithMetrics registers the distributor metrics on given registerer.
func WithMetrics(r prometheus.Registerer) Option {
	return func(d *Distributor) {
		d.registerer = r
	}
}

// NewDistributor returns a distributor using given configuration and
// ledger.
func NewDistributor(conf Configuration, l Ledger, opts ...Option) (*Distributor, error) {
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration")
	}
	if l == nil {
		return nil, errors.Wrap(errors.ErrHuman, "ledger is required")
	}
	d := &Distributor{
		conf:     conf.withDefaults(),
		ledger:   l,
		authored: NewLastAuthoredBucket(),
		logger:   settle.DefaultLogger,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("module", "collator")
	m, err := newMetrics(d.registerer)
	if err != nil {
		return nil, err
	}
	d.metrics = m
	return d, nil
}

// LoadDistributor reads the configuration from the database and returns a
// distributor using it.
func LoadDistributor(db settle.ReadOnlyKVStore, l Ledger, opts ...Option) (*Distributor, error) {
	conf, err := LoadConfiguration(db)
	if err != nil {
		return nil, err
	}
	return NewDistributor(conf, l, opts...)
}

// Configuration returns the configuration in use, with defaults applied.
func (d *Distributor) Configuration() Configuration {
	return d.conf
}

// DealWithFees consumes the fee and tip credits of a block. Either of them
// can be nil. The pool fraction of their sum is deposited into the pool,
// the rest into the remainder account or burned.
func (d *Distributor) DealWithFees(db settle.KVStore, fee, tip *ledger.Credit) error {
	revenue, err := combine(fee, tip)
	if err != nil {
		return errors.Wrap(err, "combine revenue")
	}
	if revenue == nil {
		return nil
	}
	if revenue.Asset() != d.conf.Asset {
		return errors.Wrapf(errors.ErrInvalidInput, "fees in %s, expected %s", revenue.Asset(), d.conf.Asset)
	}

	toPool, rest, err := revenue.SplitFraction(d.conf.PoolFraction)
	if err != nil {
		return errors.Wrap(err, "split revenue")
	}
	poolAmount := toPool.Amount()
	if err := d.ledger.Resolve(db, toPool, d.conf.PoolAccount); err != nil {
		return errors.Wrap(err, "deposit into pool")
	}
	d.metrics.fees.WithLabelValues("pool").Inc()

	restAmount := rest.Amount()
	if len(d.conf.RemainderAccount) != 0 {
		if err := d.ledger.Resolve(db, rest, d.conf.RemainderAccount); err != nil {
			return errors.Wrap(err, "deposit remainder")
		}
		d.metrics.fees.WithLabelValues("remainder").Inc()
	} else {
		rest.Burn()
		d.metrics.fees.WithLabelValues("burn").Inc()
	}
	d.logger.Debug("fees distributed", "asset", d.conf.Asset, "pool", poolAmount, "remainder", restAmount)
	return nil
}

func combine(fee, tip *ledger.Credit) (*ledger.Credit, error) {
	switch {
	case fee == nil:
		return tip, nil
	case tip == nil:
		return fee, nil
	default:
		return ledger.Merge(fee, tip)
	}
}

// Pending returns the distributable part of the pool: its free balance
// above the reserve.
func (d *Distributor) Pending(db settle.ReadOnlyKVStore) (coin.Amount, error) {
	free, err := d.ledger.FreeBalance(db, d.conf.PoolAccount, d.conf.Asset)
	if err != nil {
		return coin.Amount{}, errors.Wrap(err, "pool balance")
	}
	return free.SaturatingSub(d.conf.PoolReserve), nil
}

// NoteAuthor records the block author and, when the distributable pool
// amount reaches the minimum reward distribution, transfers half of it to
// the author. The block height is read from the context.
func (d *Distributor) NoteAuthor(ctx context.Context, db settle.KVStore, author settle.Address) error {
	if err := author.Validate(); err != nil {
		return errors.Wrap(err, "author")
	}
	logger := settle.GetLogger(ctx).With("module", "collator")

	return store.Savepoint(db, func(db settle.KVStore) error {
		rec := LastAuthored{Height: settle.GetHeight(ctx)}
		if err := d.authored.Put(db, author, &rec); err != nil {
			return errors.Wrap(err, "last authored")
		}

		pending, err := d.Pending(db)
		if err != nil {
			return err
		}
		if pending.LT(d.conf.MinRewardDistribution) {
			d.metrics.rewards.WithLabelValues("below_threshold").Inc()
			return nil
		}
		reward := pending.Div(2)
		if reward.IsZero() {
			d.metrics.rewards.WithLabelValues("below_threshold").Inc()
			return nil
		}
		if err := d.ledger.Transfer(db, d.conf.PoolAccount, author, d.conf.Asset, reward); err != nil {
			return errors.Wrap(err, "pay reward")
		}
		d.metrics.rewards.WithLabelValues("paid").Inc()
		logger.Info("author rewarded", "account", author, "asset", d.conf.Asset, "amount", reward)
		return nil
	})
}

// LastAuthored returns the height of the last block produced by given
// author or ErrNotFound.
func (d *Distributor) LastAuthored(db settle.ReadOnlyKVStore, author settle.Address) (int64, error) {
	return lastAuthored(db, d.authored, author)
}
