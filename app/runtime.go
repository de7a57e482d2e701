package app

import (
	"context"
	"fmt"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/coin"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/store"
	"github.com/iov-one/settle/x/collator"
	"github.com/iov-one/settle/x/ledger"
	"github.com/iov-one/settle/x/xcm"
	"github.com/prometheus/client_golang/prometheus"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/common"
	"github.com/tendermint/tendermint/libs/log"
)

// Runtime composes the ledger, the fee distributor and the message
// executor over a commit store. Calls must follow the block order:
// BeginBlock, any number of CollectFees and ReceiveMessage, EndBlock and
// Commit. A Runtime is not safe for concurrent use.
type Runtime struct {
	logger   log.Logger
	registry prometheus.Registerer
	store    *CommitStore
	chainID  string

	ledger      *ledger.Controller
	distributor *collator.Distributor
	executor    *xcm.Executor

	// Valid between BeginBlock and EndBlock.
	block context.Context
	book  *ledger.CreditBook
	fees  *ledger.Credit
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger passed to all components.
func WithLogger(l log.Logger) Option {
	return func(r *Runtime) {
		r.logger = l
	}
}

// WithMetrics registers the metrics of all components on given registry.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(r *Runtime) {
		r.registry = reg
	}
}

// NewRuntime loads the latest version of the store. Components are created
// from the stored configuration if the chain was already initialized,
// otherwise InitChain must be called first.
func NewRuntime(db settle.CommitKVStore, opts ...Option) (*Runtime, error) {
	cs, err := NewCommitStore(db)
	if err != nil {
		return nil, err
	}
	r := &Runtime{
		logger: log.NewNopLogger(),
		store:  cs,
	}
	for _, fn := range opts {
		fn(r)
	}
	r.logger = r.logger.With("module", "app")

	chainID, err := loadChainID(cs.DeliverStore())
	if err != nil {
		return nil, err
	}
	if chainID != "" {
		if err := r.load(chainID); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Initializer returns the initializer of all extensions used by the
// runtime, in dependency order.
func Initializer() settle.Initializer {
	return settle.ChainInitializers(
		ledger.Initializer{},
		collator.Initializer{},
		xcm.Initializer{},
	)
}

// InitChain stores the chain id and initializes all extensions from the
// genesis options. It can be called only once in the lifetime of a chain.
func (r *Runtime) InitChain(chainID string, opts settle.Options) error {
	if r.chainID != "" {
		return errors.Wrapf(errors.ErrInvalidState, "chain %s already initialized", r.chainID)
	}
	db := r.store.DeliverStore()
	if err := saveChainID(db, chainID); err != nil {
		return err
	}
	if err := Initializer().FromGenesis(opts, db); err != nil {
		return errors.Wrap(err, "genesis")
	}
	if err := r.load(chainID); err != nil {
		return err
	}
	r.logger.Info("chain initialized", "chain", chainID)
	return nil
}

func (r *Runtime) load(chainID string) error {
	db := r.store.DeliverStore()
	l, err := ledger.LoadController(db, ledger.WithLogger(r.logger), ledger.WithMetrics(r.registry))
	if err != nil {
		return errors.Wrap(err, "ledger")
	}
	d, err := collator.LoadDistributor(db, l, collator.WithLogger(r.logger), collator.WithMetrics(r.registry))
	if err != nil {
		return errors.Wrap(err, "collator")
	}
	e, err := xcm.LoadExecutor(db, l, xcm.WithLogger(r.logger), xcm.WithMetrics(r.registry))
	if err != nil {
		return errors.Wrap(err, "xcm")
	}
	r.chainID = chainID
	r.ledger = l
	r.distributor = d
	r.executor = e
	return nil
}

// ChainID returns the id of the chain or an empty string before InitChain.
func (r *Runtime) ChainID() string {
	return r.chainID
}

// Ledger returns the ledger controller.
func (r *Runtime) Ledger() *ledger.Controller {
	return r.ledger
}

// Distributor returns the fee distributor.
func (r *Runtime) Distributor() *collator.Distributor {
	return r.distributor
}

// Executor returns the message executor.
func (r *Runtime) Executor() *xcm.Executor {
	return r.executor
}

// DeliverStore returns the uncommitted state of the current block.
func (r *Runtime) DeliverStore() settle.CacheableKVStore {
	return r.store.DeliverStore()
}

// Info returns the version and hash of the last commit.
func (r *Runtime) Info() (settle.CommitID, error) {
	return r.store.CommitInfo()
}

// BeginBlock starts processing a block. The proposer of the block is noted
// as its author and may receive a reward from the pool. Keys changed by the
// reward are returned as tags.
func (r *Runtime) BeginBlock(header abci.Header) ([]common.KVPair, error) {
	if r.chainID == "" {
		return nil, errors.Wrap(errors.ErrInvalidState, "chain not initialized")
	}
	if r.book != nil {
		return nil, errors.Wrapf(errors.ErrInvalidState, "block %d not ended", settle.GetHeight(r.block))
	}
	info, err := settle.NewBlockInfo(header, r.chainID)
	if err != nil {
		return nil, err
	}
	ctx := settle.WithLogger(context.Background(), r.logger.With("height", header.Height))
	ctx = settle.WithBlockInfo(ctx, info)

	db := store.NewRecordingStore(r.store.DeliverStore())
	if author := info.Author(); author != nil {
		if err := r.distributor.NoteAuthor(ctx, db, author); err != nil {
			return nil, errors.Wrap(err, "note author")
		}
	}
	r.block = ctx
	r.book = ledger.NewCreditBook()
	r.fees = nil
	return kvPairs(db), nil
}

// CollectFees withdraws the fee and the tip paid by an account. Collected
// value is distributed when the block ends. Nothing is withdrawn on
// failure.
func (r *Runtime) CollectFees(payer settle.Address, asset ledger.AssetID, fee, tip coin.Amount) error {
	if r.book == nil {
		return errors.Wrap(errors.ErrInvalidState, "no block in progress")
	}
	if want := r.distributor.Configuration().Asset; asset != want {
		return errors.Wrapf(errors.ErrInvalidInput, "fees in %s, expected %s", asset, want)
	}
	total, err := fee.Add(tip)
	if err != nil {
		return errors.Wrap(err, "fee and tip")
	}
	if total.IsZero() {
		return nil
	}
	c, err := r.ledger.Withdraw(r.store.DeliverStore(), r.book, payer, asset, total)
	if err != nil {
		return errors.Wrap(err, "withdraw fees")
	}
	if r.fees == nil {
		r.fees = c
		return nil
	}
	merged, err := ledger.Merge(r.fees, c)
	if err != nil {
		return errors.Wrap(errors.ErrHuman, err.Error())
	}
	r.fees = merged
	return nil
}

// EndBlock hands the collected fees to the distributor. Every credit
// issued during the block must be consumed by then.
func (r *Runtime) EndBlock() ([]common.KVPair, error) {
	if r.book == nil {
		return nil, errors.Wrap(errors.ErrInvalidState, "no block in progress")
	}
	db := store.NewRecordingStore(r.store.DeliverStore())
	if r.fees != nil {
		if err := r.distributor.DealWithFees(db, r.fees, nil); err != nil {
			return nil, errors.Wrap(err, "deal with fees")
		}
	}
	r.book.MustSettle()

	r.block = nil
	r.book = nil
	r.fees = nil
	return kvPairs(db), nil
}

// ReceiveMessage decodes and executes a message received from origin. A
// message that cannot be decoded is rejected without effects.
func (r *Runtime) ReceiveMessage(origin xcm.Location, raw []byte, ceiling xcm.Weight) xcm.Outcome {
	if r.book == nil {
		return xcm.Outcome{Kind: xcm.OutcomeError, Err: errors.Wrap(errors.ErrInvalidState, "no block in progress")}
	}
	msg, err := xcm.Decode(raw)
	if err != nil {
		return xcm.Outcome{Kind: xcm.OutcomeError, Err: errors.Wrap(err, "decode")}
	}

	cache := r.store.DeliverStore().CacheWrap()
	out, err := r.execute(cache, origin, msg, ceiling)
	if err != nil {
		cache.Discard()
		r.logger.Error("message execution panicked", "origin", origin, "err", fmt.Sprintf("%+v", err))
		return xcm.Outcome{Kind: xcm.OutcomeError, Err: err}
	}
	if err := cache.Write(); err != nil {
		return xcm.Outcome{Kind: xcm.OutcomeError, Err: errors.Wrap(err, "write")}
	}
	return out
}

// execute turns a panic of the executor into an error.
func (r *Runtime) execute(db settle.KVStore, origin xcm.Location, msg xcm.Message, ceiling xcm.Weight) (out xcm.Outcome, err error) {
	defer errors.Recover(&err)
	return r.executor.Execute(r.block, db, origin, msg, ceiling), nil
}

// Commit persists the state of the block.
func (r *Runtime) Commit() (settle.CommitID, error) {
	if r.book != nil {
		return settle.CommitID{}, errors.Wrap(errors.ErrInvalidState, "block not ended")
	}
	id, err := r.store.Commit()
	if err != nil {
		return id, errors.Wrap(err, "commit")
	}
	r.logger.Debug("commit", "height", id.Version, "hash", fmt.Sprintf("%X", id.Hash))
	return id, nil
}
