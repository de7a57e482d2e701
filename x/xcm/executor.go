package xcm

import (
	"context"
	"encoding/hex"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/coin"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/orm"
	"github.com/iov-one/settle/store"
	"github.com/iov-one/settle/x/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tendermint/tendermint/libs/log"
)

// Ledger is the part of the ledger controller used by the executor.
type Ledger interface {
	Credit(db settle.KVStore, account settle.Address, asset ledger.AssetID, amount coin.Amount) error
	Debit(db settle.KVStore, account settle.Address, asset ledger.AssetID, amount coin.Amount) error
	Sink() settle.Address
}

var _ Ledger = (*ledger.Controller)(nil)

// OutcomeKind classifies the result of an execution.
type OutcomeKind int

const (
	// OutcomeComplete means every instruction was executed.
	OutcomeComplete OutcomeKind = iota
	// OutcomeIncomplete means the execution halted. Effects of the
	// instructions executed before the halt are kept.
	OutcomeIncomplete
	// OutcomeError means the message was rejected before execution and
	// has no effect.
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeComplete:
		return "complete"
	case OutcomeIncomplete:
		return "incomplete"
	case OutcomeError:
		return "error"
	}
	return "unknown"
}

// Outcome is the result of an execution.
type Outcome struct {
	Kind       OutcomeKind
	WeightUsed Weight
	Err        error
}

// Executor runs cross domain messages against the ledger.
type Executor struct {
	conf      Configuration
	ledger    Ledger
	weigher   Weigher
	newTrader func() Trader
	accounts  LocationToAccount
	traps     orm.ModelBucket

	logger     log.Logger
	registerer prometheus.Registerer
	metrics    *metrics
}

// Option configures an Executor.
type Option func(*Executor)

// WithWeigher replaces the default FixedWeigher.
func WithWeigher(w Weigher) Option {
	return func(e *Executor) {
		e.weigher = w
	}
}

// WithTrader replaces the default FixedRateTrader. The function is called
// once for every execution.
func WithTrader(fn func() Trader) Option {
	return func(e *Executor) {
		e.newTrader = fn
	}
}

// WithLocationToAccount replaces the default ConditionAccounts.
func WithLocationToAccount(c LocationToAccount) Option {
	return func(e *Executor) {
		e.accounts = c
	}
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(l log.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithMetrics registers the executor metrics on given registerer.
func WithMetrics(r prometheus.Registerer) Option {
	return func(e *Executor) {
		e.registerer = r
	}
}

// NewExecutor returns an executor using given configuration and ledger.
func NewExecutor(conf Configuration, l Ledger, opts ...Option) (*Executor, error) {
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration")
	}
	if l == nil {
		return nil, errors.Wrap(errors.ErrHuman, "ledger is required")
	}
	conf = conf.withDefaults()
	e := &Executor{
		conf:   conf,
		ledger: l,
		weigher: FixedWeigher{
			Unit:            conf.UnitWeight,
			MaxInstructions: int(conf.MaxInstructions),
		},
		newTrader: func() Trader { return NewFixedRateTrader(conf.FeeRates) },
		accounts:  ConditionAccounts{},
		traps:     NewTrapBucket(),
		logger:    settle.DefaultLogger,
	}
	for _, opt := range opts {
		opt(e)
	}
	m, err := newMetrics(e.registerer)
	if err != nil {
		return nil, err
	}
	e.metrics = m
	return e, nil
}

// LoadExecutor reads the configuration from the database and returns an
// executor using it.
func LoadExecutor(db settle.ReadOnlyKVStore, l Ledger, opts ...Option) (*Executor, error) {
	conf, err := LoadConfiguration(db)
	if err != nil {
		return nil, err
	}
	return NewExecutor(conf, l, opts...)
}

// Weigher returns the weigher in use.
func (e *Executor) Weigher() Weigher {
	return e.weigher
}

// Trapped returns the assets trapped by the execution of a message or
// ErrNotFound.
func (e *Executor) Trapped(db settle.ReadOnlyKVStore, origin Location, hash []byte) (*TrappedAssets, error) {
	return loadTrap(db, e.traps, origin, hash)
}

// execution is the state of a single message execution.
type execution struct {
	origin        Location
	originCleared bool
	bound         Weight
	holding       *Holding
	trader        Trader
}

func (ex *execution) clone() *execution {
	c := *ex
	c.holding = ex.holding.Clone()
	c.trader = ex.trader.Clone()
	return &c
}

// Execute runs a message received from origin. The weight of the message
// must not exceed the ceiling. Every instruction is applied atomically;
// the first failing instruction halts the execution and keeps the effects
// of the previous ones. Execution fees are credited to the sink and assets
// left in the holding register are trapped.
func (e *Executor) Execute(ctx context.Context, db settle.KVStore, origin Location, msg Message, ceiling Weight) Outcome {
	logger := settle.GetLogger(ctx)
	if logger == settle.DefaultLogger {
		logger = e.logger
	}
	logger = logger.With("module", "xcm", "origin", origin)

	out := e.execute(ctx, db, logger, origin, msg, ceiling)
	e.metrics.outcomes.WithLabelValues(out.Kind.String()).Inc()
	if out.Kind == OutcomeError {
		logger.Info("message rejected", "outcome", out.Kind, "err", out.Err)
	} else {
		logger.Info("message executed", "outcome", out.Kind, "weight", out.WeightUsed, "err", out.Err)
	}
	return out
}

func (e *Executor) execute(ctx context.Context, db settle.KVStore, logger log.Logger, origin Location, msg Message, ceiling Weight) Outcome {
	if err := origin.Validate(); err != nil {
		return Outcome{Kind: OutcomeError, Err: errors.Wrap(err, "origin")}
	}
	if err := msg.Validate(int(e.conf.MaxInstructions)); err != nil {
		return Outcome{Kind: OutcomeError, Err: err}
	}
	hash, err := Hash(msg)
	if err != nil {
		return Outcome{Kind: OutcomeError, Err: errors.Wrap(err, "hash")}
	}
	logger = logger.With("msg", hex.EncodeToString(hash[:8]))

	bound, err := e.weigher.Weight(msg)
	if err != nil {
		logger.Error("cannot weigh message, using default bound", "err", err, "bound", e.conf.DefaultBound)
		bound = e.conf.DefaultBound
	}
	if bound.AnyGT(ceiling) {
		return Outcome{Kind: OutcomeError, Err: errors.Wrapf(ErrWeightLimitReached, "message weight %s above %s", bound, ceiling)}
	}
	if !e.conf.isTrusted(origin) {
		if err := checkBarrier(msg, bound); err != nil {
			return Outcome{Kind: OutcomeError, Err: err}
		}
	}

	ex := &execution{
		origin:  origin,
		bound:   bound,
		holding: NewHolding(),
		trader:  e.newTrader(),
	}
	var (
		used      Weight
		remaining = bound
		halt      error
	)
	for cursor, instr := range msg.Instructions {
		w := e.weigher.InstructionWeight(instr)
		if w.AnyGT(remaining) {
			halt = errors.Wrapf(ErrWeightLimitReached, "instruction %d (%s) needs %s, %s left", cursor, instr.Kind(), w, remaining)
			break
		}
		used = used.Add(w)
		remaining = remaining.Sub(w)

		next := ex.clone()
		err := store.Savepoint(db, func(db settle.KVStore) error {
			return e.apply(db, next, instr)
		})
		if err != nil {
			halt = errors.Wrapf(err, "instruction %d (%s)", cursor, instr.Kind())
			break
		}
		ex = next
	}

	e.finish(ctx, db, logger, ex, hash)
	if halt != nil {
		return Outcome{Kind: OutcomeIncomplete, WeightUsed: used, Err: halt}
	}
	return Outcome{Kind: OutcomeComplete, WeightUsed: used}
}

// checkBarrier requires a message from an untrusted origin to take assets
// into the holding register and pay for the whole message weight before
// doing anything else.
func checkBarrier(msg Message, bound Weight) error {
	instrs := msg.Instructions
	switch instrs[0].(type) {
	case *ReserveAssetDeposited, *WithdrawAsset:
	default:
		return errors.Wrapf(ErrBarrier, "message starts with %s", instrs[0].Kind())
	}
	i := 1
	if i < len(instrs) {
		if _, ok := instrs[i].(*ClearOrigin); ok {
			i++
		}
	}
	if i >= len(instrs) {
		return errors.Wrap(ErrBarrier, "execution is not paid")
	}
	buy, ok := instrs[i].(*BuyExecution)
	if !ok {
		return errors.Wrapf(ErrBarrier, "expected BuyExecution, got %s", instrs[i].Kind())
	}
	if !buy.WeightLimit.Unlimited && bound.AnyGT(buy.WeightLimit.Limit) {
		return errors.Wrapf(ErrBarrier, "weight limit %s below message weight %s", buy.WeightLimit.Limit, bound)
	}
	return nil
}

func (e *Executor) apply(db settle.KVStore, ex *execution, instr Instruction) error {
	switch i := instr.(type) {
	case *ReserveAssetDeposited:
		if ex.originCleared {
			return errors.Wrap(ErrBadOrigin, "origin cleared")
		}
		for _, a := range i.Assets {
			reserve, ok := e.conf.reserve(a.ID)
			if !ok {
				return errors.Wrapf(errors.ErrUnknownAsset, "%s has no reserve", a.ID)
			}
			if reserve != ex.origin {
				return errors.Wrapf(ErrUntrustedReserveLocation, "%s reserve is %q", a.ID, reserve)
			}
			if err := ex.holding.Add(a); err != nil {
				return err
			}
		}
		return nil

	case *WithdrawAsset:
		if ex.originCleared {
			return errors.Wrap(ErrBadOrigin, "origin cleared")
		}
		account, err := e.accounts.Account(ex.origin)
		if err != nil {
			return errors.Wrap(ErrBadOrigin, err.Error())
		}
		for _, a := range i.Assets {
			if err := e.ledger.Debit(db, account, a.ID, a.Amount); err != nil {
				return err
			}
			if err := ex.holding.Add(a); err != nil {
				return err
			}
		}
		return nil

	case *BuyExecution:
		w := i.WeightLimit.Limit
		if i.WeightLimit.Unlimited {
			w = ex.bound
		}
		offered := Asset{ID: i.Fees.ID, Amount: ex.holding.Amount(i.Fees.ID).Min(i.Fees.Amount)}
		if offered.Amount.IsZero() {
			return errors.Wrapf(ErrNotHoldingFees, "no %s in holding", i.Fees.ID)
		}
		rest, err := ex.trader.Buy(w, offered)
		if err != nil {
			return err
		}
		return ex.holding.Subtract(Asset{ID: offered.ID, Amount: offered.Amount.SaturatingSub(rest.Amount)})

	case *DepositAsset:
		for _, a := range ex.holding.Take(i.Filter) {
			if err := e.ledger.Credit(db, i.Beneficiary, a.ID, a.Amount); err != nil {
				return err
			}
		}
		return nil

	case *RefundSurplus:
		surplus := ex.trader.Bought().Sub(ex.bound)
		return ex.holding.Add(ex.trader.Refund(surplus))

	case *ClearOrigin:
		ex.originCleared = true
		return nil
	}
	return errors.Wrapf(errors.ErrInvalidType, "instruction %T", instr)
}

// finish credits the execution fees to the sink and traps what is left in
// the holding register.
func (e *Executor) finish(ctx context.Context, db settle.KVStore, logger log.Logger, ex *execution, hash []byte) {
	if fee, ok := ex.trader.Revenue(); ok {
		err := store.Savepoint(db, func(db settle.KVStore) error {
			return e.ledger.Credit(db, e.ledger.Sink(), fee.ID, fee.Amount)
		})
		if err == nil {
			e.metrics.fees.WithLabelValues(string(fee.ID)).Add(amountValue(fee.Amount))
		} else {
			logger.Error("cannot credit execution fee, trapping it", "err", err, "asset", fee.ID, "amount", fee.Amount)
			if err := ex.holding.Add(fee); err != nil {
				logger.Error("cannot trap execution fee", "err", err)
			}
		}
	}
	if ex.holding.IsEmpty() {
		return
	}
	if err := e.trap(ctx, db, ex.origin, hash, ex.holding.Assets()); err != nil {
		logger.Error("cannot trap assets", "err", err)
	}
}

func (e *Executor) trap(ctx context.Context, db settle.KVStore, origin Location, hash []byte, assets []Asset) error {
	return store.Savepoint(db, func(db settle.KVStore) error {
		h := NewHolding()
		switch prev, err := loadTrap(db, e.traps, origin, hash); {
		case err == nil:
			for _, a := range prev.Assets {
				if err := h.Add(a); err != nil {
					return err
				}
			}
		case !errors.ErrNotFound.Is(err):
			return err
		}
		for _, a := range assets {
			if err := h.Add(a); err != nil {
				return err
			}
			e.metrics.trapped.WithLabelValues(string(a.ID)).Inc()
		}
		t := TrappedAssets{
			Origin: origin,
			Assets: h.Assets(),
			Height: settle.GetHeight(ctx),
		}
		return e.traps.Put(db, trapKey(origin, hash), &t)
	})
}
