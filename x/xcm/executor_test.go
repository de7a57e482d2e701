package xcm

import (
	"context"
	"testing"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/coin"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/settletest"
	"github.com/iov-one/settle/store"
	"github.com/iov-one/settle/x/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	dot ledger.AssetID = "DOT"
	stl ledger.AssetID = "STL"
)

var (
	relay      Location = "relay"
	para       Location = "para/2000"
	governance Location = "governance"

	sink = settletest.SequenceAddress(100)
	bene = settletest.SequenceAddress(1)

	ceiling = NewWeight(1000000000, 1000000)
)

type fixture struct {
	ledger *ledger.Controller
	db     settle.CacheableKVStore
	exec   *Executor
}

func newFixture(t testing.TB, opts ...Option) *fixture {
	t.Helper()
	db := store.MemStore()
	l, err := ledger.NewController(ledger.Configuration{SinkAccount: sink})
	require.NoError(t, err)
	require.NoError(t, l.Registry().Register(db, ledger.NewAsset(stl, coin.NewAmount(10), ledger.NativeBackend)))
	require.NoError(t, l.Registry().Register(db, ledger.NewAsset(dot, coin.NewAmount(100), ledger.TokensBackend)))

	conf := Configuration{
		MaxInstructions: 10,
		UnitWeight:      NewWeight(1000000, 0),
		Reserves:        []Reserve{{Asset: dot, Location: relay}},
		FeeRates:        []FeeRate{{Asset: dot, UnitsPerSecond: 100000000}},
		TrustedOrigins:  []Location{governance},
	}
	e, err := NewExecutor(conf, l, opts...)
	require.NoError(t, err)
	return &fixture{ledger: l, db: db, exec: e}
}

func (f *fixture) execute(origin Location, instrs ...Instruction) Outcome {
	return f.exec.Execute(context.Background(), f.db, origin, NewMessage(instrs...), ceiling)
}

func (f *fixture) free(t testing.TB, a settle.Address) string {
	t.Helper()
	b, err := f.ledger.FreeBalance(f.db, a, dot)
	require.NoError(t, err)
	return b.String()
}

func (f *fixture) issuance(t testing.TB) string {
	t.Helper()
	i, err := f.ledger.TotalIssuance(f.db, dot)
	require.NoError(t, err)
	return i.String()
}

func (f *fixture) trapped(t testing.TB, origin Location, instrs ...Instruction) []Asset {
	t.Helper()
	hash, err := Hash(NewMessage(instrs...))
	require.NoError(t, err)
	trap, err := f.exec.Trapped(f.db, origin, hash)
	if errors.ErrNotFound.Is(err) {
		return nil
	}
	require.NoError(t, err)
	return trap.Assets
}

func TestDepositBuyExecutionAndDeposit(t *testing.T) {
	f := newFixture(t)
	w := NewWeight(3000000, 0)
	msg := []Instruction{
		&ReserveAssetDeposited{Assets: []Asset{NewAsset(dot, 1000)}},
		&BuyExecution{Fees: NewAsset(dot, 1000), WeightLimit: Limited(w)},
		&DepositAsset{Filter: AllAssets, Beneficiary: bene},
	}

	bound, err := f.exec.Weigher().Weight(NewMessage(msg...))
	require.NoError(t, err)
	require.Equal(t, w, bound)

	out := f.execute(relay, msg...)
	require.NoError(t, out.Err)
	assert.Equal(t, OutcomeComplete, out.Kind)
	assert.Equal(t, w, out.WeightUsed)

	fee := Fee(w, 100000000)
	assert.Equal(t, "300", fee.String())
	assert.Equal(t, "700", f.free(t, bene))
	assert.Equal(t, "300", f.free(t, sink))
	assert.Equal(t, "1000", f.issuance(t))
	assert.Empty(t, f.trapped(t, relay, msg...))
}

func TestRejectedMessagesHaveNoEffect(t *testing.T) {
	paid := func(instrs ...Instruction) []Instruction {
		head := []Instruction{
			&ReserveAssetDeposited{Assets: []Asset{NewAsset(dot, 1000)}},
			&BuyExecution{Fees: NewAsset(dot, 1000), WeightLimit: Unlimited},
		}
		return append(head, instrs...)
	}
	deposit := &DepositAsset{Filter: AllAssets, Beneficiary: bene}
	tooLong := paid()
	for len(tooLong) <= 10 {
		tooLong = append(tooLong, &ClearOrigin{})
	}

	cases := map[string]struct {
		origin  Location
		instrs  []Instruction
		ceiling Weight
		wantErr *errors.Error
	}{
		"empty message": {
			origin:  relay,
			wantErr: errors.ErrEmpty,
		},
		"too many instructions": {
			origin:  relay,
			instrs:  tooLong,
			wantErr: ErrTooManyInstructions,
		},
		"invalid origin": {
			origin:  "",
			instrs:  paid(deposit),
			wantErr: errors.ErrInvalidInput,
		},
		"invalid instruction": {
			origin:  relay,
			instrs:  paid(&DepositAsset{Filter: AllAssets}),
			wantErr: errors.ErrInvalidInput,
		},
		"weight above ceiling": {
			origin:  relay,
			instrs:  paid(deposit),
			ceiling: NewWeight(2999999, 0),
			wantErr: ErrWeightLimitReached,
		},
		"does not take assets first": {
			origin:  relay,
			instrs:  []Instruction{deposit, &BuyExecution{Fees: NewAsset(dot, 1), WeightLimit: Unlimited}},
			wantErr: ErrBarrier,
		},
		"does not pay": {
			origin:  relay,
			instrs:  []Instruction{&ReserveAssetDeposited{Assets: []Asset{NewAsset(dot, 1000)}}, deposit},
			wantErr: ErrBarrier,
		},
		"only takes assets": {
			origin:  relay,
			instrs:  []Instruction{&ReserveAssetDeposited{Assets: []Asset{NewAsset(dot, 1000)}}, &ClearOrigin{}},
			wantErr: ErrBarrier,
		},
		"pays for less than the message weight": {
			origin: relay,
			instrs: []Instruction{
				&ReserveAssetDeposited{Assets: []Asset{NewAsset(dot, 1000)}},
				&BuyExecution{Fees: NewAsset(dot, 1000), WeightLimit: Limited(NewWeight(2999999, 0))},
				deposit,
			},
			wantErr: ErrBarrier,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			c := ceiling
			if !tc.ceiling.IsZero() {
				c = tc.ceiling
			}
			out := f.exec.Execute(context.Background(), f.db, tc.origin, NewMessage(tc.instrs...), c)
			assert.Equal(t, OutcomeError, out.Kind)
			assert.True(t, tc.wantErr.Is(out.Err), "got %+v", out.Err)
			assert.True(t, out.WeightUsed.IsZero())
			assert.Equal(t, "0", f.issuance(t))
			assert.Equal(t, "0", f.free(t, sink))
		})
	}
}

func TestTrustedOriginSkipsBarrier(t *testing.T) {
	f := newFixture(t)
	out := f.execute(governance, &ClearOrigin{}, &DepositAsset{Filter: AllAssets, Beneficiary: bene})
	require.NoError(t, out.Err)
	assert.Equal(t, OutcomeComplete, out.Kind)
	assert.Equal(t, NewWeight(2000000, 0), out.WeightUsed)
}

func TestUntrustedReserve(t *testing.T) {
	cases := map[string]struct {
		origin  Location
		asset   ledger.AssetID
		wantErr *errors.Error
	}{
		"not the reserve": {origin: para, asset: dot, wantErr: ErrUntrustedReserveLocation},
		"no reserve":      {origin: relay, asset: stl, wantErr: errors.ErrUnknownAsset},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			msg := []Instruction{
				&ReserveAssetDeposited{Assets: []Asset{NewAsset(tc.asset, 1000)}},
				&BuyExecution{Fees: NewAsset(tc.asset, 1000), WeightLimit: Unlimited},
				&DepositAsset{Filter: AllAssets, Beneficiary: bene},
			}
			out := f.execute(tc.origin, msg...)
			assert.Equal(t, OutcomeIncomplete, out.Kind)
			assert.True(t, tc.wantErr.Is(out.Err), "got %+v", out.Err)
			assert.Equal(t, NewWeight(1000000, 0), out.WeightUsed)
			assert.Equal(t, "0", f.issuance(t))
			assert.Empty(t, f.trapped(t, tc.origin, msg...))
		})
	}
}

func TestTooExpensiveTrapsHolding(t *testing.T) {
	f := newFixture(t)
	msg := []Instruction{
		&ReserveAssetDeposited{Assets: []Asset{NewAsset(dot, 1000)}},
		&BuyExecution{Fees: NewAsset(dot, 100), WeightLimit: Unlimited},
		&DepositAsset{Filter: AllAssets, Beneficiary: bene},
	}
	out := f.execute(relay, msg...)
	assert.Equal(t, OutcomeIncomplete, out.Kind)
	assert.True(t, ErrTooExpensive.Is(out.Err), "got %+v", out.Err)
	assert.Equal(t, NewWeight(2000000, 0), out.WeightUsed)
	assert.Equal(t, "0", f.free(t, bene))
	assert.Equal(t, "0", f.free(t, sink))
	assert.Equal(t, []Asset{NewAsset(dot, 1000)}, f.trapped(t, relay, msg...))

	// The same message executed again adds to the trap.
	out = f.execute(relay, msg...)
	assert.Equal(t, OutcomeIncomplete, out.Kind)
	assert.Equal(t, []Asset{NewAsset(dot, 2000)}, f.trapped(t, relay, msg...))
}

func TestNotHoldingFees(t *testing.T) {
	f := newFixture(t)
	msg := []Instruction{
		&ReserveAssetDeposited{Assets: []Asset{NewAsset(dot, 1000)}},
		&BuyExecution{Fees: NewAsset(stl, 10), WeightLimit: Unlimited},
	}
	out := f.execute(relay, msg...)
	assert.Equal(t, OutcomeIncomplete, out.Kind)
	assert.True(t, ErrNotHoldingFees.Is(out.Err), "got %+v", out.Err)
	assert.Equal(t, []Asset{NewAsset(dot, 1000)}, f.trapped(t, relay, msg...))
}

func TestPartialDepositIsTrapped(t *testing.T) {
	f := newFixture(t)
	msg := []Instruction{
		&ReserveAssetDeposited{Assets: []Asset{NewAsset(dot, 1000)}},
		&BuyExecution{Fees: NewAsset(dot, 1000), WeightLimit: Unlimited},
		&DepositAsset{Filter: Definite(NewAsset(dot, 400)), Beneficiary: bene},
	}
	out := f.execute(relay, msg...)
	require.NoError(t, out.Err)
	assert.Equal(t, OutcomeComplete, out.Kind)

	assert.Equal(t, "400", f.free(t, bene))
	assert.Equal(t, "300", f.free(t, sink))
	trapped := f.trapped(t, relay, msg...)
	assert.Equal(t, []Asset{NewAsset(dot, 300)}, trapped)

	total, err := coin.Sum(coin.NewAmount(400), coin.NewAmount(300), trapped[0].Amount)
	require.NoError(t, err)
	assert.Equal(t, "1000", total.String())
}

func TestDepositBelowMinimumGoesToSink(t *testing.T) {
	f := newFixture(t)
	out := f.execute(relay,
		&ReserveAssetDeposited{Assets: []Asset{NewAsset(dot, 350)}},
		&BuyExecution{Fees: NewAsset(dot, 350), WeightLimit: Unlimited},
		&DepositAsset{Filter: AllAssets, Beneficiary: bene},
	)
	require.NoError(t, out.Err)
	assert.Equal(t, "0", f.free(t, bene))
	assert.Equal(t, "350", f.free(t, sink))
	assert.Equal(t, "350", f.issuance(t))
}

func TestRefundSurplus(t *testing.T) {
	f := newFixture(t)
	out := f.execute(relay,
		&ReserveAssetDeposited{Assets: []Asset{NewAsset(dot, 10000)}},
		&BuyExecution{Fees: NewAsset(dot, 10000), WeightLimit: Limited(NewWeight(40000000, 0))},
		&RefundSurplus{},
		&DepositAsset{Filter: AllAssets, Beneficiary: bene},
	)
	require.NoError(t, out.Err)
	assert.Equal(t, NewWeight(4000000, 0), out.WeightUsed)
	assert.Equal(t, "9600", f.free(t, bene))
	assert.Equal(t, "400", f.free(t, sink))
	assert.Equal(t, "10000", f.issuance(t))
}

func TestWithdrawAsset(t *testing.T) {
	f := newFixture(t)
	account, err := ConditionAccounts{}.Account(para)
	require.NoError(t, err)
	require.NoError(t, f.ledger.Credit(f.db, account, dot, coin.NewAmount(5000)))

	out := f.execute(para,
		&WithdrawAsset{Assets: []Asset{NewAsset(dot, 2000)}},
		&BuyExecution{Fees: NewAsset(dot, 2000), WeightLimit: Unlimited},
		&DepositAsset{Filter: AllAssets, Beneficiary: bene},
	)
	require.NoError(t, out.Err)
	assert.Equal(t, "3000", f.free(t, account))
	assert.Equal(t, "1700", f.free(t, bene))
	assert.Equal(t, "300", f.free(t, sink))
	assert.Equal(t, "5000", f.issuance(t))

	out = f.execute(para,
		&WithdrawAsset{Assets: []Asset{NewAsset(dot, 6000)}},
		&BuyExecution{Fees: NewAsset(dot, 2000), WeightLimit: Unlimited},
	)
	assert.Equal(t, OutcomeIncomplete, out.Kind)
	assert.True(t, errors.ErrInsufficientBalance.Is(out.Err), "got %+v", out.Err)
	assert.Equal(t, "3000", f.free(t, account))
}

func TestClearOrigin(t *testing.T) {
	f := newFixture(t)
	msg := []Instruction{
		&ReserveAssetDeposited{Assets: []Asset{NewAsset(dot, 1000)}},
		&ClearOrigin{},
		&BuyExecution{Fees: NewAsset(dot, 1000), WeightLimit: Unlimited},
		&WithdrawAsset{Assets: []Asset{NewAsset(dot, 10)}},
	}
	out := f.execute(relay, msg...)
	assert.Equal(t, OutcomeIncomplete, out.Kind)
	assert.True(t, ErrBadOrigin.Is(out.Err), "got %+v", out.Err)
	assert.Equal(t, NewWeight(4000000, 0), out.WeightUsed)
	assert.Equal(t, "400", f.free(t, sink))
	assert.Equal(t, []Asset{NewAsset(dot, 600)}, f.trapped(t, relay, msg...))
}

func TestWeighingFailureFallsBackToDefaultBound(t *testing.T) {
	weigher := TableWeigher{Weights: map[InstructionKind]Weight{
		KindReserveAssetDeposited: NewWeight(1, 0),
	}}
	f := newFixture(t, WithWeigher(weigher))
	out := f.execute(relay,
		&ReserveAssetDeposited{Assets: []Asset{NewAsset(dot, 1000)}},
		&BuyExecution{Fees: NewAsset(dot, 1000), WeightLimit: Unlimited},
	)
	assert.Equal(t, OutcomeIncomplete, out.Kind)
	assert.True(t, ErrWeightLimitReached.Is(out.Err), "got %+v", out.Err)
	assert.True(t, out.WeightUsed.IsZero())
	assert.Equal(t, "0", f.issuance(t))
}

func TestExecutionIsDeterministic(t *testing.T) {
	msg := []Instruction{
		&ReserveAssetDeposited{Assets: []Asset{NewAsset(dot, 1234)}},
		&BuyExecution{Fees: NewAsset(dot, 1000), WeightLimit: Unlimited},
		&DepositAsset{Filter: Definite(NewAsset(dot, 500)), Beneficiary: bene},
	}
	a, b := newFixture(t), newFixture(t)
	outA := a.execute(relay, msg...)
	outB := b.execute(relay, msg...)
	assert.Equal(t, outA, outB)
	assert.Equal(t, a.free(t, bene), b.free(t, bene))
	assert.Equal(t, a.trapped(t, relay, msg...), b.trapped(t, relay, msg...))
}

func TestExecutorMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newFixture(t, WithMetrics(reg))
	f.execute(relay,
		&ReserveAssetDeposited{Assets: []Asset{NewAsset(dot, 1000)}},
		&BuyExecution{Fees: NewAsset(dot, 1000), WeightLimit: Unlimited},
		&DepositAsset{Filter: AllAssets, Beneficiary: bene},
	)
	f.execute(relay)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			values[fam.GetName()] += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(2), values["xcm_outcomes_total"])
	assert.Equal(t, float64(300), values["xcm_fees_collected_total"])
}
