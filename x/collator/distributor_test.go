package collator

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
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	abci "github.com/tendermint/tendermint/abci/types"
)

const asset ledger.AssetID = "STL"

var (
	sink  = settletest.SequenceAddress(100)
	pool  = settletest.SequenceAddress(101)
	alice = settletest.SequenceAddress(1)
	bob   = settletest.SequenceAddress(2)
	carol = settletest.SequenceAddress(3)
)

func amt(n uint64) coin.Amount {
	return coin.NewAmount(n)
}

func newLedger(t testing.TB, ed coin.Amount) (*ledger.Controller, settle.CacheableKVStore) {
	t.Helper()
	db := store.MemStore()
	l, err := ledger.NewController(ledger.Configuration{SinkAccount: sink, RewardPool: pool})
	require.NoError(t, err)
	require.NoError(t, l.Registry().Register(db, ledger.NewAsset(asset, ed, ledger.NativeBackend)))
	return l, db
}

func blockContext(height int64) context.Context {
	info, err := settle.NewBlockInfo(abci.Header{Height: height}, "settle-test")
	if err != nil {
		panic(err)
	}
	return settle.WithBlockInfo(context.Background(), info)
}

func TestRewardGating(t *testing.T) {
	Convey("Given a pool holding the existential deposit", t, func() {
		ed := amt(100000000000)
		l, db := newLedger(t, ed)
		So(l.Credit(db, pool, asset, ed), ShouldBeNil)

		d, err := NewDistributor(Configuration{
			PoolAccount:           pool,
			MinRewardDistribution: amt(200000000000),
			PoolReserve:           ed,
			Asset:                 asset,
		}, l)
		So(err, ShouldBeNil)
		So(d.Configuration().PoolFraction, ShouldResemble, DefaultPoolFraction)

		book := ledger.NewCreditBook()
		free := func(a settle.Address) string {
			b, err := l.FreeBalance(db, a, asset)
			So(err, ShouldBeNil)
			return b.String()
		}

		Convey("Fees below the threshold are not paid out", func() {
			tip := book.Issue(asset, amt((100000000000-1)*10))
			So(d.DealWithFees(db, book.Issue(asset, coin.Zero()), tip), ShouldBeNil)
			So(book.Settle(), ShouldBeNil)
			So(free(pool), ShouldEqual, "299999999998")

			So(d.NoteAuthor(blockContext(10), db, bob), ShouldBeNil)
			So(free(pool), ShouldEqual, "299999999998")
			So(free(bob), ShouldEqual, "0")

			h, err := d.LastAuthored(db, bob)
			So(err, ShouldBeNil)
			So(h, ShouldEqual, 10)

			Convey("Crossing the threshold pays half to the author", func() {
				So(d.DealWithFees(db, book.Issue(asset, coin.Zero()), book.Issue(asset, amt(10))), ShouldBeNil)
				So(book.Settle(), ShouldBeNil)
				So(free(pool), ShouldEqual, "300000000000")

				pending, err := d.Pending(db)
				So(err, ShouldBeNil)
				So(pending.String(), ShouldEqual, "200000000000")

				So(d.NoteAuthor(blockContext(11), db, bob), ShouldBeNil)
				So(free(pool), ShouldEqual, "200000000000")
				So(free(bob), ShouldEqual, "100000000000")

				Convey("The next author is below the threshold again", func() {
					So(d.NoteAuthor(blockContext(12), db, alice), ShouldBeNil)
					So(free(pool), ShouldEqual, "200000000000")
					So(free(alice), ShouldEqual, "0")

					h, err := d.LastAuthored(db, alice)
					So(err, ShouldBeNil)
					So(h, ShouldEqual, 12)
				})
			})
		})

		Convey("An author that never produced a block has no record", func() {
			_, err := d.LastAuthored(db, carol)
			So(errors.ErrNotFound.Is(err), ShouldBeTrue)
		})
	})
}

func TestPayoutWithoutReserve(t *testing.T) {
	l, db := newLedger(t, amt(10))
	minReward := amt(100)
	threshold, err := minReward.MulFrac(10, 1)
	require.NoError(t, err)
	d, err := NewDistributor(Configuration{
		PoolAccount:           pool,
		PoolFraction:          settle.Fraction{Numerator: 1, Denominator: 1},
		MinRewardDistribution: threshold,
		Asset:                 asset,
	}, l)
	require.NoError(t, err)

	book := ledger.NewCreditBook()
	require.NoError(t, d.DealWithFees(db, book.Issue(asset, amt(10*(100-1))), nil))
	require.NoError(t, d.NoteAuthor(blockContext(1), db, alice))
	b, err := l.FreeBalance(db, pool, asset)
	require.NoError(t, err)
	assert.Equal(t, "990", b.String())

	require.NoError(t, d.DealWithFees(db, nil, book.Issue(asset, amt(10))))
	require.NoError(t, d.NoteAuthor(blockContext(2), db, alice))
	b, err = l.FreeBalance(db, alice, asset)
	require.NoError(t, err)
	assert.Equal(t, "500", b.String())
	b, err = l.FreeBalance(db, pool, asset)
	require.NoError(t, err)
	assert.Equal(t, "500", b.String())
	require.NoError(t, book.Settle())
}

func TestDealWithFees(t *testing.T) {
	cases := map[string]struct {
		remainder     settle.Address
		fee           uint64
		tip           uint64
		noFee         bool
		wantPool      string
		wantRemainder string
		wantIssuance  string
	}{
		"remainder is burned": {
			fee:          100,
			tip:          50,
			wantPool:     "30",
			wantIssuance: "30",
		},
		"remainder account": {
			remainder:     carol,
			fee:           100,
			tip:           50,
			wantPool:      "30",
			wantRemainder: "120",
			wantIssuance:  "150",
		},
		"pool share rounds down": {
			remainder:     carol,
			fee:           99,
			tip:           0,
			wantPool:      "19",
			wantRemainder: "80",
			wantIssuance:  "99",
		},
		"tip only": {
			remainder:     carol,
			noFee:         true,
			tip:           50,
			wantPool:      "10",
			wantRemainder: "40",
			wantIssuance:  "50",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			l, db := newLedger(t, amt(10))
			d, err := NewDistributor(Configuration{
				PoolAccount:      pool,
				RemainderAccount: tc.remainder,
				Asset:            asset,
			}, l)
			require.NoError(t, err)

			book := ledger.NewCreditBook()
			var fee *ledger.Credit
			if !tc.noFee {
				fee = book.Issue(asset, amt(tc.fee))
			}
			require.NoError(t, d.DealWithFees(db, fee, book.Issue(asset, amt(tc.tip))))
			require.NoError(t, book.Settle())

			b, err := l.FreeBalance(db, pool, asset)
			require.NoError(t, err)
			assert.Equal(t, tc.wantPool, b.String())
			if tc.remainder != nil {
				b, err := l.FreeBalance(db, tc.remainder, asset)
				require.NoError(t, err)
				assert.Equal(t, tc.wantRemainder, b.String())
			}
			issued, err := l.TotalIssuance(db, asset)
			require.NoError(t, err)
			assert.Equal(t, tc.wantIssuance, issued.String())
		})
	}
}

func TestDealWithFeesRejectsForeignAsset(t *testing.T) {
	l, db := newLedger(t, amt(10))
	d, err := NewDistributor(Configuration{PoolAccount: pool, Asset: asset}, l)
	require.NoError(t, err)

	book := ledger.NewCreditBook()
	foreign := book.Issue("USD", amt(10))
	err = d.DealWithFees(db, foreign, nil)
	assert.True(t, errors.ErrInvalidInput.Is(err))
	foreign.Burn()

	assert.NoError(t, d.DealWithFees(db, nil, nil))
}

func TestFailingLedger(t *testing.T) {
	l := &testLedger{err: errors.ErrDatabase, balance: amt(1000)}
	d, err := NewDistributor(Configuration{PoolAccount: pool, Asset: asset}, l)
	require.NoError(t, err)

	book := ledger.NewCreditBook()
	err = d.DealWithFees(store.MemStore(), book.Issue(asset, amt(10)), nil)
	assert.True(t, errors.ErrDatabase.Is(err))
	// Value that could not be deposited is still accounted for.
	assert.True(t, errors.ErrUnresolvedCredit.Is(book.Settle()))

	db := store.MemStore()
	err = d.NoteAuthor(context.Background(), db, bob)
	assert.True(t, errors.ErrDatabase.Is(err))
	// The author record is rolled back with the failed payout.
	_, err = d.LastAuthored(db, bob)
	assert.True(t, errors.ErrNotFound.Is(err))
	assert.Equal(t, []transfercall{{to: bob, amount: "500"}}, l.transfers)
}

func TestConfigurationValidate(t *testing.T) {
	cases := map[string]struct {
		conf      Configuration
		wantField string
		wantErr   *errors.Error
	}{
		"valid": {
			conf: Configuration{PoolAccount: pool, Asset: asset},
		},
		"missing pool": {
			conf:      Configuration{Asset: asset},
			wantField: "PoolAccount",
			wantErr:   errors.ErrInvalidInput,
		},
		"fraction above one": {
			conf:      Configuration{PoolAccount: pool, Asset: asset, PoolFraction: settle.Fraction{Numerator: 6, Denominator: 5}},
			wantField: "PoolFraction",
			wantErr:   errors.ErrInvalidInput,
		},
		"zero denominator": {
			conf:      Configuration{PoolAccount: pool, Asset: asset, PoolFraction: settle.Fraction{Numerator: 1}},
			wantField: "PoolFraction",
			wantErr:   errors.ErrInvalidState,
		},
		"invalid remainder": {
			conf:      Configuration{PoolAccount: pool, Asset: asset, RemainderAccount: settle.Address("short")},
			wantField: "RemainderAccount",
			wantErr:   errors.ErrInvalidInput,
		},
		"invalid asset": {
			conf:      Configuration{PoolAccount: pool, Asset: "stl"},
			wantField: "Asset",
			wantErr:   errors.ErrInvalidInput,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			err := tc.conf.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			errs := errors.FieldErrors(err, tc.wantField)
			require.Len(t, errs, 1)
			assert.True(t, tc.wantErr.Is(errs[0]))
		})
	}
}

func TestMetricsRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	l, db := newLedger(t, amt(10))
	d, err := NewDistributor(Configuration{PoolAccount: pool, Asset: asset}, l, WithMetrics(reg))
	require.NoError(t, err)
	require.NoError(t, d.NoteAuthor(blockContext(1), db, alice))

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "collator_author_notes_total")

	_, err = NewDistributor(Configuration{PoolAccount: pool, Asset: asset}, l, WithMetrics(reg))
	assert.True(t, errors.ErrInvalidState.Is(err))
}

type testLedger struct {
	err       error
	balance   coin.Amount
	transfers []transfercall
}

type transfercall struct {
	to     settle.Address
	amount string
}

func (tl *testLedger) Resolve(settle.KVStore, *ledger.Credit, settle.Address) error {
	return tl.err
}

func (tl *testLedger) Transfer(db settle.KVStore, from, to settle.Address, asset ledger.AssetID, amount coin.Amount) error {
	tl.transfers = append(tl.transfers, transfercall{to: to, amount: amount.String()})
	return tl.err
}

func (tl *testLedger) FreeBalance(settle.ReadOnlyKVStore, settle.Address, ledger.AssetID) (coin.Amount, error) {
	return tl.balance, nil
}
