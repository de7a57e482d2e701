package app

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os"
	"testing"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/coin"
	"github.com/iov-one/settle/errors"
	"github.com/iov-one/settle/settletest"
	"github.com/iov-one/settle/store/iavl"
	"github.com/iov-one/settle/x/collator"
	"github.com/iov-one/settle/x/ledger"
	"github.com/iov-one/settle/x/xcm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/common"
)

const (
	chainID                = "settle-test"
	stl     ledger.AssetID = "STL"
	dot     ledger.AssetID = "DOT"
)

var (
	sink   = settletest.SequenceAddress(100)
	pool   = settletest.SequenceAddress(101)
	alice  = settletest.SequenceAddress(1)
	bob    = settletest.SequenceAddress(2)
	author = settletest.SequenceAddress(7)

	ceiling = xcm.NewWeight(1000000000, 0)
)

func genesis(t testing.TB) settle.Options {
	t.Helper()
	conf, err := json.Marshal(map[string]interface{}{
		ledger.ConfigurationKey: map[string]interface{}{
			"sink_account": sink,
			"reward_pool":  pool,
		},
		collator.ConfigurationKey: map[string]interface{}{
			"pool_account":            pool,
			"pool_fraction":           "1/5",
			"min_reward_distribution": "100",
			"asset":                   stl,
		},
		xcm.ConfigurationKey: map[string]interface{}{
			"unit_weight": map[string]uint64{"ref_time": 1000000},
			"reserves":    []map[string]interface{}{{"asset": dot, "location": "relay"}},
			"fee_rates":   []map[string]interface{}{{"asset": dot, "units_per_second": 100000000}},
		},
	})
	require.NoError(t, err)
	gen, err := json.Marshal(ledger.Genesis{
		Assets: []ledger.GenesisAsset{
			{ID: stl, MinimumBalance: coin.NewAmount(10), Backend: ledger.NativeBackend},
			{ID: dot, MinimumBalance: coin.NewAmount(100), Backend: ledger.TokensBackend},
		},
		Balances: []ledger.GenesisBalance{
			{Address: alice, Asset: stl, Free: coin.NewAmount(1000000)},
		},
	})
	require.NoError(t, err)
	return settle.Options{"conf": conf, "ledger": gen}
}

func newRuntime(t testing.TB, opts ...Option) *Runtime {
	t.Helper()
	r, err := NewRuntime(iavl.NewMemCommitStore(), opts...)
	require.NoError(t, err)
	require.NoError(t, r.InitChain(chainID, genesis(t)))
	return r
}

func header(height int64) abci.Header {
	return abci.Header{Height: height, ProposerAddress: author}
}

func (r *Runtime) free(t testing.TB, a settle.Address, asset ledger.AssetID) string {
	t.Helper()
	b, err := r.Ledger().FreeBalance(r.DeliverStore(), a, asset)
	require.NoError(t, err)
	return b.String()
}

func (r *Runtime) issuance(t testing.TB, asset ledger.AssetID) string {
	t.Helper()
	i, err := r.Ledger().TotalIssuance(r.DeliverStore(), asset)
	require.NoError(t, err)
	return i.String()
}

func hasKeyPrefix(tags []common.KVPair, prefix string) bool {
	for _, t := range tags {
		if bytes.HasPrefix(t.Key, []byte(prefix)) {
			return true
		}
	}
	return false
}

func TestBlockLifecycle(t *testing.T) {
	r := newRuntime(t)
	assert.Equal(t, chainID, r.ChainID())

	// Block 1: fees are collected, the pool is still empty.
	tags, err := r.BeginBlock(header(1))
	require.NoError(t, err)
	assert.True(t, hasKeyPrefix(tags, "lastauthored:"))

	require.NoError(t, r.CollectFees(alice, stl, coin.NewAmount(1000), coin.NewAmount(500)))
	assert.Equal(t, "998500", r.free(t, alice, stl))

	tags, err = r.EndBlock()
	require.NoError(t, err)
	assert.True(t, hasKeyPrefix(tags, "native:"))
	assert.Equal(t, "300", r.free(t, pool, stl))
	assert.Equal(t, "0", r.free(t, author, stl))
	assert.Equal(t, "998800", r.issuance(t, stl))

	id, err := r.Commit()
	require.NoError(t, err)
	assert.Equal(t, int64(1), id.Version)
	assert.NotEmpty(t, id.Hash)

	// Block 2: the author is paid half of the pool.
	_, err = r.BeginBlock(header(2))
	require.NoError(t, err)
	assert.Equal(t, "150", r.free(t, author, stl))
	assert.Equal(t, "150", r.free(t, pool, stl))

	height, err := r.Distributor().LastAuthored(r.DeliverStore(), author)
	require.NoError(t, err)
	assert.Equal(t, int64(2), height)

	raw, err := xcm.Encode(xcm.NewMessage(
		&xcm.ReserveAssetDeposited{Assets: []xcm.Asset{xcm.NewAsset(dot, 1000)}},
		&xcm.BuyExecution{Fees: xcm.NewAsset(dot, 1000), WeightLimit: xcm.Unlimited},
		&xcm.DepositAsset{Filter: xcm.AllAssets, Beneficiary: bob},
	))
	require.NoError(t, err)
	out := r.ReceiveMessage("relay", raw, ceiling)
	require.NoError(t, out.Err)
	assert.Equal(t, xcm.OutcomeComplete, out.Kind)
	assert.Equal(t, "700", r.free(t, bob, dot))
	assert.Equal(t, "300", r.free(t, sink, dot))

	out = r.ReceiveMessage("relay", []byte{0xff, 0xff}, ceiling)
	assert.Equal(t, xcm.OutcomeError, out.Kind)
	assert.True(t, errors.ErrInvalidMsg.Is(out.Err), "got %+v", out.Err)

	tags, err = r.EndBlock()
	require.NoError(t, err)
	assert.Empty(t, tags)

	id, err = r.Commit()
	require.NoError(t, err)
	assert.Equal(t, int64(2), id.Version)
}

func TestBlockOrder(t *testing.T) {
	uninitialized, err := NewRuntime(iavl.NewMemCommitStore())
	require.NoError(t, err)
	_, err = uninitialized.BeginBlock(header(1))
	assert.True(t, errors.ErrInvalidState.Is(err))

	r := newRuntime(t)
	err = r.InitChain(chainID, genesis(t))
	assert.True(t, errors.ErrInvalidState.Is(err))

	err = r.CollectFees(alice, stl, coin.NewAmount(1), coin.Zero())
	assert.True(t, errors.ErrInvalidState.Is(err))
	_, err = r.EndBlock()
	assert.True(t, errors.ErrInvalidState.Is(err))
	out := r.ReceiveMessage("relay", nil, ceiling)
	assert.True(t, errors.ErrInvalidState.Is(out.Err))

	_, err = r.BeginBlock(header(1))
	require.NoError(t, err)
	_, err = r.BeginBlock(header(2))
	assert.True(t, errors.ErrInvalidState.Is(err))
	_, err = r.Commit()
	assert.True(t, errors.ErrInvalidState.Is(err))
}

func TestCollectFeesFailure(t *testing.T) {
	r := newRuntime(t)
	_, err := r.BeginBlock(header(1))
	require.NoError(t, err)

	err = r.CollectFees(alice, dot, coin.NewAmount(1), coin.Zero())
	assert.True(t, errors.ErrInvalidInput.Is(err))

	err = r.CollectFees(bob, stl, coin.NewAmount(100), coin.NewAmount(1))
	assert.True(t, errors.ErrInsufficientBalance.Is(err))

	err = r.CollectFees(alice, stl, coin.MaxAmount(), coin.NewAmount(1))
	assert.True(t, errors.ErrOverflow.Is(err))

	require.NoError(t, r.CollectFees(alice, stl, coin.Zero(), coin.Zero()))
	assert.Equal(t, "1000000", r.free(t, alice, stl))

	// Nothing was withdrawn so nothing is left to settle.
	_, err = r.EndBlock()
	require.NoError(t, err)
	assert.Equal(t, "0", r.free(t, pool, stl))
}

func TestBlockWithoutAuthor(t *testing.T) {
	r := newRuntime(t)
	_, err := r.BeginBlock(abci.Header{Height: 1})
	require.NoError(t, err)
	_, err = r.Distributor().LastAuthored(r.DeliverStore(), author)
	assert.True(t, errors.ErrNotFound.Is(err))
}

func TestStateIsPersisted(t *testing.T) {
	dir, err := ioutil.TempDir("", "settle-app-")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	db, err := iavl.NewCommitStore(dir, "state")
	require.NoError(t, err)
	r, err := NewRuntime(db)
	require.NoError(t, err)
	require.NoError(t, r.InitChain(chainID, genesis(t)))
	_, err = r.BeginBlock(header(1))
	require.NoError(t, err)
	require.NoError(t, r.CollectFees(alice, stl, coin.NewAmount(1000), coin.Zero()))
	_, err = r.EndBlock()
	require.NoError(t, err)
	committed, err := r.Commit()
	require.NoError(t, err)
	db.Close()

	db, err = iavl.NewCommitStore(dir, "state")
	require.NoError(t, err)
	defer db.Close()
	r, err = NewRuntime(db)
	require.NoError(t, err)

	assert.Equal(t, chainID, r.ChainID())
	info, err := r.Info()
	require.NoError(t, err)
	assert.Equal(t, committed, info)
	assert.Equal(t, "999000", r.free(t, alice, stl))
	assert.Equal(t, "200", r.free(t, pool, stl))
	assert.Equal(t, "999200", r.issuance(t, stl))
}

func TestRuntimeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := newRuntime(t, WithMetrics(reg))
	_, err := r.BeginBlock(header(1))
	require.NoError(t, err)
	require.NoError(t, r.CollectFees(alice, stl, coin.NewAmount(1000), coin.Zero()))
	require.NoError(t, r.Ledger().Transfer(r.DeliverStore(), alice, bob, stl, coin.NewAmount(100)))
	raw, err := xcm.Encode(xcm.NewMessage(&xcm.ClearOrigin{}))
	require.NoError(t, err)
	out := r.ReceiveMessage("relay", raw, ceiling)
	assert.True(t, xcm.ErrBarrier.Is(out.Err))
	_, err = r.EndBlock()
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["ledger_transfers_total"])
	assert.True(t, names["collator_fee_credits_total"])
	assert.True(t, names["collator_author_notes_total"])
	assert.True(t, names["xcm_outcomes_total"])
}
