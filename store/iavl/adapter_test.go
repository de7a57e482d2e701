package iavl

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/iov-one/settle/settletest/assert"
	"github.com/iov-one/settle/store"
)

// makeBase returns the base layer the shared store suite runs against.
func makeBase() (store.CacheableKVStore, func()) {
	commit, close := makeCommitStore()
	return commit.Adapter(), close
}

func makeCommitStore() (*CommitStore, func()) {
	tmpDir, err := ioutil.TempDir("", "iavl-adapter-")
	if err != nil {
		panic(err)
	}
	commit, err := NewCommitStore(tmpDir, "base")
	if err != nil {
		panic(err)
	}
	close := func() {
		commit.Close()
		os.RemoveAll(tmpDir)
	}
	return commit, close
}

func TestAdapter(t *testing.T) {
	suite := store.NewTestSuite(makeBase)
	t.Run("get set", suite.GetSet)
	t.Run("cache conflicts", suite.CacheConflicts)
	t.Run("fuzz iterator", suite.FuzzIterator)
	t.Run("iterator with conflicts", suite.IteratorWithConflicts)
}

func assertGetHas(t testing.TB, kv store.ReadOnlyKVStore, key, val []byte, has bool) {
	t.Helper()
	got, err := kv.Get(key)
	assert.Nil(t, err)
	assert.Equal(t, val, got)
	exists, err := kv.Has(key)
	assert.Nil(t, err)
	assert.Equal(t, has, exists)
}

// TestCommitOverwrite checks that we commit properly
// and can add/overwrite/query in the next cache wrap
func TestCommitOverwrite(t *testing.T) {
	k1, k2, k3 := []byte("alice"), []byte("bob"), []byte("carol")
	v1, v2, v3 := []byte("one"), []byte("two"), []byte("three")

	commit, close := makeCommitStore()
	defer close()
	commit.numHistory = 1

	id, err := commit.LatestVersion()
	assert.Nil(t, err)
	assert.Equal(t, int64(0), id.Version)
	if len(id.Hash) != 0 {
		t.Fatal("hash is not empty")
	}

	parent := commit.CacheWrap()
	assert.Nil(t, store.SetOp(k1, v1).Apply(parent))
	assert.Nil(t, store.SetOp(k2, v2).Apply(parent))
	assert.Nil(t, parent.Write())

	// Not committed yet.
	got, err := commit.Get(k1)
	assert.Nil(t, err)
	assert.Nil(t, got)

	id, err = commit.Commit()
	assert.Nil(t, err)
	assert.Equal(t, int64(1), id.Version)
	if len(id.Hash) == 0 {
		t.Fatal("hash is empty")
	}
	got, err = commit.Get(k1)
	assert.Nil(t, err)
	assert.Equal(t, v1, got)

	child := commit.CacheWrap()
	assert.Nil(t, store.SetOp(k1, v3).Apply(child))
	assert.Nil(t, store.SetOp(k3, v3).Apply(child))
	assert.Nil(t, store.DelOp(k2).Apply(child))

	// A parallel cache wrap does not see unwritten changes.
	side := commit.CacheWrap()
	assertGetHas(t, side, k1, v1, true)
	assertGetHas(t, side, k2, v2, true)
	assertGetHas(t, side, k3, nil, false)

	assertGetHas(t, child, k1, v3, true)
	assertGetHas(t, child, k2, nil, false)
	assertGetHas(t, child, k3, v3, true)

	assert.Nil(t, child.Write())
	assertGetHas(t, side, k1, v3, true)
	assertGetHas(t, side, k2, nil, false)

	id, err = commit.Commit()
	assert.Nil(t, err)
	assert.Equal(t, int64(2), id.Version)
}

func TestReloadCommitted(t *testing.T) {
	tmpDir, err := ioutil.TempDir("", "iavl-reload-")
	assert.Nil(t, err)
	defer os.RemoveAll(tmpDir)

	commit, err := NewCommitStore(tmpDir, "state")
	assert.Nil(t, err)
	cache := commit.CacheWrap()
	assert.Nil(t, cache.Set([]byte("balance"), []byte{0x1, 0x2}))
	assert.Nil(t, cache.Write())
	want, err := commit.Commit()
	assert.Nil(t, err)
	commit.Close()

	reopened, err := NewCommitStore(tmpDir, "state")
	assert.Nil(t, err)
	defer reopened.Close()
	assert.Nil(t, reopened.LoadLatestVersion())

	got, err := reopened.LatestVersion()
	assert.Nil(t, err)
	assert.Equal(t, want, got)

	val, err := reopened.Get([]byte("balance"))
	assert.Nil(t, err)
	assert.Equal(t, []byte{0x1, 0x2}, val)
}
