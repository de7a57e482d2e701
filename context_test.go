package settle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/log"
)

func TestLoggerDefaults(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, DefaultLogger, GetLogger(ctx))

	logger := log.NewNopLogger().With("module", "test")
	ctx = WithLogger(ctx, logger)
	assert.Equal(t, logger, GetLogger(ctx))
}

func TestBlockInfo(t *testing.T) {
	author := NewCondition("test", "author", []byte("bob")).Address()
	now := time.Now().UTC()
	header := abci.Header{Height: 42, Time: now, ProposerAddress: author}

	_, err := NewBlockInfo(header, "bad")
	require.Error(t, err)

	info, err := NewBlockInfo(header, "settle-test")
	require.NoError(t, err)

	ctx := WithBlockInfo(context.Background(), info)
	got, ok := GetBlockInfo(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(42), got.Height())
	assert.Equal(t, now, got.BlockTime())
	assert.Equal(t, "settle-test", got.ChainID())
	assert.True(t, author.Equals(got.Author()))
	assert.Equal(t, int64(42), GetHeight(ctx))
	assert.Equal(t, int64(0), GetHeight(context.Background()))
}
