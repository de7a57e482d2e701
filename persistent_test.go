package settle

import (
	"testing"

	"github.com/iov-one/settle/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name   string
	Amount []byte
	Height int64
}

func TestBinaryRoundTrip(t *testing.T) {
	in := sample{Name: "alice", Amount: []byte{0x1, 0x0}, Height: 7}
	raw, err := MarshalBinary(in)
	require.NoError(t, err)

	out := sample{Name: "stale"}
	require.NoError(t, UnmarshalBinary(raw, &out))
	assert.Equal(t, in, out)
}

func TestEmptyModelEncoding(t *testing.T) {
	raw, err := MarshalBinary(sample{})
	require.NoError(t, err)
	assert.NotNil(t, raw)

	out := sample{Name: "stale", Height: 3}
	require.NoError(t, UnmarshalBinary(raw, &out))
	assert.Equal(t, sample{}, out)
}

func TestUnmarshalRequiresPointer(t *testing.T) {
	err := UnmarshalBinary([]byte{0x1}, sample{})
	assert.True(t, errors.ErrInvalidType.Is(err))
}
