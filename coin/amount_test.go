package coin

import (
	"encoding/json"
	"testing"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmountArithmetic(t *testing.T) {
	a, b := NewAmount(100), NewAmount(30)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "130", sum.String())

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.True(t, diff.Equals(NewAmount(70)))

	_, err = b.Sub(a)
	assert.True(t, errors.ErrInvalidAmount.Is(err))
	assert.True(t, b.SaturatingSub(a).IsZero())

	_, err = MaxAmount().Add(NewAmount(1))
	assert.True(t, errors.ErrOverflow.Is(err))

	assert.Equal(t, "50", a.Div(2).String())
	assert.Equal(t, "15", b.Div(2).String())
	assert.Panics(t, func() { a.Div(0) })

	assert.True(t, b.LT(a))
	assert.True(t, a.GTE(a))
	assert.Equal(t, 1, a.Cmp(b))
	assert.True(t, a.Min(b).Equals(b))
}

func TestAmountMulFrac(t *testing.T) {
	cases := map[string]struct {
		amount   Amount
		num, den uint64
		want     string
		wantErr  *errors.Error
	}{
		"fifth rounds down": {amount: NewAmount(14), num: 1, den: 5, want: "2"},
		"exact":             {amount: NewAmount(1000), num: 20, den: 100, want: "200"},
		"large intermediate product": {
			amount: MaxAmount(),
			num:    3,
			den:    4,
			want:   "86844066927987146567678238756515930889952488499230423029593188005934847229951",
		},
		"overflow":         {amount: MaxAmount(), num: 2, den: 1, wantErr: errors.ErrOverflow},
		"zero denominator": {amount: NewAmount(1), num: 1, den: 0, wantErr: errors.ErrInvalidInput},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := tc.amount.MulFrac(tc.num, tc.den)
			if !tc.wantErr.Is(err) {
				t.Fatalf("unexpected error: %+v", err)
			}
			if tc.wantErr == nil {
				assert.Equal(t, tc.want, got.String())
			}
		})
	}
}

func TestAmountEncoding(t *testing.T) {
	a, err := ParseAmount("300000000000")
	require.NoError(t, err)

	back, err := AmountFromBytes(a.Bytes())
	require.NoError(t, err)
	assert.True(t, a.Equals(back))

	zero, err := AmountFromBytes(nil)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
	assert.Equal(t, []byte{}, Zero().Bytes())

	_, err = AmountFromBytes(make([]byte, 33))
	assert.True(t, errors.ErrOverflow.Is(err))

	_, err = ParseAmount("-1")
	assert.True(t, errors.ErrInvalidAmount.Is(err))
	_, err = ParseAmount("115792089237316195423570985008687907853269984665640564039457584007913129639936")
	assert.True(t, errors.ErrOverflow.Is(err))
}

func TestAmountJSON(t *testing.T) {
	raw, err := json.Marshal(NewAmount(42))
	require.NoError(t, err)
	assert.Equal(t, `"42"`, string(raw))

	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`"1000"`), &a))
	assert.Equal(t, "1000", a.String())
	require.NoError(t, json.Unmarshal([]byte(`7`), &a))
	assert.Equal(t, "7", a.String())
	assert.Error(t, json.Unmarshal([]byte(`true`), &a))
}

func TestSum(t *testing.T) {
	total, err := Sum(NewAmount(1), NewAmount(2), NewAmount(3))
	require.NoError(t, err)
	assert.Equal(t, "6", total.String())

	_, err = Sum(MaxAmount(), NewAmount(1))
	assert.True(t, errors.ErrOverflow.Is(err))
}

func TestAmountInPersistedModel(t *testing.T) {
	type model struct {
		Name  string
		Limit Amount
	}
	in := model{Name: "pool", Limit: MaxAmount()}
	raw, err := settle.MarshalBinary(&in)
	require.NoError(t, err)

	var out model
	require.NoError(t, settle.UnmarshalBinary(raw, &out))
	assert.Equal(t, "pool", out.Name)
	assert.True(t, out.Limit.Equals(MaxAmount()))
}
