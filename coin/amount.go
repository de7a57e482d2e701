/*
Package coin provides the balance value type.

Amount is an unsigned 256-bit integer. All arithmetic detects overflow and
underflow instead of wrapping around, because a silently wrapped balance
creates or destroys value.
*/
package coin

import (
	"encoding/json"
	"math/big"
	"strconv"

	"github.com/holiman/uint256"
	"github.com/iov-one/settle/errors"
)

// Amount is a non negative quantity of an asset.
type Amount struct {
	v uint256.Int
}

// NewAmount returns an amount of given value.
func NewAmount(n uint64) Amount {
	var a Amount
	a.v.SetUint64(n)
	return a
}

// Zero returns an empty amount.
func Zero() Amount {
	return Amount{}
}

// MaxAmount returns the largest representable amount.
func MaxAmount() Amount {
	var a Amount
	a.v.SetAllOne()
	return a
}

// ParseAmount parses a base 10 representation of an amount.
func ParseAmount(s string) (Amount, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return Amount{}, errors.Wrapf(errors.ErrInvalidAmount, "cannot parse %q", s)
	}
	v, overflow := uint256.FromBig(n)
	if overflow {
		return Amount{}, errors.Wrapf(errors.ErrOverflow, "%q", s)
	}
	return Amount{v: *v}, nil
}

// AmountFromBytes decodes a big endian representation created by Bytes.
// Empty input is a zero amount.
func AmountFromBytes(raw []byte) (Amount, error) {
	if len(raw) > 32 {
		return Amount{}, errors.Wrapf(errors.ErrOverflow, "%d bytes", len(raw))
	}
	var a Amount
	a.v.SetBytes(raw)
	return a, nil
}

// Bytes returns the shortest big endian representation. Zero is encoded
// as an empty slice.
func (a Amount) Bytes() []byte {
	if a.v.IsZero() {
		return []byte{}
	}
	return a.v.Bytes()
}

// Uint64 returns the value and false if it does not fit in 64 bits.
func (a Amount) Uint64() (uint64, bool) {
	return a.v.Uint64(), a.v.IsUint64()
}

// IsZero returns true for an empty amount.
func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

// Cmp returns -1, 0 or 1 if a is lower, equal or greater than b.
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

// Equals returns true if both amounts hold the same value.
func (a Amount) Equals(b Amount) bool {
	return a.v.Eq(&b.v)
}

// LT returns true if a is lower than b.
func (a Amount) LT(b Amount) bool {
	return a.v.Lt(&b.v)
}

// GTE returns true if a is greater or equal to b.
func (a Amount) GTE(b Amount) bool {
	return !a.v.Lt(&b.v)
}

// Add returns a + b or ErrOverflow.
func (a Amount) Add(b Amount) (Amount, error) {
	var res Amount
	if _, overflow := res.v.AddOverflow(&a.v, &b.v); overflow {
		return Amount{}, errors.Wrapf(errors.ErrOverflow, "%s + %s", a, b)
	}
	return res, nil
}

// Sub returns a - b. ErrInvalidAmount is returned if b is greater than a.
func (a Amount) Sub(b Amount) (Amount, error) {
	var res Amount
	if _, underflow := res.v.SubOverflow(&a.v, &b.v); underflow {
		return Amount{}, errors.Wrapf(errors.ErrInvalidAmount, "%s - %s is negative", a, b)
	}
	return res, nil
}

// SaturatingSub returns a - b, or zero if b is greater than a.
func (a Amount) SaturatingSub(b Amount) Amount {
	if a.v.Lt(&b.v) {
		return Amount{}
	}
	var res Amount
	res.v.Sub(&a.v, &b.v)
	return res
}

// Min returns the lower of both amounts.
func (a Amount) Min(b Amount) Amount {
	if b.v.Lt(&a.v) {
		return b
	}
	return a
}

// Div returns floor(a / n). Dividing by zero is a coding error.
func (a Amount) Div(n uint64) Amount {
	if n == 0 {
		panic(errors.Wrap(errors.ErrHuman, "division by zero"))
	}
	var res Amount
	res.v.Div(&a.v, uint256.NewInt(n))
	return res
}

// MulFrac returns floor(a * num / den). The intermediate product is
// computed with arbitrary precision, so only the result can overflow.
func (a Amount) MulFrac(num, den uint64) (Amount, error) {
	if den == 0 {
		return Amount{}, errors.Wrap(errors.ErrInvalidInput, "zero denominator")
	}
	n := a.v.ToBig()
	n.Mul(n, new(big.Int).SetUint64(num))
	n.Quo(n, new(big.Int).SetUint64(den))
	v, overflow := uint256.FromBig(n)
	if overflow {
		return Amount{}, errors.Wrapf(errors.ErrOverflow, "%s * %d / %d", a, num, den)
	}
	return Amount{v: *v}, nil
}

// String returns the base 10 representation.
func (a Amount) String() string {
	if a.v.IsUint64() {
		return strconv.FormatUint(a.v.Uint64(), 10)
	}
	return a.v.ToBig().String()
}

// MarshalJSON encodes the amount as a decimal string, so that values above
// 2^53 survive JSON clients.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts both a decimal string and a JSON number.
func (a *Amount) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return errors.Wrap(errors.ErrInvalidAmount, "must be a string or a number")
		}
		s = n.String()
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// MarshalAmino encodes the amount as its big endian bytes when it is part
// of a persisted model.
func (a Amount) MarshalAmino() ([]byte, error) {
	return a.Bytes(), nil
}

// UnmarshalAmino decodes the representation created by MarshalAmino.
func (a *Amount) UnmarshalAmino(raw []byte) error {
	v, err := AmountFromBytes(raw)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Sum adds all given amounts.
func Sum(amounts ...Amount) (Amount, error) {
	var total Amount
	for _, a := range amounts {
		var err error
		if total, err = total.Add(a); err != nil {
			return Amount{}, err
		}
	}
	return total, nil
}
