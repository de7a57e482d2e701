package ledger

import (
	"fmt"
	"sort"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/coin"
	"github.com/iov-one/settle/errors"
)

// Credit is value that is not held by any account. It is a linear value:
// it must be consumed exactly once, either by Controller.Resolve or by
// Burn. Split and Merge consume their inputs and return new credits.
// Using a consumed credit is a programming error and panics.
type Credit struct {
	book     *CreditBook
	id       uint64
	asset    AssetID
	amount   coin.Amount
	consumed bool
}

// Asset returns the asset of the credit.
func (c *Credit) Asset() AssetID {
	c.mustBeLive()
	return c.asset
}

// Amount returns the value of the credit.
func (c *Credit) Amount() coin.Amount {
	c.mustBeLive()
	return c.amount
}

func (c *Credit) String() string {
	state := "live"
	if c.consumed {
		state = "consumed"
	}
	return fmt.Sprintf("credit#%d %s %s (%s)", c.id, c.amount, c.asset, state)
}

// Burn destroys the credit. Its value leaves the supply.
func (c *Credit) Burn() {
	c.consume()
}

// Split consumes the credit and returns two credits: the first holds the
// given amount, the second holds the rest. The credit is not consumed when
// an error is returned.
func (c *Credit) Split(amount coin.Amount) (*Credit, *Credit, error) {
	c.mustBeLive()
	rest, err := c.amount.Sub(amount)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "split %s", c)
	}
	c.consume()
	return c.book.issue(c.asset, amount), c.book.issue(c.asset, rest), nil
}

// SplitFraction consumes the credit and returns floor(amount * f) as the
// first credit and the rest as the second.
func (c *Credit) SplitFraction(f settle.Fraction) (*Credit, *Credit, error) {
	c.mustBeLive()
	if err := f.Validate(); err != nil {
		return nil, nil, err
	}
	if f.Numerator > f.Denominator {
		return nil, nil, errors.Wrapf(errors.ErrInvalidInput, "fraction %s greater than one", f)
	}
	part, err := c.amount.MulFrac(uint64(f.Numerator), uint64(f.Denominator))
	if err != nil {
		return nil, nil, err
	}
	return c.Split(part)
}

// Merge consumes both credits and returns a single credit holding their
// sum. Both must be of the same asset and come from the same book.
func Merge(a, b *Credit) (*Credit, error) {
	a.mustBeLive()
	b.mustBeLive()
	if a == b {
		return nil, errors.Wrap(errors.ErrInvalidInput, "cannot merge a credit with itself")
	}
	if a.book != b.book {
		return nil, errors.Wrap(errors.ErrInvalidInput, "credits issued by different books")
	}
	if a.asset != b.asset {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "cannot merge %s with %s", a.asset, b.asset)
	}
	total, err := a.amount.Add(b.amount)
	if err != nil {
		return nil, err
	}
	a.consume()
	b.consume()
	return a.book.issue(a.asset, total), nil
}

func (c *Credit) mustBeLive() {
	if c == nil {
		panic(errors.Wrap(errors.ErrHuman, "nil credit"))
	}
	if c.consumed {
		panic(errors.Wrapf(errors.ErrHuman, "%s used after being consumed", c))
	}
}

func (c *Credit) consume() {
	c.mustBeLive()
	c.consumed = true
	delete(c.book.live, c.id)
}

// CreditBook issues credits and keeps track of the ones that were not
// consumed yet. A book is meant to live for a single unit of work, for
// example a block.
type CreditBook struct {
	next uint64
	live map[uint64]*Credit
}

// NewCreditBook returns an empty book.
func NewCreditBook() *CreditBook {
	return &CreditBook{live: make(map[uint64]*Credit)}
}

// Issue mints a credit of given value. Resolving it into an account
// increases the supply of the asset.
func (b *CreditBook) Issue(asset AssetID, amount coin.Amount) *Credit {
	return b.issue(asset, amount)
}

func (b *CreditBook) issue(asset AssetID, amount coin.Amount) *Credit {
	b.next++
	c := &Credit{
		book:   b,
		id:     b.next,
		asset:  asset,
		amount: amount,
	}
	b.live[c.id] = c
	return c
}

// Outstanding returns all credits that were not consumed, in the order
// they were issued.
func (b *CreditBook) Outstanding() []*Credit {
	res := make([]*Credit, 0, len(b.live))
	for _, c := range b.live {
		res = append(res, c)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].id < res[j].id })
	return res
}

// Settle returns ErrUnresolvedCredit if any credit was not consumed.
func (b *CreditBook) Settle() error {
	live := b.Outstanding()
	if len(live) == 0 {
		return nil
	}
	return errors.Wrapf(errors.ErrUnresolvedCredit, "%d credits outstanding, first %s", len(live), live[0])
}

// MustSettle panics if any credit was not consumed. Dropping value is a
// violation of the supply invariant that the application cannot recover
// from.
func (b *CreditBook) MustSettle() {
	if err := b.Settle(); err != nil {
		panic(err)
	}
}
