/*
Package errors implements the error model used by every settle extension.

Each failure category is a root error created once with Register. A root
error carries a unique numeric code so that a client can tell failure kinds
apart without parsing messages. Code that returns an error wraps one of the
root errors with a description of what it was doing:

	if err := ctrl.Debit(db, acc, asset, amount); err != nil {
		return errors.Wrap(err, "pay fee")
	}

and callers test the category using the root error:

	if errors.ErrInsufficientBalance.Is(err) {
		...
	}

A stack trace is attached at the innermost wrap. Print an error with %+v to
see it.
*/
package errors
