package xcm

import (
	"regexp"

	"github.com/iov-one/settle"
	"github.com/iov-one/settle/errors"
)

// Location identifies a consensus domain or an account within one. It is
// opaque to the engine and only compared for equality.
type Location string

var isLocation = regexp.MustCompile(`^[a-zA-Z0-9_\-./:]{1,128}$`).MatchString

// Validate returns an error if the location is not well formed.
func (l Location) Validate() error {
	if !isLocation(string(l)) {
		return errors.Wrapf(errors.ErrInvalidInput, "location %q", l)
	}
	return nil
}

// LocationToAccount converts an origin location into a local account.
type LocationToAccount interface {
	Account(Location) (settle.Address, error)
}

// ConditionAccounts derives a local account for every location from the
// "xcm/location" condition.
type ConditionAccounts struct{}

var _ LocationToAccount = ConditionAccounts{}

// Account implements LocationToAccount.
func (ConditionAccounts) Account(l Location) (settle.Address, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return settle.NewCondition("xcm", "location", []byte(l)).Address(), nil
}
