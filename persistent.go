package settle

import (
	"reflect"

	"github.com/iov-one/settle/errors"
	amino "github.com/tendermint/go-amino"
)

// Marshaller is anything that can be represented in binary
//
// Marshall may validate the data before serializing it and
// unless you previously validated the struct,
// errors should be expected.
type Marshaller interface {
	Marshal() ([]byte, error)
}

// Persistent supports Marshal and Unmarshal
//
// This is separated from Marshal, as this almost always requires
// a pointer, and functions that only need to marshal bytes can
// use the Marshaller interface to access non-pointers.
type Persistent interface {
	Marshaller
	Unmarshal([]byte) error
}

// Validater is any struct that can be validated.
// Not the same as a Validator, which votes on the blocks.
type Validater interface {
	Validate() error
}

var cdc = amino.NewCodec()

// MarshalBinary serializes given model using the state codec. All models
// persisted by the settle extensions use this encoding.
func MarshalBinary(o interface{}) ([]byte, error) {
	raw, err := cdc.MarshalBinaryBare(o)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidModel, err.Error())
	}
	// A model with only zero fields encodes to nothing. Stores must be
	// able to tell it apart from a missing value.
	if raw == nil {
		raw = []byte{}
	}
	return raw, nil
}

// UnmarshalBinary loads the state of given model from its binary
// representation created by MarshalBinary.
// The pointed value is reset first, so an empty encoding loads the zero
// value.
func UnmarshalBinary(raw []byte, ptr interface{}) error {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return errors.Wrapf(errors.ErrInvalidType, "cannot unmarshal into %T", ptr)
	}
	v.Elem().Set(reflect.Zero(v.Elem().Type()))
	if len(raw) == 0 {
		return nil
	}
	if err := cdc.UnmarshalBinaryBare(raw, ptr); err != nil {
		return errors.Wrap(errors.ErrInvalidModel, err.Error())
	}
	return nil
}
