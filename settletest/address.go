package settletest

import (
	"crypto/rand"
	"testing"

	"github.com/iov-one/settle"
)

// NewAddress returns a new, random address. It is unique with overwhelming
// probability.
func NewAddress() settle.Address {
	var data [16]byte
	if _, err := rand.Read(data[:]); err != nil {
		panic(err)
	}
	return settle.NewCondition("test", "account", data[:]).Address()
}

// SequenceAddress returns a deterministic address for the given sequence
// number, so that failing tests print the same values on every run.
func SequenceAddress(seq uint64) settle.Address {
	data := []byte{
		byte(seq >> 56), byte(seq >> 48), byte(seq >> 40), byte(seq >> 32),
		byte(seq >> 24), byte(seq >> 16), byte(seq >> 8), byte(seq),
	}
	return settle.NewCondition("test", "seq", data).Address()
}

// ParseAddress takes an address in a human readable format and returns its
// binary representation.
func ParseAddress(t testing.TB, encodedAddress string) settle.Address {
	t.Helper()

	addr, err := settle.ParseAddress(encodedAddress)
	if err != nil {
		t.Fatalf("cannot parse %q address: %s", encodedAddress, err)
	}
	return addr
}
