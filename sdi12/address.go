package sdi12

import "fmt"

// Address is a validated SDI-12 sensor address.
//
// The standard alphabet is '0'-'9'; v1.4 extends it with 'a'-'z' and 'A'-'Z'.
// The wildcard '?' is accepted only because the address query command "?!"
// uses it; it is never a valid response address.
type Address byte

const (
	// DefaultAddress is the factory address of an SDI-12 sensor.
	DefaultAddress Address = '0'

	// QueryAddress is the wildcard used by the address query command.
	QueryAddress Address = '?'
)

// NewAddress validates c and returns it as an Address.
func NewAddress(c byte) (Address, error) {
	if !IsValidAddressChar(c) && c != byte(QueryAddress) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, c)
	}

	return Address(c), nil
}

// MustAddress is like NewAddress but panics on an invalid character.
// It is intended for constants and tests.
func MustAddress(c byte) Address {
	a, err := NewAddress(c)
	if err != nil {
		panic(err)
	}

	return a
}

// IsValidAddressChar reports whether c is a sensor address character.
// The query wildcard is not a sensor address.
func IsValidAddressChar(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// Byte returns the address character.
func (a Address) Byte() byte { return byte(a) }

// String returns the address character as a string.
func (a Address) String() string { return string(rune(a)) }

// IsQuery reports whether a is the '?' wildcard.
func (a Address) IsQuery() bool { return a == QueryAddress }

// IsStandard reports whether a is one of the original digit addresses.
func (a Address) IsStandard() bool { return a >= '0' && a <= '9' }

// IsExtended reports whether a is one of the letter addresses added by v1.4.
func (a Address) IsExtended() bool {
	return (a >= 'a' && a <= 'z') || (a >= 'A' && a <= 'Z')
}

// IsValid reports whether a was built from the legal alphabet. The zero
// Address is not valid.
func (a Address) IsValid() bool {
	return IsValidAddressChar(byte(a)) || a.IsQuery()
}
