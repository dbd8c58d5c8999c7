// Package address implements the deterministic addressing scheme used by the
// ledger: identities and accounts share one 32-byte address space, and every
// account address is derived from a namespace tag and an ordered seed list.
package address

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Size is the length of an address in bytes.
const Size = 32

var ErrInvalidAddress = errors.New("invalid address")

// Address is either an ed25519 identity or a derived account address.
type Address [Size]byte

// Zero is the unset address.
var Zero Address

// Parse decodes a base58 address.
func Parse(s string) (Address, error) {
	decoded, err := base58.Decode(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: invalid base58 encoding", ErrInvalidAddress)
	}
	return FromBytes(decoded)
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromBytes copies b into an Address.
func FromBytes(b []byte) (Address, error) {
	if len(b) != Size {
		return Zero, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidAddress, Size, len(b))
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

func (a Address) String() string {
	return base58.Encode(a[:])
}

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, a[:])
	return b
}

func (a Address) IsZero() bool {
	return a == Zero
}

// Compare orders addresses byte-wise.
func Compare(a, b Address) int {
	return bytes.Compare(a[:], b[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
