package address

import (
	"encoding/binary"
	"errors"
)

// Namespace tags, one per account kind.
const (
	NamespaceContact            = "contact"
	NamespaceDirectConversation = "direct_conversation"
	NamespaceGroup              = "group"
	NamespaceGroupContact       = "group_contact"
)

var ErrSelfRelation = errors.New("relationship endpoints are identical")

// OrderedPair returns a and b in ascending byte order, so that
// OrderedPair(a, b) == OrderedPair(b, a).
func OrderedPair(a, b Address) (Address, Address, error) {
	switch c := Compare(a, b); {
	case c < 0:
		return a, b, nil
	case c > 0:
		return b, a, nil
	default:
		return Zero, Zero, ErrSelfRelation
	}
}

// NonceSeed encodes a group nonce as fixed-width little-endian bytes.
func NonceSeed(nonce uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, nonce)
	return b
}

func ContactAddress(program, receiver Address) (Address, uint8, error) {
	return Derive(program, NamespaceContact, receiver[:])
}

// DirectConversationAddress canonicalizes the pair before deriving, so the
// result does not depend on which contact is passed first.
func DirectConversationAddress(program, contactA, contactB Address) (Address, uint8, error) {
	lo, hi, err := OrderedPair(contactA, contactB)
	if err != nil {
		return Zero, 0, err
	}
	return Derive(program, NamespaceDirectConversation, lo[:], hi[:])
}

func GroupAddress(program, owner Address, nonce uint16) (Address, uint8, error) {
	return Derive(program, NamespaceGroup, owner[:], NonceSeed(nonce))
}

func GroupContactAddress(program, group, member Address) (Address, uint8, error) {
	return Derive(program, NamespaceGroupContact, group[:], member[:])
}
