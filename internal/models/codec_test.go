package models

import (
	"errors"
	"reflect"
	"testing"

	"github.com/eldtechnologies/ledgerchat/internal/address"
)

func testAddress(b byte) address.Address {
	var a address.Address
	for i := range a {
		a[i] = b
	}
	return a
}

func TestConversationRoundTrip(t *testing.T) {
	conv := &DirectConversation{
		Bump:     254,
		Contact1: testAddress(1),
		Contact2: testAddress(2),
	}
	conv.Append("Let's chat!")
	conv.Append("I'm contact A!")

	decoded, err := Decode(Encode(conv))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(decoded, conv) {
		t.Fatalf("expected %+v, got %+v", conv, decoded)
	}
	if conv.MessagesSize != uint64(len("Let's chat!")+len("I'm contact A!")) {
		t.Fatalf("unexpected messages size %d", conv.MessagesSize)
	}
}

func TestDecodeAsChecksKind(t *testing.T) {
	data := Encode(&Contact{Bump: 1, Creator: testAddress(3), Receiver: testAddress(3), Name: "Contact A", Data: `{"prop1":1}`})

	var contact Contact
	if err := DecodeAs(data, &contact); err != nil {
		t.Fatal(err)
	}
	if contact.Name != "Contact A" || contact.Receiver != testAddress(3) {
		t.Fatalf("unexpected contact %+v", contact)
	}

	var group Group
	if err := DecodeAs(data, &group); !errors.Is(err, ErrWrongKind) {
		t.Fatalf("expected ErrWrongKind, got %v", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte{1, 2, 3}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if _, err := Decode(make([]byte, 16)); !errors.Is(err, ErrUnknownAccount) {
		t.Fatalf("expected ErrUnknownAccount, got %v", err)
	}

	data := Encode(&GroupContact{Bump: 9, Group: testAddress(4), Contact: testAddress(5), Role: RoleAdmin})
	if _, err := Decode(data[:len(data)-1]); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for truncated data, got %v", err)
	}
	if _, err := Decode(append(data, 0)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for trailing data, got %v", err)
	}
}

func TestGroupLayout(t *testing.T) {
	g := &Group{Bump: 7, Nonce: 0x0102, Owner: testAddress(6), Name: "Group1"}
	data := Encode(g)

	// discriminator + bump + nonce + owner + (len + name) + (len + data)
	want := 8 + 1 + 2 + 32 + 4 + len("Group1") + 4
	if len(data) != want {
		t.Fatalf("expected %d bytes, got %d", want, len(data))
	}
	if data[9] != 0x02 || data[10] != 0x01 {
		t.Fatalf("nonce not little-endian: %x", data[9:11])
	}
}

func TestRoleValidity(t *testing.T) {
	if !RoleMember.Valid() || !RoleAdmin.Valid() {
		t.Fatal("known roles reported invalid")
	}
	if Role(2).Valid() {
		t.Fatal("role 2 should be invalid")
	}
	if RoleAdmin.String() != "admin" {
		t.Fatalf("unexpected role name %q", RoleAdmin.String())
	}
}
