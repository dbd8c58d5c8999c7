package program

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/ledgerchat/internal/address"
	"github.com/eldtechnologies/ledgerchat/internal/models"
	"github.com/eldtechnologies/ledgerchat/internal/store"
)

var testProgram = address.MustParse("AhqDVkiKVxijhJy3vU9hXFYjcwxaHAkyXsViMa4mEJc7")

type fixture struct {
	t      *testing.T
	ctx    context.Context
	p      *Processor
	ledger *store.MemoryStore
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	cfg.ProgramID = testProgram
	ledger := store.NewMemoryStore()
	return &fixture{
		t:      t,
		ctx:    context.Background(),
		p:      NewProcessor(ledger, cfg, zerolog.Nop()),
		ledger: ledger,
	}
}

func (f *fixture) identity() address.Address {
	f.t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		f.t.Fatal(err)
	}
	a, err := address.FromBytes(pub)
	if err != nil {
		f.t.Fatal(err)
	}
	return a
}

func (f *fixture) contactAddress(id address.Address) address.Address {
	f.t.Helper()
	a, _, err := address.ContactAddress(testProgram, id)
	if err != nil {
		f.t.Fatal(err)
	}
	return a
}

func (f *fixture) conversationAddress(a, b address.Address) address.Address {
	f.t.Helper()
	addr, _, err := address.DirectConversationAddress(testProgram, a, b)
	if err != nil {
		f.t.Fatal(err)
	}
	return addr
}

func (f *fixture) createContact(signer address.Address, name string) address.Address {
	f.t.Helper()
	addr := f.contactAddress(signer)
	_, err := f.p.CreateContact(f.ctx, signer, ContactAccounts{Contact: addr}, ContactArgs{Name: name, Data: `{"prop1":1,"prop2":""}`})
	if err != nil {
		f.t.Fatalf("create contact %q: %v", name, err)
	}
	return addr
}

func (f *fixture) fetch(addr address.Address) models.Account {
	f.t.Helper()
	a, err := f.p.Account(f.ctx, addr)
	if err != nil {
		f.t.Fatal(err)
	}
	return a
}

func (f *fixture) fetchConversation(addr address.Address) *models.DirectConversation {
	f.t.Helper()
	conv, ok := f.fetch(addr).(*models.DirectConversation)
	if !ok {
		f.t.Fatalf("account %s is not a conversation", addr)
	}
	return conv
}

func expectCode(t *testing.T, err error, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestCreateContact(t *testing.T) {
	f := newFixture(t, Config{})
	id := f.identity()
	addr, bump, err := address.ContactAddress(testProgram, id)
	if err != nil {
		t.Fatal(err)
	}
	data := `{"prop1":1,"prop2":""}`

	receipt, err := f.p.CreateContact(f.ctx, id, ContactAccounts{Contact: addr}, ContactArgs{Name: "Contact A", Data: data})
	if err != nil {
		t.Fatal(err)
	}
	if receipt.ID == "" || len(receipt.Accounts) != 1 || receipt.Accounts[0].Address != addr {
		t.Fatalf("unexpected receipt %+v", receipt)
	}

	want := &models.Contact{Bump: bump, Creator: id, Receiver: id, Name: "Contact A", Data: data}
	if got := f.fetch(addr); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	_, err = f.p.CreateContact(f.ctx, id, ContactAccounts{Contact: addr}, ContactArgs{Name: "again"})
	expectCode(t, err, ErrAlreadyExists)
	if got := f.fetch(addr).(*models.Contact); got.Name != "Contact A" {
		t.Fatalf("duplicate create changed state: %+v", got)
	}
}

func TestCreateContactRejections(t *testing.T) {
	f := newFixture(t, Config{})
	id := f.identity()
	addr := f.contactAddress(id)

	_, err := f.p.CreateContact(f.ctx, id, ContactAccounts{Contact: f.contactAddress(f.identity())}, ContactArgs{Name: "A"})
	expectCode(t, err, ErrAddressMismatch)

	_, err = f.p.CreateContact(f.ctx, id, ContactAccounts{Contact: addr}, ContactArgs{Name: strings.Repeat("n", models.MaxNameLen+1)})
	expectCode(t, err, ErrNameTooLong)

	if acct, _ := f.ledger.GetAccount(f.ctx, addr); acct != nil {
		t.Fatal("rejected create left an account behind")
	}
}

func TestCreateContactForAnotherReceiver(t *testing.T) {
	permissive := newFixture(t, Config{})
	registrar, receiver := permissive.identity(), permissive.identity()
	addr := permissive.contactAddress(receiver)
	_, err := permissive.p.CreateContact(permissive.ctx, registrar, ContactAccounts{Contact: addr}, ContactArgs{Name: "B", Receiver: &receiver})
	if err != nil {
		t.Fatal(err)
	}
	c := permissive.fetch(addr).(*models.Contact)
	if c.Creator != registrar || c.Receiver != receiver {
		t.Fatalf("unexpected contact %+v", c)
	}

	strict := newFixture(t, Config{StrictContactRegistration: true})
	_, err = strict.p.CreateContact(strict.ctx, registrar, ContactAccounts{Contact: addr}, ContactArgs{Name: "B", Receiver: &receiver})
	expectCode(t, err, ErrUnauthorized)
}

func TestUpdateContact(t *testing.T) {
	f := newFixture(t, Config{})
	id := f.identity()
	addr := f.createContact(id, "Contact A")
	data := `{"prop1":2,"prop2":"updated"}`

	_, err := f.p.UpdateContact(f.ctx, id, ContactAccounts{Contact: addr}, ContactArgs{Name: "Contact A - updated", Data: data})
	if err != nil {
		t.Fatal(err)
	}
	c := f.fetch(addr).(*models.Contact)
	if c.Name != "Contact A - updated" || c.Data != data || c.Creator != id || c.Receiver != id {
		t.Fatalf("unexpected contact %+v", c)
	}

	stranger := f.identity()
	_, err = f.p.UpdateContact(f.ctx, stranger, ContactAccounts{Contact: addr}, ContactArgs{Name: "hijacked", Receiver: &id})
	expectCode(t, err, ErrUnauthorized)
	if c := f.fetch(addr).(*models.Contact); c.Name != "Contact A - updated" {
		t.Fatalf("unauthorized update changed state: %+v", c)
	}

	_, err = f.p.UpdateContact(f.ctx, stranger, ContactAccounts{Contact: f.contactAddress(stranger)}, ContactArgs{Name: "ghost"})
	expectCode(t, err, ErrNotFound)

	_, err = f.p.UpdateContact(f.ctx, id, ContactAccounts{Contact: f.contactAddress(stranger)}, ContactArgs{Name: "x"})
	expectCode(t, err, ErrAddressMismatch)
}

func TestDirectConversationScenario(t *testing.T) {
	f := newFixture(t, Config{})
	a, b := f.identity(), f.identity()
	contactA := f.createContact(a, "Contact A")
	contactB := f.createContact(b, "Contact B")
	conv := f.conversationAddress(contactA, contactB)
	accts := ConversationAccounts{Conversation: conv, Contact1: contactA, Contact2: contactB}

	_, err := f.p.StartDirectConversation(f.ctx, a, accts, MessageArgs{Message: "Let's chat!"})
	if err != nil {
		t.Fatal(err)
	}
	got := f.fetchConversation(conv)
	if got.Messages[0] != "Let's chat!" {
		t.Fatalf("unexpected first message %q", got.Messages[0])
	}
	lo, hi, _ := address.OrderedPair(contactA, contactB)
	if got.Contact1 != lo || got.Contact2 != hi {
		t.Fatal("conversation contacts not stored in canonical order")
	}

	if _, err := f.p.SendDirectMessage(f.ctx, a, accts, MessageArgs{Message: "I'm contact A!"}); err != nil {
		t.Fatal(err)
	}
	// B names the contacts the other way around.
	reversed := ConversationAccounts{Conversation: conv, Contact1: contactB, Contact2: contactA}
	if _, err := f.p.SendDirectMessage(f.ctx, b, reversed, MessageArgs{Message: "I'm contact B!"}); err != nil {
		t.Fatal(err)
	}

	want := []string{"Let's chat!", "I'm contact A!", "I'm contact B!"}
	got = f.fetchConversation(conv)
	if !reflect.DeepEqual(got.Messages, want) {
		t.Fatalf("expected %q, got %q", want, got.Messages)
	}
	wantSize := uint64(0)
	for _, m := range want {
		wantSize += uint64(len(m))
	}
	if got.MessagesSize != wantSize {
		t.Fatalf("expected messages size %d, got %d", wantSize, got.MessagesSize)
	}
}

func TestConversationIsUniquePerPair(t *testing.T) {
	f := newFixture(t, Config{})
	a, b := f.identity(), f.identity()
	contactA := f.createContact(a, "A")
	contactB := f.createContact(b, "B")

	conv := f.conversationAddress(contactB, contactA)
	if conv != f.conversationAddress(contactA, contactB) {
		t.Fatal("conversation address depends on initiator")
	}

	_, err := f.p.StartDirectConversation(f.ctx, b, ConversationAccounts{Conversation: conv, Contact1: contactB, Contact2: contactA}, MessageArgs{Message: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.p.StartDirectConversation(f.ctx, a, ConversationAccounts{Conversation: conv, Contact1: contactA, Contact2: contactB}, MessageArgs{Message: "hi again"})
	expectCode(t, err, ErrAlreadyExists)
	if got := f.fetchConversation(conv); len(got.Messages) != 1 || got.Messages[0] != "hi" {
		t.Fatalf("duplicate start changed state: %q", got.Messages)
	}
}

func TestStartDirectConversationRejections(t *testing.T) {
	f := newFixture(t, Config{})
	a, b := f.identity(), f.identity()
	contactA := f.createContact(a, "A")
	contactB := f.createContact(b, "B")
	conv := f.conversationAddress(contactA, contactB)

	tests := []struct {
		name   string
		signer address.Address
		accts  ConversationAccounts
		msg    string
		want   error
	}{
		{
			name:   "self relation",
			signer: a,
			accts:  ConversationAccounts{Conversation: conv, Contact1: contactA, Contact2: contactA},
			msg:    "hi",
			want:   ErrSelfRelation,
		},
		{
			name:   "wrong conversation address",
			signer: a,
			accts:  ConversationAccounts{Conversation: contactA, Contact1: contactA, Contact2: contactB},
			msg:    "hi",
			want:   ErrAddressMismatch,
		},
		{
			name:   "stranger",
			signer: f.identity(),
			accts:  ConversationAccounts{Conversation: conv, Contact1: contactA, Contact2: contactB},
			msg:    "hi",
			want:   ErrUnauthorized,
		},
		{
			name:   "message too long",
			signer: a,
			accts:  ConversationAccounts{Conversation: conv, Contact1: contactA, Contact2: contactB},
			msg:    strings.Repeat("m", models.MaxMessageLen+1),
			want:   ErrMessageTooLong,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.p.StartDirectConversation(f.ctx, tt.signer, tt.accts, MessageArgs{Message: tt.msg})
			expectCode(t, err, tt.want)
		})
	}

	missing := f.contactAddress(f.identity())
	_, err := f.p.StartDirectConversation(f.ctx, a, ConversationAccounts{
		Conversation: f.conversationAddress(contactA, missing),
		Contact1:     contactA,
		Contact2:     missing,
	}, MessageArgs{Message: "hi"})
	expectCode(t, err, ErrNotFound)

	if acct, _ := f.ledger.GetAccount(f.ctx, conv); acct != nil {
		t.Fatal("rejected start left a conversation behind")
	}
}

func TestStartDirectConversationRejectsNonContactAccounts(t *testing.T) {
	f := newFixture(t, Config{})
	a := f.identity()
	contactA := f.createContact(a, "A")

	groupAddr, _, _ := address.GroupAddress(testProgram, a, 0)
	memberAddr, _, _ := address.GroupContactAddress(testProgram, groupAddr, a)
	if _, err := f.p.CreateGroup(f.ctx, a, GroupAccounts{Group: groupAddr, GroupContact: memberAddr}, GroupArgs{Name: "g"}); err != nil {
		t.Fatal(err)
	}

	_, err := f.p.StartDirectConversation(f.ctx, a, ConversationAccounts{
		Conversation: f.conversationAddress(contactA, groupAddr),
		Contact1:     contactA,
		Contact2:     groupAddr,
	}, MessageArgs{Message: "hi"})
	expectCode(t, err, ErrInvalidAccount)
}

func TestSendDirectMessageAppendsInOrderUntilCapacity(t *testing.T) {
	const capacity = 5
	f := newFixture(t, Config{MaxMessages: capacity})
	a, b := f.identity(), f.identity()
	contactA := f.createContact(a, "A")
	contactB := f.createContact(b, "B")
	conv := f.conversationAddress(contactA, contactB)
	accts := ConversationAccounts{Conversation: conv, Contact1: contactA, Contact2: contactB}

	if _, err := f.p.StartDirectConversation(f.ctx, a, accts, MessageArgs{Message: "m0"}); err != nil {
		t.Fatal(err)
	}
	want := []string{"m0"}
	for i := 1; i < capacity; i++ {
		msg := fmt.Sprintf("m%d", i)
		if _, err := f.p.SendDirectMessage(f.ctx, b, accts, MessageArgs{Message: msg}); err != nil {
			t.Fatal(err)
		}
		want = append(want, msg)
		if got := f.fetchConversation(conv).Messages; !reflect.DeepEqual(got, want) {
			t.Fatalf("after %d sends expected %q, got %q", i, want, got)
		}
	}

	_, err := f.p.SendDirectMessage(f.ctx, a, accts, MessageArgs{Message: "overflow"})
	expectCode(t, err, ErrCapacityExceeded)
	if got := f.fetchConversation(conv).Messages; len(got) != capacity {
		t.Fatalf("overflow changed the message list: %q", got)
	}
}

func TestSendDirectMessageRejections(t *testing.T) {
	f := newFixture(t, Config{})
	a, b, c := f.identity(), f.identity(), f.identity()
	contactA := f.createContact(a, "A")
	contactB := f.createContact(b, "B")
	contactC := f.createContact(c, "C")
	conv := f.conversationAddress(contactA, contactB)
	accts := ConversationAccounts{Conversation: conv, Contact1: contactA, Contact2: contactB}

	_, err := f.p.SendDirectMessage(f.ctx, a, accts, MessageArgs{Message: "early"})
	expectCode(t, err, ErrNotFound)

	if _, err := f.p.StartDirectConversation(f.ctx, a, accts, MessageArgs{Message: "hi"}); err != nil {
		t.Fatal(err)
	}

	_, err = f.p.SendDirectMessage(f.ctx, c, accts, MessageArgs{Message: "intruder"})
	expectCode(t, err, ErrUnauthorized)

	// C cannot borrow its own contact to pass the participant check.
	_, err = f.p.SendDirectMessage(f.ctx, c, ConversationAccounts{Conversation: conv, Contact1: contactA, Contact2: contactC}, MessageArgs{Message: "intruder"})
	expectCode(t, err, ErrAddressMismatch)

	_, err = f.p.SendDirectMessage(f.ctx, a, accts, MessageArgs{Message: strings.Repeat("m", models.MaxMessageLen+1)})
	expectCode(t, err, ErrMessageTooLong)

	if got := f.fetchConversation(conv).Messages; len(got) != 1 {
		t.Fatalf("rejected sends changed state: %q", got)
	}
}

func (f *fixture) groupAccounts(owner address.Address, nonce uint16) GroupAccounts {
	f.t.Helper()
	g, _, err := address.GroupAddress(testProgram, owner, nonce)
	if err != nil {
		f.t.Fatal(err)
	}
	m, _, err := address.GroupContactAddress(testProgram, g, owner)
	if err != nil {
		f.t.Fatal(err)
	}
	return GroupAccounts{Group: g, GroupContact: m}
}

func (f *fixture) addAccounts(group, signer, member address.Address) AddGroupContactAccounts {
	f.t.Helper()
	admin, _, err := address.GroupContactAddress(testProgram, group, signer)
	if err != nil {
		f.t.Fatal(err)
	}
	edge, _, err := address.GroupContactAddress(testProgram, group, member)
	if err != nil {
		f.t.Fatal(err)
	}
	return AddGroupContactAccounts{
		Group:             group,
		AdminGroupContact: admin,
		Contact:           f.contactAddress(member),
		GroupContact:      edge,
	}
}

func TestGroupScenario(t *testing.T) {
	f := newFixture(t, Config{})
	x, y := f.identity(), f.identity()
	f.createContact(x, "X")
	contactY := f.createContact(y, "Y")

	accts := f.groupAccounts(x, 0)
	if _, err := f.p.CreateGroup(f.ctx, x, accts, GroupArgs{Nonce: 0, Name: "Group1"}); err != nil {
		t.Fatal(err)
	}

	group := f.fetch(accts.Group).(*models.Group)
	if group.Owner != x || group.Nonce != 0 || group.Name != "Group1" {
		t.Fatalf("unexpected group %+v", group)
	}
	owner := f.fetch(accts.GroupContact).(*models.GroupContact)
	if owner.Role != models.RoleAdmin || owner.Group != accts.Group || owner.Contact != f.contactAddress(x) {
		t.Fatalf("unexpected owner membership %+v", owner)
	}

	add := f.addAccounts(accts.Group, x, y)
	if _, err := f.p.AddGroupContact(f.ctx, x, add, AddGroupContactArgs{Role: models.RoleMember}); err != nil {
		t.Fatal(err)
	}
	member := f.fetch(add.GroupContact).(*models.GroupContact)
	if member.Role != models.RoleMember || member.Group != accts.Group || member.Contact != contactY {
		t.Fatalf("unexpected member %+v", member)
	}

	_, err := f.p.AddGroupContact(f.ctx, x, add, AddGroupContactArgs{Role: models.RoleMember})
	expectCode(t, err, ErrAlreadyExists)
}

func TestCreateGroupRejections(t *testing.T) {
	f := newFixture(t, Config{})
	x := f.identity()
	accts := f.groupAccounts(x, 7)

	if _, err := f.p.CreateGroup(f.ctx, x, accts, GroupArgs{Nonce: 7, Name: "g"}); err != nil {
		t.Fatal(err)
	}
	_, err := f.p.CreateGroup(f.ctx, x, accts, GroupArgs{Nonce: 7, Name: "g"})
	expectCode(t, err, ErrAlreadyExists)

	// Same owner, another nonce: a distinct group.
	if _, err := f.p.CreateGroup(f.ctx, x, f.groupAccounts(x, 8), GroupArgs{Nonce: 8, Name: "g2"}); err != nil {
		t.Fatal(err)
	}

	// Someone else cannot create a group at x's address.
	_, err = f.p.CreateGroup(f.ctx, f.identity(), f.groupAccounts(x, 9), GroupArgs{Nonce: 9, Name: "g"})
	expectCode(t, err, ErrAddressMismatch)

	_, err = f.p.CreateGroup(f.ctx, x, f.groupAccounts(x, 10), GroupArgs{Nonce: 10, Name: strings.Repeat("n", models.MaxNameLen+1)})
	expectCode(t, err, ErrNameTooLong)
}

func TestAddGroupContactRequiresAdmin(t *testing.T) {
	f := newFixture(t, Config{})
	x, y, z := f.identity(), f.identity(), f.identity()
	f.createContact(x, "X")
	f.createContact(y, "Y")
	f.createContact(z, "Z")

	accts := f.groupAccounts(x, 0)
	if _, err := f.p.CreateGroup(f.ctx, x, accts, GroupArgs{Name: "Group1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.p.AddGroupContact(f.ctx, x, f.addAccounts(accts.Group, x, y), AddGroupContactArgs{Role: models.RoleMember}); err != nil {
		t.Fatal(err)
	}

	// Y is a plain member.
	byMember := f.addAccounts(accts.Group, y, z)
	_, err := f.p.AddGroupContact(f.ctx, y, byMember, AddGroupContactArgs{Role: models.RoleMember})
	expectCode(t, err, ErrUnauthorized)
	if acct, _ := f.ledger.GetAccount(f.ctx, byMember.GroupContact); acct != nil {
		t.Fatal("unauthorized add created an edge")
	}

	// Z is not a member at all.
	byStranger := f.addAccounts(accts.Group, z, z)
	_, err = f.p.AddGroupContact(f.ctx, z, byStranger, AddGroupContactArgs{Role: models.RoleMember})
	expectCode(t, err, ErrUnauthorized)

	// Y cannot pass off X's membership as its own.
	forged := f.addAccounts(accts.Group, x, z)
	_, err = f.p.AddGroupContact(f.ctx, y, forged, AddGroupContactArgs{Role: models.RoleMember})
	expectCode(t, err, ErrAddressMismatch)

	// Admins may add admins.
	if _, err := f.p.AddGroupContact(f.ctx, x, f.addAccounts(accts.Group, x, z), AddGroupContactArgs{Role: models.RoleAdmin}); err != nil {
		t.Fatal(err)
	}
}

func TestAddGroupContactRejections(t *testing.T) {
	f := newFixture(t, Config{})
	x, y := f.identity(), f.identity()
	f.createContact(x, "X")
	accts := f.groupAccounts(x, 0)
	if _, err := f.p.CreateGroup(f.ctx, x, accts, GroupArgs{Name: "Group1"}); err != nil {
		t.Fatal(err)
	}

	add := f.addAccounts(accts.Group, x, y)
	_, err := f.p.AddGroupContact(f.ctx, x, add, AddGroupContactArgs{Role: models.Role(2)})
	expectCode(t, err, ErrInvalidRole)

	// Y has no contact yet.
	_, err = f.p.AddGroupContact(f.ctx, x, add, AddGroupContactArgs{Role: models.RoleMember})
	expectCode(t, err, ErrNotFound)

	f.createContact(y, "Y")
	wrongEdge := add
	wrongEdge.GroupContact = accts.GroupContact
	_, err = f.p.AddGroupContact(f.ctx, x, wrongEdge, AddGroupContactArgs{Role: models.RoleMember})
	expectCode(t, err, ErrAddressMismatch)

	missingGroup := f.addAccounts(f.groupAccounts(x, 1).Group, x, y)
	_, err = f.p.AddGroupContact(f.ctx, x, missingGroup, AddGroupContactArgs{Role: models.RoleMember})
	expectCode(t, err, ErrNotFound)
}

func TestAccountNotFound(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.p.Account(f.ctx, f.contactAddress(f.identity()))
	expectCode(t, err, ErrNotFound)
}

func TestCode(t *testing.T) {
	wrapped := fmt.Errorf("%w: detail", ErrSelfRelation)
	if got := Code(wrapped); got != "SelfRelationError" {
		t.Fatalf("expected SelfRelationError, got %q", got)
	}
	if got := Code(errors.New("boom")); got != "" {
		t.Fatalf("expected empty code, got %q", got)
	}
}
