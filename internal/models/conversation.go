package models

import "github.com/eldtechnologies/ledgerchat/internal/address"

// MaxMessageLen bounds a single message body, in bytes.
const MaxMessageLen = 1024

// DirectConversation is the single record for an unordered pair of contacts.
// Contact1 sorts before Contact2.
type DirectConversation struct {
	Bump         uint8           `json:"bump"`
	Contact1     address.Address `json:"contact1"`
	Contact2     address.Address `json:"contact2"`
	MessagesSize uint64          `json:"messages_size"` // Sum of message lengths
	Messages     []string        `json:"messages"`
}

func (*DirectConversation) Kind() Kind { return KindDirectConversation }

// Has reports whether contact is one of the two participants.
func (c *DirectConversation) Has(contact address.Address) bool {
	return c.Contact1 == contact || c.Contact2 == contact
}

// Append adds msg to the end of the message list.
func (c *DirectConversation) Append(msg string) {
	c.Messages = append(c.Messages, msg)
	c.MessagesSize += uint64(len(msg))
}

func (c *DirectConversation) encode(e *encoder) {
	e.u8(c.Bump)
	e.address(c.Contact1)
	e.address(c.Contact2)
	e.u64(c.MessagesSize)
	e.strings(c.Messages)
}

func (c *DirectConversation) decode(d *decoder) {
	c.Bump = d.u8()
	c.Contact1 = d.address()
	c.Contact2 = d.address()
	c.MessagesSize = d.u64()
	c.Messages = d.strings()
}
