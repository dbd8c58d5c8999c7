package models

import "github.com/eldtechnologies/ledgerchat/internal/address"

// MaxNameLen bounds Contact and Group display names, in bytes.
const MaxNameLen = 100

// Contact is the directory record for one identity, stored at
// derive("contact", receiver).
type Contact struct {
	Bump     uint8           `json:"bump"`
	Creator  address.Address `json:"creator"`
	Receiver address.Address `json:"receiver"`
	Name     string          `json:"name"`
	Data     string          `json:"data"` // Opaque, usually JSON
}

func (*Contact) Kind() Kind { return KindContact }

func (c *Contact) encode(e *encoder) {
	e.u8(c.Bump)
	e.address(c.Creator)
	e.address(c.Receiver)
	e.string(c.Name)
	e.string(c.Data)
}

func (c *Contact) decode(d *decoder) {
	c.Bump = d.u8()
	c.Creator = d.address()
	c.Receiver = d.address()
	c.Name = d.string()
	c.Data = d.string()
}
