package models

import (
	"fmt"

	"github.com/eldtechnologies/ledgerchat/internal/address"
)

// Group is a named collection of contacts. Membership lives in GroupContact
// records, never inline.
type Group struct {
	Bump  uint8           `json:"bump"`
	Nonce uint16          `json:"nonce"`
	Owner address.Address `json:"owner"`
	Name  string          `json:"name"`
	Data  string          `json:"data"`
}

func (*Group) Kind() Kind { return KindGroup }

func (g *Group) encode(e *encoder) {
	e.u8(g.Bump)
	e.u16(g.Nonce)
	e.address(g.Owner)
	e.string(g.Name)
	e.string(g.Data)
}

func (g *Group) decode(d *decoder) {
	g.Bump = d.u8()
	g.Nonce = d.u16()
	g.Owner = d.address()
	g.Name = d.string()
	g.Data = d.string()
}

// Role is the permission level of a group membership edge.
type Role uint8

const (
	RoleMember Role = 0
	RoleAdmin  Role = 1
)

// Valid reports whether r is a recognized role.
func (r Role) Valid() bool {
	return r == RoleMember || r == RoleAdmin
}

func (r Role) String() string {
	switch r {
	case RoleMember:
		return "member"
	case RoleAdmin:
		return "admin"
	default:
		return fmt.Sprintf("role(%d)", uint8(r))
	}
}

// GroupContact is one (group, contact) membership edge.
type GroupContact struct {
	Bump    uint8           `json:"bump"`
	Group   address.Address `json:"group"`
	Contact address.Address `json:"contact"`
	Role    Role            `json:"role"`
}

func (*GroupContact) Kind() Kind { return KindGroupContact }

func (m *GroupContact) encode(e *encoder) {
	e.u8(m.Bump)
	e.address(m.Group)
	e.address(m.Contact)
	e.u8(uint8(m.Role))
}

func (m *GroupContact) decode(d *decoder) {
	m.Bump = d.u8()
	m.Group = d.address()
	m.Contact = d.address()
	m.Role = Role(d.u8())
}
