// Package policy decides whether a signer may perform a mutation. Identity
// checks bind a signer to contacts; role checks gate group membership.
package policy

import (
	"github.com/eldtechnologies/ledgerchat/internal/address"
	"github.com/eldtechnologies/ledgerchat/internal/models"
)

// Permission is a single capability granted by a group role.
type Permission uint8

const (
	PermAddMember Permission = iota + 1
	PermAddAdmin
)

// permissions is the complete role table. Roles missing from it hold nothing.
var permissions = map[models.Role][]Permission{
	models.RoleMember: nil,
	models.RoleAdmin:  {PermAddMember, PermAddAdmin},
}

// Allows reports whether role carries perm.
func Allows(role models.Role, perm Permission) bool {
	for _, p := range permissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// grantPermission maps the role being assigned to the permission needed to
// assign it.
func grantPermission(role models.Role) (Permission, bool) {
	switch role {
	case models.RoleMember:
		return PermAddMember, true
	case models.RoleAdmin:
		return PermAddAdmin, true
	}
	return 0, false
}

// CanGrant reports whether a member holding granter may add a new member with
// role target.
func CanGrant(granter, target models.Role) bool {
	perm, ok := grantPermission(target)
	if !ok {
		return false
	}
	return Allows(granter, perm)
}

// ControlsContact reports whether signer is the registered controller of c.
func ControlsContact(signer address.Address, c *models.Contact) bool {
	if c == nil {
		return false
	}
	return signer == c.Creator || signer == c.Receiver
}

// ControlsEither reports whether signer controls at least one of the contacts.
func ControlsEither(signer address.Address, a, b *models.Contact) bool {
	return ControlsContact(signer, a) || ControlsContact(signer, b)
}

// MayRegister decides contact registration. When strict is false any signer
// may register a contact for any receiver, matching the public-directory
// behavior; strict mode requires the signer to be the receiver.
func MayRegister(signer, receiver address.Address, strict bool) bool {
	return !strict || signer == receiver
}
