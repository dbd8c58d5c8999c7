package program

import (
	"context"
	"errors"
	"fmt"

	"github.com/eldtechnologies/ledgerchat/internal/address"
	"github.com/eldtechnologies/ledgerchat/internal/models"
	"github.com/eldtechnologies/ledgerchat/internal/policy"
)

// GroupAccounts names the accounts of createGroup: the group and the
// creator's own membership edge.
type GroupAccounts struct {
	Group        address.Address `json:"group"`
	GroupContact address.Address `json:"group_contact"`
}

// GroupArgs are the arguments of createGroup.
type GroupArgs struct {
	Nonce uint16 `json:"nonce"`
	Name  string `json:"name"`
	Data  string `json:"data"`
}

// CreateGroup creates a group owned by the signer together with the signer's
// admin membership edge.
func (p *Processor) CreateGroup(ctx context.Context, signer address.Address, accts GroupAccounts, args GroupArgs) (*Receipt, error) {
	const op = "create_group"

	if err := checkName(args.Name); err != nil {
		return p.reject(op, signer, err)
	}

	groupAddr, groupBump, err := address.GroupAddress(p.cfg.ProgramID, signer, args.Nonce)
	if err != nil {
		return p.reject(op, signer, err)
	}
	if err := expectAddress("group", accts.Group, groupAddr); err != nil {
		return p.reject(op, signer, err)
	}
	memberAddr, memberBump, err := address.GroupContactAddress(p.cfg.ProgramID, groupAddr, signer)
	if err != nil {
		return p.reject(op, signer, err)
	}
	if err := expectAddress("group_contact", accts.GroupContact, memberAddr); err != nil {
		return p.reject(op, signer, err)
	}
	contactAddr, _, err := address.ContactAddress(p.cfg.ProgramID, signer)
	if err != nil {
		return p.reject(op, signer, err)
	}

	return p.run(ctx, op, signer, []address.Address{groupAddr, memberAddr}, func(s *session) error {
		for _, addr := range []address.Address{groupAddr, memberAddr} {
			exists, err := s.exists(addr)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("%w: %s", ErrAlreadyExists, addr)
			}
		}

		s.put(groupAddr, &models.Group{
			Bump:  groupBump,
			Nonce: args.Nonce,
			Owner: signer,
			Name:  args.Name,
			Data:  args.Data,
		})
		s.put(memberAddr, &models.GroupContact{
			Bump:    memberBump,
			Group:   groupAddr,
			Contact: contactAddr,
			Role:    models.RoleAdmin,
		})
		return nil
	})
}

// AddGroupContactAccounts names the accounts of addGroupContact.
type AddGroupContactAccounts struct {
	Group             address.Address `json:"group"`
	AdminGroupContact address.Address `json:"admin_group_contact"` // The signer's own edge
	Contact           address.Address `json:"contact"`             // The contact being added
	GroupContact      address.Address `json:"group_contact"`       // The new edge
}

// AddGroupContactArgs are the arguments of addGroupContact.
type AddGroupContactArgs struct {
	Role models.Role `json:"role"`
}

// AddGroupContact adds a contact to a group with the given role. The signer's
// own membership must hold the permission to grant that role.
func (p *Processor) AddGroupContact(ctx context.Context, signer address.Address, accts AddGroupContactAccounts, args AddGroupContactArgs) (*Receipt, error) {
	const op = "add_group_contact"

	if !args.Role.Valid() {
		return p.reject(op, signer, fmt.Errorf("%w: %d", ErrInvalidRole, uint8(args.Role)))
	}

	adminAddr, _, err := address.GroupContactAddress(p.cfg.ProgramID, accts.Group, signer)
	if err != nil {
		return p.reject(op, signer, err)
	}
	if err := expectAddress("admin_group_contact", accts.AdminGroupContact, adminAddr); err != nil {
		return p.reject(op, signer, err)
	}

	keys := []address.Address{accts.Group, adminAddr, accts.Contact, accts.GroupContact}
	return p.run(ctx, op, signer, keys, func(s *session) error {
		var group models.Group
		if err := s.load("group", accts.Group, &group); err != nil {
			return err
		}
		err := address.Verify(p.cfg.ProgramID, accts.Group, group.Bump,
			address.NamespaceGroup, group.Owner[:], address.NonceSeed(group.Nonce))
		if err != nil {
			return fmt.Errorf("%w: group: %v", ErrAddressMismatch, err)
		}

		var admin models.GroupContact
		if err := s.load("admin_group_contact", adminAddr, &admin); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: signer is not a member of group %s", ErrUnauthorized, accts.Group)
			}
			return err
		}
		if admin.Group != accts.Group {
			return fmt.Errorf("%w: membership %s belongs to another group", ErrAddressMismatch, adminAddr)
		}
		if !policy.CanGrant(admin.Role, args.Role) {
			return fmt.Errorf("%w: role %s may not grant %s", ErrUnauthorized, admin.Role, args.Role)
		}

		var contact models.Contact
		if err := p.loadContact(s, "contact", accts.Contact, &contact); err != nil {
			return err
		}

		memberAddr, memberBump, err := address.GroupContactAddress(p.cfg.ProgramID, accts.Group, contact.Receiver)
		if err != nil {
			return err
		}
		if err := expectAddress("group_contact", accts.GroupContact, memberAddr); err != nil {
			return err
		}
		exists, err := s.exists(memberAddr)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: membership %s", ErrAlreadyExists, memberAddr)
		}

		s.put(memberAddr, &models.GroupContact{
			Bump:    memberBump,
			Group:   accts.Group,
			Contact: accts.Contact,
			Role:    args.Role,
		})
		return nil
	})
}
