package program

import (
	"context"
	"fmt"

	"github.com/eldtechnologies/ledgerchat/internal/address"
	"github.com/eldtechnologies/ledgerchat/internal/models"
	"github.com/eldtechnologies/ledgerchat/internal/policy"
)

// ContactAccounts names the accounts of createContact and updateContact.
type ContactAccounts struct {
	Contact address.Address `json:"contact"`
}

// ContactArgs are the arguments of createContact and updateContact.
// A nil Receiver means the signer.
type ContactArgs struct {
	Name     string           `json:"name"`
	Data     string           `json:"data"`
	Receiver *address.Address `json:"receiver,omitempty"`
}

func (a ContactArgs) receiver(signer address.Address) address.Address {
	if a.Receiver != nil {
		return *a.Receiver
	}
	return signer
}

// CreateContact registers a contact at derive("contact", receiver).
func (p *Processor) CreateContact(ctx context.Context, signer address.Address, accts ContactAccounts, args ContactArgs) (*Receipt, error) {
	const op = "create_contact"
	receiver := args.receiver(signer)

	if err := checkName(args.Name); err != nil {
		return p.reject(op, signer, err)
	}
	if !policy.MayRegister(signer, receiver, p.cfg.StrictContactRegistration) {
		return p.reject(op, signer, fmt.Errorf("%w: signer may only register its own contact", ErrUnauthorized))
	}

	addr, bump, err := address.ContactAddress(p.cfg.ProgramID, receiver)
	if err != nil {
		return p.reject(op, signer, err)
	}
	if err := expectAddress("contact", accts.Contact, addr); err != nil {
		return p.reject(op, signer, err)
	}

	return p.run(ctx, op, signer, []address.Address{addr}, func(s *session) error {
		exists, err := s.exists(addr)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: contact %s", ErrAlreadyExists, addr)
		}

		s.put(addr, &models.Contact{
			Bump:     bump,
			Creator:  signer,
			Receiver: receiver,
			Name:     args.Name,
			Data:     args.Data,
		})
		return nil
	})
}

// UpdateContact replaces a contact's name and data. Only the contact's
// creator or receiver may do so.
func (p *Processor) UpdateContact(ctx context.Context, signer address.Address, accts ContactAccounts, args ContactArgs) (*Receipt, error) {
	const op = "update_contact"
	receiver := args.receiver(signer)

	if err := checkName(args.Name); err != nil {
		return p.reject(op, signer, err)
	}

	addr, _, err := address.ContactAddress(p.cfg.ProgramID, receiver)
	if err != nil {
		return p.reject(op, signer, err)
	}
	if err := expectAddress("contact", accts.Contact, addr); err != nil {
		return p.reject(op, signer, err)
	}

	return p.run(ctx, op, signer, []address.Address{addr}, func(s *session) error {
		var contact models.Contact
		if err := s.load("contact", addr, &contact); err != nil {
			return err
		}
		if !policy.ControlsContact(signer, &contact) {
			return fmt.Errorf("%w: signer does not control contact %s", ErrUnauthorized, addr)
		}

		contact.Name = args.Name
		contact.Data = args.Data
		s.put(addr, &contact)
		return nil
	})
}
