package program

import (
	"context"
	"fmt"

	"github.com/eldtechnologies/ledgerchat/internal/address"
	"github.com/eldtechnologies/ledgerchat/internal/metrics"
	"github.com/eldtechnologies/ledgerchat/internal/models"
	"github.com/eldtechnologies/ledgerchat/internal/policy"
)

// ConversationAccounts names the accounts of startDirectConversation and
// sendDirectMessage. The two contacts may be given in either order.
type ConversationAccounts struct {
	Conversation address.Address `json:"conversation"`
	Contact1     address.Address `json:"contact1"`
	Contact2     address.Address `json:"contact2"`
}

// MessageArgs carries a single message body.
type MessageArgs struct {
	Message string `json:"message"`
}

// StartDirectConversation creates the conversation between two contacts with
// message as its first entry.
func (p *Processor) StartDirectConversation(ctx context.Context, signer address.Address, accts ConversationAccounts, args MessageArgs) (*Receipt, error) {
	const op = "start_direct_conversation"

	if err := checkMessage(args.Message); err != nil {
		return p.reject(op, signer, err)
	}

	lo, hi, err := address.OrderedPair(accts.Contact1, accts.Contact2)
	if err != nil {
		return p.reject(op, signer, fmt.Errorf("%w: contact %s", ErrSelfRelation, accts.Contact1))
	}
	addr, bump, err := address.Derive(p.cfg.ProgramID, address.NamespaceDirectConversation, lo[:], hi[:])
	if err != nil {
		return p.reject(op, signer, err)
	}
	if err := expectAddress("conversation", accts.Conversation, addr); err != nil {
		return p.reject(op, signer, err)
	}

	return p.run(ctx, op, signer, []address.Address{addr, lo, hi}, func(s *session) error {
		var first, second models.Contact
		if err := p.loadContact(s, "contact1", lo, &first); err != nil {
			return err
		}
		if err := p.loadContact(s, "contact2", hi, &second); err != nil {
			return err
		}
		if !policy.ControlsEither(signer, &first, &second) {
			return fmt.Errorf("%w: signer controls neither contact", ErrUnauthorized)
		}

		exists, err := s.exists(addr)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: conversation %s", ErrAlreadyExists, addr)
		}

		conv := &models.DirectConversation{
			Bump:     bump,
			Contact1: lo,
			Contact2: hi,
			Messages: make([]string, 0, 1),
		}
		conv.Append(args.Message)
		s.put(addr, conv)
		return nil
	})
}

// SendDirectMessage appends message to an existing conversation.
func (p *Processor) SendDirectMessage(ctx context.Context, signer address.Address, accts ConversationAccounts, args MessageArgs) (*Receipt, error) {
	const op = "send_direct_message"

	if err := checkMessage(args.Message); err != nil {
		return p.reject(op, signer, err)
	}

	receipt, err := p.run(ctx, op, signer, []address.Address{accts.Conversation, accts.Contact1, accts.Contact2}, func(s *session) error {
		var conv models.DirectConversation
		if err := s.load("conversation", accts.Conversation, &conv); err != nil {
			return err
		}
		err := address.Verify(p.cfg.ProgramID, accts.Conversation, conv.Bump,
			address.NamespaceDirectConversation, conv.Contact1[:], conv.Contact2[:])
		if err != nil {
			return fmt.Errorf("%w: conversation: %v", ErrAddressMismatch, err)
		}

		lo, hi, err := address.OrderedPair(accts.Contact1, accts.Contact2)
		if err != nil || lo != conv.Contact1 || hi != conv.Contact2 {
			return fmt.Errorf("%w: contacts do not match conversation %s", ErrAddressMismatch, accts.Conversation)
		}

		var first, second models.Contact
		if err := p.loadContact(s, "contact1", lo, &first); err != nil {
			return err
		}
		if err := p.loadContact(s, "contact2", hi, &second); err != nil {
			return err
		}
		if !policy.ControlsEither(signer, &first, &second) {
			return fmt.Errorf("%w: signer controls neither participant", ErrUnauthorized)
		}

		if len(conv.Messages) >= p.cfg.MaxMessages {
			return fmt.Errorf("%w: conversation holds %d messages", ErrCapacityExceeded, len(conv.Messages))
		}

		conv.Append(args.Message)
		s.put(accts.Conversation, &conv)
		return nil
	})
	if err == nil {
		metrics.MessagesAppended.Inc()
	}
	return receipt, err
}

func (p *Processor) loadContact(s *session, role string, addr address.Address, dst *models.Contact) error {
	if err := s.load(role, addr, dst); err != nil {
		return err
	}
	return p.verifyContact(role, addr, dst)
}
