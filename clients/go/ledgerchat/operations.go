package ledgerchat

import (
	"github.com/eldtechnologies/ledgerchat/internal/address"
	"github.com/eldtechnologies/ledgerchat/internal/models"
)

type operation struct {
	Accounts interface{} `json:"accounts"`
	Args     interface{} `json:"args"`
}

type contactArgs struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// ContactAddress is the contact account of identity.
func (c *Client) ContactAddress(identity address.Address) (address.Address, error) {
	program, err := c.program()
	if err != nil {
		return address.Zero, err
	}
	addr, _, err := address.ContactAddress(program, identity)
	return addr, err
}

// ConversationAddress is the conversation account between the client's
// identity and peer.
func (c *Client) ConversationAddress(peer address.Address) (address.Address, error) {
	program, err := c.program()
	if err != nil {
		return address.Zero, err
	}
	mine, _, err := address.ContactAddress(program, c.Identity)
	if err != nil {
		return address.Zero, err
	}
	theirs, _, err := address.ContactAddress(program, peer)
	if err != nil {
		return address.Zero, err
	}
	addr, _, err := address.DirectConversationAddress(program, mine, theirs)
	return addr, err
}

// GroupAddress is the group the client's identity owns under nonce.
func (c *Client) GroupAddress(nonce uint16) (address.Address, error) {
	program, err := c.program()
	if err != nil {
		return address.Zero, err
	}
	addr, _, err := address.GroupAddress(program, c.Identity, nonce)
	return addr, err
}

// MembershipAddress is member's membership edge in group.
func (c *Client) MembershipAddress(group, member address.Address) (address.Address, error) {
	program, err := c.program()
	if err != nil {
		return address.Zero, err
	}
	addr, _, err := address.GroupContactAddress(program, group, member)
	return addr, err
}

// CreateContact registers the client's own contact.
func (c *Client) CreateContact(name, data string) (*Receipt, error) {
	return c.contactOp("POST", name, data)
}

// UpdateContact replaces the client's contact name and data.
func (c *Client) UpdateContact(name, data string) (*Receipt, error) {
	return c.contactOp("PUT", name, data)
}

func (c *Client) contactOp(method, name, data string) (*Receipt, error) {
	addr, err := c.ContactAddress(c.Identity)
	if err != nil {
		return nil, err
	}
	var receipt Receipt
	err = c.doRequest(method, "/contacts", operation{
		Accounts: map[string]address.Address{"contact": addr},
		Args:     contactArgs{Name: name, Data: data},
	}, &receipt)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *Client) conversationAccounts(peer address.Address) (map[string]address.Address, error) {
	conv, err := c.ConversationAddress(peer)
	if err != nil {
		return nil, err
	}
	mine, err := c.ContactAddress(c.Identity)
	if err != nil {
		return nil, err
	}
	theirs, err := c.ContactAddress(peer)
	if err != nil {
		return nil, err
	}
	return map[string]address.Address{
		"conversation": conv,
		"contact1":     mine,
		"contact2":     theirs,
	}, nil
}

// StartConversation opens the conversation with peer, message first.
func (c *Client) StartConversation(peer address.Address, message string) (*Receipt, error) {
	return c.messageOp("/conversations", peer, message)
}

// SendMessage appends message to the conversation with peer.
func (c *Client) SendMessage(peer address.Address, message string) (*Receipt, error) {
	return c.messageOp("/conversations/messages", peer, message)
}

func (c *Client) messageOp(path string, peer address.Address, message string) (*Receipt, error) {
	accounts, err := c.conversationAccounts(peer)
	if err != nil {
		return nil, err
	}
	var receipt Receipt
	err = c.doRequest("POST", path, operation{
		Accounts: accounts,
		Args:     map[string]string{"message": message},
	}, &receipt)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// CreateGroup creates a group owned by the client's identity.
func (c *Client) CreateGroup(nonce uint16, name, data string) (*Receipt, error) {
	group, err := c.GroupAddress(nonce)
	if err != nil {
		return nil, err
	}
	edge, err := c.MembershipAddress(group, c.Identity)
	if err != nil {
		return nil, err
	}

	var receipt Receipt
	err = c.doRequest("POST", "/groups", operation{
		Accounts: map[string]address.Address{"group": group, "group_contact": edge},
		Args: struct {
			Nonce uint16 `json:"nonce"`
			Name  string `json:"name"`
			Data  string `json:"data"`
		}{nonce, name, data},
	}, &receipt)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// AddGroupMember adds member to group with role. The client's identity must
// hold a membership that may grant role.
func (c *Client) AddGroupMember(group, member address.Address, role models.Role) (*Receipt, error) {
	admin, err := c.MembershipAddress(group, c.Identity)
	if err != nil {
		return nil, err
	}
	edge, err := c.MembershipAddress(group, member)
	if err != nil {
		return nil, err
	}
	contact, err := c.ContactAddress(member)
	if err != nil {
		return nil, err
	}

	var receipt Receipt
	err = c.doRequest("POST", "/groups/members", operation{
		Accounts: map[string]address.Address{
			"group":               group,
			"admin_group_contact": admin,
			"contact":             contact,
			"group_contact":       edge,
		},
		Args: map[string]models.Role{"role": role},
	}, &receipt)
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}
