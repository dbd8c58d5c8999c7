// Package program holds the ledger's state-transition handlers. Each handler
// recomputes every address it touches from its own inputs, checks the
// signer against the policy, and commits its writes in one ledger
// transaction or not at all.
package program

import (
	"context"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/ledgerchat/internal/address"
	"github.com/eldtechnologies/ledgerchat/internal/metrics"
	"github.com/eldtechnologies/ledgerchat/internal/models"
	"github.com/eldtechnologies/ledgerchat/internal/store"
)

// DefaultMaxMessages is the conversation capacity when none is configured.
const DefaultMaxMessages = 256

// Config parameterizes a Processor.
type Config struct {
	ProgramID   address.Address
	MaxMessages int

	// StrictContactRegistration requires createContact's signer to be the
	// receiver. Off by default: the directory is public.
	StrictContactRegistration bool
}

// Processor executes operations against a ledger.
type Processor struct {
	cfg    Config
	ledger store.Ledger
	logger zerolog.Logger
}

// NewProcessor creates a Processor. A non-positive MaxMessages falls back to
// DefaultMaxMessages.
func NewProcessor(ledger store.Ledger, cfg Config, logger zerolog.Logger) *Processor {
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = DefaultMaxMessages
	}
	return &Processor{cfg: cfg, ledger: ledger, logger: logger}
}

// ProgramID returns the identity mixed into every derivation.
func (p *Processor) ProgramID() address.Address {
	return p.cfg.ProgramID
}

// MaxMessages returns the configured conversation capacity.
func (p *Processor) MaxMessages() int {
	return p.cfg.MaxMessages
}

// Receipt is the result of an accepted operation.
type Receipt struct {
	ID        string          `json:"id"` // ULID
	Operation string          `json:"operation"`
	Signer    address.Address `json:"signer"`
	Accounts  []AccountState  `json:"accounts"`
}

// AccountState is the post-state of one written account.
type AccountState struct {
	Address address.Address `json:"address"`
	Kind    models.Kind     `json:"kind"`
	Account models.Account  `json:"account"`
}

// Account fetches and decodes the account at addr.
func (p *Processor) Account(ctx context.Context, addr address.Address) (models.Account, error) {
	acct, err := p.ledger.GetAccount(ctx, addr)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, addr)
	}
	decoded, err := models.Decode(acct.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAccount, addr, err)
	}
	return decoded, nil
}

// run executes fn in one ledger transaction over keys and records the outcome.
func (p *Processor) run(ctx context.Context, op string, signer address.Address, keys []address.Address, fn func(s *session) error) (*Receipt, error) {
	receipt := &Receipt{
		ID:        ulid.Make().String(),
		Operation: op,
		Signer:    signer,
	}

	err := p.ledger.Atomically(ctx, keys, func(tx store.Tx) error {
		// Drivers may re-run fn after a conflict.
		receipt.Accounts = nil
		return fn(&session{ctx: ctx, tx: tx, receipt: receipt})
	})
	p.record(op, signer, receipt, err)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// reject records an operation that failed validation before touching the
// ledger.
func (p *Processor) reject(op string, signer address.Address, err error) (*Receipt, error) {
	p.record(op, signer, nil, err)
	return nil, err
}

func (p *Processor) record(op string, signer address.Address, receipt *Receipt, err error) {
	if err == nil {
		metrics.OperationsTotal.WithLabelValues(op, "ok").Inc()
		p.logger.Info().
			Str("operation", op).
			Str("signer", signer.String()).
			Str("receipt", receipt.ID).
			Int("accounts", len(receipt.Accounts)).
			Msg("operation accepted")
		return
	}

	code := Code(err)
	if code == "" {
		metrics.OperationsTotal.WithLabelValues(op, "error").Inc()
		p.logger.Error().Err(err).Str("operation", op).Str("signer", signer.String()).Msg("operation failed")
		return
	}
	metrics.OperationsTotal.WithLabelValues(op, code).Inc()
	p.logger.Debug().Err(err).Str("operation", op).Str("signer", signer.String()).Str("code", code).Msg("operation rejected")
}

// session is the per-transaction view handlers work through.
type session struct {
	ctx     context.Context
	tx      store.Tx
	receipt *Receipt
}

// exists reports whether any account is stored at addr.
func (s *session) exists(addr address.Address) (bool, error) {
	acct, err := s.tx.Get(s.ctx, addr)
	if err != nil {
		return false, err
	}
	return acct != nil, nil
}

// load decodes the account at addr into dst, failing with ErrNotFound when
// absent and ErrInvalidAccount when it holds another kind.
func (s *session) load(role string, addr address.Address, dst models.Account) error {
	acct, err := s.tx.Get(s.ctx, addr)
	if err != nil {
		return err
	}
	if acct == nil {
		return fmt.Errorf("%w: %s %s", ErrNotFound, role, addr)
	}
	if err := models.DecodeAs(acct.Data, dst); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrInvalidAccount, role, addr, err)
	}
	return nil
}

// put stages a write and records its post-state on the receipt.
func (s *session) put(addr address.Address, a models.Account) {
	s.tx.Put(store.Account{
		Address: addr,
		Kind:    string(a.Kind()),
		Data:    models.Encode(a),
	})
	s.receipt.Accounts = append(s.receipt.Accounts, AccountState{Address: addr, Kind: a.Kind(), Account: a})
}

func expectAddress(role string, supplied, expected address.Address) error {
	if supplied != expected {
		return fmt.Errorf("%w: %s: expected %s, got %s", ErrAddressMismatch, role, expected, supplied)
	}
	return nil
}

// verifyContact checks that a loaded contact sits at its canonical address
// with its canonical bump.
func (p *Processor) verifyContact(role string, addr address.Address, c *models.Contact) error {
	if err := address.Verify(p.cfg.ProgramID, addr, c.Bump, address.NamespaceContact, c.Receiver[:]); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAddressMismatch, role, err)
	}
	return nil
}

func checkName(name string) error {
	if len(name) > models.MaxNameLen {
		return fmt.Errorf("%w: %d bytes, max %d", ErrNameTooLong, len(name), models.MaxNameLen)
	}
	return nil
}

func checkMessage(msg string) error {
	if len(msg) > models.MaxMessageLen {
		return fmt.Errorf("%w: %d bytes, max %d", ErrMessageTooLong, len(msg), models.MaxMessageLen)
	}
	return nil
}
