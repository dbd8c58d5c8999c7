package store

import (
	"context"
	"sync"
	"time"

	"github.com/eldtechnologies/ledgerchat/internal/address"
)

// MemoryStore keeps accounts in process memory. A single mutex serializes
// every transaction.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[address.Address]Account
}

// NewMemoryStore creates an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[address.Address]Account)}
}

func (s *MemoryStore) Close() {}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) GetAccount(ctx context.Context, addr address.Address) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(addr), nil
}

func (s *MemoryStore) get(addr address.Address) *Account {
	acct, ok := s.accounts[addr]
	if !ok {
		return nil
	}
	acct.Data = append([]byte(nil), acct.Data...)
	return &acct
}

func (s *MemoryStore) CountByKind(ctx context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int64)
	for _, acct := range s.accounts {
		counts[acct.Kind]++
	}
	return counts, nil
}

func (s *MemoryStore) Atomically(ctx context.Context, keys []address.Address, fn func(tx Tx) error) error {
	defer observe("memory", time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryTx{store: s, staged: newWriteSet()}
	if err := fn(tx); err != nil {
		return err
	}

	now := time.Now()
	return tx.staged.each(func(acct Account) error {
		acct.UpdatedAt = now
		s.accounts[acct.Address] = acct
		return nil
	})
}

type memoryTx struct {
	store  *MemoryStore
	staged *writeSet
}

func (tx *memoryTx) Get(ctx context.Context, addr address.Address) (*Account, error) {
	if acct, ok := tx.staged.get(addr); ok {
		return acct, nil
	}
	return tx.store.get(addr), nil
}

func (tx *memoryTx) Put(acct Account) {
	tx.staged.put(acct)
}

// MemoryNonces is a NonceCache for single-instance deployments without Redis.
type MemoryNonces struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

func NewMemoryNonces() *MemoryNonces {
	return &MemoryNonces{expires: make(map[string]time.Time), now: time.Now}
}

func (n *MemoryNonces) IsNonceUsed(ctx context.Context, signer, nonce string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	exp, ok := n.expires[nonceKey(signer, nonce)]
	return ok && n.now().Before(exp)
}

func (n *MemoryNonces) MarkNonceUsed(ctx context.Context, signer, nonce string, ttl time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	// Sweep expired entries so the map stays bounded by the TTL window.
	for k, exp := range n.expires {
		if !now.Before(exp) {
			delete(n.expires, k)
		}
	}
	n.expires[nonceKey(signer, nonce)] = now.Add(ttl)
}
