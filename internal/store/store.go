package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/eldtechnologies/ledgerchat/internal/address"
	"github.com/eldtechnologies/ledgerchat/internal/metrics"
)

// ErrConflict is returned when a driver could not serialize a transaction
// after its retry budget.
var ErrConflict = errors.New("store: conflicting concurrent update")

// Account is one persisted record. Kind is informational; the data carries
// its own discriminator.
type Account struct {
	Address   address.Address
	Kind      string
	Data      []byte
	UpdatedAt time.Time
}

// Ledger is the account substrate. Memory, SQLite, Postgres and Redis
// drivers implement it.
type Ledger interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// GetAccount returns (nil, nil) when no account is stored at addr.
	GetAccount(ctx context.Context, addr address.Address) (*Account, error)
	CountByKind(ctx context.Context) (map[string]int64, error)

	// Atomically runs fn with exclusive access to keys. Writes staged through
	// the Tx are committed together only if fn returns nil.
	Atomically(ctx context.Context, keys []address.Address, fn func(tx Tx) error) error
}

// Tx is the view of the ledger inside Atomically. Get observes writes
// already staged in the same transaction.
type Tx interface {
	Get(ctx context.Context, addr address.Address) (*Account, error)
	Put(acct Account)
}

// NonceCache remembers signed-request nonces to reject replays.
type NonceCache interface {
	IsNonceUsed(ctx context.Context, signer, nonce string) bool
	MarkNonceUsed(ctx context.Context, signer, nonce string, ttl time.Duration)
}

// writeSet stages puts in insertion order, last put per address wins.
type writeSet struct {
	order  []address.Address
	writes map[address.Address]Account
}

func newWriteSet() *writeSet {
	return &writeSet{writes: make(map[address.Address]Account)}
}

func (w *writeSet) put(acct Account) {
	if _, ok := w.writes[acct.Address]; !ok {
		w.order = append(w.order, acct.Address)
	}
	acct.Data = append([]byte(nil), acct.Data...)
	w.writes[acct.Address] = acct
}

func (w *writeSet) get(addr address.Address) (*Account, bool) {
	acct, ok := w.writes[addr]
	if !ok {
		return nil, false
	}
	acct.Data = append([]byte(nil), acct.Data...)
	return &acct, true
}

func (w *writeSet) each(fn func(acct Account) error) error {
	for _, addr := range w.order {
		if err := fn(w.writes[addr]); err != nil {
			return err
		}
	}
	return nil
}

// sortedKeys returns keys deduplicated in ascending byte order, the lock
// acquisition order for drivers that lock per key.
func sortedKeys(keys []address.Address) []address.Address {
	seen := make(map[address.Address]bool, len(keys))
	out := make([]address.Address, 0, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return address.Compare(out[i], out[j]) < 0
	})
	return out
}

func observe(driver string, start time.Time) {
	metrics.StoreLatency.WithLabelValues(driver).Observe(time.Since(start).Seconds())
}
