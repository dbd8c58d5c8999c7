package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eldtechnologies/ledgerchat/internal/address"
)

// SQLiteStore keeps accounts in a single SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/ledgerchat.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/ledgerchat.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	// _txlock=immediate takes the write lock at BEGIN, which serializes
	// read-modify-write transactions instead of failing them at commit.
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		address TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		data BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_kind ON accounts(kind);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetAccount retrieves an account by address.
func (s *SQLiteStore) GetAccount(ctx context.Context, addr address.Address) (*Account, error) {
	return sqliteGet(ctx, s.db, addr)
}

type sqliteQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func sqliteGet(ctx context.Context, q sqliteQuerier, addr address.Address) (*Account, error) {
	acct := &Account{Address: addr}
	err := q.QueryRowContext(ctx, `
		SELECT kind, data, updated_at FROM accounts WHERE address = ?
	`, addr.String()).Scan(
		&acct.Kind,
		&acct.Data,
		&acct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return acct, nil
}

// CountByKind counts stored accounts per kind.
func (s *SQLiteStore) CountByKind(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM accounts GROUP BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

// Atomically runs fn inside an immediate transaction.
func (s *SQLiteStore) Atomically(ctx context.Context, keys []address.Address, fn func(tx Tx) error) error {
	defer observe("sqlite", time.Now())

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer sqlTx.Rollback()

	tx := &sqliteTx{tx: sqlTx, staged: newWriteSet()}
	if err := fn(tx); err != nil {
		return err
	}

	now := time.Now()
	err = tx.staged.each(func(acct Account) error {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO accounts (address, kind, data, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(address) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
		`, acct.Address.String(), acct.Kind, acct.Data, now, now)
		return err
	})
	if err != nil {
		return fmt.Errorf("write accounts: %w", err)
	}

	return sqlTx.Commit()
}

type sqliteTx struct {
	tx     *sql.Tx
	staged *writeSet
}

func (t *sqliteTx) Get(ctx context.Context, addr address.Address) (*Account, error) {
	if acct, ok := t.staged.get(addr); ok {
		return acct, nil
	}
	return sqliteGet(ctx, t.tx, addr)
}

func (t *sqliteTx) Put(acct Account) {
	t.staged.put(acct)
}
