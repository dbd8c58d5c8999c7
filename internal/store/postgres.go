package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eldtechnologies/ledgerchat/internal/address"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// GetAccount retrieves an account by address.
func (s *PostgresStore) GetAccount(ctx context.Context, addr address.Address) (*Account, error) {
	return pgGet(ctx, s.pool, addr)
}

type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func pgGet(ctx context.Context, q pgQuerier, addr address.Address) (*Account, error) {
	acct := &Account{Address: addr}
	err := q.QueryRow(ctx, `
		SELECT kind, data, updated_at FROM accounts WHERE address = $1
	`, addr.String()).Scan(
		&acct.Kind,
		&acct.Data,
		&acct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return acct, nil
}

// CountByKind counts stored accounts per kind.
func (s *PostgresStore) CountByKind(ctx context.Context) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT kind, COUNT(*) FROM accounts GROUP BY kind`)
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

// Atomically runs fn in a transaction holding an advisory lock per key.
// Locks are taken in sorted order so overlapping transactions cannot deadlock.
func (s *PostgresStore) Atomically(ctx context.Context, keys []address.Address, fn func(tx Tx) error) error {
	defer observe("postgres", time.Now())

	return pgx.BeginFunc(ctx, s.pool, func(pgTx pgx.Tx) error {
		for _, key := range sortedKeys(keys) {
			if _, err := pgTx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key.String()); err != nil {
				return fmt.Errorf("lock %s: %w", key, err)
			}
		}

		tx := &postgresTx{tx: pgTx, staged: newWriteSet()}
		if err := fn(tx); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		tx.staged.each(func(acct Account) error {
			batch.Queue(`
				INSERT INTO accounts (address, kind, data)
				VALUES ($1, $2, $3)
				ON CONFLICT (address) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
			`, acct.Address.String(), acct.Kind, acct.Data)
			return nil
		})
		if batch.Len() == 0 {
			return nil
		}
		if err := pgTx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("write accounts: %w", err)
		}
		return nil
	})
}

type postgresTx struct {
	tx     pgx.Tx
	staged *writeSet
}

func (t *postgresTx) Get(ctx context.Context, addr address.Address) (*Account, error) {
	if acct, ok := t.staged.get(addr); ok {
		return acct, nil
	}
	return pgGet(ctx, t.tx, addr)
}

func (t *postgresTx) Put(acct Account) {
	t.staged.put(acct)
}
