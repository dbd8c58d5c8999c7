package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eldtechnologies/ledgerchat/internal/address"
)

// maxWatchRetries bounds optimistic retries when a watched key changes
// between read and EXEC.
const maxWatchRetries = 16

// RedisStore keeps accounts in Redis hashes and tracks request nonces.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() {
	s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// accountKey returns the key for an account hash.
func accountKey(addr address.Address) string {
	return fmt.Sprintf("account:%s", addr)
}

// kindIndexKey returns the key for the set of addresses of one kind.
func kindIndexKey(kind string) string {
	return fmt.Sprintf("accounts:kind:%s", kind)
}

const kindsKey = "accounts:kinds"

// hashReader is satisfied by both *redis.Client and *redis.Tx.
type hashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

func redisGet(ctx context.Context, c hashReader, addr address.Address) (*Account, error) {
	fields, err := c.HGetAll(ctx, accountKey(addr)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	acct := &Account{
		Address: addr,
		Kind:    fields["kind"],
		Data:    []byte(fields["data"]),
	}
	if ms, err := strconv.ParseInt(fields["updated_at"], 10, 64); err == nil {
		acct.UpdatedAt = time.UnixMilli(ms)
	}
	return acct, nil
}

// GetAccount retrieves an account by address.
func (s *RedisStore) GetAccount(ctx context.Context, addr address.Address) (*Account, error) {
	return redisGet(ctx, s.client, addr)
}

// CountByKind counts stored accounts per kind.
func (s *RedisStore) CountByKind(ctx context.Context) (map[string]int64, error) {
	kinds, err := s.client.SMembers(ctx, kindsKey).Result()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(kinds))
	for _, kind := range kinds {
		n, err := s.client.SCard(ctx, kindIndexKey(kind)).Result()
		if err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, nil
}

// Atomically watches every key, runs fn, and commits staged writes in one
// MULTI/EXEC. If a watched key changed meanwhile the whole transaction,
// fn included, is re-run against fresh state.
func (s *RedisStore) Atomically(ctx context.Context, keys []address.Address, fn func(tx Tx) error) error {
	defer observe("redis", time.Now())

	watched := make([]string, 0, len(keys))
	for _, k := range sortedKeys(keys) {
		watched = append(watched, accountKey(k))
	}

	txf := func(rtx *redis.Tx) error {
		tx := &redisTx{tx: rtx, staged: newWriteSet()}
		if err := fn(tx); err != nil {
			return err
		}

		now := strconv.FormatInt(time.Now().UnixMilli(), 10)
		_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return tx.staged.each(func(acct Account) error {
				pipe.HSet(ctx, accountKey(acct.Address),
					"kind", acct.Kind,
					"data", acct.Data,
					"updated_at", now,
				)
				pipe.SAdd(ctx, kindIndexKey(acct.Kind), acct.Address.String())
				pipe.SAdd(ctx, kindsKey, acct.Kind)
				return nil
			})
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.client.Watch(ctx, txf, watched...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}

type redisTx struct {
	tx     *redis.Tx
	staged *writeSet
}

func (t *redisTx) Get(ctx context.Context, addr address.Address) (*Account, error) {
	if acct, ok := t.staged.get(addr); ok {
		return acct, nil
	}
	return redisGet(ctx, t.tx, addr)
}

func (t *redisTx) Put(acct Account) {
	t.staged.put(acct)
}

// nonceKey returns the key for nonce tracking.
func nonceKey(signer, nonce string) string {
	return fmt.Sprintf("nonce:%s:%s", signer, nonce)
}

// IsNonceUsed checks if a nonce has been used.
func (s *RedisStore) IsNonceUsed(ctx context.Context, signer, nonce string) bool {
	key := nonceKey(signer, nonce)
	exists, _ := s.client.Exists(ctx, key).Result()
	return exists > 0
}

// MarkNonceUsed marks a nonce as used with a TTL.
func (s *RedisStore) MarkNonceUsed(ctx context.Context, signer, nonce string, ttl time.Duration) {
	key := nonceKey(signer, nonce)
	s.client.Set(ctx, key, "1", ttl)
}
