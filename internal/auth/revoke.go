package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zeyuan/appeal-service/internal/security"
)

// Revoker remembers signed-out token ids until they would have expired anyway.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	Revoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevoker keeps revocations in process memory.
type MemoryRevoker struct {
	items *security.ExpiringStore
}

// NewMemoryRevoker constructs an empty MemoryRevoker.
func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{items: security.NewExpiringStore()}
}

// Revoke records tokenID for ttl.
func (m *MemoryRevoker) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	m.items.Set(tokenID, "1", ttl)
	return nil
}

// Revoked reports whether tokenID was revoked.
func (m *MemoryRevoker) Revoked(_ context.Context, tokenID string) (bool, error) {
	_, ok := m.items.Get(tokenID)
	return ok, nil
}

// RedisRevoker shares revocations between server instances.
type RedisRevoker struct {
	client *redis.Client
	prefix string
}

// NewRedisRevoker constructs a RedisRevoker storing keys under "appeal-service:revoked:".
func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client, prefix: "appeal-service:revoked:"}
}

// Revoke stores the id with SET NX EX.
func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return r.client.SetNX(ctx, r.prefix+tokenID, 1, ttl).Err()
}

// Revoked checks key existence.
func (r *RedisRevoker) Revoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
