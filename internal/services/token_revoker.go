package services

import (
	"context"
	"sync"
	"time"

	"github.com/huangang/ideaforge/backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// TokenRevoker remembers logged-out tokens (by jti) until they would have
// expired anyway.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// NewTokenRevoker picks the Redis revoker when Redis is enabled so revocation
// is shared across instances; otherwise revocations live in process memory.
func NewTokenRevoker(cfg *config.RedisConfig) TokenRevoker {
	if cfg != nil && cfg.Enabled {
		return NewRedisTokenRevoker(redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}))
	}
	return NewMemoryTokenRevoker()
}

// MemoryTokenRevoker keeps revoked token ids in memory (single instance only).
type MemoryTokenRevoker struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	now    func() time.Time
}

func NewMemoryTokenRevoker() *MemoryTokenRevoker {
	return &MemoryTokenRevoker{
		tokens: make(map[string]time.Time),
		now:    time.Now,
	}
}

func (r *MemoryTokenRevoker) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 || tokenID == "" {
		return nil
	}
	r.mu.Lock()
	r.tokens[tokenID] = r.now().Add(ttl)
	r.mu.Unlock()
	return nil
}

func (r *MemoryTokenRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	expiry, ok := r.tokens[tokenID]
	if !ok {
		return false, nil
	}
	if r.now().After(expiry) {
		delete(r.tokens, tokenID)
		return false, nil
	}
	return true, nil
}

// RedisTokenRevoker stores revoked token ids in Redis with a TTL.
type RedisTokenRevoker struct {
	client *redis.Client
}

func NewRedisTokenRevoker(client *redis.Client) *RedisTokenRevoker {
	return &RedisTokenRevoker{client: client}
}

func (r *RedisTokenRevoker) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 || tokenID == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return r.client.Set(ctx, revocationKey(tokenID), "1", ttl).Err()
}

func (r *RedisTokenRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	n, err := r.client.Exists(ctx, revocationKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close releases the Redis connection pool.
func (r *RedisTokenRevoker) Close() error {
	return r.client.Close()
}

func revocationKey(tokenID string) string {
	return "ideaforge:revoked:" + tokenID
}
