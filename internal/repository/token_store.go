package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/classroom-backend/internal/config"
)

// TokenStore keeps revoked JWT ids in Redis until the tokens would expire anyway.
type TokenStore struct {
	rdb *redis.Client
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(rdb *redis.Client) *TokenStore {
	return &TokenStore{rdb: rdb}
}

// Revoke marks the token id as logged out for ttl.
func (s *TokenStore) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, config.CacheKey.RevokedTokenKey(jti), 1, ttl).Err()
}

// IsRevoked reports whether the token id was logged out.
func (s *TokenStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.rdb.Exists(ctx, config.CacheKey.RevokedTokenKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RateCounter counts requests per key in fixed windows.
type RateCounter struct {
	rdb *redis.Client
}

// NewRateCounter creates a new RateCounter.
func NewRateCounter(rdb *redis.Client) *RateCounter {
	return &RateCounter{rdb: rdb}
}

// Incr increments the counter for key and returns the new value. The key
// expires after window so stale windows clean themselves up.
func (c *RateCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
