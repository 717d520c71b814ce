package redis

import (
	"context"
	"time"

	"github.com/chowfast/chowfast-api/internal/domain/entity"
	"github.com/chowfast/chowfast-api/internal/domain/repository"
	"github.com/chowfast/chowfast-api/internal/logger"
)

const revokedKeyPrefix = "revoked_jti:"

// RevokedTokenCache fronts the durable blacklist with Redis. Postgres stays
// the source of truth; cache failures fall back to it.
type RevokedTokenCache struct {
	store repository.RevokedTokenRepository
	cache repository.CacheRepository
	now   func() time.Time
}

func NewRevokedTokenCache(store repository.RevokedTokenRepository, cache repository.CacheRepository) *RevokedTokenCache {
	return &RevokedTokenCache{store: store, cache: cache, now: time.Now}
}

func (c *RevokedTokenCache) Revoke(ctx context.Context, token *entity.RevokedToken) error {
	if err := c.store.Revoke(ctx, token); err != nil {
		return err
	}
	c.remember(ctx, token.JTI, token.ExpiresAt)
	return nil
}

func (c *RevokedTokenCache) IsRevoked(ctx context.Context, jti string) (bool, error) {
	hit, err := c.cache.Exists(ctx, revokedKeyPrefix+jti)
	if err != nil {
		logger.WithComponent("revoked_token_cache").Warnf("cache lookup failed, using database: %v", err)
	} else if hit {
		return true, nil
	}
	return c.store.IsRevoked(ctx, jti)
}

func (c *RevokedTokenCache) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return c.store.DeleteExpired(ctx, now)
}

func (c *RevokedTokenCache) remember(ctx context.Context, jti string, expiresAt time.Time) {
	ttl := expiresAt.Sub(c.now())
	if ttl <= 0 {
		return
	}
	if err := c.cache.Set(ctx, revokedKeyPrefix+jti, 1, ttl); err != nil {
		logger.WithComponent("revoked_token_cache").Warnf("failed to cache revoked jti: %v", err)
	}
}
