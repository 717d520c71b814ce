package repository

import (
	"context"
	"time"

	"github.com/chowfast/chowfast-api/internal/domain/entity"
)

// RevokedTokenRepository is the refresh token blacklist.
type RevokedTokenRepository interface {
	// Revoke returns ErrConflict when the jti is already blacklisted.
	Revoke(ctx context.Context, token *entity.RevokedToken) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
