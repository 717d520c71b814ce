package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chowfast/chowfast-api/internal/domain/entity"
)

// SessionTokenRepository persists single-use session tokens.
type SessionTokenRepository interface {
	Create(ctx context.Context, token *entity.SessionToken) error
	// GetUnused returns ErrNotFound unless an unused token with id and purpose exists.
	GetUnused(ctx context.Context, id uuid.UUID, purpose entity.Purpose) (*entity.SessionToken, error)
	// MarkUnusedAsUsed flags every unused token of (userID, purpose) as used.
	MarkUnusedAsUsed(ctx context.Context, userID uuid.UUID, purpose entity.Purpose) (int64, error)
	// MarkUsed flips is_used only if it is still false. ErrNotFound means
	// the token was already used or does not exist.
	MarkUsed(ctx context.Context, id uuid.UUID) error
	// Delete returns ErrNotFound when no row was removed.
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteDead removes used tokens and tokens that expired before cutoff.
	DeleteDead(ctx context.Context, cutoff time.Time) (int64, error)
}
