package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chowfast/chowfast-api/internal/domain/entity"
)

// OneTimeCodeRepository persists hashed one-time codes.
type OneTimeCodeRepository interface {
	Create(ctx context.Context, code *entity.OneTimeCode) error
	// GetLatest returns the most recently created code for (userID, purpose).
	GetLatest(ctx context.Context, userID uuid.UUID, purpose entity.Purpose) (*entity.OneTimeCode, error)
	Delete(ctx context.Context, id uint) error
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
