package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/chowfast/chowfast-api/internal/domain/entity"
)

// VendorRepository persists vendor business profiles.
type VendorRepository interface {
	// Create returns ErrConflict when the user already has a profile.
	Create(ctx context.Context, vendor *entity.Vendor) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.Vendor, error)
}
