package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/chowfast/chowfast-api/internal/domain/entity"
)

// UserRepository persists accounts.
type UserRepository interface {
	// Create returns ErrConflict when the email is already registered.
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	Activate(ctx context.Context, id uuid.UUID) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	// SetPhoneNumber returns ErrConflict when another account holds phone.
	SetPhoneNumber(ctx context.Context, id uuid.UUID, phone string) error
}
