package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chowfast/chowfast-api/internal/domain/entity"
	apperrors "github.com/chowfast/chowfast-api/internal/pkg/errors"
)

type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	if err := conn(ctx, r.db).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: email already registered", apperrors.ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	var user entity.User
	if err := conn(ctx, r.db).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	if err := conn(ctx, r.db).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&entity.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

func (r *UserRepo) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&entity.User{}).Where("phone_number = ?", phone).Count(&count).Error
	return count > 0, err
}

func (r *UserRepo) Activate(ctx context.Context, id uuid.UUID) error {
	return r.updateColumn(ctx, id, "is_activated", true)
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.updateColumn(ctx, id, "last_login", at)
}

func (r *UserRepo) SetPhoneNumber(ctx context.Context, id uuid.UUID, phone string) error {
	err := r.updateColumn(ctx, id, "phone_number", phone)
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("%w: phone number already in use", apperrors.ErrConflict)
	}
	return err
}

// updateColumn skips hooks so BeforeSave never touches the password.
func (r *UserRepo) updateColumn(ctx context.Context, id uuid.UUID, column string, value interface{}) error {
	result := conn(ctx, r.db).Model(&entity.User{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{column: value, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
