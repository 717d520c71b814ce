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

type SessionTokenRepo struct {
	db *gorm.DB
}

func NewSessionTokenRepo(db *gorm.DB) *SessionTokenRepo {
	return &SessionTokenRepo{db: db}
}

func (r *SessionTokenRepo) Create(ctx context.Context, token *entity.SessionToken) error {
	if err := conn(ctx, r.db).Create(token).Error; err != nil {
		return fmt.Errorf("create session token: %w", err)
	}
	return nil
}

func (r *SessionTokenRepo) GetUnused(ctx context.Context, id uuid.UUID, purpose entity.Purpose) (*entity.SessionToken, error) {
	var token entity.SessionToken
	err := conn(ctx, r.db).
		Where("id = ? AND purpose = ? AND is_used = ?", id, purpose, false).
		First(&token).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &token, nil
}

func (r *SessionTokenRepo) MarkUnusedAsUsed(ctx context.Context, userID uuid.UUID, purpose entity.Purpose) (int64, error) {
	result := conn(ctx, r.db).Model(&entity.SessionToken{}).
		Where("user_id = ? AND purpose = ? AND is_used = ?", userID, purpose, false).
		Updates(map[string]interface{}{"is_used": true, "updated_at": time.Now()})
	return result.RowsAffected, result.Error
}

// MarkUsed is a compare-and-set on is_used; the loser of a race sees zero rows.
func (r *SessionTokenRepo) MarkUsed(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Model(&entity.SessionToken{}).
		Where("id = ? AND is_used = ?", id, false).
		Updates(map[string]interface{}{"is_used": true, "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *SessionTokenRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result := conn(ctx, r.db).Where("id = ?", id).Delete(&entity.SessionToken{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *SessionTokenRepo) DeleteDead(ctx context.Context, cutoff time.Time) (int64, error) {
	result := conn(ctx, r.db).
		Where("is_used = ? OR expires_at <= ?", true, cutoff).
		Delete(&entity.SessionToken{})
	return result.RowsAffected, result.Error
}
