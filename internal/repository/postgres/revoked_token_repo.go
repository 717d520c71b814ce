package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/chowfast/chowfast-api/internal/domain/entity"
	apperrors "github.com/chowfast/chowfast-api/internal/pkg/errors"
)

type RevokedTokenRepo struct {
	db *gorm.DB
}

func NewRevokedTokenRepo(db *gorm.DB) *RevokedTokenRepo {
	return &RevokedTokenRepo{db: db}
}

func (r *RevokedTokenRepo) Revoke(ctx context.Context, token *entity.RevokedToken) error {
	result := conn(ctx, r.db).Exec(`
		INSERT INTO revoked_tokens (jti, user_id, expires_at, revoked_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (jti) DO NOTHING
	`, token.JTI, token.UserID, token.ExpiresAt, token.RevokedAt)
	if result.Error != nil {
		return fmt.Errorf("revoke token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: token already revoked", apperrors.ErrConflict)
	}
	return nil
}

func (r *RevokedTokenRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&entity.RevokedToken{}).Where("jti = ?", jti).Count(&count).Error
	return count > 0, err
}

func (r *RevokedTokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := conn(ctx, r.db).Where("expires_at <= ?", now).Delete(&entity.RevokedToken{})
	return result.RowsAffected, result.Error
}
