package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chowfast/chowfast-api/internal/domain/entity"
)

type OneTimeCodeRepo struct {
	db *gorm.DB
}

func NewOneTimeCodeRepo(db *gorm.DB) *OneTimeCodeRepo {
	return &OneTimeCodeRepo{db: db}
}

func (r *OneTimeCodeRepo) Create(ctx context.Context, code *entity.OneTimeCode) error {
	if err := conn(ctx, r.db).Create(code).Error; err != nil {
		return fmt.Errorf("create one-time code: %w", err)
	}
	return nil
}

func (r *OneTimeCodeRepo) GetLatest(ctx context.Context, userID uuid.UUID, purpose entity.Purpose) (*entity.OneTimeCode, error) {
	var code entity.OneTimeCode
	err := conn(ctx, r.db).
		Where("user_id = ? AND purpose = ?", userID, purpose).
		Order("created_at DESC, id DESC").
		First(&code).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &code, nil
}

func (r *OneTimeCodeRepo) Delete(ctx context.Context, id uint) error {
	return conn(ctx, r.db).Delete(&entity.OneTimeCode{}, id).Error
}

func (r *OneTimeCodeRepo) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := conn(ctx, r.db).Where("created_at < ?", cutoff).Delete(&entity.OneTimeCode{})
	return result.RowsAffected, result.Error
}
