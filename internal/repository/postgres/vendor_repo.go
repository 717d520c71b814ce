package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chowfast/chowfast-api/internal/domain/entity"
	apperrors "github.com/chowfast/chowfast-api/internal/pkg/errors"
)

type VendorRepo struct {
	db *gorm.DB
}

func NewVendorRepo(db *gorm.DB) *VendorRepo {
	return &VendorRepo{db: db}
}

func (r *VendorRepo) Create(ctx context.Context, vendor *entity.Vendor) error {
	if err := conn(ctx, r.db).Create(vendor).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: vendor profile already exists", apperrors.ErrConflict)
		}
		return fmt.Errorf("create vendor: %w", err)
	}
	return nil
}

func (r *VendorRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.Vendor, error) {
	var vendor entity.Vendor
	if err := conn(ctx, r.db).Where("user_id = ?", userID).First(&vendor).Error; err != nil {
		return nil, notFound(err)
	}
	return &vendor, nil
}
