package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/chowfast/chowfast-api/internal/domain/entity"
	apperrors "github.com/chowfast/chowfast-api/internal/pkg/errors"
)

type CustomerRepo struct {
	db *gorm.DB
}

func NewCustomerRepo(db *gorm.DB) *CustomerRepo {
	return &CustomerRepo{db: db}
}

// Create inserts the row and then derives customer_id from the new key in
// the same transaction.
func (r *CustomerRepo) Create(ctx context.Context, customer *entity.Customer) error {
	err := conn(ctx, r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("CustomerID").Create(customer).Error; err != nil {
			return err
		}
		customer.CustomerID = entity.FormatCustomerID(customer.ID)
		return tx.Model(customer).UpdateColumn("customer_id", customer.CustomerID).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: phone number already registered", apperrors.ErrConflict)
		}
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

func (r *CustomerRepo) GetByCustomerID(ctx context.Context, customerID string) (*entity.Customer, error) {
	var customer entity.Customer
	if err := conn(ctx, r.db).Where("customer_id = ?", customerID).First(&customer).Error; err != nil {
		return nil, notFound(err)
	}
	return &customer, nil
}

func (r *CustomerRepo) List(ctx context.Context, limit, offset int) ([]entity.Customer, int64, error) {
	var (
		customers []entity.Customer
		total     int64
	)
	db := conn(ctx, r.db)
	if err := db.Model(&entity.Customer{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := db.Order("id ASC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&customers).Error; err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

func (r *CustomerRepo) Update(ctx context.Context, customerID string, updates map[string]interface{}) (*entity.Customer, error) {
	db := conn(ctx, r.db)
	if len(updates) > 0 {
		result := db.Model(&entity.Customer{}).Where("customer_id = ?", customerID).Updates(updates)
		if result.Error != nil {
			if isUniqueViolation(result.Error) {
				return nil, fmt.Errorf("%w: phone number already registered", apperrors.ErrConflict)
			}
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, apperrors.ErrNotFound
		}
	}
	return r.GetByCustomerID(ctx, customerID)
}

func (r *CustomerRepo) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	var count int64
	err := conn(ctx, r.db).Model(&entity.Customer{}).Where("phone_number = ?", phone).Count(&count).Error
	return count > 0, err
}
