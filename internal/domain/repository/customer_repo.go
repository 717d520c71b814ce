package repository

import (
	"context"

	"github.com/chowfast/chowfast-api/internal/domain/entity"
)

// CustomerRepository persists customer records.
type CustomerRepository interface {
	// Create assigns ID and CustomerID. Returns ErrConflict on a duplicate phone.
	Create(ctx context.Context, customer *entity.Customer) error
	GetByCustomerID(ctx context.Context, customerID string) (*entity.Customer, error)
	// List returns a page ordered by id and the total count.
	List(ctx context.Context, limit, offset int) ([]entity.Customer, int64, error)
	// Update applies the non-nil fields. Returns ErrConflict on a duplicate phone.
	Update(ctx context.Context, customerID string, updates map[string]interface{}) (*entity.Customer, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
}
