package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/chowfast/chowfast-api/internal/domain/entity"
	"github.com/chowfast/chowfast-api/internal/domain/repository"
	apperrors "github.com/chowfast/chowfast-api/internal/pkg/errors"
)

const (
	// width of customers.phone_number
	maxCustomerPhoneLength = 20
	maxLocationLength      = 255
	defaultPageSize        = 50
	maxPageSize            = 200
)

// CreateCustomerInput holds the fields required to register a customer.
type CreateCustomerInput struct {
	PhoneNumber     string
	Location        string
	DeliveryAddress string
}

// UpdateCustomerInput holds a partial update; nil fields are left untouched.
type UpdateCustomerInput struct {
	PhoneNumber     *string
	Location        *string
	DeliveryAddress *string
}

// CustomerPage is one page of customers.
type CustomerPage struct {
	Customers []entity.Customer
	Total     int64
	Limit     int
	Offset    int
}

type CustomerService struct {
	customers repository.CustomerRepository
}

func NewCustomerService(customers repository.CustomerRepository) (*CustomerService, error) {
	if customers == nil {
		return nil, fmt.Errorf("CustomerRepository is required for CustomerService")
	}
	return &CustomerService{customers: customers}, nil
}

func (s *CustomerService) Create(ctx context.Context, in CreateCustomerInput) (*entity.Customer, error) {
	c := &entity.Customer{
		PhoneNumber:     strings.TrimSpace(in.PhoneNumber),
		Location:        strings.TrimSpace(in.Location),
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
	}
	fields := map[string]string{}
	validateCustomerPhone(c.PhoneNumber, fields)
	validateLocation(c.Location, fields)
	if c.DeliveryAddress == "" {
		fields["delivery_address"] = "This field is required."
	}
	if len(fields) > 0 {
		return nil, &apperrors.FieldError{Fields: fields}
	}

	exists, err := s.customers.ExistsByPhone(ctx, c.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("check phone: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: a customer with this phone number already exists", apperrors.ErrConflict)
	}
	if err := s.customers.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CustomerService) Get(ctx context.Context, customerID string) (*entity.Customer, error) {
	return s.customers.GetByCustomerID(ctx, strings.TrimSpace(customerID))
}

// List returns a page of customers. A zero limit selects the default size.
func (s *CustomerService) List(ctx context.Context, limit, offset int) (*CustomerPage, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	customers, total, err := s.customers.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return &CustomerPage{Customers: customers, Total: total, Limit: limit, Offset: offset}, nil
}

// All returns every customer, for exports.
func (s *CustomerService) All(ctx context.Context) ([]entity.Customer, error) {
	customers, _, err := s.customers.List(ctx, 0, 0)
	return customers, err
}

func (s *CustomerService) Update(ctx context.Context, customerID string, in UpdateCustomerInput) (*entity.Customer, error) {
	current, err := s.customers.GetByCustomerID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	fields := map[string]string{}
	if in.PhoneNumber != nil {
		phone := strings.TrimSpace(*in.PhoneNumber)
		validateCustomerPhone(phone, fields)
		if phone != current.PhoneNumber {
			updates["phone_number"] = phone
		}
	}
	if in.Location != nil {
		loc := strings.TrimSpace(*in.Location)
		validateLocation(loc, fields)
		updates["location"] = loc
	}
	if in.DeliveryAddress != nil {
		addr := strings.TrimSpace(*in.DeliveryAddress)
		if addr == "" {
			fields["delivery_address"] = "This field may not be blank."
		}
		updates["delivery_address"] = addr
	}
	if len(fields) > 0 {
		return nil, &apperrors.FieldError{Fields: fields}
	}

	if phone, ok := updates["phone_number"].(string); ok {
		exists, err := s.customers.ExistsByPhone(ctx, phone)
		if err != nil {
			return nil, fmt.Errorf("check phone: %w", err)
		}
		if exists {
			return nil, fmt.Errorf("%w: a customer with this phone number already exists", apperrors.ErrConflict)
		}
	}
	if len(updates) == 0 {
		return current, nil
	}
	return s.customers.Update(ctx, customerID, updates)
}

func validateCustomerPhone(phone string, fields map[string]string) {
	if len(phone) > maxCustomerPhoneLength || !customerPhonePattern.MatchString(phone) {
		fields["phone_number"] = "Phone number must be entered in the format: '+999999999'. Up to 15 digits allowed."
	}
}

func validateLocation(loc string, fields map[string]string) {
	switch {
	case loc == "":
		fields["location"] = "This field is required."
	case len(loc) > maxLocationLength:
		fields["location"] = fmt.Sprintf("Ensure this field has no more than %d characters.", maxLocationLength)
	}
}
