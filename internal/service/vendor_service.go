package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/chowfast/chowfast-api/internal/domain/entity"
	"github.com/chowfast/chowfast-api/internal/domain/repository"
	"github.com/chowfast/chowfast-api/internal/logger"
	apperrors "github.com/chowfast/chowfast-api/internal/pkg/errors"
)

const maxBusinessNameLength = 200

// CompleteProfileInput is the vendor business profile submitted after activation.
type CompleteProfileInput struct {
	PhoneNumber  string
	BusinessName string
	Address      string
}

// VendorService completes vendor profiles.
type VendorService struct {
	users   repository.UserRepository
	vendors repository.VendorRepository
	tx      repository.Transactor
	email   EmailService
}

func NewVendorService(users repository.UserRepository, vendors repository.VendorRepository, tx repository.Transactor, email EmailService) (*VendorService, error) {
	if users == nil || vendors == nil || tx == nil {
		return nil, fmt.Errorf("VendorService requires users, vendors and tx")
	}
	if email == nil {
		email = &NoopEmailService{}
	}
	return &VendorService{users: users, vendors: vendors, tx: tx, email: email}, nil
}

func validateProfile(in *CompleteProfileInput) error {
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.BusinessName = strings.TrimSpace(in.BusinessName)
	in.Address = strings.TrimSpace(in.Address)

	fields := map[string]string{}
	if !vendorPhonePattern.MatchString(in.PhoneNumber) {
		fields["phone_number"] = "Phone number must be in the format: '+999999999'. Up to 15 digits allowed."
	}
	switch n := utf8.RuneCountInString(in.BusinessName); {
	case n == 0:
		fields["business_name"] = "This field is required."
	case n > maxBusinessNameLength:
		fields["business_name"] = fmt.Sprintf("Ensure this field has no more than %d characters.", maxBusinessNameLength)
	}
	if len(fields) > 0 {
		return &apperrors.FieldError{Fields: fields}
	}
	return nil
}

// CompleteProfile attaches a verified business profile and a phone number
// to an activated vendor account.
func (s *VendorService) CompleteProfile(ctx context.Context, userID uuid.UUID, in CompleteProfileInput) (*entity.Vendor, error) {
	if err := validateProfile(&in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user.UserType != entity.UserTypeVendor {
		return nil, fmt.Errorf("%w: only vendor accounts can complete a vendor profile", apperrors.ErrForbidden)
	}
	if !user.IsActivated {
		return nil, fmt.Errorf("%w: account is not activated", apperrors.ErrForbidden)
	}

	if _, err := s.vendors.GetByUserID(ctx, userID); err == nil {
		return nil, fmt.Errorf("%w: vendor profile already completed", apperrors.ErrConflict)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("load vendor: %w", err)
	}

	if user.PhoneNumber == nil || *user.PhoneNumber != in.PhoneNumber {
		taken, err := s.users.ExistsByPhone(ctx, in.PhoneNumber)
		if err != nil {
			return nil, fmt.Errorf("check phone: %w", err)
		}
		if taken {
			return nil, apperrors.NewFieldError("phone_number", "This phone number is already in use.")
		}
	}

	vendor := &entity.Vendor{
		UserID:       userID,
		BusinessName: in.BusinessName,
		Address:      in.Address,
		Verified:     true,
		CreatedAt:    time.Now(),
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.users.SetPhoneNumber(ctx, userID, in.PhoneNumber); err != nil {
			return err
		}
		return s.vendors.Create(ctx, vendor)
	})
	if err != nil {
		return nil, err
	}

	log := logger.WithComponent("vendor").WithField("user_id", userID)
	log.WithField("vendor_id", vendor.ID).Info("vendor profile completed")
	if err := s.email.SendWelcome(ctx, user.Email, vendor.BusinessName); err != nil {
		log.Errorf("failed to send welcome email: %v", err)
	}
	return vendor, nil
}
