package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chowfast/chowfast-api/internal/config"
	"github.com/chowfast/chowfast-api/internal/domain/entity"
	"github.com/chowfast/chowfast-api/internal/domain/repository"
	"github.com/chowfast/chowfast-api/internal/logger"
	apperrors "github.com/chowfast/chowfast-api/internal/pkg/errors"
)

// Verification outcomes. Each wraps an application error kind.
var (
	ErrOTPNotFound  = fmt.Errorf("%w: no OTP found", apperrors.ErrNotFound)
	ErrOTPExpired   = fmt.Errorf("%w: OTP has expired", apperrors.ErrExpiredToken)
	ErrOTPMismatch  = fmt.Errorf("%w: invalid OTP", apperrors.ErrInvalidCredentials)
	ErrOTPThrottled = fmt.Errorf("%w: too many failed OTP attempts", apperrors.ErrTooManyRequests)
)

// OTPManager issues and checks numeric one-time codes.
type OTPManager interface {
	Issue(ctx context.Context, userID uuid.UUID, purpose entity.Purpose) (*entity.OneTimeCode, string, error)
	Verify(ctx context.Context, userID uuid.UUID, purpose entity.Purpose, candidate string) (*entity.OneTimeCode, error)
	Consume(ctx context.Context, code *entity.OneTimeCode) error
	Validity() time.Duration
	Length() int
}

// OTPService stores only bcrypt hashes of issued codes. Earlier codes are
// never invalidated explicitly; the newest one per (user, purpose) wins.
type OTPService struct {
	codes         repository.OneTimeCodeRepository
	attempts      repository.AttemptCounter
	length        int
	validity      time.Duration
	maxAttempts   int
	attemptWindow time.Duration
	now           func() time.Time
}

// NewOTPService builds the manager. attempts may be nil to disable throttling.
func NewOTPService(codes repository.OneTimeCodeRepository, attempts repository.AttemptCounter, policy config.SignupConfig) (*OTPService, error) {
	if codes == nil {
		return nil, fmt.Errorf("OneTimeCodeRepository is required for OTPService")
	}
	s := &OTPService{
		codes:         codes,
		attempts:      attempts,
		length:        policy.OTPLength,
		validity:      policy.OTPValidity,
		maxAttempts:   policy.MaxOTPAttempts,
		attemptWindow: policy.OTPAttemptWindow,
		now:           time.Now,
	}
	if s.length <= 0 {
		s.length = 6
	}
	if s.validity <= 0 {
		s.validity = 10 * time.Minute
	}
	if s.attemptWindow <= 0 {
		s.attemptWindow = s.validity
	}
	return s, nil
}

func (s *OTPService) Validity() time.Duration { return s.validity }

func (s *OTPService) Length() int { return s.length }

// Issue creates a new code for (userID, purpose) and returns it in clear
// for out-of-band delivery.
func (s *OTPService) Issue(ctx context.Context, userID uuid.UUID, purpose entity.Purpose) (*entity.OneTimeCode, string, error) {
	if !purpose.Valid() {
		return nil, "", fmt.Errorf("%w: unknown purpose %q", apperrors.ErrValidation, purpose)
	}
	raw, err := generateNumericCode(s.length)
	if err != nil {
		return nil, "", fmt.Errorf("generate otp: %w", err)
	}
	record := &entity.OneTimeCode{
		UserID:    userID,
		Purpose:   purpose,
		CreatedAt: s.now(),
	}
	if err := record.SetCode(raw); err != nil {
		return nil, "", fmt.Errorf("hash otp: %w", err)
	}
	if err := s.codes.Create(ctx, record); err != nil {
		return nil, "", err
	}
	return record, raw, nil
}

// Verify checks candidate against the latest code. A mismatch leaves the
// record untouched and only counts towards the attempt budget.
func (s *OTPService) Verify(ctx context.Context, userID uuid.UUID, purpose entity.Purpose, candidate string) (*entity.OneTimeCode, error) {
	key := attemptKey(userID, purpose)
	if s.throttled() {
		count, err := s.attempts.Count(ctx, key)
		if err != nil {
			logger.WithComponent("otp").Warnf("attempt counter unavailable, skipping throttle: %v", err)
		} else if count >= int64(s.maxAttempts) {
			return nil, ErrOTPThrottled
		}
	}

	record, err := s.codes.GetLatest(ctx, userID, purpose)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrOTPNotFound
		}
		return nil, fmt.Errorf("load otp: %w", err)
	}
	if record.IsExpired(s.now(), s.validity) {
		return nil, ErrOTPExpired
	}
	if !record.Matches(strings.TrimSpace(candidate)) {
		s.recordFailure(ctx, key)
		return nil, ErrOTPMismatch
	}

	if s.throttled() {
		if err := s.attempts.Reset(ctx, key); err != nil {
			logger.WithComponent("otp").Warnf("failed to reset attempt counter: %v", err)
		}
	}
	return record, nil
}

// Consume deletes a verified code.
func (s *OTPService) Consume(ctx context.Context, code *entity.OneTimeCode) error {
	return s.codes.Delete(ctx, code.ID)
}

func (s *OTPService) throttled() bool {
	return s.attempts != nil && s.maxAttempts > 0
}

func (s *OTPService) recordFailure(ctx context.Context, key string) {
	if !s.throttled() {
		return
	}
	if _, err := s.attempts.Increment(ctx, key, s.attemptWindow); err != nil {
		logger.WithComponent("otp").Warnf("failed to record otp failure: %v", err)
	}
}

func attemptKey(userID uuid.UUID, purpose entity.Purpose) string {
	return userID.String() + ":" + string(purpose)
}

func generateNumericCode(length int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	digits := n.String()
	return strings.Repeat("0", length-len(digits)) + digits, nil
}
