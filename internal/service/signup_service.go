package service

import (
	"context"
	"fmt"
	"time"

	"github.com/chowfast/chowfast-api/internal/config"
	"github.com/chowfast/chowfast-api/internal/domain/entity"
	"github.com/chowfast/chowfast-api/internal/domain/repository"
	"github.com/chowfast/chowfast-api/internal/logger"
	apperrors "github.com/chowfast/chowfast-api/internal/pkg/errors"
	"github.com/chowfast/chowfast-api/pkg/auth"
)

// SignupResult is returned by Start and Resend.
type SignupResult struct {
	User         *entity.User
	SessionToken *entity.SessionToken
}

// VerifyResult is returned by a successful Verify.
type VerifyResult struct {
	User   *entity.User
	Tokens *auth.TokenPair
}

// SignupService drives vendor registration:
// registered (inactive) -> OTP pending -> activated.
type SignupService struct {
	users    repository.UserRepository
	tx       repository.Transactor
	otps     OTPManager
	sessions SessionTokenManager
	tokens   TokenProvider
	email    EmailService
	policy   config.SignupConfig
}

func NewSignupService(
	users repository.UserRepository,
	tx repository.Transactor,
	otps OTPManager,
	sessions SessionTokenManager,
	tokens TokenProvider,
	email EmailService,
	policy config.SignupConfig,
) (*SignupService, error) {
	if users == nil || tx == nil || otps == nil || sessions == nil || tokens == nil {
		return nil, fmt.Errorf("SignupService requires users, tx, otps, sessions and tokens")
	}
	if email == nil {
		email = &NoopEmailService{}
	}
	return &SignupService{
		users:    users,
		tx:       tx,
		otps:     otps,
		sessions: sessions,
		tokens:   tokens,
		email:    email,
		policy:   policy,
	}, nil
}

// Start registers an inactive vendor account, issues an OTP and a session
// token, and sends the code. A failed delivery does not fail the signup.
func (s *SignupService) Start(ctx context.Context, email, password string) (*SignupResult, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email, s.policy); err != nil {
		return nil, err
	}
	if err := validatePassword(password, s.policy); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: this email is already registered", apperrors.ErrConflict)
	}

	user := &entity.User{
		Email:       email,
		Password:    password,
		UserType:    entity.UserTypeVendor,
		IsActivated: false,
	}
	if err := user.HashPassword(); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var (
		token *entity.SessionToken
		code  string
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		var err error
		if _, code, err = s.otps.Issue(ctx, user.ID, entity.PurposeEmailVerification); err != nil {
			return err
		}
		token, err = s.sessions.Issue(ctx, user.ID, entity.PurposeEmailVerification)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.WithComponent("signup").WithField("user_id", user.ID).Info("vendor registered, otp pending")
	s.deliverOTP(ctx, user, code, token)
	return &SignupResult{User: user, SessionToken: token}, nil
}

// Resend replaces a valid session token with a new one and sends a new code.
func (s *SignupService) Resend(ctx context.Context, sessionToken string) (*SignupResult, error) {
	old, err := s.sessions.Validate(ctx, sessionToken, entity.PurposeEmailVerification)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, old.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user for session token: %w", err)
	}

	var (
		token *entity.SessionToken
		code  string
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.sessions.Delete(ctx, old); err != nil {
			return err
		}
		var err error
		if token, err = s.sessions.Issue(ctx, user.ID, entity.PurposeEmailVerification); err != nil {
			return err
		}
		_, code, err = s.otps.Issue(ctx, user.ID, entity.PurposeEmailVerification)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.deliverOTP(ctx, user, code, token)
	return &SignupResult{User: user, SessionToken: token}, nil
}

// Verify checks the session token and the code, then activates the account
// and issues a token pair. Nothing is persisted unless every step succeeds.
func (s *SignupService) Verify(ctx context.Context, sessionToken, code string) (*VerifyResult, error) {
	if !isNumericCode(code, s.otps.Length()) {
		return nil, apperrors.NewFieldError("otp", fmt.Sprintf("OTP must be exactly %d digits.", s.otps.Length()))
	}

	token, err := s.sessions.Validate(ctx, sessionToken, entity.PurposeEmailVerification)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user for session token: %w", err)
	}
	otp, err := s.otps.Verify(ctx, user.ID, entity.PurposeEmailVerification, code)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Email, string(user.UserType))
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.sessions.Consume(ctx, token); err != nil {
			return err
		}
		if err := s.otps.Consume(ctx, otp); err != nil {
			return fmt.Errorf("consume otp: %w", err)
		}
		return s.users.Activate(ctx, user.ID)
	})
	if err != nil {
		return nil, err
	}

	user.IsActivated = true
	logger.WithComponent("signup").WithField("user_id", user.ID).Info("vendor account activated")
	return &VerifyResult{User: user, Tokens: pair}, nil
}

func (s *SignupService) deliverOTP(ctx context.Context, user *entity.User, code string, token *entity.SessionToken) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := s.email.SendOTP(sendCtx, user.Email, code, s.otps.Validity(), "otp-"+token.ID.String()); err != nil {
		logger.WithComponent("signup").WithField("user_id", user.ID).Errorf("failed to send otp email: %v", err)
	}
}
