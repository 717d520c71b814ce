package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/chowfast/chowfast-api/internal/domain/entity"
	"github.com/chowfast/chowfast-api/internal/domain/repository"
	"github.com/chowfast/chowfast-api/internal/logger"
	apperrors "github.com/chowfast/chowfast-api/internal/pkg/errors"
	"github.com/chowfast/chowfast-api/pkg/auth"
)

// TokenProvider signs and verifies JWTs.
type TokenProvider interface {
	IssuePair(userID uuid.UUID, email, userType string) (*auth.TokenPair, error)
	Parse(tokenString string, expected auth.TokenType) (*auth.Claims, error)
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	User   *entity.User
	Tokens *auth.TokenPair
}

// AuthService handles login, logout and refresh token rotation.
type AuthService struct {
	users   repository.UserRepository
	revoked repository.RevokedTokenRepository
	tokens  TokenProvider
	now     func() time.Time
}

func NewAuthService(users repository.UserRepository, revoked repository.RevokedTokenRepository, tokens TokenProvider) (*AuthService, error) {
	if users == nil {
		return nil, fmt.Errorf("UserRepository is required for AuthService")
	}
	if revoked == nil {
		return nil, fmt.Errorf("RevokedTokenRepository is required for AuthService")
	}
	if tokens == nil {
		return nil, fmt.Errorf("TokenProvider is required for AuthService")
	}
	return &AuthService{users: users, revoked: revoked, tokens: tokens, now: time.Now}, nil
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// equalizeTiming spends one bcrypt comparison so unknown emails take as
// long as wrong passwords.
func equalizeTiming(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("chowfast-timing"), entity.HashCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

// Login authenticates by email and password. Unknown emails and wrong
// passwords yield the same error. Accounts that are not activated are
// refused before the password is looked at.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrInvalidCredentials)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			equalizeTiming(password)
			return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActivated {
		return nil, fmt.Errorf("%w: account is not activated", apperrors.ErrForbidden)
	}
	if !user.CheckPassword(password) {
		return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrInvalidCredentials)
	}

	pair, err := s.tokens.IssuePair(user.ID, user.Email, string(user.UserType))
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		logger.WithComponent("auth").WithField("user_id", user.ID).Warnf("failed to update last_login: %v", err)
	} else {
		user.LastLogin = &now
	}
	return &LoginResult{User: user, Tokens: pair}, nil
}

// Logout blacklists the caller's refresh token.
func (s *AuthService) Logout(ctx context.Context, callerID uuid.UUID, refreshToken string) error {
	claims, err := s.tokens.Parse(refreshToken, auth.RefreshToken)
	if err != nil {
		return fmt.Errorf("%w: invalid refresh token", apperrors.ErrValidation)
	}
	if claims.UserID != callerID {
		return fmt.Errorf("%w: refresh token belongs to another account", apperrors.ErrValidation)
	}
	if err := s.revoke(ctx, claims); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return fmt.Errorf("%w: refresh token already revoked", apperrors.ErrValidation)
		}
		return err
	}
	logger.WithComponent("auth").WithField("user_id", callerID).Info("refresh token revoked on logout")
	return nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued. Of two concurrent refreshes with the same token only one
// succeeds.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.RefreshToken)
	if err != nil {
		if auth.IsExpired(err) {
			return nil, fmt.Errorf("%w: refresh token has expired", apperrors.ErrExpiredToken)
		}
		return nil, fmt.Errorf("%w: invalid refresh token", apperrors.ErrInvalidToken)
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, fmt.Errorf("%w: refresh token has been revoked", apperrors.ErrInvalidToken)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown account", apperrors.ErrInvalidToken)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActivated {
		return nil, fmt.Errorf("%w: account is not activated", apperrors.ErrForbidden)
	}

	if err := s.revoke(ctx, claims); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, fmt.Errorf("%w: refresh token has been revoked", apperrors.ErrInvalidToken)
		}
		return nil, err
	}
	pair, err := s.tokens.IssuePair(user.ID, user.Email, string(user.UserType))
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return pair, nil
}

// Authorize resolves an access token to its account.
func (s *AuthService) Authorize(ctx context.Context, accessToken string) (*entity.User, error) {
	claims, err := s.tokens.Parse(accessToken, auth.AccessToken)
	if err != nil {
		if auth.IsExpired(err) {
			return nil, fmt.Errorf("%w: access token has expired", apperrors.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: invalid access token", apperrors.ErrUnauthorized)
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown account", apperrors.ErrUnauthorized)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func (s *AuthService) revoke(ctx context.Context, claims *auth.Claims) error {
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return s.revoked.Revoke(ctx, &entity.RevokedToken{
		JTI:       claims.ID,
		UserID:    claims.UserID,
		ExpiresAt: expiresAt,
		RevokedAt: s.now(),
	})
}
