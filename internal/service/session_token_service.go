package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chowfast/chowfast-api/internal/domain/entity"
	"github.com/chowfast/chowfast-api/internal/domain/repository"
	apperrors "github.com/chowfast/chowfast-api/internal/pkg/errors"
)

// SessionTokenManager issues single-use tokens that scope a multi-step flow
// to one account.
type SessionTokenManager interface {
	Issue(ctx context.Context, userID uuid.UUID, purpose entity.Purpose) (*entity.SessionToken, error)
	Validate(ctx context.Context, tokenID string, purpose entity.Purpose) (*entity.SessionToken, error)
	Consume(ctx context.Context, token *entity.SessionToken) error
	Delete(ctx context.Context, token *entity.SessionToken) error
}

// SessionTokenService keeps at most one unused token per (user, purpose).
type SessionTokenService struct {
	tokens repository.SessionTokenRepository
	tx     repository.Transactor
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionTokenService(tokens repository.SessionTokenRepository, tx repository.Transactor, ttl time.Duration) (*SessionTokenService, error) {
	if tokens == nil {
		return nil, fmt.Errorf("SessionTokenRepository is required for SessionTokenService")
	}
	if tx == nil {
		return nil, fmt.Errorf("Transactor is required for SessionTokenService")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionTokenService{tokens: tokens, tx: tx, ttl: ttl, now: time.Now}, nil
}

// Issue invalidates every unused token of (userID, purpose) and creates a
// new one, atomically.
func (s *SessionTokenService) Issue(ctx context.Context, userID uuid.UUID, purpose entity.Purpose) (*entity.SessionToken, error) {
	if !purpose.Valid() {
		return nil, fmt.Errorf("%w: unknown purpose %q", apperrors.ErrValidation, purpose)
	}
	now := s.now()
	token := &entity.SessionToken{
		ID:        uuid.New(),
		UserID:    userID,
		Purpose:   purpose,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.tokens.MarkUnusedAsUsed(ctx, userID, purpose); err != nil {
			return fmt.Errorf("invalidate session tokens: %w", err)
		}
		return s.tokens.Create(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

// Validate returns the token if it exists unused for purpose and has not
// expired. Malformed identifiers are treated as unknown tokens.
func (s *SessionTokenService) Validate(ctx context.Context, tokenID string, purpose entity.Purpose) (*entity.SessionToken, error) {
	id, err := uuid.Parse(tokenID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed session token", apperrors.ErrInvalidToken)
	}
	token, err := s.tokens.GetUnused(ctx, id, purpose)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: session token not found or already used", apperrors.ErrInvalidToken)
		}
		return nil, fmt.Errorf("load session token: %w", err)
	}
	if token.IsExpired(s.now()) {
		return nil, fmt.Errorf("%w: session token has expired", apperrors.ErrExpiredToken)
	}
	return token, nil
}

// Consume marks the token used. Only one caller can ever succeed.
func (s *SessionTokenService) Consume(ctx context.Context, token *entity.SessionToken) error {
	if err := s.tokens.MarkUsed(ctx, token.ID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: session token already used", apperrors.ErrInvalidToken)
		}
		return fmt.Errorf("consume session token: %w", err)
	}
	token.IsUsed = true
	return nil
}

// Delete removes the token. A token that is already gone is invalid.
func (s *SessionTokenService) Delete(ctx context.Context, token *entity.SessionToken) error {
	if err := s.tokens.Delete(ctx, token.ID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: session token no longer exists", apperrors.ErrInvalidToken)
		}
		return fmt.Errorf("delete session token: %w", err)
	}
	return nil
}
