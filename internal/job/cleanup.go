package job

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chowfast/chowfast-api/internal/domain/repository"
	"github.com/chowfast/chowfast-api/internal/logger"
)

// CredentialCleanup deletes credentials that can no longer validate: used
// session tokens, session tokens and codes that expired more than retention
// ago, and blacklist rows whose token has expired anyway. Rows are kept for
// retention so clients still get "expired" rather than "not found".
type CredentialCleanup struct {
	sessions  repository.SessionTokenRepository
	codes     repository.OneTimeCodeRepository
	revoked   repository.RevokedTokenRepository
	validity  time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewCredentialCleanup(
	sessions repository.SessionTokenRepository,
	codes repository.OneTimeCodeRepository,
	revoked repository.RevokedTokenRepository,
	otpValidity time.Duration,
	retention time.Duration,
) *CredentialCleanup {
	return &CredentialCleanup{
		sessions:  sessions,
		codes:     codes,
		revoked:   revoked,
		validity:  otpValidity,
		retention: retention,
		now:       time.Now,
	}
}

func (j *CredentialCleanup) Name() string {
	return "credential_cleanup"
}

func (j *CredentialCleanup) Run(ctx context.Context) error {
	now := j.now()
	var errs []error

	cutoff := now.Add(-j.retention)

	sessions, err := j.sessions.DeleteDead(ctx, cutoff)
	errs = append(errs, err)
	codes, err := j.codes.DeleteCreatedBefore(ctx, cutoff.Add(-j.validity))
	errs = append(errs, err)
	revoked, err := j.revoked.DeleteExpired(ctx, now)
	errs = append(errs, err)

	logger.WithComponent("cleanup").WithFields(logrus.Fields{
		"session_tokens": sessions,
		"one_time_codes": codes,
		"revoked_tokens": revoked,
	}).Info("dead credentials removed")
	return errors.Join(errs...)
}
