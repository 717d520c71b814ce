package job

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chowfast/chowfast-api/internal/domain/repository"
	"github.com/chowfast/chowfast-api/internal/logger"
)

func init() {
	logger.Silence()
}

type mockSessions struct {
	repository.SessionTokenRepository
	mock.Mock
}

func (m *mockSessions) DeleteDead(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type mockCodes struct {
	repository.OneTimeCodeRepository
	mock.Mock
}

func (m *mockCodes) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

type mockRevoked struct {
	repository.RevokedTokenRepository
	mock.Mock
}

func (m *mockRevoked) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func TestCredentialCleanup_Cutoffs(t *testing.T) {
	now := time.Date(2026, 5, 4, 3, 0, 0, 0, time.UTC)
	sessions, codes, revoked := &mockSessions{}, &mockCodes{}, &mockRevoked{}

	sessions.On("DeleteDead", mock.Anything, now.Add(-24*time.Hour)).Return(int64(3), nil)
	codes.On("DeleteCreatedBefore", mock.Anything, now.Add(-24*time.Hour-10*time.Minute)).Return(int64(2), nil)
	revoked.On("DeleteExpired", mock.Anything, now).Return(int64(1), nil)

	job := NewCredentialCleanup(sessions, codes, revoked, 10*time.Minute, 24*time.Hour)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	sessions.AssertExpectations(t)
	codes.AssertExpectations(t)
	revoked.AssertExpectations(t)
}

func TestCredentialCleanup_ContinuesAfterFailure(t *testing.T) {
	sessions, codes, revoked := &mockSessions{}, &mockCodes{}, &mockRevoked{}
	boom := errors.New("db down")

	sessions.On("DeleteDead", mock.Anything, mock.Anything).Return(int64(0), boom)
	codes.On("DeleteCreatedBefore", mock.Anything, mock.Anything).Return(int64(4), nil)
	revoked.On("DeleteExpired", mock.Anything, mock.Anything).Return(int64(0), nil)

	err := NewCredentialCleanup(sessions, codes, revoked, time.Minute, time.Hour).Run(context.Background())
	assert.ErrorIs(t, err, boom)
	codes.AssertExpectations(t)
	revoked.AssertExpectations(t)
}

type countingJob struct {
	runs int32
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run(ctx context.Context) error {
	atomic.AddInt32(&j.runs, 1)
	return nil
}

func TestCronScheduler_RejectsBadSpec(t *testing.T) {
	s := NewCronScheduler()
	assert.Error(t, s.AddJob(&countingJob{}, "every now and then"))
	assert.Error(t, s.AddJob(&countingJob{}, "* * * * * *"), "seconds field is not accepted")
}

func TestCronScheduler_RunsJob(t *testing.T) {
	s := NewCronScheduler()
	job := &countingJob{}
	require.NoError(t, s.AddJob(job, "@every 1s"))

	s.Start(context.Background())
	defer s.Stop()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&job.runs) > 0 }, 3*time.Second, 50*time.Millisecond)
}
