package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chowfast/chowfast-api/internal/domain/entity"
	apperrors "github.com/chowfast/chowfast-api/internal/pkg/errors"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, redis.UniversalClient) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestCacheRepo(t *testing.T) {
	_, client := newTestClient(t)
	repo, err := NewCacheRepo(client)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	require.NoError(t, repo.Set(ctx, "k", "v", time.Minute))
	val, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	ok, err := repo.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.Delete(ctx, "k"))
	ok, err = repo.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewCacheRepo_NilClient(t *testing.T) {
	_, err := NewCacheRepo(nil)
	assert.Error(t, err)
}

func TestAttemptCounter_Window(t *testing.T) {
	srv, client := newTestClient(t)
	counter, err := NewAttemptCounter(client, "otp_attempts:")
	require.NoError(t, err)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		n, err := counter.Increment(ctx, "user", 10*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
	assert.Equal(t, 10*time.Minute, srv.TTL("otp_attempts:user"))

	n, err := counter.Count(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	srv.FastForward(11 * time.Minute)
	n, err = counter.Count(ctx, "user")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = counter.Increment(ctx, "user", 10*time.Minute)
	require.NoError(t, err)
	require.NoError(t, counter.Reset(ctx, "user"))
	n, err = counter.Count(ctx, "user")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAttemptCounter_RestoresMissingTTL(t *testing.T) {
	srv, client := newTestClient(t)
	counter, err := NewAttemptCounter(client, "otp_attempts:")
	require.NoError(t, err)

	// a counter left behind without an expiry
	require.NoError(t, srv.Set("otp_attempts:user", "4"))
	require.Zero(t, srv.TTL("otp_attempts:user"))

	n, err := counter.Increment(context.Background(), "user", 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.Equal(t, 10*time.Minute, srv.TTL("otp_attempts:user"))

	srv.FastForward(11 * time.Minute)
	assert.False(t, srv.Exists("otp_attempts:user"))
}

type memRevoked struct {
	rows map[string]*entity.RevokedToken
}

func (m *memRevoked) Revoke(_ context.Context, token *entity.RevokedToken) error {
	if _, ok := m.rows[token.JTI]; ok {
		return apperrors.ErrConflict
	}
	m.rows[token.JTI] = token
	return nil
}

func (m *memRevoked) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := m.rows[jti]
	return ok, nil
}

func (m *memRevoked) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for k, v := range m.rows {
		if v.IsExpired(now) {
			delete(m.rows, k)
			n++
		}
	}
	return n, nil
}

func TestRevokedTokenCache(t *testing.T) {
	srv, client := newTestClient(t)
	cacheRepo, err := NewCacheRepo(client)
	require.NoError(t, err)
	store := &memRevoked{rows: map[string]*entity.RevokedToken{}}
	cache := NewRevokedTokenCache(store, cacheRepo)
	ctx := context.Background()

	jti := uuid.NewString()
	token := &entity.RevokedToken{JTI: jti, ExpiresAt: time.Now().Add(time.Hour), RevokedAt: time.Now()}
	require.NoError(t, cache.Revoke(ctx, token))
	assert.True(t, srv.Exists(revokedKeyPrefix+jti))

	assert.ErrorIs(t, cache.Revoke(ctx, token), apperrors.ErrConflict)

	revoked, err := cache.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)

	// A cold cache still answers from the store.
	srv.FlushAll()
	revoked, err = cache.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)

	// And so does a broken one.
	srv.Close()
	revoked, err = cache.IsRevoked(ctx, jti)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = cache.IsRevoked(ctx, "other")
	require.NoError(t, err)
	assert.False(t, revoked)
}
