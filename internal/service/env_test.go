package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/chowfast/chowfast-api/internal/config"
	"github.com/chowfast/chowfast-api/internal/domain/entity"
	"github.com/chowfast/chowfast-api/internal/logger"
	"github.com/chowfast/chowfast-api/pkg/auth"
)

func init() {
	entity.HashCost = bcrypt.MinCost
	logger.Silence()
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	store     *memStore
	users     fakeUsers
	codes     fakeCodes
	tokens    fakeTokens
	attempts  *fakeAttempts
	email     *mockEmail
	clock     *fakeClock
	jwt       *auth.JWTService
	otp       *OTPService
	sessions  *SessionTokenService
	signup    *SignupService
	auth      *AuthService
	vendors   *VendorService
	customers *CustomerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	env := &testEnv{
		store:    store,
		users:    fakeUsers{store},
		codes:    fakeCodes{store},
		tokens:   fakeTokens{store},
		attempts: newFakeAttempts(),
		email:    newMockEmail(),
		clock:    &fakeClock{t: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)},
	}
	policy := config.DefaultSignupConfig()
	tx := fakeTx{store}

	var err error
	env.jwt, err = auth.NewJWTService("test-secret-that-is-long-enough-123456", "chowfast-test", time.Hour, 24*time.Hour)
	require.NoError(t, err)

	env.otp, err = NewOTPService(env.codes, env.attempts, policy)
	require.NoError(t, err)
	env.otp.now = env.clock.Now

	env.sessions, err = NewSessionTokenService(env.tokens, tx, policy.SessionTokenTTL)
	require.NoError(t, err)
	env.sessions.now = env.clock.Now

	env.signup, err = NewSignupService(env.users, tx, env.otp, env.sessions, env.jwt, env.email, policy)
	require.NoError(t, err)

	env.auth, err = NewAuthService(env.users, fakeRevoked{store}, env.jwt)
	require.NoError(t, err)
	env.auth.now = env.clock.Now

	env.vendors, err = NewVendorService(env.users, fakeVendors{store}, tx, env.email)
	require.NoError(t, err)

	env.customers, err = NewCustomerService(fakeCustomers{store})
	require.NoError(t, err)
	return env
}

// activeUser stores an activated vendor with the given credentials.
func (e *testEnv) activeUser(t *testing.T, email, password string) *entity.User {
	t.Helper()
	u := &entity.User{Email: email, Password: password, UserType: entity.UserTypeVendor, IsActivated: true}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}
