package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/chowfast/chowfast-api/internal/domain/entity"
	apperrors "github.com/chowfast/chowfast-api/internal/pkg/errors"
)

// memStore is an in-memory stand-in for Postgres. Transactions are
// serialised and rolled back by restoring a snapshot.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	users     map[uuid.UUID]entity.User
	codes     map[uint]entity.OneTimeCode
	tokens    map[uuid.UUID]entity.SessionToken
	revoked   map[string]entity.RevokedToken
	vendors   map[uuid.UUID]entity.Vendor
	customers map[string]entity.Customer

	nextCodeID     uint
	nextVendorID   uint
	nextCustomerID uint

	// failActivate makes Activate fail, to exercise rollbacks.
	failActivate error
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[uuid.UUID]entity.User{},
		codes:     map[uint]entity.OneTimeCode{},
		tokens:    map[uuid.UUID]entity.SessionToken{},
		revoked:   map[string]entity.RevokedToken{},
		vendors:   map[uuid.UUID]entity.Vendor{},
		customers: map[string]entity.Customer{},
	}
}

type memSnapshot struct {
	users     map[uuid.UUID]entity.User
	codes     map[uint]entity.OneTimeCode
	tokens    map[uuid.UUID]entity.SessionToken
	revoked   map[string]entity.RevokedToken
	vendors   map[uuid.UUID]entity.Vendor
	customers map[string]entity.Customer
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		users: copyMap(s.users), codes: copyMap(s.codes), tokens: copyMap(s.tokens),
		revoked: copyMap(s.revoked), vendors: copyMap(s.vendors), customers: copyMap(s.customers),
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users, s.codes, s.tokens = snap.users, snap.codes, snap.tokens
	s.revoked, s.vendors, s.customers = snap.revoked, snap.vendors, snap.customers
}

type inTxKey struct{}

type fakeTx struct{ s *memStore }

func (t fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(inTxKey{}) != nil {
		return fn(ctx)
	}
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	snap := t.s.snapshot()
	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		t.s.restore(snap)
		return err
	}
	return nil
}

type fakeUsers struct{ s *memStore }

func (r fakeUsers) Create(ctx context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return fmt.Errorf("%w: email exists", apperrors.ErrConflict)
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if err := user.HashPassword(); err != nil {
		return err
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = *user
	return nil
}

func (r fakeUsers) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &u, nil
}

func (r fakeUsers) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r fakeUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	return err == nil, nil
}

func (r fakeUsers) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.PhoneNumber != nil && *u.PhoneNumber == phone {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeUsers) update(id uuid.UUID, fn func(u *entity.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	fn(&u)
	r.s.users[id] = u
	return nil
}

func (r fakeUsers) Activate(ctx context.Context, id uuid.UUID) error {
	if r.s.failActivate != nil {
		return r.s.failActivate
	}
	return r.update(id, func(u *entity.User) { u.IsActivated = true })
}

func (r fakeUsers) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.update(id, func(u *entity.User) { u.LastLogin = &at })
}

func (r fakeUsers) SetPhoneNumber(ctx context.Context, id uuid.UUID, phone string) error {
	return r.update(id, func(u *entity.User) { u.PhoneNumber = &phone })
}

type fakeCodes struct{ s *memStore }

func (r fakeCodes) Create(ctx context.Context, code *entity.OneTimeCode) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextCodeID++
	code.ID = r.s.nextCodeID
	r.s.codes[code.ID] = *code
	return nil
}

func (r fakeCodes) GetLatest(ctx context.Context, userID uuid.UUID, purpose entity.Purpose) (*entity.OneTimeCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *entity.OneTimeCode
	for _, c := range r.s.codes {
		if c.UserID != userID || c.Purpose != purpose {
			continue
		}
		c := c
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) ||
			(c.CreatedAt.Equal(latest.CreatedAt) && c.ID > latest.ID) {
			latest = &c
		}
	}
	if latest == nil {
		return nil, apperrors.ErrNotFound
	}
	return latest, nil
}

func (r fakeCodes) Delete(ctx context.Context, id uint) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.codes, id)
	return nil
}

func (r fakeCodes) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, c := range r.s.codes {
		if c.CreatedAt.Before(cutoff) {
			delete(r.s.codes, id)
			n++
		}
	}
	return n, nil
}

func (r fakeCodes) count(userID uuid.UUID) int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, c := range r.s.codes {
		if c.UserID == userID {
			n++
		}
	}
	return n
}

type fakeTokens struct{ s *memStore }

func (r fakeTokens) Create(ctx context.Context, token *entity.SessionToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.tokens[token.ID] = *token
	return nil
}

func (r fakeTokens) GetUnused(ctx context.Context, id uuid.UUID, purpose entity.Purpose) (*entity.SessionToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[id]
	if !ok || t.IsUsed || t.Purpose != purpose {
		return nil, apperrors.ErrNotFound
	}
	return &t, nil
}

func (r fakeTokens) MarkUnusedAsUsed(ctx context.Context, userID uuid.UUID, purpose entity.Purpose) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, t := range r.s.tokens {
		if t.UserID == userID && t.Purpose == purpose && !t.IsUsed {
			t.IsUsed = true
			r.s.tokens[id] = t
			n++
		}
	}
	return n, nil
}

func (r fakeTokens) MarkUsed(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[id]
	if !ok || t.IsUsed {
		return apperrors.ErrNotFound
	}
	t.IsUsed = true
	r.s.tokens[id] = t
	return nil
}

func (r fakeTokens) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tokens[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.s.tokens, id)
	return nil
}

func (r fakeTokens) DeleteDead(ctx context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, t := range r.s.tokens {
		if t.IsUsed || t.ExpiresAt.Before(cutoff) {
			delete(r.s.tokens, id)
			n++
		}
	}
	return n, nil
}

func (r fakeTokens) count(userID uuid.UUID) int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, t := range r.s.tokens {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

type fakeRevoked struct{ s *memStore }

func (r fakeRevoked) Revoke(ctx context.Context, token *entity.RevokedToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.revoked[token.JTI]; ok {
		return fmt.Errorf("%w: already revoked", apperrors.ErrConflict)
	}
	r.s.revoked[token.JTI] = *token
	return nil
}

func (r fakeRevoked) IsRevoked(ctx context.Context, jti string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.revoked[jti]
	return ok, nil
}

func (r fakeRevoked) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for jti, t := range r.s.revoked {
		if t.IsExpired(now) {
			delete(r.s.revoked, jti)
			n++
		}
	}
	return n, nil
}

type fakeVendors struct{ s *memStore }

func (r fakeVendors) Create(ctx context.Context, vendor *entity.Vendor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.vendors[vendor.UserID]; ok {
		return fmt.Errorf("%w: vendor exists", apperrors.ErrConflict)
	}
	r.s.nextVendorID++
	vendor.ID = r.s.nextVendorID
	r.s.vendors[vendor.UserID] = *vendor
	return nil
}

func (r fakeVendors) GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.Vendor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.vendors[userID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &v, nil
}

type fakeCustomers struct{ s *memStore }

func (r fakeCustomers) Create(ctx context.Context, c *entity.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.customers {
		if existing.PhoneNumber == c.PhoneNumber {
			return fmt.Errorf("%w: duplicate phone", apperrors.ErrConflict)
		}
	}
	r.s.nextCustomerID++
	c.ID = r.s.nextCustomerID
	c.CustomerID = entity.FormatCustomerID(c.ID)
	c.CreatedAt = time.Now()
	r.s.customers[c.CustomerID] = *c
	return nil
}

func (r fakeCustomers) GetByCustomerID(ctx context.Context, customerID string) (*entity.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[customerID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &c, nil
}

func (r fakeCustomers) List(ctx context.Context, limit, offset int) ([]entity.Customer, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := make([]entity.Customer, 0, len(r.s.customers))
	for _, c := range r.s.customers {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := int64(len(all))
	if offset > len(all) {
		offset = len(all)
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, total, nil
}

func (r fakeCustomers) Update(ctx context.Context, customerID string, updates map[string]interface{}) (*entity.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[customerID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	for k, v := range updates {
		switch k {
		case "phone_number":
			c.PhoneNumber = v.(string)
		case "location":
			c.Location = v.(string)
		case "delivery_address":
			c.DeliveryAddress = v.(string)
		}
	}
	r.s.customers[customerID] = c
	return &c, nil
}

func (r fakeCustomers) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.customers {
		if c.PhoneNumber == phone {
			return true, nil
		}
	}
	return false, nil
}

// fakeAttempts ignores the window; tests reset it explicitly.
type fakeAttempts struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeAttempts() *fakeAttempts {
	return &fakeAttempts{counts: map[string]int64{}}
}

func (a *fakeAttempts) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return 0, a.err
	}
	a.counts[key]++
	return a.counts[key], nil
}

func (a *fakeAttempts) Count(ctx context.Context, key string) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return 0, a.err
	}
	return a.counts[key], nil
}

func (a *fakeAttempts) Reset(ctx context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	delete(a.counts, key)
	return nil
}

// mockEmail records the last code sent to each address.
type mockEmail struct {
	mock.Mock
	mu    sync.Mutex
	codes map[string]string
}

func newMockEmail() *mockEmail {
	m := &mockEmail{codes: map[string]string{}}
	m.On("SendOTP", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("SendWelcome", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}

func (m *mockEmail) SendOTP(ctx context.Context, toEmail, code string, validity time.Duration, idempotencyKey string) error {
	m.mu.Lock()
	m.codes[toEmail] = code
	m.mu.Unlock()
	return m.Called(ctx, toEmail, code, validity, idempotencyKey).Error(0)
}

func (m *mockEmail) SendWelcome(ctx context.Context, toEmail, businessName string) error {
	return m.Called(ctx, toEmail, businessName).Error(0)
}

func (m *mockEmail) lastCode(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}
