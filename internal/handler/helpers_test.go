package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chowfast/chowfast-api/internal/domain/entity"
	"github.com/chowfast/chowfast-api/internal/logger"
	"github.com/chowfast/chowfast-api/internal/middleware"
	"github.com/chowfast/chowfast-api/internal/service"
	"github.com/chowfast/chowfast-api/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Silence()
}

// newTestGinContext builds a *gin.Context with an optional JSON body.
func newTestGinContext(method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()

	var req *http.Request
	switch b := body.(type) {
	case nil:
		req = httptest.NewRequest(method, path, nil)
	case string:
		req = httptest.NewRequest(method, path, bytes.NewBufferString(b))
		req.Header.Set("Content-Type", "application/json")
	default:
		raw, _ := json.Marshal(b)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

func withUser(c *gin.Context, user *entity.User) {
	c.Set(middleware.ContextUserID, user.ID)
	c.Set(middleware.ContextUser, user)
}

// parseJSONResponse decodes the recorded body.
func parseJSONResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "response body should be valid JSON: %s", w.Body.String())
	return resp
}

func activeVendor() *entity.User {
	return &entity.User{ID: uuid.New(), Email: "alice@gmail.com", UserType: entity.UserTypeVendor, IsActivated: true}
}

type mockSignupFlow struct{ mock.Mock }

func (m *mockSignupFlow) Start(ctx context.Context, email, password string) (*service.SignupResult, error) {
	args := m.Called(ctx, email, password)
	res, _ := args.Get(0).(*service.SignupResult)
	return res, args.Error(1)
}

func (m *mockSignupFlow) Resend(ctx context.Context, sessionToken string) (*service.SignupResult, error) {
	args := m.Called(ctx, sessionToken)
	res, _ := args.Get(0).(*service.SignupResult)
	return res, args.Error(1)
}

func (m *mockSignupFlow) Verify(ctx context.Context, sessionToken, code string) (*service.VerifyResult, error) {
	args := m.Called(ctx, sessionToken, code)
	res, _ := args.Get(0).(*service.VerifyResult)
	return res, args.Error(1)
}

type mockProfileCompleter struct{ mock.Mock }

func (m *mockProfileCompleter) CompleteProfile(ctx context.Context, userID uuid.UUID, in service.CompleteProfileInput) (*entity.Vendor, error) {
	args := m.Called(ctx, userID, in)
	v, _ := args.Get(0).(*entity.Vendor)
	return v, args.Error(1)
}

type mockAuthenticator struct{ mock.Mock }

func (m *mockAuthenticator) Login(ctx context.Context, email, password string) (*service.LoginResult, error) {
	args := m.Called(ctx, email, password)
	res, _ := args.Get(0).(*service.LoginResult)
	return res, args.Error(1)
}

func (m *mockAuthenticator) Logout(ctx context.Context, callerID uuid.UUID, refreshToken string) error {
	return m.Called(ctx, callerID, refreshToken).Error(0)
}

func (m *mockAuthenticator) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	p, _ := args.Get(0).(*auth.TokenPair)
	return p, args.Error(1)
}

type mockCustomerStore struct{ mock.Mock }

func (m *mockCustomerStore) Create(ctx context.Context, in service.CreateCustomerInput) (*entity.Customer, error) {
	args := m.Called(ctx, in)
	c, _ := args.Get(0).(*entity.Customer)
	return c, args.Error(1)
}

func (m *mockCustomerStore) Get(ctx context.Context, customerID string) (*entity.Customer, error) {
	args := m.Called(ctx, customerID)
	c, _ := args.Get(0).(*entity.Customer)
	return c, args.Error(1)
}

func (m *mockCustomerStore) List(ctx context.Context, limit, offset int) (*service.CustomerPage, error) {
	args := m.Called(ctx, limit, offset)
	p, _ := args.Get(0).(*service.CustomerPage)
	return p, args.Error(1)
}

func (m *mockCustomerStore) All(ctx context.Context) ([]entity.Customer, error) {
	args := m.Called(ctx)
	c, _ := args.Get(0).([]entity.Customer)
	return c, args.Error(1)
}

func (m *mockCustomerStore) Update(ctx context.Context, customerID string, in service.UpdateCustomerInput) (*entity.Customer, error) {
	args := m.Called(ctx, customerID, in)
	c, _ := args.Get(0).(*entity.Customer)
	return c, args.Error(1)
}
