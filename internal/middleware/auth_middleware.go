package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chowfast/chowfast-api/internal/domain/entity"
	"github.com/chowfast/chowfast-api/internal/logger"
	apperrors "github.com/chowfast/chowfast-api/internal/pkg/errors"
	"github.com/chowfast/chowfast-api/internal/pkg/response"
)

const (
	ContextUserID = "user_id"
	ContextUser   = "user"
)

// Authorizer resolves a bearer access token to an account.
type Authorizer interface {
	Authorize(ctx context.Context, accessToken string) (*entity.User, error)
}

// AuthMiddleware guards routes that need a signed-in account.
type AuthMiddleware struct {
	authorizer Authorizer
}

func NewAuthMiddleware(authorizer Authorizer) *AuthMiddleware {
	return &AuthMiddleware{authorizer: authorizer}
}

// RequireAuth checks the Authorization header and stores the account in the
// gin context under ContextUser.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.Error("Authentication credentials were not provided.", "token_missing"))
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.Error("Authorization header format must be Bearer {token}", "token_format"))
			return
		}

		user, err := m.authorizer.Authorize(c.Request.Context(), parts[1])
		if err != nil {
			if !errors.Is(err, apperrors.ErrUnauthorized) {
				logger.WithComponent("auth_middleware").Errorf("authorize: %v", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					response.Error("An unexpected error occurred.", "internal_error"))
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.Error("Given token not valid for any token type", "token_invalid"))
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, user)
		c.Next()
	}
}

// RequireActivated rejects accounts that have not finished email
// verification. Must run after RequireAuth.
func (m *AuthMiddleware) RequireActivated() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.Error("Authentication credentials were not provided.", "token_missing"))
			return
		}
		if !user.IsActivated {
			c.AbortWithStatusJSON(http.StatusForbidden,
				response.Error("User account is not activated. Please contact support", "account_inactive"))
			return
		}
		c.Next()
	}
}

// AdminOnly allows admin accounts only. Must run after RequireAuth.
func (m *AuthMiddleware) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				response.Error("Authentication credentials were not provided.", "token_missing"))
			return
		}
		if user.UserType != entity.UserTypeAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden,
				response.Error("You do not have permission to perform this action.", "forbidden"))
			return
		}
		c.Next()
	}
}

// CurrentUser returns the account stored by RequireAuth.
func CurrentUser(c *gin.Context) (*entity.User, bool) {
	v, exists := c.Get(ContextUser)
	if !exists {
		return nil, false
	}
	user, ok := v.(*entity.User)
	return user, ok && user != nil
}
