package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/chowfast/chowfast-api/internal/domain/entity"
	"github.com/chowfast/chowfast-api/internal/middleware"
	apperrors "github.com/chowfast/chowfast-api/internal/pkg/errors"
	"github.com/chowfast/chowfast-api/internal/pkg/response"
	"github.com/chowfast/chowfast-api/internal/service"
	"github.com/chowfast/chowfast-api/pkg/auth"
)

// Authenticator issues and revokes token pairs.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	Logout(ctx context.Context, callerID uuid.UUID, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
}

// AuthHandler serves login, logout and token refresh.
type AuthHandler struct {
	auth Authenticator
}

func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type tokenBody struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}

type loginData struct {
	UserType entity.UserType `json:"user_type"`
}

type loginResponse struct {
	response.Base
	Token tokenBody `json:"token"`
	Data  loginData `json:"data"`
}

type meData struct {
	ID          uuid.UUID       `json:"id"`
	Email       string          `json:"email"`
	PhoneNumber *string         `json:"phone_number"`
	UserType    entity.UserType `json:"user_type"`
	IsActivated bool            `json:"is_activated"`
}

var inactiveAccountCase = errorCase{apperrors.ErrForbidden, http.StatusForbidden, "User account is not activated. Please contact support", "account_inactive"}

// Login handles POST /api/v1/users/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if fe := requireFields(map[string]string{"email": req.Email, "password": req.Password}); fe != nil {
		respondError(c, fe)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, inactiveAccountCase)
		return
	}

	c.JSON(http.StatusOK, loginResponse{
		Base:  response.OK("Login successful"),
		Token: tokenBody{Refresh: result.Tokens.Refresh, Access: result.Tokens.Access},
		Data:  loginData{UserType: result.User.UserType},
	})
}

// Logout handles POST /api/v1/users/logout. The refresh token must belong
// to the caller.
func (h *AuthHandler) Logout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}

	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if fe := requireFields(map[string]string{"refresh": req.Refresh}); fe != nil {
		respondError(c, fe)
		return
	}

	if err := h.auth.Logout(c.Request.Context(), user.ID, strings.TrimSpace(req.Refresh)); err != nil {
		respondError(c, err, errorCase{apperrors.ErrValidation, http.StatusBadRequest, "Logout failed", "logout_failed"})
		return
	}
	c.JSON(http.StatusOK, response.Success[any]("Logout successful", nil))
}

// Refresh handles POST /api/v1/token/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if fe := requireFields(map[string]string{"refresh": req.Refresh}); fe != nil {
		respondError(c, fe)
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), strings.TrimSpace(req.Refresh))
	if err != nil {
		respondError(c, err,
			errorCase{apperrors.ErrExpiredToken, http.StatusUnauthorized, "Refresh token has expired.", "token_expired"},
			errorCase{apperrors.ErrInvalidToken, http.StatusUnauthorized, "Token is invalid or expired", "token_invalid"},
			inactiveAccountCase,
		)
		return
	}
	c.JSON(http.StatusOK, response.Success("Token refreshed successfully.", tokenBody{Refresh: pair.Refresh, Access: pair.Access}))
}

// Me handles GET /api/v1/users/me.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, response.Success("User retrieved successfully.", meData{
		ID:          user.ID,
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
		UserType:    user.UserType,
		IsActivated: user.IsActivated,
	}))
}
