package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chowfast/chowfast-api/internal/logger"
	apperrors "github.com/chowfast/chowfast-api/internal/pkg/errors"
	"github.com/chowfast/chowfast-api/internal/pkg/response"
)

// errorCase renders one kind of error. Cases are tried in order with
// errors.Is, so more specific errors go first.
type errorCase struct {
	target    error
	status    int
	message   string
	errorType string
}

var defaultErrorCases = []errorCase{
	{apperrors.ErrTooManyRequests, http.StatusTooManyRequests, "Too many attempts. Please try again later.", "too_many_requests"},
	{apperrors.ErrExpiredToken, http.StatusBadRequest, "Token has expired.", "token_expired"},
	{apperrors.ErrInvalidToken, http.StatusBadRequest, "Invalid or expired token.", "token_invalid"},
	{apperrors.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials.", "invalid_credentials"},
	{apperrors.ErrConflict, http.StatusConflict, "Resource already exists.", "conflict"},
	{apperrors.ErrForbidden, http.StatusForbidden, "You do not have permission to perform this action.", "forbidden"},
	{apperrors.ErrUnauthorized, http.StatusUnauthorized, "Authentication credentials were not provided.", "unauthorized"},
	{apperrors.ErrNotFound, http.StatusNotFound, "Not found.", "not_found"},
	{apperrors.ErrValidation, http.StatusBadRequest, "Invalid request data.", "validation_error"},
}

// respondError writes the error envelope for err. Cases given by the caller
// take precedence over the defaults. Unknown errors are logged and answered
// with a generic 500.
func respondError(c *gin.Context, err error, cases ...errorCase) {
	var fieldErr *apperrors.FieldError
	if errors.As(err, &fieldErr) {
		c.JSON(http.StatusBadRequest, response.ValidationError(firstFieldMessage(fieldErr), fieldErr.Fields))
		return
	}

	for _, list := range [][]errorCase{cases, defaultErrorCases} {
		for _, ec := range list {
			if errors.Is(err, ec.target) {
				c.JSON(ec.status, response.Error(ec.message, ec.errorType))
				return
			}
		}
	}

	logger.WithComponent("http").
		WithField("path", c.FullPath()).
		Errorf("unhandled error: %v", err)
	c.JSON(http.StatusInternalServerError, response.Error("An unexpected error occurred. Please try again later.", "internal_error"))
}

// badRequest answers a body that could not be bound.
func badRequest(c *gin.Context, err error) {
	logger.WithComponent("http").WithField("path", c.FullPath()).Debugf("bind failed: %v", err)
	c.JSON(http.StatusBadRequest, response.Error("Invalid request data.", "validation_error"))
}

func firstFieldMessage(fe *apperrors.FieldError) string {
	if len(fe.Fields) == 1 {
		for _, msg := range fe.Fields {
			return msg
		}
	}
	return "Invalid request data."
}
