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
)

// SignupFlow is the vendor registration workflow.
type SignupFlow interface {
	Start(ctx context.Context, email, password string) (*service.SignupResult, error)
	Resend(ctx context.Context, sessionToken string) (*service.SignupResult, error)
	Verify(ctx context.Context, sessionToken, code string) (*service.VerifyResult, error)
}

// ProfileCompleter attaches a business profile to an activated vendor.
type ProfileCompleter interface {
	CompleteProfile(ctx context.Context, userID uuid.UUID, in service.CompleteProfileInput) (*entity.Vendor, error)
}

type VendorHandler struct {
	signup  SignupFlow
	profile ProfileCompleter
}

func NewVendorHandler(signup SignupFlow, profile ProfileCompleter) *VendorHandler {
	return &VendorHandler{signup: signup, profile: profile}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyOTPRequest struct {
	SessionToken string `json:"session_token"`
	OTP          string `json:"otp"`
}

type resendOTPRequest struct {
	SessionToken string `json:"session_token"`
}

type completeProfileRequest struct {
	PhoneNumber  string `json:"phone_number"`
	BusinessName string `json:"business_name"`
	Address      string `json:"address"`
}

type sessionTokenBody struct {
	response.Base
	SessionToken string `json:"session_token"`
}

type activatedUser struct {
	UserType    entity.UserType `json:"user_type"`
	IsActivated bool            `json:"is_activated"`
}

type verifyOTPData struct {
	Refresh string        `json:"refresh"`
	Access  string        `json:"access"`
	User    activatedUser `json:"user"`
}

type completeProfileData struct {
	VendorID uint `json:"vendor_id"`
}

var (
	sessionTokenCases = []errorCase{
		{apperrors.ErrExpiredToken, http.StatusBadRequest, "Session token has expired.", "session_expired"},
		{apperrors.ErrInvalidToken, http.StatusBadRequest, "Invalid or expired session token.", "session_invalid"},
	}

	verifyOTPCases = append([]errorCase{
		{service.ErrOTPThrottled, http.StatusTooManyRequests, "Too many failed attempts. Please try again later.", "otp_throttled"},
		{service.ErrOTPNotFound, http.StatusBadRequest, "No OTP found.", "otp_not_found"},
		{service.ErrOTPExpired, http.StatusBadRequest, "OTP has expired.", "otp_expired"},
		{service.ErrOTPMismatch, http.StatusBadRequest, "Invalid OTP.", "otp_invalid"},
	}, sessionTokenCases...)

	resendOTPCases = []errorCase{
		{apperrors.ErrExpiredToken, http.StatusBadRequest, "Session has expired. Please sign up again.", "session_expired"},
		{apperrors.ErrInvalidToken, http.StatusBadRequest, "Invalid or expired session token.", "session_invalid"},
	}
)

// Signup handles POST /api/v1/vendors/signup.
func (h *VendorHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.signup.Start(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, errorCase{apperrors.ErrConflict, http.StatusBadRequest, "This email is already registered.", "email_taken"})
		return
	}

	c.JSON(http.StatusCreated, sessionTokenBody{
		Base:         response.OK("OTP sent to your email. Please verify to continue."),
		SessionToken: result.SessionToken.ID.String(),
	})
}

// VerifyOTP handles POST /api/v1/vendors/verify-otp.
func (h *VendorHandler) VerifyOTP(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if fe := requireFields(map[string]string{"session_token": req.SessionToken, "otp": req.OTP}); fe != nil {
		respondError(c, fe)
		return
	}

	result, err := h.signup.Verify(c.Request.Context(), strings.TrimSpace(req.SessionToken), strings.TrimSpace(req.OTP))
	if err != nil {
		respondError(c, err, verifyOTPCases...)
		return
	}

	c.JSON(http.StatusOK, response.Success("Vendor Account activated successfully!", verifyOTPData{
		Refresh: result.Tokens.Refresh,
		Access:  result.Tokens.Access,
		User: activatedUser{
			UserType:    result.User.UserType,
			IsActivated: result.User.IsActivated,
		},
	}))
}

// ResendOTP handles POST /api/v1/vendors/resend-otp.
func (h *VendorHandler) ResendOTP(c *gin.Context) {
	var req resendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if fe := requireFields(map[string]string{"session_token": req.SessionToken}); fe != nil {
		respondError(c, fe)
		return
	}

	result, err := h.signup.Resend(c.Request.Context(), strings.TrimSpace(req.SessionToken))
	if err != nil {
		respondError(c, err, resendOTPCases...)
		return
	}

	c.JSON(http.StatusOK, sessionTokenBody{
		Base:         response.OK("New OTP sent successfully."),
		SessionToken: result.SessionToken.ID.String(),
	})
}

// CompleteProfile handles POST /api/v1/vendors/signup/complete.
func (h *VendorHandler) CompleteProfile(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}

	var req completeProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	vendor, err := h.profile.CompleteProfile(c.Request.Context(), user.ID, service.CompleteProfileInput{
		PhoneNumber:  req.PhoneNumber,
		BusinessName: req.BusinessName,
		Address:      req.Address,
	})
	if err != nil {
		respondError(c, err, errorCase{apperrors.ErrConflict, http.StatusConflict, "Vendor profile already completed.", "profile_exists"})
		return
	}

	c.JSON(http.StatusOK, response.Success("Vendor profile completed successfully.", completeProfileData{VendorID: vendor.ID}))
}

// requireFields returns a FieldError naming every blank value, or nil.
func requireFields(values map[string]string) *apperrors.FieldError {
	fields := map[string]string{}
	for name, v := range values {
		if strings.TrimSpace(v) == "" {
			fields[name] = "This field is required."
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &apperrors.FieldError{Fields: fields}
}
