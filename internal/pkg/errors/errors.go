package errors

import "errors"

// Application-wide error kinds. Services wrap them with fmt.Errorf("%w: ...")
// and handlers map them to HTTP statuses with errors.Is.
var (
	// ErrNotFound is returned when a record or resource does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized is returned when a request carries no usable access token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller is known but not allowed.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is returned for malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrExpiredToken is returned when an OTP or token is past its validity window.
	ErrExpiredToken = errors.New("token is expired")

	// ErrInvalidToken is returned when a token is unknown, already used or revoked.
	ErrInvalidToken = errors.New("token is invalid")

	// ErrInvalidCredentials covers a wrong password or a mismatched OTP.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrConflict is returned for duplicates such as an already registered email.
	ErrConflict = errors.New("resource state conflict")

	// ErrTooManyRequests is returned when an attempt budget is exhausted.
	ErrTooManyRequests = errors.New("too many requests")
)

// FieldError carries per-field validation messages.
type FieldError struct {
	Fields map[string]string
}

func (e *FieldError) Error() string {
	for field, msg := range e.Fields {
		return field + ": " + msg
	}
	return ErrValidation.Error()
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *FieldError) Unwrap() error {
	return ErrValidation
}

// NewFieldError builds a FieldError for a single field.
func NewFieldError(field, msg string) *FieldError {
	return &FieldError{Fields: map[string]string{field: msg}}
}
