package auth

import (
	"errors"
	"fmt"
)

// TokenErrorType classifies token failures.
type TokenErrorType string

const (
	TokenGenerationFailed TokenErrorType = "TOKEN_GENERATION_FAILED"
	TokenMalformed        TokenErrorType = "TOKEN_MALFORMED"
	TokenExpired          TokenErrorType = "TOKEN_EXPIRED"
	TokenSignatureInvalid TokenErrorType = "TOKEN_SIGNATURE_INVALID"
	TokenWrongType        TokenErrorType = "TOKEN_WRONG_TYPE"
	TokenInvalid          TokenErrorType = "TOKEN_INVALID"
)

type TokenError struct {
	Type    TokenErrorType
	Message string
	Err     error
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

func NewTokenError(tokenType TokenErrorType, message string, err error) *TokenError {
	return &TokenError{Type: tokenType, Message: message, Err: err}
}

// IsExpired reports whether err is a TokenError of type TokenExpired.
func IsExpired(err error) bool {
	var te *TokenError
	return errors.As(err, &te) && te.Type == TokenExpired
}
