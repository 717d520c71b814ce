package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// TokenType distinguishes access from refresh tokens inside the claims.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Claims is the JWT payload issued to authenticated users.
type Claims struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	UserType  string    `json:"user_type"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenPair is an access/refresh pair issued together.
type TokenPair struct {
	Access           string    `json:"access"`
	Refresh          string    `json:"refresh"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
	RefreshJTI       string    `json:"-"`
}

// JWTService signs and verifies HS256 tokens.
type JWTService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewJWTService(secret, issuer string, accessTTL, refreshTTL time.Duration) (*JWTService, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required for JWTService")
	}
	if accessTTL <= 0 {
		accessTTL = 3 * time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &JWTService{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// IssuePair signs a fresh access and refresh token for the user.
func (s *JWTService) IssuePair(userID uuid.UUID, email, userType string) (*TokenPair, error) {
	now := s.now()
	access, accessExp, _, err := s.sign(userID, email, userType, AccessToken, now, s.accessTTL)
	if err != nil {
		return nil, NewTokenError(TokenGenerationFailed, "failed to sign access token", err)
	}
	refresh, refreshExp, jti, err := s.sign(userID, email, userType, RefreshToken, now, s.refreshTTL)
	if err != nil {
		return nil, NewTokenError(TokenGenerationFailed, "failed to sign refresh token", err)
	}
	return &TokenPair{
		Access:           access,
		Refresh:          refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		RefreshJTI:       jti,
	}, nil
}

func (s *JWTService) sign(userID uuid.UUID, email, userType string, typ TokenType, now time.Time, ttl time.Duration) (string, time.Time, string, error) {
	exp := now.Add(ttl)
	jti := uuid.NewString()
	claims := &Claims{
		UserID:    userID,
		Email:     email,
		UserType:  userType,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return signed, exp, jti, err
}

// Parse verifies signature, expiry and token type.
func (s *JWTService) Parse(tokenString string, expected TokenType) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				return nil, NewTokenError(TokenMalformed, "token is malformed", err)
			case ve.Errors&jwt.ValidationErrorExpired != 0:
				return nil, NewTokenError(TokenExpired, "token is expired", err)
			case ve.Errors&jwt.ValidationErrorSignatureInvalid != 0:
				return nil, NewTokenError(TokenSignatureInvalid, "signature is invalid", err)
			}
		}
		return nil, NewTokenError(TokenInvalid, "token validation failed", err)
	}
	if !token.Valid {
		return nil, NewTokenError(TokenInvalid, "invalid token", nil)
	}
	if claims.TokenType != expected {
		return nil, NewTokenError(TokenWrongType, fmt.Sprintf("expected %s token", expected), nil)
	}
	if claims.ID == "" || claims.UserID == uuid.Nil {
		return nil, NewTokenError(TokenInvalid, "token is missing required claims", nil)
	}
	return claims, nil
}
