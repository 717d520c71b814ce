package entity

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Purpose scopes one-time codes and session tokens to a flow.
type Purpose string

const (
	PurposeEmailVerification Purpose = "email_verification"
	PurposePasswordReset     Purpose = "password_reset"
	PurposeTwoFactor         Purpose = "2fa"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeEmailVerification, PurposePasswordReset, PurposeTwoFactor:
		return true
	}
	return false
}

// OneTimeCode stores the hash of a numeric code sent out of band.
// The most recent code per (user, purpose) is authoritative.
type OneTimeCode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_otp_user_purpose" json:"user_id"`
	CodeHash  string    `gorm:"size:100;not null" json:"-"`
	Purpose   Purpose   `gorm:"size:32;not null;index:idx_otp_user_purpose" json:"purpose"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (OneTimeCode) TableName() string {
	return "one_time_codes"
}

// SetCode stores the bcrypt hash of raw.
func (c *OneTimeCode) SetCode(raw string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), HashCost)
	if err != nil {
		return err
	}
	c.CodeHash = string(hashed)
	return nil
}

// Matches reports whether candidate is the code this record was issued for.
func (c *OneTimeCode) Matches(candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(c.CodeHash), []byte(candidate)) == nil
}

// IsExpired reports whether the code is older than validity at now.
func (c *OneTimeCode) IsExpired(now time.Time, validity time.Duration) bool {
	return now.Sub(c.CreatedAt) > validity
}
