package entity

import (
	"time"

	"github.com/google/uuid"
)

// RevokedToken blacklists a refresh token by its jti until it would have
// expired on its own.
type RevokedToken struct {
	JTI       string    `gorm:"size:64;primaryKey" json:"jti"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	RevokedAt time.Time `gorm:"not null" json:"revoked_at"`
}

func (RevokedToken) TableName() string {
	return "revoked_tokens"
}

// IsExpired reports whether the underlying token has expired, after which
// the row only takes up space.
func (r *RevokedToken) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
