package entity

import (
	"time"

	"github.com/google/uuid"
)

// SessionToken is an opaque single-use identifier that scopes a multi-step
// flow to one account.
type SessionToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"token"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_session_tokens_user_purpose" json:"user_id"`
	Purpose   Purpose   `gorm:"size:32;not null;index:idx_session_tokens_user_purpose" json:"purpose"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	IsUsed    bool      `gorm:"not null;default:false" json:"is_used"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (SessionToken) TableName() string {
	return "session_tokens"
}

// IsExpired reports whether now is at or past ExpiresAt.
func (t *SessionToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// IsValid reports whether the token is unused and unexpired at now.
func (t *SessionToken) IsValid(now time.Time) bool {
	return !t.IsUsed && !t.IsExpired(now)
}
