package entity

import (
	"time"

	"github.com/google/uuid"
)

// Vendor is the business profile attached one-to-one to a vendor account.
type Vendor struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	BusinessName string    `gorm:"size:200;not null" json:"business_name"`
	Address      string    `gorm:"type:text;not null;default:''" json:"address"`
	Rating       float64   `gorm:"type:numeric(3,2);not null;default:0" json:"rating"`
	TotalOrders  int       `gorm:"not null;default:0" json:"total_orders"`
	Online       bool      `gorm:"not null;default:false" json:"online"`
	Verified     bool      `gorm:"not null;default:false" json:"verified"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Vendor) TableName() string {
	return "vendors"
}
