package entity

import (
	"fmt"
	"time"
)

// Customer is an end customer record keyed by phone number.
type Customer struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CustomerID      string    `gorm:"size:20;uniqueIndex" json:"customer_id"`
	PhoneNumber     string    `gorm:"size:20;not null;uniqueIndex" json:"phone_number"`
	Location        string    `gorm:"size:255;not null" json:"location"`
	DeliveryAddress string    `gorm:"type:text;not null" json:"delivery_address"`
	CreatedAt       time.Time `json:"created_at"`
}

func (Customer) TableName() string {
	return "customers"
}

// FormatCustomerID derives the public identifier from the numeric key.
func FormatCustomerID(id uint) string {
	return fmt.Sprintf("CUST-%05d", id)
}
