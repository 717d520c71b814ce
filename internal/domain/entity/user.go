package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// HashCost is the bcrypt cost used for passwords and one-time codes.
var HashCost = bcrypt.DefaultCost

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// UserType is the role tag of an account.
type UserType string

const (
	UserTypeVendor UserType = "vendor"
	UserTypeAdmin  UserType = "admin"
)

// User is an account that can sign in to the platform.
type User struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email       string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Password    string     `gorm:"size:100;not null" json:"-"`
	PhoneNumber *string    `gorm:"size:20;uniqueIndex" json:"phone_number,omitempty"`
	UserType    UserType   `gorm:"size:20;not null;default:'vendor'" json:"user_type"`
	IsActivated bool       `gorm:"not null;default:false" json:"is_activated"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// passwordHashed is set once Password holds a hash, either after
	// HashPassword or when the row is loaded.
	passwordHashed bool
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns a UUID when none is set.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// AfterFind marks a loaded password as already hashed.
func (u *User) AfterFind(tx *gorm.DB) error {
	u.passwordHashed = u.Password != ""
	return nil
}

// BeforeSave hashes a password that has not been hashed yet.
func (u *User) BeforeSave(tx *gorm.DB) error {
	return u.HashPassword()
}

// HashPassword replaces a raw Password with its bcrypt hash. Calling it
// again is a no-op.
func (u *User) HashPassword() error {
	if u.passwordHashed || len(u.Password) == 0 {
		return nil
	}
	if len(u.Password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), HashCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	u.passwordHashed = true
	return nil
}

// CheckPassword reports whether password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}
