// internal/domain/user/entity.go
package user

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Roles assignable to a user account.
const (
	RoleAdmin  = "admin"
	RoleVendor = "vendor"
	RoleClient = "client"
)

// User represents the user entity
type User struct {
	ID                  uint           `gorm:"primaryKey" json:"id"`
	Name                string         `gorm:"not null;size:100" json:"name"`
	Email               string         `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password            string         `gorm:"not null;size:255" json:"-"` // Don't return in JSON
	Role                string         `gorm:"size:20;not null;default:'client'" json:"role"`
	IsActive            bool           `gorm:"default:true" json:"is_active"`
	ResetPasswordToken  string         `gorm:"size:64;index" json:"-"`
	ResetPasswordExpire *time.Time     `json:"-"`
	LastLoginAt         *time.Time     `json:"last_login_at"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}

// BeforeCreate hook to handle business logic before user creation
func (u *User) BeforeCreate(tx *gorm.DB) error {
	// Email should be lowercase
	u.Email = strings.ToLower(u.Email)
	if u.Role == "" {
		u.Role = RoleClient
	}
	return nil
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsVendor reports whether the user holds the vendor role.
func (u *User) IsVendor() bool {
	return u.Role == RoleVendor
}

// ValidRole reports whether role is one of the assignable roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleVendor, RoleClient:
		return true
	}
	return false
}

// HasValidResetToken reports whether the stored reset token hash matches
// hashedToken and has not expired.
func (u *User) HasValidResetToken(hashedToken string, now time.Time) bool {
	if u.ResetPasswordToken == "" || u.ResetPasswordExpire == nil {
		return false
	}
	return u.ResetPasswordToken == hashedToken && now.Before(*u.ResetPasswordExpire)
}
