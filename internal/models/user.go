package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the access level of a portal account.
type Role string

const (
	RoleClient     Role = "CLIENT"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsStaff reports whether r may use the admin back office.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User is a portal account with its prepaid balance.
type User struct {
	ID string `gorm:"type:varchar(36);primaryKey" json:"id"` // UUID primary key.

	Email    string `gorm:"type:text;not null;uniqueIndex" json:"email"` // Sign-in e-mail.
	Username string `gorm:"type:text;not null;default:''" json:"username"` // Display name.
	Phone    string `gorm:"type:text;not null;default:''" json:"phone"`    // Contact phone.
	Password string `gorm:"type:text;not null" json:"-"`                   // Bcrypt hash.

	Role    Role    `gorm:"type:varchar(16);not null;default:'CLIENT';index" json:"role"` // Access level.
	Balance float64 `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`        // Prepaid balance.

	TOTPSecret string `gorm:"type:text" json:"-"` // Confirmed TOTP secret for staff MFA.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"` // Last update timestamp.
}

// BeforeCreate assigns a UUID when none is set.
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
