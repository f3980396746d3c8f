package types

import (
	"fmt"
	"strings"
	"time"
)

// Role is the authorization level of an account. The set is closed; use
// ParseRole to turn any external string into a Role.
type Role string

const (
	RoleTenant   Role = "tenant"
	RoleLandlord Role = "landlord"
	RoleAdmin    Role = "admin"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleTenant, RoleLandlord, RoleAdmin}

// ParseRole normalizes raw (trim + lower-case) and rejects unknown values.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", raw)
	}
	return role, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleTenant, RoleLandlord, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// User represents an account in the system.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Email is the user's email address. It is unique and used to log in.
	Email string `json:"email" db:"email"`

	// Phone is the contact number shown to tenants on property pages.
	Phone string `json:"phone" db:"phone"`

	// Role indicates the user's authorization level.
	Role Role `json:"role" db:"role"`

	// Photo is the object key of the profile picture, if any.
	Photo string `json:"photo,omitempty" db:"photo"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// UserSummary is the subset of a user returned alongside a login token.
type UserSummary struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Photo string `json:"photo,omitempty"`
	Role  Role   `json:"role"`
}

// Summary returns the public login view of u.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Photo: u.Photo,
		Role:  u.Role,
	}
}

// RoleCount is the number of users holding a role.
type RoleCount struct {
	Role  Role `json:"role"`
	Count int  `json:"count"`
}
