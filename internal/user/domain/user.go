package domain

import (
	"errors"
	"time"
)

// User is a staff account of the nexus API.
type User struct {
	ID           string
	ExternalID   string // id in the upstream cloud server; empty for locally seeded users
	Email        string
	PasswordHash string // empty until the user sets a password
	FullName     string
	Role         Role
	Status       Status
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleSupport    Role = "SUPPORT"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleSupport:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

// HasPassword reports whether the user has ever set a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Validate validates the user for persistence and fills defaults.
// Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.FullName == "" {
		return errors.New("full name is required")
	}
	if u.Role == "" {
		u.Role = RoleSupport
	}
	if !u.Role.Valid() {
		return errors.New("unknown role")
	}
	if u.Status == "" {
		u.Status = StatusPending
	}
	return nil
}
