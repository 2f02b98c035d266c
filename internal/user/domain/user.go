package domain

import (
	"errors"
	"time"
)

// User is the core user entity. RefreshToken and RefreshTokenExpiresAt together
// describe the user's single active session: both set, or both nil. Exactly one
// refresh token is active per user at any time; issuing a new one overwrites
// the previous one.
type User struct {
	ID           string
	Email        string
	Nickname     string
	PasswordHash string
	Role         Role
	// RefreshToken is the exact value of the last-issued refresh token, or nil
	// when logged out. Persisted by value so rotation can detect reuse.
	RefreshToken          *string
	RefreshTokenExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Role is one of a closed set of account roles. Roles are not ordered; every
// authorization check names the allowed set explicitly.
type Role string

const (
	RoleUser  Role = "user"
	RolePro   Role = "pro"
	RoleAdmin Role = "admin"
)

// ParseRole validates s against the closed role set.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RolePro, RoleAdmin:
		return Role(s), nil
	}
	return "", errors.New("invalid role: must be one of user, pro, admin")
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if _, err := ParseRole(string(u.Role)); err != nil {
		return err
	}
	return nil
}

// HasActiveSession reports whether the user has a stored refresh token.
func (u *User) HasActiveSession() bool {
	return u.RefreshToken != nil && u.RefreshTokenExpiresAt != nil
}
