package domain

import (
	"time"
)

// Role values carried on user records. The role is stored and embedded in
// access tokens but not enforced by this service.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User represents a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsVerified   bool      `json:"is_verified"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity is the authenticated caller attached to a request context after
// access token verification.
type Identity struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	IsVerified bool   `json:"is_verified"`
}

// IdentityOf extracts the public identity from a user record.
func IdentityOf(u *User) Identity {
	return Identity{
		ID:         u.ID,
		Email:      u.Email,
		IsVerified: u.IsVerified,
	}
}
