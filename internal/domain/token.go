package domain

import (
	"time"
)

// RefreshTokenRecord is the ledger entry for one issued refresh token. The raw
// token string is never stored; TokenHash is its SHA-256 hex digest.
// TokenFamily links every token produced through successive rotations of one
// original login. Invariant: within a family at most one record is unrevoked
// at any time, enforced by the rotation protocol.
type RefreshTokenRecord struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	TokenHash   string     `json:"-"`
	TokenFamily string     `json:"token_family"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	ReplacedBy  *string    `json:"replaced_by,omitempty"`
}

// Revoked reports whether the record has been explicitly invalidated.
func (r *RefreshTokenRecord) Revoked() bool {
	return r.RevokedAt != nil
}

// Expired reports whether the record is past its expiry at the given instant.
// A record whose expiry equals now is already expired.
func (r *RefreshTokenRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// ActionTokenKind distinguishes single-use opaque tokens by purpose.
type ActionTokenKind string

const (
	ActionTokenVerification  ActionTokenKind = "verification"
	ActionTokenPasswordReset ActionTokenKind = "password_reset"
)

// ActionToken is a single-use opaque token emailed to a user for email
// verification or password reset. Used flips true on consumption and the
// token is never accepted again, even if unexpired.
type ActionToken struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Token     string          `json:"-"`
	Kind      ActionTokenKind `json:"kind"`
	ExpiresAt time.Time       `json:"expires_at"`
	Used      bool            `json:"used"`
	CreatedAt time.Time       `json:"created_at"`
}

// TokenPair holds an access and refresh token pair.
type TokenPair struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"-"`
}
