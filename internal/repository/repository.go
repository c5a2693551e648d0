package repository

import (
	"context"
	"time"

	"github.com/brightcart/auth-service/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// SetVerified marks the user's email as verified.
	SetVerified(ctx context.Context, id string) error

	// UpdatePassword replaces the user's password hash.
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// SetActive toggles the user's active flag.
	SetActive(ctx context.Context, id string, active bool) error
}

// RefreshTokenRepository is the durable ledger of issued refresh tokens.
type RefreshTokenRepository interface {
	// Create stores a new refresh token record keyed by the token hash.
	Create(ctx context.Context, userID, tokenHash, tokenFamily string, expiresAt time.Time) (*domain.RefreshTokenRecord, error)

	// GetByHash retrieves a record by token hash regardless of revocation
	// state, so callers can distinguish replay of a rotated token from a
	// token that never existed.
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshTokenRecord, error)

	// Revoke invalidates a single record. Revoking an already-revoked
	// record is a no-op.
	Revoke(ctx context.Context, id string) error

	// RevokeFamily invalidates every unrevoked record in the family.
	RevokeFamily(ctx context.Context, tokenFamily string) error

	// RevokeByUserID invalidates every unrevoked record for the user.
	RevokeByUserID(ctx context.Context, userID string) error

	// MarkReplaced revokes the old record and points it at its successor
	// in a single conditional update. It reports false when the old record
	// was already revoked, meaning a concurrent rotation won the race.
	MarkReplaced(ctx context.Context, oldID, newID string) (bool, error)
}

// ActionTokenRepository stores single-use email verification and password
// reset tokens.
type ActionTokenRepository interface {
	// Create stores a new action token.
	Create(ctx context.Context, userID, token string, kind domain.ActionTokenKind, expiresAt time.Time) (*domain.ActionToken, error)

	// FindActive retrieves an unused, unexpired token of the given kind.
	FindActive(ctx context.Context, token string, kind domain.ActionTokenKind) (*domain.ActionToken, error)

	// MarkUsed consumes the token so it is never accepted again.
	MarkUsed(ctx context.Context, id string) error
}
