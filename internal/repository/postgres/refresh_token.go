package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/brightcart/auth-service/internal/domain"
	"github.com/brightcart/auth-service/pkg/database"
	apperrors "github.com/brightcart/auth-service/pkg/errors"
)

// RefreshTokenRepository implements repository.RefreshTokenRepository using PostgreSQL.
type RefreshTokenRepository struct {
	pool database.DBTX
}

// NewRefreshTokenRepository creates a new PostgreSQL-backed refresh token ledger.
func NewRefreshTokenRepository(pool database.DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{pool: pool}
}

// Create stores a new refresh token record keyed by the token hash.
func (r *RefreshTokenRepository) Create(ctx context.Context, userID, tokenHash, tokenFamily string, expiresAt time.Time) (*domain.RefreshTokenRecord, error) {
	rec := &domain.RefreshTokenRecord{
		ID:          uuid.New().String(),
		UserID:      userID,
		TokenHash:   tokenHash,
		TokenFamily: tokenFamily,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now().UTC(),
	}

	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, token_family, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.UserID,
		rec.TokenHash,
		rec.TokenFamily,
		rec.ExpiresAt,
		rec.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert refresh token: %w", err)
	}

	return rec, nil
}

// GetByHash retrieves a record by its token hash regardless of revocation
// state. Callers inspect RevokedAt and ExpiresAt to classify the token.
func (r *RefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshTokenRecord, error) {
	query := `
		SELECT id, user_id, token_hash, token_family, expires_at, created_at, revoked_at, replaced_by
		FROM refresh_tokens
		WHERE token_hash = $1`

	var rec domain.RefreshTokenRecord
	err := r.pool.QueryRow(ctx, query, tokenHash).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.TokenHash,
		&rec.TokenFamily,
		&rec.ExpiresAt,
		&rec.CreatedAt,
		&rec.RevokedAt,
		&rec.ReplacedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}

	return &rec, nil
}

// Revoke invalidates a single record. Already-revoked records are left
// untouched, so the operation is idempotent.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, id string) error {
	query := `UPDATE refresh_tokens SET revoked_at = $1 WHERE id = $2 AND revoked_at IS NULL`

	_, err := r.pool.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	return nil
}

// RevokeFamily invalidates every unrevoked record sharing the token family.
func (r *RefreshTokenRepository) RevokeFamily(ctx context.Context, tokenFamily string) error {
	query := `UPDATE refresh_tokens SET revoked_at = $1 WHERE token_family = $2 AND revoked_at IS NULL`

	_, err := r.pool.Exec(ctx, query, time.Now().UTC(), tokenFamily)
	if err != nil {
		return fmt.Errorf("revoke token family: %w", err)
	}

	return nil
}

// RevokeByUserID invalidates every unrevoked record for the given user.
func (r *RefreshTokenRepository) RevokeByUserID(ctx context.Context, userID string) error {
	query := `UPDATE refresh_tokens SET revoked_at = $1 WHERE user_id = $2 AND revoked_at IS NULL`

	_, err := r.pool.Exec(ctx, query, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("revoke refresh tokens by user: %w", err)
	}

	return nil
}

// MarkReplaced revokes the old record and records its successor in one
// conditional update. The `revoked_at IS NULL` guard makes concurrent
// rotations of the same token race safely: exactly one caller observes a row
// update and wins; the loser must treat the token as reused.
func (r *RefreshTokenRepository) MarkReplaced(ctx context.Context, oldID, newID string) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $1, replaced_by = $2
		WHERE id = $3 AND revoked_at IS NULL`

	ct, err := r.pool.Exec(ctx, query, time.Now().UTC(), newID, oldID)
	if err != nil {
		return false, fmt.Errorf("mark refresh token replaced: %w", err)
	}

	return ct.RowsAffected() == 1, nil
}
