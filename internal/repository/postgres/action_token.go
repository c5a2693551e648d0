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

// ActionTokenRepository implements repository.ActionTokenRepository using
// PostgreSQL. Verification and password reset tokens share one table,
// distinguished by kind.
type ActionTokenRepository struct {
	pool database.DBTX
}

// NewActionTokenRepository creates a new PostgreSQL-backed action token store.
func NewActionTokenRepository(pool database.DBTX) *ActionTokenRepository {
	return &ActionTokenRepository{pool: pool}
}

// Create stores a new single-use action token.
func (r *ActionTokenRepository) Create(ctx context.Context, userID, token string, kind domain.ActionTokenKind, expiresAt time.Time) (*domain.ActionToken, error) {
	at := &domain.ActionToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     token,
		Kind:      kind,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO action_tokens (id, user_id, token, kind, used, expires_at, created_at)
		VALUES ($1, $2, $3, $4, false, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		at.ID,
		at.UserID,
		at.Token,
		at.Kind,
		at.ExpiresAt,
		at.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert action token: %w", err)
	}

	return at, nil
}

// FindActive retrieves an unused, unexpired token of the given kind.
func (r *ActionTokenRepository) FindActive(ctx context.Context, token string, kind domain.ActionTokenKind) (*domain.ActionToken, error) {
	query := `
		SELECT id, user_id, token, kind, used, expires_at, created_at
		FROM action_tokens
		WHERE token = $1 AND kind = $2 AND used = false AND expires_at > $3`

	var at domain.ActionToken
	err := r.pool.QueryRow(ctx, query, token, kind, time.Now().UTC()).Scan(
		&at.ID,
		&at.UserID,
		&at.Token,
		&at.Kind,
		&at.Used,
		&at.ExpiresAt,
		&at.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan action token: %w", err)
	}

	return &at, nil
}

// MarkUsed consumes the token so it cannot be redeemed again.
func (r *ActionTokenRepository) MarkUsed(ctx context.Context, id string) error {
	query := `UPDATE action_tokens SET used = true WHERE id = $1 AND used = false`

	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark action token used: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
