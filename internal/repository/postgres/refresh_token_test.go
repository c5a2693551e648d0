package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/brightcart/auth-service/pkg/errors"
)

func newRefreshTestFixture(t *testing.T) (*RefreshTokenRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	repo := NewRefreshTokenRepository(mock)
	return repo, mock
}

func refreshColumns() []string {
	return []string{
		"id", "user_id", "token_hash", "token_family",
		"expires_at", "created_at", "revoked_at", "replaced_by",
	}
}

func TestRefreshTokenRepository_Create(t *testing.T) {
	repo, mock := newRefreshTestFixture(t)
	defer mock.Close()

	expiresAt := time.Now().UTC().Add(7 * 24 * time.Hour)

	mock.ExpectExec("INSERT INTO refresh_tokens").
		WithArgs(pgxmock.AnyArg(), "u-1", "hash-abc", "fam-1", expiresAt, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec, err := repo.Create(context.Background(), "u-1", "hash-abc", "fam-1", expiresAt)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "u-1", rec.UserID)
	assert.Equal(t, "hash-abc", rec.TokenHash)
	assert.Equal(t, "fam-1", rec.TokenFamily)
	assert.Nil(t, rec.RevokedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_GetByHash_ReturnsRevokedRecords(t *testing.T) {
	repo, mock := newRefreshTestFixture(t)
	defer mock.Close()

	now := time.Now().UTC().Truncate(time.Microsecond)
	revokedAt := now.Add(-time.Minute)
	replacedBy := "rt-new"

	rows := pgxmock.NewRows(refreshColumns()).AddRow(
		"rt-1", "u-1", "hash-abc", "fam-1",
		now.Add(24*time.Hour), now.Add(-time.Hour), &revokedAt, &replacedBy,
	)

	mock.ExpectQuery("SELECT id, user_id, token_hash").
		WithArgs("hash-abc").
		WillReturnRows(rows)

	rec, err := repo.GetByHash(context.Background(), "hash-abc")
	require.NoError(t, err)
	assert.True(t, rec.Revoked())
	require.NotNil(t, rec.ReplacedBy)
	assert.Equal(t, "rt-new", *rec.ReplacedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_GetByHash_NotFound(t *testing.T) {
	repo, mock := newRefreshTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, user_id, token_hash").
		WithArgs("hash-missing").
		WillReturnError(pgx.ErrNoRows)

	rec, err := repo.GetByHash(context.Background(), "hash-missing")
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRefreshTokenRepository_Revoke(t *testing.T) {
	repo, mock := newRefreshTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs(pgxmock.AnyArg(), "rt-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Revoke(context.Background(), "rt-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_Revoke_AlreadyRevokedIsNoop(t *testing.T) {
	repo, mock := newRefreshTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs(pgxmock.AnyArg(), "rt-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Revoke(context.Background(), "rt-1")
	assert.NoError(t, err)
}

func TestRefreshTokenRepository_RevokeFamily(t *testing.T) {
	repo, mock := newRefreshTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs(pgxmock.AnyArg(), "fam-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	err := repo.RevokeFamily(context.Background(), "fam-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_RevokeByUserID(t *testing.T) {
	repo, mock := newRefreshTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").
		WithArgs(pgxmock.AnyArg(), "u-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	err := repo.RevokeByUserID(context.Background(), "u-1")
	assert.NoError(t, err)
}

func TestRefreshTokenRepository_MarkReplaced_Wins(t *testing.T) {
	repo, mock := newRefreshTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE refresh_tokens").
		WithArgs(pgxmock.AnyArg(), "rt-new", "rt-old").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	won, err := repo.MarkReplaced(context.Background(), "rt-old", "rt-new")
	require.NoError(t, err)
	assert.True(t, won)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefreshTokenRepository_MarkReplaced_LosesWhenAlreadyRevoked(t *testing.T) {
	repo, mock := newRefreshTestFixture(t)
	defer mock.Close()

	// The conditional update matches no row when the record was revoked by
	// a concurrent rotation.
	mock.ExpectExec("UPDATE refresh_tokens").
		WithArgs(pgxmock.AnyArg(), "rt-new", "rt-old").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	won, err := repo.MarkReplaced(context.Background(), "rt-old", "rt-new")
	require.NoError(t, err)
	assert.False(t, won)
}
