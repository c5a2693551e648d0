package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightcart/auth-service/internal/domain"
	apperrors "github.com/brightcart/auth-service/pkg/errors"
)

func newActionTestFixture(t *testing.T) (*ActionTokenRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	repo := NewActionTokenRepository(mock)
	return repo, mock
}

func TestActionTokenRepository_Create(t *testing.T) {
	repo, mock := newActionTestFixture(t)
	defer mock.Close()

	expiresAt := time.Now().UTC().Add(24 * time.Hour)

	mock.ExpectExec("INSERT INTO action_tokens").
		WithArgs(pgxmock.AnyArg(), "u-1", "tok-abc", domain.ActionTokenVerification, expiresAt, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	at, err := repo.Create(context.Background(), "u-1", "tok-abc", domain.ActionTokenVerification, expiresAt)
	require.NoError(t, err)
	assert.NotEmpty(t, at.ID)
	assert.Equal(t, domain.ActionTokenVerification, at.Kind)
	assert.False(t, at.Used)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActionTokenRepository_FindActive(t *testing.T) {
	repo, mock := newActionTestFixture(t)
	defer mock.Close()

	now := time.Now().UTC().Truncate(time.Microsecond)
	rows := pgxmock.NewRows([]string{"id", "user_id", "token", "kind", "used", "expires_at", "created_at"}).
		AddRow("at-1", "u-1", "tok-abc", domain.ActionTokenPasswordReset, false, now.Add(time.Hour), now)

	mock.ExpectQuery("SELECT id, user_id, token, kind").
		WithArgs("tok-abc", domain.ActionTokenPasswordReset, pgxmock.AnyArg()).
		WillReturnRows(rows)

	at, err := repo.FindActive(context.Background(), "tok-abc", domain.ActionTokenPasswordReset)
	require.NoError(t, err)
	assert.Equal(t, "at-1", at.ID)
	assert.Equal(t, "u-1", at.UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActionTokenRepository_FindActive_UsedOrExpired(t *testing.T) {
	repo, mock := newActionTestFixture(t)
	defer mock.Close()

	// Used and expired tokens fall out of the WHERE clause and surface as
	// not found.
	mock.ExpectQuery("SELECT id, user_id, token, kind").
		WithArgs("tok-used", domain.ActionTokenVerification, pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	at, err := repo.FindActive(context.Background(), "tok-used", domain.ActionTokenVerification)
	assert.Nil(t, at)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestActionTokenRepository_MarkUsed(t *testing.T) {
	repo, mock := newActionTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE action_tokens SET used").
		WithArgs("at-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.MarkUsed(context.Background(), "at-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActionTokenRepository_MarkUsed_AlreadyConsumed(t *testing.T) {
	repo, mock := newActionTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE action_tokens SET used").
		WithArgs("at-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.MarkUsed(context.Background(), "at-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
