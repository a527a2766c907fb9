package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{
	"id", "username", "email", "password_hash", "is_verified",
	"verification_token_hash", "verification_token_expires_at",
	"reset_token_hash", "reset_token_expires_at",
	"last_login", "created_at", "updated_at",
}

func newRepoWithMock(t *testing.T) (*UsersRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUsersRepository(db), mock, db
}

func TestGetUserByEmail_Found(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(userRowColumns).
		AddRow("u-1", "alice", "alice@example.com", "digest", true, nil, nil, nil, nil, now, now, now)
	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("alice@example.com").
		WillReturnRows(rows)

	got, err := repo.GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, "u-1", got.ID)
	require.True(t, got.IsVerified)
	require.Nil(t, got.VerificationTokenHash)
	require.NotNil(t, got.LastLogin)
	require.Equal(t, now, *got.LastLogin)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByUsername_NotFound(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`FROM users WHERE username = \$1`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUserByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetUserByID_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("u-1").
		WillReturnError(errors.New("db down"))

	_, err := repo.GetUserByID(context.Background(), "u-1")
	require.Error(t, err)
	require.NotErrorIs(t, err, store.ErrNotFound)
	require.Contains(t, err.Error(), "db down")
}

func TestCreateUser_UniqueViolation(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation, ConstraintName: "users_email_key"})

	err := repo.CreateUser(context.Background(), domain.User{
		ID: "u-1", Username: "alice", Email: "alice@example.com", PasswordHash: "digest",
		CreatedAt: now, UpdatedAt: now,
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
	require.Contains(t, err.Error(), "users_email_key")
}

func TestConsumeVerificationToken_NoMatch(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`UPDATE users SET is_verified = TRUE`).
		WithArgs("fingerprint", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(userRowColumns))

	_, err := repo.ConsumeVerificationToken(context.Background(), "fingerprint", time.Now())
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeResetToken_Success(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(userRowColumns).
		AddRow("u-1", "alice", "alice@example.com", "new-digest", true, nil, nil, nil, nil, nil, now, now)
	mock.ExpectQuery(`UPDATE users SET password_hash = \$2`).
		WithArgs("fingerprint", "new-digest", now).
		WillReturnRows(rows)

	got, err := repo.ConsumeResetToken(context.Background(), "fingerprint", "new-digest", now)
	require.NoError(t, err)
	require.Equal(t, "new-digest", got.PasswordHash)
	require.Nil(t, got.ResetTokenHash)
	require.Nil(t, got.LastLogin)
}

func TestSetResetToken_UnknownUser(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE users SET reset_token_hash = \$2`).
		WithArgs("u-404", "fingerprint", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetResetToken(context.Background(), "u-404", "fingerprint", time.Now().Add(time.Hour), time.Now())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestClearExpiredTokens_SumsBothPairs(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`SET verification_token_hash = NULL`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`SET reset_token_hash = NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.ClearExpiredTokens(context.Background(), time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	s := &Store{db: db}
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users SET last_login`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err = s.WithTx(context.Background(), func(tx store.Tx) error {
		require.NoError(t, tx.Users().UpdateLastLogin(context.Background(), "u-1", time.Now()))
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_Commits(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	s := &Store{db: db}

	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, s.WithTx(context.Background(), func(store.Tx) error { return nil }))
	require.NoError(t, mock.ExpectationsWereMet())
}
