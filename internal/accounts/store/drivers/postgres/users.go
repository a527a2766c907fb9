package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
)

const userColumns = `id, username, email, password_hash, is_verified,
	verification_token_hash, verification_token_expires_at,
	reset_token_hash, reset_token_expires_at,
	last_login, created_at, updated_at`

type UsersRepository struct {
	db DBTX
}

func NewUsersRepository(db DBTX) *UsersRepository {
	return &UsersRepository{db: db}
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u                        domain.User
		verifyHash, resetHash    sql.NullString
		verifyExp, resetExp, llg sql.NullTime
	)

	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsVerified,
		&verifyHash, &verifyExp,
		&resetHash, &resetExp,
		&llg, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapError(err)
	}

	u.VerificationTokenHash = stringPtr(verifyHash)
	u.VerificationTokenExpiresAt = timePtr(verifyExp)
	u.ResetTokenHash = stringPtr(resetHash)
	u.ResetTokenExpiresAt = timePtr(resetExp)
	u.LastLogin = timePtr(llg)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (r *UsersRepository) CreateUser(ctx context.Context, u domain.User) error {
	query :=
		`INSERT INTO users (` + userColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Username, u.Email, u.PasswordHash, u.IsVerified,
		nullString(u.VerificationTokenHash), nullTime(u.VerificationTokenExpiresAt),
		nullString(u.ResetTokenHash), nullTime(u.ResetTokenExpiresAt),
		nullTime(u.LastLogin), u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	return mapError(err)
}

func (r *UsersRepository) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UsersRepository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *UsersRepository) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (r *UsersRepository) SetResetToken(
	ctx context.Context,
	userID, tokenHash string,
	expiresAt, now time.Time,
) error {
	query :=
		`UPDATE users
		 SET reset_token_hash = $2, reset_token_expires_at = $3, updated_at = $4
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, userID, tokenHash, expiresAt.UTC(), now.UTC())
	if err != nil {
		return mapError(err)
	}
	return expectAffected(res)
}

// ConsumeVerificationToken relies on the row lock taken by UPDATE: a
// concurrent consumer re-evaluates the WHERE clause after the winner commits
// and matches nothing.
func (r *UsersRepository) ConsumeVerificationToken(
	ctx context.Context,
	tokenHash string,
	now time.Time,
) (domain.User, error) {
	query :=
		`UPDATE users
		 SET is_verified = TRUE,
		     verification_token_hash = NULL,
		     verification_token_expires_at = NULL,
		     updated_at = $2
		 WHERE verification_token_hash = $1 AND verification_token_expires_at > $2
		 RETURNING ` + userColumns

	return scanUser(r.db.QueryRowContext(ctx, query, tokenHash, now.UTC()))
}

func (r *UsersRepository) ConsumeResetToken(
	ctx context.Context,
	tokenHash, newPasswordHash string,
	now time.Time,
) (domain.User, error) {
	query :=
		`UPDATE users
		 SET password_hash = $2,
		     reset_token_hash = NULL,
		     reset_token_expires_at = NULL,
		     updated_at = $3
		 WHERE reset_token_hash = $1 AND reset_token_expires_at > $3
		 RETURNING ` + userColumns

	return scanUser(r.db.QueryRowContext(ctx, query, tokenHash, newPasswordHash, now.UTC()))
}

func (r *UsersRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	query :=
		`UPDATE users SET last_login = $2, updated_at = $2
		 WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, userID, at.UTC())
	if err != nil {
		return mapError(err)
	}
	return expectAffected(res)
}

func (r *UsersRepository) ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	verification :=
		`UPDATE users
		 SET verification_token_hash = NULL, verification_token_expires_at = NULL
		 WHERE verification_token_expires_at <= $1`
	reset :=
		`UPDATE users
		 SET reset_token_hash = NULL, reset_token_expires_at = NULL
		 WHERE reset_token_expires_at <= $1`

	var total int64
	for _, q := range []string{verification, reset} {
		res, err := r.db.ExecContext(ctx, q, now.UTC())
		if err != nil {
			return total, mapError(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, mapError(err)
		}
		total += n
	}
	return total, nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return mapError(sql.ErrNoRows)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
