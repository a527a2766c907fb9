package sqlite

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

type usersRepo struct {
	db dbtx
}

func scanUser(row interface{ Scan(...any) error }) (domain.User, error) {
	var (
		u                  domain.User
		verifyHash, rsHash sql.NullString
		verifyExp, rsExp   sql.NullTime
		lastLogin          sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsVerified,
		&verifyHash, &verifyExp,
		&rsHash, &rsExp,
		&lastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.VerificationTokenHash = mapNullStringPtr(verifyHash)
	u.VerificationTokenExpiresAt = mapNullTimePtr(verifyExp)
	u.ResetTokenHash = mapNullStringPtr(rsHash)
	u.ResetTokenExpiresAt = mapNullTimePtr(rsExp)
	u.LastLogin = mapNullTimePtr(lastLogin)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (r *usersRepo) getBy(ctx context.Context, column, value string) (domain.User, error) {
	// column is always one of the constants below, never user input
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)
	return scanUser(row)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getBy(ctx, "email", email)
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, username, email, password_hash, is_verified,
			verification_token_hash, verification_token_expires_at,
			reset_token_hash, reset_token_expires_at,
			last_login, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.IsVerified,
		optionalString(u.VerificationTokenHash), optionalTime(u.VerificationTokenExpiresAt),
		optionalString(u.ResetTokenHash), optionalTime(u.ResetTokenExpiresAt),
		optionalTime(u.LastLogin), u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *usersRepo) SetResetToken(
	ctx context.Context,
	userID, tokenHash string,
	expiresAt, now time.Time,
) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET reset_token_hash = ?, reset_token_expires_at = ?, updated_at = ?
		WHERE id = ?`,
		tokenHash, expiresAt.UTC(), now.UTC(), userID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return requireOneRow(res)
}

func (r *usersRepo) ConsumeVerificationToken(
	ctx context.Context,
	tokenHash string,
	now time.Time,
) (domain.User, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		UPDATE users
		SET is_verified = 1,
		    verification_token_hash = NULL,
		    verification_token_expires_at = NULL,
		    updated_at = ?
		WHERE verification_token_hash = ? AND verification_token_expires_at > ?
		RETURNING id`,
		now.UTC(), tokenHash, now.UTC(),
	).Scan(&id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return r.GetUserByID(ctx, id)
}

func (r *usersRepo) ConsumeResetToken(
	ctx context.Context,
	tokenHash, newPasswordHash string,
	now time.Time,
) (domain.User, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		UPDATE users
		SET password_hash = ?,
		    reset_token_hash = NULL,
		    reset_token_expires_at = NULL,
		    updated_at = ?
		WHERE reset_token_hash = ? AND reset_token_expires_at > ?
		RETURNING id`,
		newPasswordHash, now.UTC(), tokenHash, now.UTC(),
	).Scan(&id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return r.GetUserByID(ctx, id)
}

func (r *usersRepo) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), at.UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

func (r *usersRepo) ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	var total int64

	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET verification_token_hash = NULL, verification_token_expires_at = NULL
		WHERE verification_token_expires_at IS NOT NULL AND verification_token_expires_at <= ?`,
		now.UTC(),
	)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	total += n

	res, err = r.db.ExecContext(ctx, `
		UPDATE users
		SET reset_token_hash = NULL, reset_token_expires_at = NULL
		WHERE reset_token_expires_at IS NOT NULL AND reset_token_expires_at <= ?`,
		now.UTC(),
	)
	if err != nil {
		return total, err
	}
	n, _ = res.RowsAffected()
	return total + n, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}

func optionalString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func optionalTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
