package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Sub-repositories are reached through methods so that
// transactional work goes through WithTx and never nests.
type Store interface {
	Users() Users

	ApplyMigrations() error

	// WithTx runs fn in a read/write transaction. It commits when fn returns
	// nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases the underlying connection pool.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is the transaction-scoped view handed to WithTx callbacks.
type Tx interface {
	Users() Users
}

type Users interface {
	// CreateUser inserts a new user. Unique violations on username or email
	// return ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail expects an already normalized email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// SetResetToken overwrites any existing reset token pair for the user.
	SetResetToken(ctx context.Context, userID, tokenHash string, expiresAt, now time.Time) error

	// ConsumeVerificationToken atomically matches an unexpired verification
	// token, marks the user verified and clears the pair. Returns
	// ErrNotFound if no unexpired token matches.
	ConsumeVerificationToken(ctx context.Context, tokenHash string, now time.Time) (domain.User, error)

	// ConsumeResetToken atomically matches an unexpired reset token, replaces
	// the password digest and clears the pair. Returns ErrNotFound if no
	// unexpired token matches.
	ConsumeResetToken(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (domain.User, error)

	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	// ClearExpiredTokens nulls out token pairs whose expiry is not after now
	// and returns how many pairs were cleared.
	ClearExpiredTokens(ctx context.Context, now time.Time) (int64, error)
}
