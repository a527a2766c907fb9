package domain

import (
	"strings"
	"time"
)

// User is the persisted account record.
type User struct {
	ID           string
	Username     string // unique, immutable after creation
	Email        string // unique, stored normalized (see NormalizeEmail)
	PasswordHash string // self-describing digest, never the plaintext

	IsVerified bool

	// Token fingerprints and their expiries are set and cleared together.
	VerificationTokenHash      *string
	VerificationTokenExpiresAt *time.Time
	ResetTokenHash             *string
	ResetTokenExpiresAt        *time.Time

	LastLogin *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccountState is the verification state of an account.
type AccountState string

const (
	StateUnverified AccountState = "unverified"
	StateVerified   AccountState = "verified"
)

// State returns the verification state. Verified is terminal.
func (u User) State() AccountState {
	if u.IsVerified {
		return StateVerified
	}
	return StateUnverified
}

// HasPendingReset reports whether an unexpired reset token is outstanding.
// An expired reset is treated the same as no reset at all.
func (u User) HasPendingReset(now time.Time) bool {
	return u.ResetTokenHash != nil &&
		u.ResetTokenExpiresAt != nil &&
		u.ResetTokenExpiresAt.After(now)
}

// HasPendingVerification reports whether an unexpired verification token is
// outstanding.
func (u User) HasPendingVerification(now time.Time) bool {
	return u.VerificationTokenHash != nil &&
		u.VerificationTokenExpiresAt != nil &&
		u.VerificationTokenExpiresAt.After(now)
}

// UserView is the public projection of a User. It never carries the password
// digest or token fingerprints.
type UserView struct {
	ID         string
	Username   string
	Email      string
	IsVerified bool
	LastLogin  *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// View projects u for callers.
func (u User) View() UserView {
	return UserView{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		IsVerified: u.IsVerified,
		LastLogin:  u.LastLogin,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// NormalizeEmail trims surrounding whitespace and lower-cases the address so
// lookups and uniqueness are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
