package domain

import "time"

type User struct {
	ID           string
	Username     string
	PasswordHash string // argon2 encoded
	Verified     bool
	Staff        bool // application-level privilege: may impersonate other users

	// Two-factor enrollment state. A secret exists from the moment setup
	// begins; it only counts as enabled once TOTPConfirmedAt is set.
	TOTPSecret        *string    // base32 encoded (nullable)
	TOTPPendingSince  *time.Time // when an unconfirmed secret was issued (nullable)
	TOTPConfirmedAt   *time.Time // when the user proved possession (nullable)
	TwoFactorRequired bool       // user must pass a 2FA challenge at sign-in

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TwoFactorState is the enrollment state machine position for a user.
type TwoFactorState int

const (
	TwoFactorDisabled TwoFactorState = iota
	TwoFactorPendingSetup
	TwoFactorEnabled
)

func (s TwoFactorState) String() string {
	switch s {
	case TwoFactorPendingSetup:
		return "pending_setup"
	case TwoFactorEnabled:
		return "enabled"
	default:
		return "disabled"
	}
}

// TwoFactorState derives the enrollment state from the user row. An
// unconfirmed secret older than setupTTL is treated as disabled; the stale
// secret is cleaned up lazily by the next setup attempt or by housekeeping.
func (u User) TwoFactorState(now time.Time, setupTTL time.Duration) TwoFactorState {
	if u.TOTPConfirmedAt != nil {
		return TwoFactorEnabled
	}
	if u.TOTPSecret != nil && *u.TOTPSecret != "" && u.TOTPPendingSince != nil {
		if now.Sub(*u.TOTPPendingSince) <= setupTTL {
			return TwoFactorPendingSetup
		}
	}
	return TwoFactorDisabled
}
