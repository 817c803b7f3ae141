package domain

import "time"

// Challenge is a pending two-factor sign-in: the password check has passed
// but the session is not yet trusted. The client replays an opaque token
// with its code; only the token's fingerprint is stored, like sessions.
type Challenge struct {
	ID        string
	TokenHash string
	UserID    string
	Attempts  int // failed verification attempts; capped to stop brute force

	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the challenge is past its TTL at now.
func (c Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// RecoveryCode is a single-use backup credential. Only the fingerprint of
// the normalized code is stored; UsedAt flips exactly once and the row is
// never re-validated afterwards.
type RecoveryCode struct {
	ID       string
	UserID   string
	CodeHash string
	UsedAt   *time.Time

	CreatedAt time.Time
}

// TwoFactorSetup is returned when enrollment begins. The secret is not yet
// trusted; it is persisted as pending and only confirmed once the user
// proves possession of a valid code.
type TwoFactorSetup struct {
	Secret  string // Base32 encoded secret for TOTP
	URL     string // otpauth:// URL for QR code generation
	Issuer  string
	Account string // account name shown in the authenticator app
}
