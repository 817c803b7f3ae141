package domain

import (
	"errors"
	"time"
)

// ErrIllegalSession reports a session whose impersonation fields are
// inconsistent (impersonator without a parent session to restore, or the
// reverse). The schema carries the same CHECK constraint.
var ErrIllegalSession = errors.New("domain: impersonator and parent session must be set together")

// Session is one authenticated client instance. It is owned by UserID for
// authentication purposes; AccountID is the acting account (nil until one is
// chosen) and ImpersonatorID is set only while a staff user is masquerading
// as UserID. ParentSessionID then points at the suspended staff session so
// stopping the impersonation can restore it.
type Session struct {
	ID        string
	TokenHash string // SHA-256 fingerprint of the opaque bearer token
	UserID    string

	AccountID       *string
	ImpersonatorID  *string
	ParentSessionID *string

	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate rejects structurally illegal sessions before they reach storage.
func (s Session) Validate() error {
	if (s.ImpersonatorID == nil) != (s.ParentSessionID == nil) {
		return ErrIllegalSession
	}
	return nil
}

// Impersonated reports whether this session is acting as another user on a
// staff member's behalf.
func (s Session) Impersonated() bool {
	return s.ImpersonatorID != nil
}

// Expired reports whether the session is past its TTL at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
