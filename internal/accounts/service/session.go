package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wattlehq/accountd/internal/accounts/domain"
	"github.com/wattlehq/accountd/internal/accounts/store"
	"github.com/wattlehq/accountd/pkg/cryptox"
	"github.com/wattlehq/accountd/pkg/idx"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionExpired     = errors.New("session expired")
)

// ChallengeRequiredError is returned from SignIn when the password check
// passed but the user has two-factor enabled: no session exists yet, the
// caller must replay the challenge token with a TOTP or recovery code.
type ChallengeRequiredError struct {
	ChallengeToken string
}

func (e *ChallengeRequiredError) Error() string {
	return "two-factor challenge required"
}

// IssuedSession pairs a stored session with its bearer token. The token is
// only ever available here; storage keeps the fingerprint.
type IssuedSession struct {
	Session domain.Session
	Token   string
}

type SessionService struct {
	Store        store.Store
	SessionTTL   time.Duration
	ChallengeTTL time.Duration
}

// SignIn verifies the primary credential. Users without two-factor get a
// full session immediately; enrolled users get a ChallengeRequiredError
// carrying a short-lived challenge token instead.
//
// Unknown usernames and wrong passwords collapse into the same error.
func (s *SessionService) SignIn(ctx context.Context, username, password string) (IssuedSession, error) {
	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return IssuedSession{}, ErrInvalidCredentials
	}
	if err != nil {
		return IssuedSession{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		return IssuedSession{}, ErrInvalidCredentials
	}

	if user.TwoFactorRequired {
		// The challenge token is a bearer credential in its own right, so it
		// gets the same entropy and fingerprint treatment as session tokens.
		token, err := cryptox.GenerateToken(cryptox.TokenSize256)
		if err != nil {
			return IssuedSession{}, fmt.Errorf("failed to generate challenge token: %w", err)
		}
		challenge := domain.Challenge{
			ID:        idx.New().String(),
			TokenHash: cryptox.FingerprintToken(token),
			UserID:    user.ID,
			ExpiresAt: time.Now().Add(s.ChallengeTTL),
		}
		if err := s.Store.Challenges().CreateChallenge(ctx, challenge); err != nil {
			return IssuedSession{}, fmt.Errorf("failed to create challenge: %w", err)
		}
		return IssuedSession{}, &ChallengeRequiredError{ChallengeToken: token}
	}

	return s.Issue(ctx, s.Store, user.ID)
}

// Issue mints a fresh opaque token and stores a plain session for userID.
// It accepts the store explicitly so challenge verification can call it
// inside an open transaction.
func (s *SessionService) Issue(ctx context.Context, st store.Store, userID string) (IssuedSession, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return IssuedSession{}, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := domain.Session{
		ID:        idx.New().String(),
		TokenHash: cryptox.FingerprintToken(token),
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.SessionTTL),
	}
	if err := st.Sessions().CreateSession(ctx, session); err != nil {
		return IssuedSession{}, fmt.Errorf("failed to create session: %w", err)
	}

	return IssuedSession{Session: session, Token: token}, nil
}

// Resolve maps a bearer token to its live session. Expiry is evaluated
// lazily: an expired row is deleted on sight and reported as expired.
func (s *SessionService) Resolve(ctx context.Context, token string) (domain.Session, error) {
	session, err := s.Store.Sessions().GetSessionByTokenHash(ctx, cryptox.FingerprintToken(token))
	if err != nil {
		return domain.Session{}, err
	}

	if session.Expired(time.Now()) {
		if err := s.Store.Sessions().DeleteSession(ctx, session.ID); err != nil {
			return domain.Session{}, fmt.Errorf("failed to delete expired session: %w", err)
		}
		return domain.Session{}, ErrSessionExpired
	}

	return session, nil
}

// SignOut destroys the session. Signing out an already-gone session is fine.
func (s *SessionService) SignOut(ctx context.Context, sessionID string) error {
	return s.Store.Sessions().DeleteSession(ctx, sessionID)
}
