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
	"github.com/wattlehq/accountd/pkg/slogx"
)

var (
	ErrNotStaff             = errors.New("impersonation requires staff privileges")
	ErrAlreadyImpersonating = errors.New("already impersonating a user")
	ErrNotImpersonating     = errors.New("session is not impersonating anyone")
	ErrSelfImpersonation    = errors.New("cannot impersonate yourself")
)

type ImpersonationService struct {
	Store store.Store
}

// Start suspends the staff member's own session and issues a new one acting
// as the target user. The new session carries the impersonator and parent
// links, so every account-scoped decision downstream runs against the
// target's memberships (impersonation narrows privilege, never widens it)
// and Stop can find its way back. The start is recorded as an audit event
// in the same transaction; no audit row, no impersonation.
//
// The issued session inherits the staff session's expiry, so an
// impersonation can never outlive the credential that started it. An
// unknown target is store.ErrNotFound.
func (s *ImpersonationService) Start(ctx context.Context, staffSession domain.Session, targetUserID string) (IssuedSession, error) {
	if staffSession.Impersonated() {
		return IssuedSession{}, ErrAlreadyImpersonating
	}

	staff, err := s.Store.Users().GetUserByID(ctx, staffSession.UserID)
	if err != nil {
		return IssuedSession{}, fmt.Errorf("failed to load user: %w", err)
	}
	if !staff.Staff {
		return IssuedSession{}, ErrNotStaff
	}
	if targetUserID == staff.ID {
		return IssuedSession{}, ErrSelfImpersonation
	}

	target, err := s.Store.Users().GetUserByID(ctx, targetUserID)
	if err != nil {
		return IssuedSession{}, err
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return IssuedSession{}, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := domain.Session{
		ID:              idx.New().String(),
		TokenHash:       cryptox.FingerprintToken(token),
		UserID:          target.ID,
		ImpersonatorID:  &staff.ID,
		ParentSessionID: &staffSession.ID,
		ExpiresAt:       staffSession.ExpiresAt,
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().CreateSession(ctx, session); err != nil {
			return fmt.Errorf("failed to create impersonation session: %w", err)
		}
		event := domain.AuditEvent{
			ID:        idx.New().String(),
			ActorID:   staff.ID,
			SubjectID: target.ID,
			Action:    domain.AuditImpersonateStart,
		}
		if err := tx.AuditEvents().CreateAuditEvent(ctx, event); err != nil {
			return fmt.Errorf("failed to record audit event: %w", err)
		}
		return nil
	})
	if err != nil {
		return IssuedSession{}, err
	}

	slogx.FromContext(ctx).Info("impersonation started",
		"actor_id", staff.ID, "subject_id", target.ID)

	return IssuedSession{Session: session, Token: token}, nil
}

// Stop ends an impersonation: the masquerading session is destroyed and the
// suspended staff session restored under a freshly rotated token. If the
// staff session expired in the meantime both sessions are destroyed and the
// staff member has to sign in again.
func (s *ImpersonationService) Stop(ctx context.Context, session domain.Session) (IssuedSession, error) {
	if !session.Impersonated() {
		return IssuedSession{}, ErrNotImpersonating
	}

	parent, err := s.Store.Sessions().GetSessionByID(ctx, *session.ParentSessionID)
	if errors.Is(err, store.ErrNotFound) {
		if err := s.Store.Sessions().DeleteSession(ctx, session.ID); err != nil {
			return IssuedSession{}, fmt.Errorf("failed to delete orphaned session: %w", err)
		}
		return IssuedSession{}, ErrSessionExpired
	}
	if err != nil {
		return IssuedSession{}, fmt.Errorf("failed to load parent session: %w", err)
	}

	if parent.Expired(time.Now()) {
		err := s.Store.WithTx(ctx, func(tx store.Tx) error {
			if err := tx.Sessions().DeleteSession(ctx, session.ID); err != nil {
				return err
			}
			return tx.Sessions().DeleteSession(ctx, parent.ID)
		})
		if err != nil {
			return IssuedSession{}, fmt.Errorf("failed to delete expired sessions: %w", err)
		}
		return IssuedSession{}, ErrSessionExpired
	}

	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return IssuedSession{}, fmt.Errorf("failed to generate session token: %w", err)
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Sessions().DeleteSession(ctx, session.ID); err != nil {
			return fmt.Errorf("failed to delete impersonation session: %w", err)
		}
		if err := tx.Sessions().RotateSessionToken(ctx, parent.ID, cryptox.FingerprintToken(token)); err != nil {
			return fmt.Errorf("failed to rotate parent token: %w", err)
		}
		event := domain.AuditEvent{
			ID:        idx.New().String(),
			ActorID:   *session.ImpersonatorID,
			SubjectID: session.UserID,
			Action:    domain.AuditImpersonateStop,
		}
		if err := tx.AuditEvents().CreateAuditEvent(ctx, event); err != nil {
			return fmt.Errorf("failed to record audit event: %w", err)
		}
		return nil
	})
	if err != nil {
		return IssuedSession{}, err
	}

	slogx.FromContext(ctx).Info("impersonation stopped",
		"actor_id", *session.ImpersonatorID, "subject_id", session.UserID)

	parent.TokenHash = cryptox.FingerprintToken(token)
	return IssuedSession{Session: parent, Token: token}, nil
}

// AuditTrail lists a staff member's impersonation events, newest first.
func (s *ImpersonationService) AuditTrail(ctx context.Context, actorID string) ([]domain.AuditEvent, error) {
	return s.Store.AuditEvents().ListAuditEventsForActor(ctx, actorID)
}
