package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wattlehq/accountd/internal/accounts/domain"
	"github.com/wattlehq/accountd/internal/accounts/store"
)

func TestImpersonation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	sessions, _, accounts, impersonation, _ := newTestServices(t, st)
	guard := &GuardService{Store: st}

	staff := registerUser(t, st, "staff", "password-staff")
	makeStaff(t, st, staff)
	target := registerUser(t, st, "target", "password-target")
	civilian := registerUser(t, st, "civilian", "password-civilian")

	staffAccount, err := accounts.CreateAccount(ctx, staff.ID, "staff account", true)
	require.NoError(t, err)
	targetAccount, err := accounts.CreateAccount(ctx, target.ID, "target account", true)
	require.NoError(t, err)

	staffIssued, err := sessions.SignIn(ctx, "staff", "password-staff")
	require.NoError(t, err)

	t.Run("non-staff may not impersonate", func(t *testing.T) {
		civIssued, err := sessions.SignIn(ctx, "civilian", "password-civilian")
		require.NoError(t, err)

		_, err = impersonation.Start(ctx, civIssued.Session, target.ID)
		require.ErrorIs(t, err, ErrNotStaff)
	})

	t.Run("unknown target is not found", func(t *testing.T) {
		_, err := impersonation.Start(ctx, staffIssued.Session, "no-such-user")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("staff cannot impersonate themselves", func(t *testing.T) {
		_, err := impersonation.Start(ctx, staffIssued.Session, staff.ID)
		require.ErrorIs(t, err, ErrSelfImpersonation)
	})

	t.Run("start, act as target, stop", func(t *testing.T) {
		issued, err := impersonation.Start(ctx, staffIssued.Session, target.ID)
		require.NoError(t, err)

		session := issued.Session
		require.Equal(t, target.ID, session.UserID)
		require.True(t, session.Impersonated())
		require.Equal(t, staff.ID, *session.ImpersonatorID)
		require.Equal(t, staffIssued.Session.ID, *session.ParentSessionID)
		require.Equal(t, staffIssued.Session.ExpiresAt, session.ExpiresAt)

		// Authorization runs against the target's memberships, never the
		// impersonator's: the staff member's own account hard-denies.
		_, decision, err := guard.Check(ctx, session.UserID, staffAccount.ID, ActionView)
		require.NoError(t, err)
		require.Equal(t, HardDeny, decision.Verdict)

		_, decision, err = guard.Check(ctx, session.UserID, targetAccount.ID, ActionView)
		require.NoError(t, err)
		require.Equal(t, Allow, decision.Verdict)

		// Starting again while already impersonating is refused.
		_, err = impersonation.Start(ctx, session, civilian.ID)
		require.ErrorIs(t, err, ErrAlreadyImpersonating)

		restored, err := impersonation.Stop(ctx, session)
		require.NoError(t, err)
		require.Equal(t, staffIssued.Session.ID, restored.Session.ID)
		require.Equal(t, staff.ID, restored.Session.UserID)
		require.False(t, restored.Session.Impersonated())
		require.NotEmpty(t, restored.Token)
		require.NotEqual(t, issued.Token, restored.Token)

		// The impersonation session is gone; the restored token resolves.
		_, err = sessions.Resolve(ctx, issued.Token)
		require.ErrorIs(t, err, store.ErrNotFound)

		resolved, err := sessions.Resolve(ctx, restored.Token)
		require.NoError(t, err)
		require.Equal(t, staffIssued.Session.ID, resolved.ID)
	})

	t.Run("start and stop are audited", func(t *testing.T) {
		events, err := impersonation.AuditTrail(ctx, staff.ID)
		require.NoError(t, err)
		require.Len(t, events, 2)

		// Newest first.
		require.Equal(t, domain.AuditImpersonateStop, events[0].Action)
		require.Equal(t, domain.AuditImpersonateStart, events[1].Action)
		for _, event := range events {
			require.Equal(t, staff.ID, event.ActorID)
			require.Equal(t, target.ID, event.SubjectID)
		}
	})

	t.Run("stop on a plain session is refused", func(t *testing.T) {
		plain, err := st.Sessions().GetSessionByID(ctx, staffIssued.Session.ID)
		require.NoError(t, err)

		_, err = impersonation.Stop(ctx, plain)
		require.ErrorIs(t, err, ErrNotImpersonating)
	})
}

func TestImpersonationSwitchUsesTargetMemberships(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	sessions, _, accounts, impersonation, _ := newTestServices(t, st)

	staff := registerUser(t, st, "staff", "password-staff")
	makeStaff(t, st, staff)
	target := registerUser(t, st, "target", "password-target")

	staffAccount, err := accounts.CreateAccount(ctx, staff.ID, "staff account", true)
	require.NoError(t, err)
	targetAccount, err := accounts.CreateAccount(ctx, target.ID, "target account", true)
	require.NoError(t, err)

	staffIssued, err := sessions.SignIn(ctx, "staff", "password-staff")
	require.NoError(t, err)
	issued, err := impersonation.Start(ctx, staffIssued.Session, target.ID)
	require.NoError(t, err)

	// Switching to the impersonator's own account must fail as not-found.
	_, err = accounts.Switch(ctx, issued.Session, staffAccount.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err := accounts.Switch(ctx, issued.Session, targetAccount.ID)
	require.NoError(t, err)
	require.Equal(t, targetAccount.ID, got.ID)
}
