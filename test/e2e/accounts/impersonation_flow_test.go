package accounts_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func makeStaff(t *testing.T, ts *testServer, userID string) {
	t.Helper()
	require.NoError(t, ts.Store.Users().SetStaff(context.Background(), userID, true))
}

// TestImpersonationFlow walks a support engineer through a full
// impersonation cycle and checks the audit trail afterwards.
func TestImpersonationFlow(t *testing.T) {
	t.Parallel()

	ts := setupServer(t, false)
	ctx := t.Context()

	staff := signUpAndIn(t, ts, "support", "CorrectHorse1!")
	makeStaff(t, ts, staff.UserID())

	target := signUpAndIn(t, ts, "customer", "CorrectHorse2!")
	account, err := target.CreateAccount(ctx, "customer workspace", true)
	require.NoError(t, err)

	impersonated, err := staff.Impersonate(ctx, target.UserID())
	require.NoError(t, err)
	require.Equal(t, target.UserID(), impersonated.UserID())

	// The impersonated session sees the target's world.
	list, err := impersonated.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, list.Accounts, 1)
	require.Equal(t, account.ID, list.Accounts[0].ID)

	// Stopping restores the staff identity under a fresh token.
	restored, err := impersonated.StopImpersonating(ctx)
	require.NoError(t, err)
	require.Equal(t, staff.UserID(), restored.UserID())
	require.NotEqual(t, staff.Token(), restored.Token())

	// The suspended staff token was rotated away.
	_, err = staff.Accounts(ctx)
	requireAPIError(t, err, http.StatusUnauthorized, "unauthorized")

	trail, err := restored.AuditTrail(ctx)
	require.NoError(t, err)
	require.Len(t, trail.Events, 2)
	require.Equal(t, "impersonate_stop", trail.Events[0].Action)
	require.Equal(t, "impersonate_start", trail.Events[1].Action)
	require.Equal(t, target.UserID(), trail.Events[0].SubjectID)
}

// TestImpersonationGuards covers the refusal cases.
func TestImpersonationGuards(t *testing.T) {
	t.Parallel()

	ts := setupServer(t, false)
	ctx := t.Context()

	staff := signUpAndIn(t, ts, "support", "CorrectHorse1!")
	makeStaff(t, ts, staff.UserID())
	civilian := signUpAndIn(t, ts, "civilian", "CorrectHorse2!")

	// Non-staff users cannot impersonate anyone.
	_, err := civilian.Impersonate(ctx, staff.UserID())
	requireAPIError(t, err, http.StatusForbidden, "not_staff")

	// Staff cannot impersonate themselves or ghosts.
	_, err = staff.Impersonate(ctx, staff.UserID())
	requireAPIError(t, err, http.StatusBadRequest, "self_impersonation")

	_, err = staff.Impersonate(ctx, "01JNOSUCHUSERXXXXXXXXXXXXX")
	requireAPIError(t, err, http.StatusNotFound, "not_found")

	// Stop without an active impersonation is a conflict.
	_, err = staff.StopImpersonating(ctx)
	requireAPIError(t, err, http.StatusConflict, "not_impersonating")

	// Impersonation does not nest.
	impersonated, err := staff.Impersonate(ctx, civilian.UserID())
	require.NoError(t, err)
	_, err = impersonated.Impersonate(ctx, civilian.UserID())
	requireAPIError(t, err, http.StatusConflict, "already_impersonating")

	// Credential-weakening operations are refused while impersonating:
	// regenerating recovery codes, disabling two-factor, changing the
	// password.
	_, err = impersonated.RegenerateRecoveryCodes(ctx)
	requireAPIError(t, err, http.StatusForbidden, "impersonated_session")

	err = impersonated.DisableTwoFactor(ctx)
	requireAPIError(t, err, http.StatusForbidden, "impersonated_session")

	err = impersonated.ChangePassword(ctx, "CorrectHorse2!", "Hijacked3!")
	requireAPIError(t, err, http.StatusForbidden, "impersonated_session")

	// The civilian's password is untouched.
	_, err = ts.Client.SignIn(ctx, "civilian", "CorrectHorse2!")
	require.NoError(t, err)
}
