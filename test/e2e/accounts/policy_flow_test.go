package accounts_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestMandatoryTwoFactorPolicy runs the server with enforced enrollment:
// unenrolled users are fenced into the setup flow until they confirm a
// secret, then the rest of the API opens up.
func TestMandatoryTwoFactorPolicy(t *testing.T) {
	t.Parallel()

	ts := setupServer(t, true)
	ctx := t.Context()

	session := signUpAndIn(t, ts, "alice", "CorrectHorse1!")

	// Everything outside the enrollment surface is fenced off.
	_, err := session.Accounts(ctx)
	requireAPIError(t, err, http.StatusForbidden, "two_factor_required")

	_, err = session.CreateAccount(ctx, "blocked", true)
	requireAPIError(t, err, http.StatusForbidden, "two_factor_required")

	// The setup endpoints and sign-out stay reachable.
	status, err := session.TwoFactorStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, "disabled", status.State)

	secret, _ := enroll(t, session)
	require.NotEmpty(t, secret)

	// Enrollment done: the fence is gone.
	_, err = session.Accounts(ctx)
	require.NoError(t, err)

	require.NoError(t, session.SignOut(ctx))
}

// TestMandatoryTwoFactorAllowsSignOut checks an unenrolled user is never
// trapped in a session they cannot leave.
func TestMandatoryTwoFactorAllowsSignOut(t *testing.T) {
	t.Parallel()

	ts := setupServer(t, true)
	ctx := t.Context()

	session := signUpAndIn(t, ts, "bob", "CorrectHorse2!")
	require.NoError(t, session.SignOut(ctx))

	_, err := session.Accounts(ctx)
	requireAPIError(t, err, http.StatusUnauthorized, "unauthorized")
}
