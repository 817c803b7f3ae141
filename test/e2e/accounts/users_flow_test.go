package accounts_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestChangePasswordFlow rotates a password over the wire and checks which
// credentials sign in afterwards.
func TestChangePasswordFlow(t *testing.T) {
	t.Parallel()

	ts := setupServer(t, false)
	ctx := t.Context()

	session := signUpAndIn(t, ts, "alice", "CorrectHorse1!")

	// Wrong current password is refused and changes nothing.
	err := session.ChangePassword(ctx, "NotMyPassword!", "NewHorse2!")
	requireAPIError(t, err, http.StatusUnauthorized, "invalid_credentials")

	require.NoError(t, session.ChangePassword(ctx, "CorrectHorse1!", "NewHorse2!"))

	// The session that made the change keeps working.
	_, err = session.Accounts(ctx)
	require.NoError(t, err)

	_, err = ts.Client.SignIn(ctx, "alice", "CorrectHorse1!")
	requireAPIError(t, err, http.StatusUnauthorized, "invalid_credentials")

	fresh, err := ts.Client.SignIn(ctx, "alice", "NewHorse2!")
	require.NoError(t, err)
	require.NoError(t, fresh.SignOut(ctx))
}
