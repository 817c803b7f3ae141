package accounts_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAccountLifecycle walks the basic path: register, sign in, create
// accounts, switch between them, convert shapes, sign out.
func TestAccountLifecycle(t *testing.T) {
	t.Parallel()

	ts := setupServer(t, false)
	ctx := t.Context()

	session := signUpAndIn(t, ts, "alice", "CorrectHorse1!")

	personal, err := session.CreateAccount(ctx, "alice", true)
	require.NoError(t, err)
	require.True(t, personal.Personal)
	require.Equal(t, session.UserID(), personal.OwnerID)

	team, err := session.CreateAccount(ctx, "alice team", false)
	require.NoError(t, err)

	list, err := session.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, list.Accounts, 2)

	switched, err := session.Switch(ctx, personal.ID)
	require.NoError(t, err)
	require.Equal(t, personal.ID, switched.Account.ID)
	require.NotEmpty(t, switched.RedirectTo)

	// Switch again to the same account: no-op success.
	_, err = session.Switch(ctx, personal.ID)
	require.NoError(t, err)

	_, err = session.Switch(ctx, team.ID)
	require.NoError(t, err)

	// Shape conversions round-trip.
	require.NoError(t, session.ConvertToTeam(ctx, personal.ID))
	require.NoError(t, session.ConvertToPersonal(ctx, personal.ID))

	// Wrong-shape conversion is a distinct conflict.
	err = session.ConvertToPersonal(ctx, personal.ID)
	requireAPIError(t, err, http.StatusConflict, "already_personal")

	require.NoError(t, session.SignOut(ctx))
	_, err = session.Accounts(ctx)
	requireAPIError(t, err, http.StatusUnauthorized, "unauthorized")
}

// TestAccountIsolation verifies the existence-hiding policy end to end:
// other people's accounts look exactly like missing ones.
func TestAccountIsolation(t *testing.T) {
	t.Parallel()

	ts := setupServer(t, false)
	ctx := t.Context()

	alice := signUpAndIn(t, ts, "alice", "CorrectHorse1!")
	bob := signUpAndIn(t, ts, "bob", "CorrectHorse2!")

	secret, err := alice.CreateAccount(ctx, "alice private", true)
	require.NoError(t, err)

	_, err = bob.Switch(ctx, secret.ID)
	requireAPIError(t, err, http.StatusNotFound, "not_found")

	err = bob.ConvertToTeam(ctx, secret.ID)
	requireAPIError(t, err, http.StatusNotFound, "not_found")

	_, err = bob.Switch(ctx, "01JSOMEMISSINGACCOUNTIDXXX")
	requireAPIError(t, err, http.StatusNotFound, "not_found")
}

// TestConversionRequiresOwner checks a member who is not the owner gets a
// denial that names the problem, not a 404.
func TestConversionRequiresOwner(t *testing.T) {
	t.Parallel()

	ts := setupServer(t, false)
	ctx := t.Context()

	alice := signUpAndIn(t, ts, "alice", "CorrectHorse1!")
	bob := signUpAndIn(t, ts, "bob", "CorrectHorse2!")

	team, err := alice.CreateAccount(ctx, "shared", false)
	require.NoError(t, err)

	// Bob joins the team.
	addMembership(t, ts, bob.UserID(), team.ID)

	err = bob.ConvertToPersonal(ctx, team.ID)
	requireAPIError(t, err, http.StatusForbidden, "not_owner")

	// The owner is still blocked while bob is a member.
	err = alice.ConvertToPersonal(ctx, team.ID)
	requireAPIError(t, err, http.StatusConflict, "has_other_members")
}
