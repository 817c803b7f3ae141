package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wattlehq/accountd/internal/accounts/domain"
	"github.com/wattlehq/accountd/internal/accounts/store"
	"github.com/wattlehq/accountd/pkg/idx"
)

func addMember(t *testing.T, st store.Store, userID, accountID string) {
	t.Helper()
	err := st.Memberships().CreateMembership(context.Background(), domain.Membership{
		ID:        idx.New().String(),
		UserID:    userID,
		AccountID: accountID,
		Member:    true,
	})
	require.NoError(t, err)
}

func TestAccountSwitch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	sessions, _, accounts, _, _ := newTestServices(t, st)

	alice := registerUser(t, st, "alice", "password-one")
	bob := registerUser(t, st, "bob", "password-two")

	personal, err := accounts.CreateAccount(ctx, alice.ID, "alice", true)
	require.NoError(t, err)
	team, err := accounts.CreateAccount(ctx, alice.ID, "alice team", false)
	require.NoError(t, err)
	bobOnly, err := accounts.CreateAccount(ctx, bob.ID, "bob", true)
	require.NoError(t, err)

	issued, err := sessions.SignIn(ctx, "alice", "password-one")
	require.NoError(t, err)

	t.Run("member switches between their accounts", func(t *testing.T) {
		got, err := accounts.Switch(ctx, issued.Session, personal.ID)
		require.NoError(t, err)
		require.Equal(t, personal.ID, got.ID)

		stored, err := st.Sessions().GetSessionByID(ctx, issued.Session.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.AccountID)
		require.Equal(t, personal.ID, *stored.AccountID)

		got, err = accounts.Switch(ctx, stored, team.ID)
		require.NoError(t, err)
		require.Equal(t, team.ID, got.ID)
	})

	t.Run("switching to the current account is a no-op success", func(t *testing.T) {
		stored, err := st.Sessions().GetSessionByID(ctx, issued.Session.ID)
		require.NoError(t, err)

		got, err := accounts.Switch(ctx, stored, *stored.AccountID)
		require.NoError(t, err)
		require.Equal(t, *stored.AccountID, got.ID)
	})

	t.Run("foreign and unknown accounts are both not found", func(t *testing.T) {
		stored, err := st.Sessions().GetSessionByID(ctx, issued.Session.ID)
		require.NoError(t, err)

		_, err = accounts.Switch(ctx, stored, bobOnly.ID)
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = accounts.Switch(ctx, stored, "no-such-account")
		require.ErrorIs(t, err, store.ErrNotFound)

		// The acting account is untouched by the failed switches.
		after, err := st.Sessions().GetSessionByID(ctx, issued.Session.ID)
		require.NoError(t, err)
		require.Equal(t, *stored.AccountID, *after.AccountID)
	})
}

func TestAccountConversion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	_, _, accounts, _, _ := newTestServices(t, st)

	alice := registerUser(t, st, "alice", "password-one")
	bob := registerUser(t, st, "bob", "password-two")
	carol := registerUser(t, st, "carol", "password-three")

	t.Run("personal to team and back while single-member", func(t *testing.T) {
		account, err := accounts.CreateAccount(ctx, alice.ID, "roundtrip", true)
		require.NoError(t, err)

		require.NoError(t, accounts.ConvertToTeam(ctx, alice.ID, account.ID))
		got, err := st.Accounts().GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		require.False(t, got.Personal)

		require.NoError(t, accounts.ConvertToPersonal(ctx, alice.ID, account.ID))
		got, err = st.Accounts().GetAccountByID(ctx, account.ID)
		require.NoError(t, err)
		require.True(t, got.Personal)
	})

	t.Run("wrong current shape is its own failure", func(t *testing.T) {
		account, err := accounts.CreateAccount(ctx, alice.ID, "shapes", true)
		require.NoError(t, err)

		require.ErrorIs(t, accounts.ConvertToPersonal(ctx, alice.ID, account.ID), ErrAlreadyPersonal)
		require.NoError(t, accounts.ConvertToTeam(ctx, alice.ID, account.ID))
		require.ErrorIs(t, accounts.ConvertToTeam(ctx, alice.ID, account.ID), ErrAlreadyTeam)
	})

	t.Run("extra members block conversion to personal", func(t *testing.T) {
		account, err := accounts.CreateAccount(ctx, alice.ID, "crowded", false)
		require.NoError(t, err)
		addMember(t, st, bob.ID, account.ID)

		require.ErrorIs(t, accounts.ConvertToPersonal(ctx, alice.ID, account.ID), ErrHasOtherMembers)

		// Removing the extra member unblocks it.
		require.NoError(t, accounts.RemoveMember(ctx, alice.ID, account.ID, bob.ID))
		require.NoError(t, accounts.ConvertToPersonal(ctx, alice.ID, account.ID))
	})

	t.Run("non-owner member is refused with a distinct reason", func(t *testing.T) {
		account, err := accounts.CreateAccount(ctx, alice.ID, "owned", true)
		require.NoError(t, err)
		addMember(t, st, bob.ID, account.ID)

		require.ErrorIs(t, accounts.ConvertToTeam(ctx, bob.ID, account.ID), ErrNotOwner)
		require.ErrorIs(t, accounts.ConvertToPersonal(ctx, bob.ID, account.ID), ErrNotOwner)
	})

	t.Run("non-member sees not found, not forbidden", func(t *testing.T) {
		account, err := accounts.CreateAccount(ctx, alice.ID, "hidden", true)
		require.NoError(t, err)

		require.ErrorIs(t, accounts.ConvertToTeam(ctx, carol.ID, account.ID), store.ErrNotFound)
	})
}

func TestRemoveMember(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	_, _, accounts, _, _ := newTestServices(t, st)

	alice := registerUser(t, st, "alice", "password-one")
	bob := registerUser(t, st, "bob", "password-two")

	account, err := accounts.CreateAccount(ctx, alice.ID, "team", false)
	require.NoError(t, err)
	addMember(t, st, bob.ID, account.ID)

	t.Run("owner membership is never removable", func(t *testing.T) {
		require.ErrorIs(t, accounts.RemoveMember(ctx, alice.ID, account.ID, alice.ID), ErrOwnerMembership)
	})

	t.Run("plain member cannot manage members", func(t *testing.T) {
		err := accounts.RemoveMember(ctx, bob.ID, account.ID, bob.ID)
		require.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("owner removes a member", func(t *testing.T) {
		require.NoError(t, accounts.RemoveMember(ctx, alice.ID, account.ID, bob.ID))
		_, err := st.Memberships().GetMembership(ctx, bob.ID, account.ID)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestDestroyAccount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	_, _, accounts, _, _ := newTestServices(t, st)

	alice := registerUser(t, st, "alice", "password-one")
	bob := registerUser(t, st, "bob", "password-two")

	account, err := accounts.CreateAccount(ctx, alice.ID, "doomed", false)
	require.NoError(t, err)
	addMember(t, st, bob.ID, account.ID)

	require.ErrorIs(t, accounts.Destroy(ctx, bob.ID, account.ID), ErrNotOwner)

	require.NoError(t, accounts.Destroy(ctx, alice.ID, account.ID))
	_, err = st.Accounts().GetAccountByID(ctx, account.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	// Memberships cascade with the account.
	_, err = st.Memberships().GetMembership(ctx, bob.ID, account.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}
