package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wattlehq/accountd/internal/accounts/domain"
	"github.com/wattlehq/accountd/internal/accounts/store"
	"github.com/wattlehq/accountd/internal/accounts/store/drivers/sqlite"
	"github.com/wattlehq/accountd/pkg/cryptox"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "accountd-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func newTestServices(t *testing.T, st store.Store) (*SessionService, *TwoFactorService, *AccountService, *ImpersonationService, *UserService) {
	t.Helper()

	sessions := &SessionService{
		Store:        st,
		SessionTTL:   time.Hour,
		ChallengeTTL: 5 * time.Minute,
	}
	twofactor := &TwoFactorService{
		Store:    st,
		Sessions: sessions,
		Issuer:   "accountd-test",
		SetupTTL: 10 * time.Minute,
	}
	accounts := &AccountService{
		Store: st,
		Guard: &GuardService{Store: st},
	}
	impersonation := &ImpersonationService{Store: st}
	users := &UserService{Store: st}

	return sessions, twofactor, accounts, impersonation, users
}

func registerUser(t *testing.T, st store.Store, username, password string) domain.User {
	t.Helper()

	users := &UserService{Store: st}
	user, err := users.Register(context.Background(), username, password)
	require.NoError(t, err)
	return user
}

func makeStaff(t *testing.T, st store.Store, user domain.User) {
	t.Helper()
	require.NoError(t, st.Users().SetStaff(context.Background(), user.ID, true))
}
