package accounts_test

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wattlehq/accountd/internal/accounts/domain"
	httpapi "github.com/wattlehq/accountd/internal/accounts/http"
	"github.com/wattlehq/accountd/internal/accounts/service"
	"github.com/wattlehq/accountd/internal/accounts/store"
	"github.com/wattlehq/accountd/internal/accounts/store/drivers/sqlite"
	"github.com/wattlehq/accountd/pkg/accountsdk"
	"github.com/wattlehq/accountd/pkg/cryptox"
	"github.com/wattlehq/accountd/pkg/httpx"
	"github.com/wattlehq/accountd/pkg/idx"
)

/*
 * End-to-end tests drive the full HTTP surface through the SDK against an
 * in-process server with an in-memory database.
 */

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "accountd-e2e")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	// The attempt-cap flows hammer the code-entry endpoints harder than the
	// brute-force limit allows; loosen it for the test run.
	httpx.StrictLimit = httpx.RateLimitConfig{
		RequestsPerWindow: 1000,
		Window:            time.Minute,
		Burst:             1000,
	}

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type testServer struct {
	URL    string
	Store  store.Store
	Client *accountsdk.SDKClient
}

// setupServer starts the account service over httptest with an in-memory
// database. requireTwoFactor toggles the mandatory-2FA policy.
func setupServer(t *testing.T, requireTwoFactor bool) *testServer {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	sessions := &service.SessionService{
		Store:        st,
		SessionTTL:   time.Hour,
		ChallengeTTL: 5 * time.Minute,
	}
	twofactor := &service.TwoFactorService{
		Store:    st,
		Sessions: sessions,
		Issuer:   "accountd-e2e",
		SetupTTL: 10 * time.Minute,
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	router := httpapi.NewRouter("e2e", st, logger)
	router.RequireTwoFactor = requireTwoFactor
	router.SessionService = sessions
	router.TwoFactorService = twofactor
	router.AccountService = &service.AccountService{
		Store: st,
		Guard: &service.GuardService{Store: st},
	}
	router.ImpersonationService = &service.ImpersonationService{Store: st}
	router.UserService = &service.UserService{Store: st}
	router.ApplyRoutes()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{
		URL:    server.URL,
		Store:  st,
		Client: accountsdk.NewSDKClient(server.URL),
	}
}

// signUpAndIn registers a fresh user and returns an authenticated session.
func signUpAndIn(t *testing.T, ts *testServer, username, password string) *accountsdk.Session {
	t.Helper()
	ctx := context.Background()

	_, err := ts.Client.Register(ctx, username, password)
	require.NoError(t, err)

	session, err := ts.Client.SignIn(ctx, username, password)
	require.NoError(t, err)
	return session
}

// addMembership links a user to an account directly in the store; member
// invitations are outside the HTTP surface.
func addMembership(t *testing.T, ts *testServer, userID, accountID string) {
	t.Helper()

	err := ts.Store.Memberships().CreateMembership(context.Background(), domain.Membership{
		ID:        idx.New().String(),
		UserID:    userID,
		AccountID: accountID,
		Member:    true,
	})
	require.NoError(t, err)
}

func requireAPIError(t *testing.T, err error, statusCode int, code string) {
	t.Helper()

	var apiErr *accountsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, statusCode, apiErr.StatusCode)
	require.Equal(t, code, apiErr.Code)
}
