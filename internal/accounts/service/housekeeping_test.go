package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wattlehq/accountd/internal/accounts/domain"
	"github.com/wattlehq/accountd/internal/accounts/store"
)

func TestHousekeepingSweep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	_, twofactor, _, _, _ := newTestServices(t, st)

	alive := registerUser(t, st, "alive", "password-one")
	stale := registerUser(t, st, "stale", "password-two")

	// An expired session and challenge, plus one of each still live.
	expiredSession := domain.Session{
		ID: "sess-dead", TokenHash: "hash-dead", UserID: alive.ID,
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	liveSession := domain.Session{
		ID: "sess-live", TokenHash: "hash-live", UserID: alive.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, st.Sessions().CreateSession(ctx, expiredSession))
	require.NoError(t, st.Sessions().CreateSession(ctx, liveSession))

	require.NoError(t, st.Challenges().CreateChallenge(ctx, domain.Challenge{
		ID: "chal-dead", TokenHash: "chal-hash-dead", UserID: alive.ID,
		ExpiresAt: time.Now().Add(-time.Minute),
	}))
	require.NoError(t, st.Challenges().CreateChallenge(ctx, domain.Challenge{
		ID: "chal-live", TokenHash: "chal-hash-live", UserID: alive.ID,
		ExpiresAt: time.Now().Add(time.Minute),
	}))

	// A fresh pending enrollment and an abandoned one.
	_, err := twofactor.BeginSetup(ctx, alive.ID)
	require.NoError(t, err)
	require.NoError(t, st.Users().SetPendingTOTPSecret(ctx, stale.ID, "ABANDONED",
		time.Now().Add(-twofactor.SetupTTL-time.Hour)))

	worker := NewHousekeepingService(st, slog.Default(), time.Hour, twofactor.SetupTTL)
	worker.Start()
	worker.Stop()

	_, err = st.Sessions().GetSessionByID(ctx, "sess-dead")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Sessions().GetSessionByID(ctx, "sess-live")
	require.NoError(t, err)

	_, err = st.Challenges().GetChallenge(ctx, "chal-dead")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Challenges().GetChallenge(ctx, "chal-live")
	require.NoError(t, err)

	staleUser, err := st.Users().GetUserByID(ctx, stale.ID)
	require.NoError(t, err)
	require.Nil(t, staleUser.TOTPSecret)

	aliveUser, err := st.Users().GetUserByID(ctx, alive.ID)
	require.NoError(t, err)
	require.NotNil(t, aliveUser.TOTPSecret)
}
