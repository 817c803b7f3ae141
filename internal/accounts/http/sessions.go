package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wattlehq/accountd/internal/accounts/service"
	"github.com/wattlehq/accountd/pkg/accountsdk"
	"github.com/wattlehq/accountd/pkg/httpx"
	"github.com/wattlehq/accountd/pkg/slogx"
)

// SessionHandler serves sign-in, sign-out and challenge verification.
type SessionHandler struct {
	SessionService   *service.SessionService
	TwoFactorService *service.TwoFactorService
}

// HandleSignIn handles POST /v1/sessions. A user with two-factor enabled
// gets 202 with a challenge token instead of a session.
func (h *SessionHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req accountsdk.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", "")
		return
	}

	issued, err := h.SessionService.SignIn(ctx, req.Username, req.Password)
	var challenge *service.ChallengeRequiredError
	if errors.As(err, &challenge) {
		httpx.NoCache(w)
		httpx.WriteJSON(w, http.StatusAccepted, accountsdk.ChallengeResponse{
			ChallengeToken: challenge.ChallengeToken,
			Message:        "enter a code from your authenticator app or a recovery code",
		})
		return
	}
	if err != nil {
		log.Warn("sign-in refused", "username", req.Username)
		writeServiceError(w, r, err)
		return
	}

	log.Info("user signed in", "user_id", issued.Session.UserID)
	writeIssuedSession(w, issued)
}

// HandleSignOut handles DELETE /v1/sessions.
func (h *SessionHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := sessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required", "/v1/sessions")
		return
	}

	if err := h.SessionService.SignOut(ctx, session.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleChallengeTOTP handles POST /v1/sessions/challenge/totp.
func (h *SessionHandler) HandleChallengeTOTP(w http.ResponseWriter, r *http.Request) {
	h.handleChallenge(w, r, h.TwoFactorService.VerifyTOTP)
}

// HandleChallengeRecovery handles POST /v1/sessions/challenge/recovery.
func (h *SessionHandler) HandleChallengeRecovery(w http.ResponseWriter, r *http.Request) {
	h.handleChallenge(w, r, h.TwoFactorService.VerifyRecoveryCode)
}

func (h *SessionHandler) handleChallenge(
	w http.ResponseWriter,
	r *http.Request,
	verify func(ctx context.Context, token, code string) (service.IssuedSession, error),
) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req accountsdk.ChallengeVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", "")
		return
	}
	if req.ChallengeToken == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "challenge_token and code are required", "")
		return
	}

	issued, err := verify(ctx, req.ChallengeToken, req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.Info("challenge satisfied", "user_id", issued.Session.UserID)
	writeIssuedSession(w, issued)
}

// writeIssuedSession sets the session cookie and echoes the token once in
// the body for non-browser clients.
func writeIssuedSession(w http.ResponseWriter, issued service.IssuedSession) {
	setSessionCookie(w, issued.Token, issued.Session.ExpiresAt)

	resp := accountsdk.SessionResponse{
		SessionID: issued.Session.ID,
		UserID:    issued.Session.UserID,
		Token:     issued.Token,
		ExpiresAt: issued.Session.ExpiresAt,
	}
	if issued.Session.AccountID != nil {
		resp.AccountID = *issued.Session.AccountID
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, resp)
}
