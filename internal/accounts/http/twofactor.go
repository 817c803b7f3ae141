package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/wattlehq/accountd/internal/accounts/service"
	"github.com/wattlehq/accountd/pkg/accountsdk"
	"github.com/wattlehq/accountd/pkg/httpx"
	"github.com/wattlehq/accountd/pkg/slogx"
)

// TwoFactorHandler serves enrollment, status, recovery-code management and
// disablement.
type TwoFactorHandler struct {
	TwoFactorService *service.TwoFactorService
	UserService      *service.UserService
}

// HandleStatus handles GET /v1/twofactor.
func (h *TwoFactorHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := sessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required", "/v1/sessions")
		return
	}

	user, err := h.UserService.GetUserByID(ctx, session.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	remaining, err := h.TwoFactorService.Store.RecoveryCodes().CountUnusedRecoveryCodes(ctx, user.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountsdk.TwoFactorStatusResponse{
		State:                  user.TwoFactorState(time.Now(), h.TwoFactorService.SetupTTL).String(),
		RecoveryCodesRemaining: remaining,
	})
}

// HandleBeginSetup handles GET /v1/twofactor/setup.
func (h *TwoFactorHandler) HandleBeginSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := sessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required", "/v1/sessions")
		return
	}

	setup, err := h.TwoFactorService.BeginSetup(ctx, session.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, accountsdk.TwoFactorSetupResponse{
		Secret:  setup.Secret,
		URL:     setup.URL,
		Issuer:  setup.Issuer,
		Account: setup.Account,
	})
}

// HandleConfirmSetup handles POST /v1/twofactor/setup. A matching code
// enables two-factor and returns the recovery codes, shown exactly once.
func (h *TwoFactorHandler) HandleConfirmSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	session, ok := sessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required", "/v1/sessions")
		return
	}

	var req accountsdk.TwoFactorConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", "")
		return
	}

	codes, err := h.TwoFactorService.ConfirmSetup(ctx, session.UserID, req.Code)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	log.Info("two-factor enabled", "user_id", session.UserID)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, accountsdk.RecoveryCodesResponse{RecoveryCodes: codes})
}

// HandleRegenerateRecoveryCodes handles POST /v1/twofactor/recovery-codes.
func (h *TwoFactorHandler) HandleRegenerateRecoveryCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := sessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required", "/v1/sessions")
		return
	}

	codes, err := h.TwoFactorService.RegenerateRecoveryCodes(ctx, session)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(ctx).Info("recovery codes regenerated", "user_id", session.UserID)
	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, accountsdk.RecoveryCodesResponse{RecoveryCodes: codes})
}

// HandleDisable handles DELETE /v1/twofactor.
func (h *TwoFactorHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := sessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required", "/v1/sessions")
		return
	}

	if err := h.TwoFactorService.Disable(ctx, session); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(ctx).Info("two-factor disabled", "user_id", session.UserID)
	w.WriteHeader(http.StatusNoContent)
}
