package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/wattlehq/accountd/internal/accounts/domain"
	"github.com/wattlehq/accountd/internal/accounts/service"
	"github.com/wattlehq/accountd/pkg/accountsdk"
	"github.com/wattlehq/accountd/pkg/httpx"
	"github.com/wattlehq/accountd/pkg/slogx"
)

// AccountHandler serves account listing, creation, switching, shape
// conversion, member removal and destruction.
type AccountHandler struct {
	AccountService *service.AccountService
}

// HandleList handles GET /v1/accounts.
func (h *AccountHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := sessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required", "/v1/sessions")
		return
	}

	accounts, err := h.AccountService.ListAccounts(ctx, session.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := accountsdk.AccountListResponse{Accounts: make([]accountsdk.AccountResponse, 0, len(accounts))}
	for _, account := range accounts {
		resp.Accounts = append(resp.Accounts, toAccountResponse(account))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleCreate handles POST /v1/accounts.
func (h *AccountHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := sessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required", "/v1/sessions")
		return
	}

	var req accountsdk.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", "")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name is required", "")
		return
	}

	account, err := h.AccountService.CreateAccount(ctx, session.UserID, req.Name, req.Personal)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(ctx).Info("account created", "account_id", account.ID, "owner_id", account.OwnerID)
	httpx.WriteJSON(w, http.StatusCreated, toAccountResponse(account))
}

// HandleSwitch handles POST /v1/accounts/{id}/switch.
func (h *AccountHandler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := sessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required", "/v1/sessions")
		return
	}

	account, err := h.AccountService.Switch(ctx, session, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountsdk.SwitchResponse{
		Account:    toAccountResponse(account),
		RedirectTo: "/",
	})
}

// HandleConvertToTeam handles POST /v1/accounts/{id}/convert-to-team.
func (h *AccountHandler) HandleConvertToTeam(w http.ResponseWriter, r *http.Request) {
	h.handleConvert(w, r, h.AccountService.ConvertToTeam)
}

// HandleConvertToPersonal handles POST /v1/accounts/{id}/convert-to-personal.
func (h *AccountHandler) HandleConvertToPersonal(w http.ResponseWriter, r *http.Request) {
	h.handleConvert(w, r, h.AccountService.ConvertToPersonal)
}

func (h *AccountHandler) handleConvert(
	w http.ResponseWriter,
	r *http.Request,
	convert func(ctx context.Context, actorID, accountID string) error,
) {
	ctx := r.Context()

	session, ok := sessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required", "/v1/sessions")
		return
	}

	accountID := r.PathValue("id")
	if err := convert(ctx, session.UserID, accountID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(ctx).Info("account converted", "account_id", accountID, "actor_id", session.UserID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveMember handles DELETE /v1/accounts/{id}/members/{userID}.
func (h *AccountHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := sessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required", "/v1/sessions")
		return
	}

	err := h.AccountService.RemoveMember(ctx, session.UserID, r.PathValue("id"), r.PathValue("userID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDestroy handles DELETE /v1/accounts/{id}.
func (h *AccountHandler) HandleDestroy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := sessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required", "/v1/sessions")
		return
	}

	accountID := r.PathValue("id")
	if err := h.AccountService.Destroy(ctx, session.UserID, accountID); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(ctx).Info("account destroyed", "account_id", accountID, "actor_id", session.UserID)
	w.WriteHeader(http.StatusNoContent)
}

func toAccountResponse(account domain.Account) accountsdk.AccountResponse {
	return accountsdk.AccountResponse{
		ID:       account.ID,
		Name:     account.Name,
		OwnerID:  account.OwnerID,
		Personal: account.Personal,
	}
}
