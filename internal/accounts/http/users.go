package http

import (
	"encoding/json"
	"net/http"

	"github.com/wattlehq/accountd/internal/accounts/service"
	"github.com/wattlehq/accountd/pkg/accountsdk"
	"github.com/wattlehq/accountd/pkg/httpx"
	"github.com/wattlehq/accountd/pkg/slogx"
)

// UserHandler serves registration and the current-user endpoint.
type UserHandler struct {
	UserService *service.UserService
}

// HandleRegister handles POST /v1/users.
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req accountsdk.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", "")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username and password are required", "")
		return
	}

	user, err := h.UserService.Register(ctx, req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(ctx).Info("user registered", "user_id", user.ID)
	httpx.WriteJSON(w, http.StatusCreated, accountsdk.UserResponse{
		ID:       user.ID,
		Username: user.Username,
		Staff:    user.Staff,
	})
}

// HandleMe handles GET /v1/users/me.
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
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

	httpx.WriteJSON(w, http.StatusOK, accountsdk.UserResponse{
		ID:       user.ID,
		Username: user.Username,
		Staff:    user.Staff,
	})
}

// HandleChangePassword handles PUT /v1/users/me/password.
func (h *UserHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := sessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required", "/v1/sessions")
		return
	}

	var req accountsdk.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", "")
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "current and new passwords are required", "")
		return
	}

	if err := h.UserService.ChangePassword(ctx, session, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}

	slogx.FromContext(ctx).Info("password changed", "user_id", session.UserID)
	w.WriteHeader(http.StatusNoContent)
}
