package http

import (
	"encoding/json"
	"net/http"

	"github.com/wattlehq/accountd/internal/accounts/service"
	"github.com/wattlehq/accountd/pkg/accountsdk"
	"github.com/wattlehq/accountd/pkg/httpx"
)

// ImpersonationHandler serves impersonation start/stop and the audit trail.
type ImpersonationHandler struct {
	ImpersonationService *service.ImpersonationService
}

// HandleStart handles POST /v1/impersonation. On success the session cookie
// is replaced with the impersonation token.
func (h *ImpersonationHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := sessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required", "/v1/sessions")
		return
	}

	var req accountsdk.ImpersonateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body", "")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "user_id is required", "")
		return
	}

	issued, err := h.ImpersonationService.Start(ctx, session, req.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeIssuedSession(w, issued)
}

// HandleStop handles DELETE /v1/impersonation. The restored staff session
// comes back under a fresh token.
func (h *ImpersonationHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := sessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required", "/v1/sessions")
		return
	}

	restored, err := h.ImpersonationService.Stop(ctx, session)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeIssuedSession(w, restored)
}

// HandleAudit handles GET /v1/impersonation/audit.
func (h *ImpersonationHandler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, ok := sessionFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required", "/v1/sessions")
		return
	}

	events, err := h.ImpersonationService.AuditTrail(ctx, session.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := accountsdk.AuditTrailResponse{Events: make([]accountsdk.AuditEventResponse, 0, len(events))}
	for _, event := range events {
		resp.Events = append(resp.Events, accountsdk.AuditEventResponse{
			ID:        event.ID,
			ActorID:   event.ActorID,
			SubjectID: event.SubjectID,
			Action:    event.Action,
			CreatedAt: event.CreatedAt,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
