package http

import (
	"errors"
	"net/http"

	"github.com/wattlehq/accountd/internal/accounts/service"
	"github.com/wattlehq/accountd/internal/accounts/store"
	"github.com/wattlehq/accountd/pkg/slogx"
)

// writeServiceError maps service-layer sentinels onto the wire. Anything
// unrecognized is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Hard denials land here too: non-members never learn whether the
		// resource exists.
		writeError(w, http.StatusNotFound, "not_found", "", "")

	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password", "")
	case errors.Is(err, service.ErrSessionExpired):
		writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required", "/v1/sessions")

	case errors.Is(err, service.ErrInvalidCode):
		writeError(w, http.StatusBadRequest, "invalid_code", "invalid code, try again", "")
	case errors.Is(err, service.ErrTooManyAttempts):
		writeError(w, http.StatusTooManyRequests, "too_many_attempts", "too many failed attempts, sign in again", "/v1/sessions")
	case errors.Is(err, service.ErrChallengeExpired):
		writeError(w, http.StatusUnauthorized, "challenge_expired", "challenge expired, sign in again", "/v1/sessions")

	case errors.Is(err, service.ErrNotOwner):
		writeError(w, http.StatusForbidden, "not_owner", err.Error(), "/v1/accounts")
	case errors.Is(err, service.ErrAlreadyTeam):
		writeError(w, http.StatusConflict, "already_team", err.Error(), "")
	case errors.Is(err, service.ErrAlreadyPersonal):
		writeError(w, http.StatusConflict, "already_personal", err.Error(), "")
	case errors.Is(err, service.ErrHasOtherMembers):
		writeError(w, http.StatusConflict, "has_other_members", err.Error(), "")
	case errors.Is(err, service.ErrOwnerMembership):
		writeError(w, http.StatusConflict, "owner_membership", err.Error(), "")

	case errors.Is(err, service.ErrNotStaff):
		writeError(w, http.StatusForbidden, "not_staff", err.Error(), "")
	case errors.Is(err, service.ErrAlreadyImpersonating):
		writeError(w, http.StatusConflict, "already_impersonating", err.Error(), "")
	case errors.Is(err, service.ErrNotImpersonating):
		writeError(w, http.StatusConflict, "not_impersonating", err.Error(), "")
	case errors.Is(err, service.ErrSelfImpersonation):
		writeError(w, http.StatusBadRequest, "self_impersonation", err.Error(), "")

	case errors.Is(err, service.ErrAlreadyEnabled):
		writeError(w, http.StatusConflict, "already_enabled", err.Error(), "")
	case errors.Is(err, service.ErrNotEnrolled):
		writeError(w, http.StatusConflict, "not_enrolled", err.Error(), "/v1/twofactor/setup")
	case errors.Is(err, service.ErrSetupExpired):
		writeError(w, http.StatusConflict, "setup_expired", err.Error(), "/v1/twofactor/setup")
	case errors.Is(err, service.ErrImpersonatedSession):
		writeError(w, http.StatusForbidden, "impersonated_session", err.Error(), "")

	case errors.Is(err, service.ErrUsernameTaken):
		writeError(w, http.StatusConflict, "username_taken", err.Error(), "")

	default:
		slogx.FromContext(r.Context()).Error("unhandled service error", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "", "")
	}
}
