package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/wattlehq/accountd/internal/accounts/domain"
	"github.com/wattlehq/accountd/internal/accounts/service"
	"github.com/wattlehq/accountd/internal/accounts/store"
	"github.com/wattlehq/accountd/pkg/accountsdk"
	"github.com/wattlehq/accountd/pkg/httpx"
	"github.com/wattlehq/accountd/pkg/slogx"
)

// SessionCookie is the browser-facing credential. Non-browser clients send
// the same token as a bearer header instead.
const SessionCookie = "accountd_session"

type ctxKey string

const ctxKeySession ctxKey = "session"

func sessionFromContext(ctx context.Context) (domain.Session, bool) {
	s, ok := ctx.Value(ctxKeySession).(domain.Session)
	return s, ok
}

// extractToken pulls the session token from the Authorization header or the
// session cookie, header winning.
func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return token
		}
		return ""
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireSession resolves the request's token into a live session and puts
// it (plus the user id, for rate limiting) on the context. Requests without
// a valid session get 401.
func RequireSession(sessions *service.SessionService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required", "/v1/sessions")
				return
			}

			session, err := sessions.Resolve(r.Context(), token)
			if errors.Is(err, store.ErrNotFound) || errors.Is(err, service.ErrSessionExpired) {
				writeError(w, http.StatusUnauthorized, "unauthorized", "sign in required", "/v1/sessions")
				return
			}
			if err != nil {
				slogx.FromContext(r.Context()).Error("failed to resolve session", "err", err)
				writeError(w, http.StatusInternalServerError, "server_error", "", "")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeySession, session)
			ctx = httpx.ContextWithUserID(ctx, session.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTwoFactorEnrollment is the mandatory-2FA policy gate. When the
// deployment requires two-factor, a signed-in user who has not enrolled may
// only reach enrollment and sign-out; everything else redirects them to
// setup. Runs after RequireSession.
func RequireTwoFactorEnrollment(users *service.UserService, setupTTL time.Duration) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if twoFactorExempt(r) {
				next.ServeHTTP(w, r)
				return
			}

			session, ok := sessionFromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetUserByID(r.Context(), session.UserID)
			if err != nil {
				slogx.FromContext(r.Context()).Error("failed to load user", "err", err)
				writeError(w, http.StatusInternalServerError, "server_error", "", "")
				return
			}

			if user.TwoFactorState(time.Now(), setupTTL) == domain.TwoFactorDisabled {
				writeError(w, http.StatusForbidden, "two_factor_required",
					"two-factor authentication must be set up before continuing",
					"/v1/twofactor/setup")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// twoFactorExempt lists the requests an unenrolled user may still make:
// completing enrollment and signing out.
func twoFactorExempt(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/v1/twofactor") {
		return true
	}
	return r.Method == http.MethodDelete && r.URL.Path == "/v1/sessions"
}

func setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeError(w http.ResponseWriter, code int, errCode, description, redirectTo string) {
	httpx.WriteJSON(w, code, accountsdk.ErrorResponse{
		Error:            errCode,
		ErrorDescription: description,
		RedirectTo:       redirectTo,
	})
}
