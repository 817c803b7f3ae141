package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/wattlehq/accountd/internal/accounts/service"
	"github.com/wattlehq/accountd/internal/accounts/store"
	"github.com/wattlehq/accountd/pkg/httpx"
	"github.com/wattlehq/accountd/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	// RequireTwoFactor turns on the mandatory-2FA policy: unenrolled users
	// may only complete setup or sign out.
	RequireTwoFactor bool

	SessionService       *service.SessionService
	TwoFactorService     *service.TwoFactorService
	AccountService       *service.AccountService
	ImpersonationService *service.ImpersonationService
	UserService          *service.UserService
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSessions()
	r.registerUsers()
	r.registerAccounts()
	r.registerImpersonation()
	r.registerTwoFactor()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// secured wraps a handler with session resolution, the mandatory-2FA gate
// (when configured) and a per-user rate limit.
func (r *Router) secured(h http.HandlerFunc, limit httpx.RateLimitConfig) http.Handler {
	middlewares := []httpx.Middleware{
		RequireSession(r.SessionService),
	}
	if r.RequireTwoFactor {
		middlewares = append(middlewares,
			RequireTwoFactorEnrollment(r.UserService, r.TwoFactorService.SetupTTL))
	}
	middlewares = append(middlewares, httpx.RateLimitByUser(limit))
	return httpx.Chain(h, middlewares...)
}

func (r *Router) registerSessions() {
	h := &SessionHandler{
		SessionService:   r.SessionService,
		TwoFactorService: r.TwoFactorService,
	}

	// Credential and code entry endpoints take the strict limit keyed by IP:
	// there is no trusted user identity yet.
	r.Mux.Handle("POST /v1/sessions",
		httpx.Chain(http.HandlerFunc(h.HandleSignIn),
			httpx.RateLimitByIP(httpx.StrictLimit),
		))
	r.Mux.Handle("POST /v1/sessions/challenge/totp",
		httpx.Chain(http.HandlerFunc(h.HandleChallengeTOTP),
			httpx.RateLimitByIP(httpx.StrictLimit),
		))
	r.Mux.Handle("POST /v1/sessions/challenge/recovery",
		httpx.Chain(http.HandlerFunc(h.HandleChallengeRecovery),
			httpx.RateLimitByIP(httpx.StrictLimit),
		))

	r.Mux.Handle("DELETE /v1/sessions", r.secured(h.HandleSignOut, httpx.ModerateLimit))
}

func (r *Router) registerUsers() {
	h := &UserHandler{UserService: r.UserService}

	r.Mux.Handle("POST /v1/users",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(httpx.StrictLimit),
		))
	r.Mux.Handle("GET /v1/users/me", r.secured(h.HandleMe, httpx.LenientLimit))
	// Verifies the current password, so it gets the credential-entry limit.
	r.Mux.Handle("PUT /v1/users/me/password", r.secured(h.HandleChangePassword, httpx.StrictLimit))
}

func (r *Router) registerAccounts() {
	h := &AccountHandler{AccountService: r.AccountService}

	r.Mux.Handle("GET /v1/accounts", r.secured(h.HandleList, httpx.LenientLimit))
	r.Mux.Handle("POST /v1/accounts", r.secured(h.HandleCreate, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/accounts/{id}/switch", r.secured(h.HandleSwitch, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/accounts/{id}/convert-to-team", r.secured(h.HandleConvertToTeam, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/accounts/{id}/convert-to-personal", r.secured(h.HandleConvertToPersonal, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/accounts/{id}/members/{userID}", r.secured(h.HandleRemoveMember, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/accounts/{id}", r.secured(h.HandleDestroy, httpx.ModerateLimit))
}

func (r *Router) registerImpersonation() {
	h := &ImpersonationHandler{ImpersonationService: r.ImpersonationService}

	r.Mux.Handle("POST /v1/impersonation", r.secured(h.HandleStart, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/impersonation", r.secured(h.HandleStop, httpx.ModerateLimit))
	r.Mux.Handle("GET /v1/impersonation/audit", r.secured(h.HandleAudit, httpx.LenientLimit))
}

func (r *Router) registerTwoFactor() {
	h := &TwoFactorHandler{
		TwoFactorService: r.TwoFactorService,
		UserService:      r.UserService,
	}

	r.Mux.Handle("GET /v1/twofactor", r.secured(h.HandleStatus, httpx.LenientLimit))
	r.Mux.Handle("GET /v1/twofactor/setup", r.secured(h.HandleBeginSetup, httpx.ModerateLimit))
	// Code entry: strict, to slow brute force of the pending secret.
	r.Mux.Handle("POST /v1/twofactor/setup", r.secured(h.HandleConfirmSetup, httpx.StrictLimit))
	r.Mux.Handle("POST /v1/twofactor/recovery-codes", r.secured(h.HandleRegenerateRecoveryCodes, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/twofactor", r.secured(h.HandleDisable, httpx.ModerateLimit))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		))
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		))
}
