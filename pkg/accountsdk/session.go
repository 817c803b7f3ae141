package accountsdk

import (
	"context"
	"net/http"
	"time"
)

// Session is an authenticated handle on the API. It sends the bearer token
// on every call and swaps its identity when impersonation starts or stops.
type Session struct {
	client *SDKClient

	sessionID string
	userID    string
	token     string
	expiresAt time.Time
}

func newSession(c *SDKClient, resp SessionResponse) *Session {
	return &Session{
		client:    c,
		sessionID: resp.SessionID,
		userID:    resp.UserID,
		token:     resp.Token,
		expiresAt: resp.ExpiresAt,
	}
}

// UserID returns the user this session authenticates as.
func (s *Session) UserID() string { return s.userID }

// Token exposes the bearer token, e.g. for persisting across restarts.
func (s *Session) Token() string { return s.token }

// SignOut destroys the session server-side.
func (s *Session) SignOut(ctx context.Context) error {
	return s.client.do(ctx, http.MethodDelete, "/v1/sessions", s.token, nil, nil)
}

// ChangePassword replaces the user's password after verifying the current
// one. Existing sessions stay valid.
func (s *Session) ChangePassword(ctx context.Context, current, next string) error {
	return s.client.do(ctx, http.MethodPut, "/v1/users/me/password", s.token,
		ChangePasswordRequest{CurrentPassword: current, NewPassword: next}, nil)
}

// Accounts lists the accounts the session's user belongs to.
func (s *Session) Accounts(ctx context.Context) (AccountListResponse, error) {
	var out AccountListResponse
	err := s.client.do(ctx, http.MethodGet, "/v1/accounts", s.token, nil, &out)
	return out, err
}

// CreateAccount provisions a new account owned by the session's user.
func (s *Session) CreateAccount(ctx context.Context, name string, personal bool) (AccountResponse, error) {
	var out AccountResponse
	err := s.client.do(ctx, http.MethodPost, "/v1/accounts", s.token,
		CreateAccountRequest{Name: name, Personal: personal}, &out)
	return out, err
}

// Switch changes the session's acting account.
func (s *Session) Switch(ctx context.Context, accountID string) (SwitchResponse, error) {
	var out SwitchResponse
	err := s.client.do(ctx, http.MethodPost, "/v1/accounts/"+accountID+"/switch", s.token, nil, &out)
	return out, err
}

// ConvertToTeam flips a personal account to team shape.
func (s *Session) ConvertToTeam(ctx context.Context, accountID string) error {
	return s.client.do(ctx, http.MethodPost, "/v1/accounts/"+accountID+"/convert-to-team", s.token, nil, nil)
}

// ConvertToPersonal flips a team account back to personal shape.
func (s *Session) ConvertToPersonal(ctx context.Context, accountID string) error {
	return s.client.do(ctx, http.MethodPost, "/v1/accounts/"+accountID+"/convert-to-personal", s.token, nil, nil)
}

// Impersonate starts acting as another user. The returned session replaces
// this one for subsequent calls; keep the original to know where you came
// from, but its token has been suspended behind the impersonation.
func (s *Session) Impersonate(ctx context.Context, userID string) (*Session, error) {
	var out SessionResponse
	err := s.client.do(ctx, http.MethodPost, "/v1/impersonation", s.token,
		ImpersonateRequest{UserID: userID}, &out)
	if err != nil {
		return nil, err
	}
	return newSession(s.client, out), nil
}

// StopImpersonating ends an impersonation and returns the restored staff
// session (under a fresh token).
func (s *Session) StopImpersonating(ctx context.Context) (*Session, error) {
	var out SessionResponse
	err := s.client.do(ctx, http.MethodDelete, "/v1/impersonation", s.token, nil, &out)
	if err != nil {
		return nil, err
	}
	return newSession(s.client, out), nil
}

// AuditTrail lists the caller's impersonation audit events, newest first.
func (s *Session) AuditTrail(ctx context.Context) (AuditTrailResponse, error) {
	var out AuditTrailResponse
	err := s.client.do(ctx, http.MethodGet, "/v1/impersonation/audit", s.token, nil, &out)
	return out, err
}

// TwoFactorStatus reports the user's enrollment state.
func (s *Session) TwoFactorStatus(ctx context.Context) (TwoFactorStatusResponse, error) {
	var out TwoFactorStatusResponse
	err := s.client.do(ctx, http.MethodGet, "/v1/twofactor", s.token, nil, &out)
	return out, err
}

// BeginTwoFactorSetup starts enrollment and returns provisioning details.
func (s *Session) BeginTwoFactorSetup(ctx context.Context) (TwoFactorSetupResponse, error) {
	var out TwoFactorSetupResponse
	err := s.client.do(ctx, http.MethodGet, "/v1/twofactor/setup", s.token, nil, &out)
	return out, err
}

// ConfirmTwoFactorSetup proves possession of the pending secret and returns
// the recovery codes, shown exactly once.
func (s *Session) ConfirmTwoFactorSetup(ctx context.Context, code string) (RecoveryCodesResponse, error) {
	var out RecoveryCodesResponse
	err := s.client.do(ctx, http.MethodPost, "/v1/twofactor/setup", s.token,
		TwoFactorConfirmRequest{Code: code}, &out)
	return out, err
}

// RegenerateRecoveryCodes replaces all recovery codes with a fresh batch.
func (s *Session) RegenerateRecoveryCodes(ctx context.Context) (RecoveryCodesResponse, error) {
	var out RecoveryCodesResponse
	err := s.client.do(ctx, http.MethodPost, "/v1/twofactor/recovery-codes", s.token, nil, &out)
	return out, err
}

// DisableTwoFactor turns two-factor off for the user.
func (s *Session) DisableTwoFactor(ctx context.Context) error {
	return s.client.do(ctx, http.MethodDelete, "/v1/twofactor", s.token, nil, nil)
}
