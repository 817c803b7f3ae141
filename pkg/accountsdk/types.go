// Package accountsdk provides request/response types and a small client for
// the accountd HTTP API.
package accountsdk

import "time"

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	RedirectTo       string `json:"redirect_to,omitempty"`
}

// SignInRequest starts a session with the primary credential.
type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse is returned whenever a full session is granted. The token
// is also set as the session cookie; it is shown here once for non-browser
// clients.
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	AccountID string    `json:"account_id,omitempty"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ChallengeResponse is returned from sign-in when a second factor is
// required. No session exists yet.
type ChallengeResponse struct {
	ChallengeToken string `json:"challenge_token"`
	Message        string `json:"message"`
}

// ChallengeVerifyRequest answers a pending challenge with either a TOTP
// code or a recovery code, depending on the endpoint.
type ChallengeVerifyRequest struct {
	ChallengeToken string `json:"challenge_token"`
	Code           string `json:"code"`
}

// AccountResponse describes one account.
type AccountResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	OwnerID  string `json:"owner_id"`
	Personal bool   `json:"personal"`
}

// AccountListResponse lists the caller's accounts.
type AccountListResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}

// CreateAccountRequest provisions a new account owned by the caller.
type CreateAccountRequest struct {
	Name     string `json:"name"`
	Personal bool   `json:"personal"`
}

// SwitchResponse reports the session's new acting account.
type SwitchResponse struct {
	Account    AccountResponse `json:"account"`
	RedirectTo string          `json:"redirect_to,omitempty"`
}

// ImpersonateRequest starts acting as another user.
type ImpersonateRequest struct {
	UserID string `json:"user_id"`
}

// TwoFactorSetupResponse carries the provisioning details for an
// authenticator app. The secret is pending until confirmed.
type TwoFactorSetupResponse struct {
	Secret  string `json:"secret"`
	URL     string `json:"url"`
	Issuer  string `json:"issuer"`
	Account string `json:"account"`
}

// TwoFactorConfirmRequest proves possession of the pending secret.
type TwoFactorConfirmRequest struct {
	Code string `json:"code"`
}

// RecoveryCodesResponse is the one and only time plaintext recovery codes
// are visible.
type RecoveryCodesResponse struct {
	RecoveryCodes []string `json:"recovery_codes"`
}

// TwoFactorStatusResponse reports the user's enrollment state.
type TwoFactorStatusResponse struct {
	State                  string `json:"state"` // disabled | pending_setup | enabled
	RecoveryCodesRemaining int    `json:"recovery_codes_remaining"`
}

// AuditEventResponse is one impersonation audit record.
type AuditEventResponse struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id"`
	SubjectID string    `json:"subject_id"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditTrailResponse lists audit events, newest first.
type AuditTrailResponse struct {
	Events []AuditEventResponse `json:"events"`
}

// RegisterRequest creates a new user.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ChangePasswordRequest replaces the caller's password after verifying the
// current one.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// UserResponse describes a user.
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Staff    bool   `json:"staff"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime,omitempty"`
	Version string `json:"version,omitempty"`
}
