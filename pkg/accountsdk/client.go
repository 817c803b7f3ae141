package accountsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the accountd service. Unauthenticated calls run
// on the client itself; SignIn (directly or via a challenge) produces a
// Session for the rest of the API.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSDKClient creates a client for the given base URL.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// APIError is a decoded ErrorResponse with its HTTP status.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
	RedirectTo  string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Description)
	}
	return e.Code
}

// ErrChallengeRequired is returned by SignIn when the account has two-factor
// enabled. Call VerifyTOTP or VerifyRecoveryCode with the challenge token.
type ErrChallengeRequired struct {
	ChallengeToken string
}

func (e *ErrChallengeRequired) Error() string {
	return "two-factor challenge required"
}

// SignIn authenticates with username and password. Users with two-factor
// enabled get an *ErrChallengeRequired instead of a session (the server
// answers 202 with a challenge token in that case).
func (c *SDKClient) SignIn(ctx context.Context, username, password string) (*Session, error) {
	resp, err := c.roundTrip(ctx, http.MethodPost, "/v1/sessions", "",
		SignInRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		var challenge ChallengeResponse
		if err := json.NewDecoder(resp.Body).Decode(&challenge); err != nil {
			return nil, err
		}
		return nil, &ErrChallengeRequired{ChallengeToken: challenge.ChallengeToken}
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var out SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return newSession(c, out), nil
}

// VerifyTOTP completes a pending sign-in challenge with an authenticator code.
func (c *SDKClient) VerifyTOTP(ctx context.Context, challengeToken, code string) (*Session, error) {
	return c.verifyChallenge(ctx, "/v1/sessions/challenge/totp", challengeToken, code)
}

// VerifyRecoveryCode completes a pending sign-in challenge with a recovery code.
func (c *SDKClient) VerifyRecoveryCode(ctx context.Context, challengeToken, code string) (*Session, error) {
	return c.verifyChallenge(ctx, "/v1/sessions/challenge/recovery", challengeToken, code)
}

// Register creates a new user.
func (c *SDKClient) Register(ctx context.Context, username, password string) (UserResponse, error) {
	var out UserResponse
	err := c.do(ctx, http.MethodPost, "/v1/users", "",
		RegisterRequest{Username: username, Password: password}, &out)
	return out, err
}

// Livez reports service liveness.
func (c *SDKClient) Livez(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, "/livez", "", nil, &out)
	return out, err
}

func (c *SDKClient) verifyChallenge(ctx context.Context, path, token, code string) (*Session, error) {
	var out SessionResponse
	err := c.do(ctx, http.MethodPost, path, "",
		ChallengeVerifyRequest{ChallengeToken: token, Code: code}, &out)
	if err != nil {
		return nil, err
	}
	return newSession(c, out), nil
}

func (c *SDKClient) roundTrip(ctx context.Context, method, path, token string, in any) (*http.Response, error) {
	body := &bytes.Buffer{}
	if in != nil {
		if err := json.NewEncoder(body).Encode(in); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.HTTPClient.Do(req)
}

// do executes one JSON round trip. A non-2xx response decodes into APIError.
func (c *SDKClient) do(ctx context.Context, method, path, token string, in, out any) error {
	resp, err := c.roundTrip(ctx, method, path, token, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}

	var body ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Code: "unexpected_response"}
	}
	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        body.Error,
		Description: body.ErrorDescription,
		RedirectTo:  body.RedirectTo,
	}
}
