package httpx

import "context"

type ctxKey string

const (
	// CtxKeyUserID holds the authenticated user's id. Set by the session
	// middleware; consumed by rate limiting and handlers.
	CtxKeyUserID ctxKey = "user_id"
)

// UserIDFromContext returns the authenticated user id, or "" if anonymous.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}

// ContextWithUserID attaches the authenticated user id for downstream
// middleware (e.g. per-user rate limiting).
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxKeyUserID, userID)
}
