package middleware

import "context"

// ContextKey keeps this package's context values apart from others.
type ContextKey string

// UserIDCtxKey holds the authenticated account ID.
const UserIDCtxKey = ContextKey("user_id")

// UserIDFromContext returns the account ID stored by Auth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserIDCtxKey).(string)
	return id, ok && id != ""
}
