package middleware

import (
	"context"
	"net/http"
	"strings"
)

type userKey string

const (
	userIDKey    userKey = "user_id"
	userIDHeader         = "X-User-ID"
)

// UserID copies the caller id set by the upstream gateway into the request
// context.
func UserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := ContextWithUserID(r.Context(), r.Header.Get(userIDHeader))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey, userID)
}
