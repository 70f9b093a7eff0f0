package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/offerhubhq/offerhub-backend/pkg/logger"
)

const userIDHeader = "X-User-Id"

type contextKey string

const ctxUserID contextKey = "user_id"

// Identity reads the caller's user id from the X-User-Id header or a user_id
// query parameter and stores it on the context. There is no session layer;
// handlers that need an authenticated caller reject a missing id themselves.
func Identity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(userIDHeader)
			if raw == "" {
				raw = r.URL.Query().Get("user_id")
			}

			ctx := r.Context()
			if userID, err := strconv.ParseInt(raw, 10, 64); err == nil && userID > 0 {
				ctx = WithUserID(ctx, userID)
				if logg != nil {
					ctx = logg.WithUserID(ctx, userID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the caller's user id, or zero when anonymous.
func UserIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if v, ok := ctx.Value(ctxUserID).(int64); ok {
		return v
	}
	return 0
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}
