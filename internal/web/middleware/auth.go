// Package middleware provides HTTP middleware for the web server.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"opencourt/internal/auth"
	"opencourt/internal/core"
	"opencourt/internal/logging"
)

type contextKey int

const userKey contextKey = iota

// Authenticator returns middleware that resolves the Authorization bearer
// token to a user and stores it in the request context. Requests without
// a valid, unexpired token are rejected with 401.
func Authenticator(authSvc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				logging.FromContext(r.Context()).Warn("auth: missing bearer token",
					"path", r.URL.Path,
					"method", r.Method,
				)
				unauthorized(w, "Authentication credentials were not provided")
				return
			}

			user, err := authSvc.Authenticate(r.Context(), token)
			if err != nil {
				logging.FromContext(r.Context()).Warn("auth: invalid token",
					"path", r.URL.Path,
					"method", r.Method,
					"error", err.Error(),
				)
				unauthorized(w, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, u *core.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the authenticated user, or nil outside the
// Authenticator middleware.
func UserFromContext(ctx context.Context) *core.User {
	u, _ := ctx.Value(userKey).(*core.User)
	return u
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// unauthorized writes the same {"error": "..."} body the web layer's
// error helpers produce.
func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
