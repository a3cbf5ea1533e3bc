package middleware

import (
	"context"
	"net/http"
	"strings"

	"remotestorage/internal/auth"
	"remotestorage/internal/httputil"
)

type contextKey string

const adminUsernameKey contextKey = "adminUsername"

// BearerToken extracts the raw bearer token from the Authorization header,
// or the empty string if none was supplied. Used by the storage handler,
// which hands the raw token to the database facade for per-request
// authorization rather than validating it here.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}

// AdminSession requires a valid self-issued admin session token on every
// request it wraps, and makes the authenticated username available to
// downstream handlers via AdminUsername.
func AdminSession(issuer auth.SessionIssuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				httputil.RespondProblem(w, http.StatusUnauthorized, httputil.ProblemMissingToken, "missing admin session token")
				return
			}

			claims, err := issuer.VerifyToken(token)
			if err != nil {
				httputil.RespondProblem(w, http.StatusUnauthorized, httputil.ProblemUnknownToken, "invalid or expired admin session")
				return
			}

			ctx := context.WithValue(r.Context(), adminUsernameKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminUsername retrieves the authenticated admin username set by
// AdminSession, or the empty string if the request was not wrapped by it.
func AdminUsername(r *http.Request) string {
	username, _ := r.Context().Value(adminUsernameKey).(string)
	return username
}
