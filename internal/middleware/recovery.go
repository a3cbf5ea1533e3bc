package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"remotestorage/internal/httputil"
)

// Recovery recovers from a panic anywhere in the storage, WebFinger, OAuth,
// or admin handlers and turns it into a 500 RFC7807 problem response,
// logging whether the request carried a bearer token (never the token
// itself) since that's the detail that most often distinguishes a broken
// storage request from a broken admin one.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						"error", err,
						"path", r.URL.Path,
						"method", r.Method,
						"had_bearer_token", BearerToken(r) != "",
						"stack", string(debug.Stack()),
					)

					httputil.RespondProblem(w, http.StatusInternalServerError, httputil.ProblemInternalError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
