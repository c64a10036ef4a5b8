package appMiddleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

const internalTokenHeader = "X-Internal-Token"

// RequireInternalToken guards service-to-service endpoints. The caller must
// present the shared secret in the X-Internal-Token header. When no secret is
// configured (local development, tests) the check is skipped.
func RequireInternalToken(secret string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}

			token := r.Header.Get(internalTokenHeader)
			if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				logger.WarnContext(r.Context(), "Rejected internal request with bad token",
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr))
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
