package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"dpmeschat/internal/auth"
	"dpmeschat/internal/httputil"
)

// Auth validates the bearer token on API routes and stores the user id on
// the request context. Health checks and the websocket endpoints pass
// through; the websocket handshake cannot carry an Authorization header
// from browser clients.
func Auth(verifier auth.JWTVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httputil.RespondFailure(w, http.StatusUnauthorized, "Authentication required!")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				logger.Debug("token rejected", "path", r.URL.Path)
				httputil.RespondFailure(w, http.StatusUnauthorized, "Authentication required!")
				return
			}

			next.ServeHTTP(w, httputil.WithUserID(r, claims.GetUserID()))
		})
	}
}
