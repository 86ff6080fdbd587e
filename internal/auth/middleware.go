package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/marisol-pos/marisol/internal/platform/httpx"
	"github.com/marisol-pos/marisol/internal/shared"
)

// Middleware resolves bearer tokens and enforces role requirements.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Authenticate rejects requests without a valid bearer token and stores the
// actor in the request context.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "bearer token required")
			return
		}
		actor, err := m.Service.Authenticate(r.Context(), token)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("token rejected", slog.String("path", r.URL.Path))
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

// Require returns a middleware rejecting actors below the given role.
func (m Middleware) Require(min shared.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok || !actor.Role.AtLeast(min) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient privileges")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
