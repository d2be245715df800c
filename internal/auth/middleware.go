package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/rentora-erp/rentora-erp/internal/platform/httpx"
	"github.com/rentora-erp/rentora-erp/internal/shared"
)

// RequirePrincipal resolves the Authorization bearer credential and
// stores the principal id in the request context. Requests without a
// resolvable credential are rejected with a generic 401 before any
// handler runs.
func RequirePrincipal(service *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principalID, err := service.Resolve(r.Context(), BearerToken(r))
			if err != nil {
				if logger != nil {
					logger.Debug("bearer resolution failed", slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			ctx := shared.ContextWithPrincipal(r.Context(), principalID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from the Authorization header.
// A missing header and a malformed header both yield an empty token.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
