package shared

import (
	"net/http"

	"github.com/ternaklink/ternaklink/internal/platform/httpx"
)

// Roles understood by the back office. Every mutating route requires one of
// these; there is no finer grained permission model.
const (
	RoleAdmin = "admin"
	RoleOwner = "owner"
)

// RequireRole rejects requests whose session lacks one of the given roles.
// Unauthenticated callers receive 401, authenticated callers without the role 403.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := SessionFromContext(r.Context())
			if sess == nil || sess.UserID() == 0 {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
				return
			}
			if _, ok := allowed[sess.Role()]; !ok {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
