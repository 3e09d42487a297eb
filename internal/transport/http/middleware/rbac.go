package middleware

import (
	"net/http"

	"github.com/catboard/auth-service/internal/domain"
)

// RequireAtLeast enforces the role ladder:
// Administrator > Moderator > NewsEditor > VerifiedUser > User.
// Auth must run first.
func RequireAtLeast(min domain.Role, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFromContext(r.Context())
			if !ok {
				writeErr(w, r, domain.ErrMissingToken())
				return
			}

			if !domain.IsValidRole(role) || !min.Valid() {
				writeErr(w, r, domain.ErrForbidden())
				return
			}

			if domain.RoleRank(domain.Role(role)) < domain.RoleRank(min) {
				writeErr(w, r, domain.ErrInsufficientRole(min))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
