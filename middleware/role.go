package middleware

import (
	"net/http"
	"slices"

	goGuard "github.com/MrEthical07/goGuard"
)

// RequireRole must run inside Guard. It reads the account behind the
// session and answers 403 unless its role is one of roles.
func RequireRole(engine *goGuard.Engine, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			profile, err := engine.Profile(r.Context(), sess)
			if err != nil {
				http.Error(w, goGuard.UserMessage(err), StatusFor(err))
				return
			}
			if !slices.Contains(roles, profile.Role) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
