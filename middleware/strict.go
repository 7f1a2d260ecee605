package middleware

import (
	"net/http"

	"github.com/MrEthical07/panelcore"
)

// RequirePermission rejects callers lacking action on module. It must run after
// [RequireSession].
func RequirePermission(engine *panelcore.Engine, module, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := panelcore.UserFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if err := engine.Authorize(user, module, action, ""); err != nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
