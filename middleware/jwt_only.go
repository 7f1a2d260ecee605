package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/panelcore"
)

type routingClaimsContextKey struct{}

// RoutingClaimsFromContext returns the claims attached by [Advisory]. They are
// unverified against the session store and may describe a revoked session.
func RoutingClaimsFromContext(ctx context.Context) (*panelcore.RoutingClaims, bool) {
	claims, ok := ctx.Value(routingClaimsContextKey{}).(*panelcore.RoutingClaims)
	return claims, ok
}

// Advisory decodes the routing token in cookieName when present and attaches its
// claims. It never rejects a request.
func Advisory(engine *panelcore.Engine, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(cookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := engine.InspectRoutingToken(c.Value)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), routingClaimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
