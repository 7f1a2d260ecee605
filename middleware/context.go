package middleware

import (
	"net"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MrEthical07/panelcore"
)

// CorrelationHeader carries a caller-supplied correlation id.
const CorrelationHeader = "X-Correlation-ID"

// RequestContext attaches client IP, user agent and a correlation id to the
// request context so audit entries recorded by handlers pick them up. The
// correlation id comes from CorrelationHeader, then chi's request id, then a
// fresh UUID, and is echoed in the response.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(CorrelationHeader)
		if correlationID == "" || len(correlationID) > 128 {
			correlationID = chimw.GetReqID(r.Context())
		}
		if correlationID == "" {
			correlationID = uuid.NewString()
		}
		w.Header().Set(CorrelationHeader, correlationID)

		ctx := panelcore.WithClientIP(r.Context(), ClientIP(r))
		ctx = panelcore.WithUserAgent(ctx, r.UserAgent())
		ctx = panelcore.WithCorrelationID(ctx, correlationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIP returns the host part of r.RemoteAddr. Run chi's RealIP first when
// behind a trusted proxy.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
