package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/brokerhive/portal/pkg/contextkeys"
	"github.com/brokerhive/portal/pkg/observability"
)

// RequestIDHeader is the header carrying the request ID, inbound and
// outbound.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns each request an ID, honoring one supplied by an
// upstream proxy, and records the request start time for audit timing.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := contextkeys.WithRequestID(r.Context(), requestID)
		ctx = contextkeys.WithRequestStartTime(ctx, time.Now())
		ctx = observability.WithRequestID(ctx, requestID)

		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
