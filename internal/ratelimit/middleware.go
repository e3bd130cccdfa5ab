package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/halcyon-labs/prompt-relay/internal/httputil"
	"github.com/halcyon-labs/prompt-relay/internal/telemetry"
)

const (
	headerRateLimitRequests          = "X-RateLimit-Limit-Requests"
	headerRateLimitRemainingRequests = "X-RateLimit-Remaining-Requests"
	headerRateLimitReset             = "X-RateLimit-Reset-Requests"
	headerRetryAfter                 = "Retry-After"
)

// Middleware returns chi middleware that enforces the per-client rate limit.
// Clients are keyed by network address; chi's RealIP middleware resolves
// proxy headers into RemoteAddr before this runs. Intended for the
// completion route group only, never for health or metadata endpoints.
func Middleware(limiter Limiter, metrics *telemetry.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := w.Header().Get("X-Request-ID")

			key := clientKey(r)
			result, _ := limiter.Check(r.Context(), key)

			// Always set rate limit headers
			w.Header().Set(headerRateLimitRequests, strconv.FormatInt(limiter.Limit(), 10))
			w.Header().Set(headerRateLimitRemainingRequests, strconv.FormatInt(result.Remaining, 10))
			w.Header().Set(headerRateLimitReset, result.ResetAt.Format(time.RFC3339))

			if !result.Allowed {
				slog.Warn("rate limit exceeded",
					"request_id", reqID,
					"client", key,
					"limit", limiter.Limit(),
					"reset_at", result.ResetAt.Format(time.RFC3339),
				)
				if metrics != nil {
					metrics.RecordRateLimitHit()
				}
				retryAfter := int(result.RetryAfter.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set(headerRetryAfter, strconv.Itoa(retryAfter))
				httputil.WriteRateLimited(w, reqID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey derives the rate limit bucket from the client network address.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return r.RemoteAddr
	}
	return host
}
