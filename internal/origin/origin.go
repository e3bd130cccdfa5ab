// Package origin implements the cross-origin access policy: an exact-match
// allow-list per deployment mode, with preflight short-circuiting. Requests
// without an Origin header are always allowed, which covers server-to-server
// and other non-browser clients.
package origin

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/halcyon-labs/prompt-relay/internal/httputil"
)

// Policy holds the immutable per-mode origin allow-list and the CORS header
// values derived from it. Hot reload swaps the whole policy.
type Policy struct {
	mu            sync.RWMutex
	allowed       map[string]struct{}
	ordered       []string
	allowMethods  string
	allowHeaders  string
	maxAgeSeconds int
}

func NewPolicy(origins, methods, headers []string, maxAge time.Duration) *Policy {
	p := &Policy{}
	p.set(origins, methods, headers, maxAge)
	return p
}

func (p *Policy) set(origins, methods, headers []string, maxAge time.Duration) {
	allowed := make(map[string]struct{}, len(origins))
	ordered := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if _, dup := allowed[o]; dup {
			continue
		}
		allowed[o] = struct{}{}
		ordered = append(ordered, o)
	}
	p.allowed = allowed
	p.ordered = ordered
	p.allowMethods = strings.Join(methods, ", ")
	p.allowHeaders = strings.Join(headers, ", ")
	p.maxAgeSeconds = int(maxAge.Seconds())
}

// Replace swaps the allow-list in place. Used by the config reload hook.
func (p *Policy) Replace(origins, methods, headers []string, maxAge time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set(origins, methods, headers, maxAge)
}

// Allows reports whether the given Origin header value is acceptable.
// An absent header is always allowed; a present one must match exactly.
func (p *Policy) Allows(origin string) bool {
	if origin == "" {
		return true
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.allowed[origin]
	return ok
}

// AllowedOrigins returns a copy of the configured allow-list.
func (p *Policy) AllowedOrigins() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.ordered))
	copy(out, p.ordered)
	return out
}

func (p *Policy) setCORSHeaders(w http.ResponseWriter, origin string) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h := w.Header()
	h.Add("Vary", "Origin")
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Credentials", "true")
	if p.allowMethods != "" {
		h.Set("Access-Control-Allow-Methods", p.allowMethods)
	}
	if p.allowHeaders != "" {
		h.Set("Access-Control-Allow-Headers", p.allowHeaders)
	}
	if p.maxAgeSeconds > 0 {
		h.Set("Access-Control-Max-Age", strconv.Itoa(p.maxAgeSeconds))
	}
}

// Middleware enforces the origin policy on every route. Denied origins get a
// structured 403; the allow-list appears in the details only when
// includeDetails is set (development mode). Preflight OPTIONS requests for
// any path short-circuit with 204 and never reach the handlers.
func Middleware(policy *Policy, includeDetails bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin == "" {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if !policy.Allows(origin) {
				reqID := w.Header().Get("X-Request-ID")
				slog.Warn("origin denied",
					"request_id", reqID,
					"origin", origin,
					"path", r.URL.Path,
				)
				details := ""
				if includeDetails {
					details = "allowed origins: " + strings.Join(policy.AllowedOrigins(), ", ")
				}
				httputil.WriteOriginDenied(w, reqID, details)
				return
			}

			policy.setCORSHeaders(w, origin)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
