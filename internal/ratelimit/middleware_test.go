package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/halcyon-labs/prompt-relay/internal/httputil"
)

func limitedHandler(limiter Limiter, called *int) http.Handler {
	return Middleware(limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called++
		w.WriteHeader(http.StatusOK)
	}))
}

func TestMiddleware_AllowsAndSetsHeaders(t *testing.T) {
	called := 0
	h := limitedHandler(NewMemoryLimiter(10, time.Minute), &called)

	req := httptest.NewRequest(http.MethodPost, "/askAi", nil)
	req.RemoteAddr = "1.2.3.4:51234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if called != 1 {
		t.Errorf("expected handler called once, got %d", called)
	}
	if got := rec.Header().Get(headerRateLimitRequests); got != "10" {
		t.Errorf("expected limit header 10, got %q", got)
	}
	if got := rec.Header().Get(headerRateLimitRemainingRequests); got != "9" {
		t.Errorf("expected remaining header 9, got %q", got)
	}
	if rec.Header().Get(headerRateLimitReset) == "" {
		t.Error("expected reset header")
	}
}

func TestMiddleware_DeniesOverLimit(t *testing.T) {
	called := 0
	h := limitedHandler(NewMemoryLimiter(2, time.Minute), &called)

	var rec *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/askAi", nil)
		req.RemoteAddr = "1.2.3.4:51234"
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
	}

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if called != 2 {
		t.Errorf("handler should not run for the rejected request, called %d times", called)
	}
	if rec.Header().Get(headerRetryAfter) == "" {
		t.Error("expected Retry-After header on 429")
	}

	var env httputil.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if env.Success {
		t.Error("expected success=false")
	}
	if env.Error != "Too many requests" {
		t.Errorf("expected 'Too many requests', got %q", env.Error)
	}
}

func TestMiddleware_KeysByClientAddress(t *testing.T) {
	called := 0
	h := limitedHandler(NewMemoryLimiter(1, time.Minute), &called)

	req := httptest.NewRequest(http.MethodPost, "/askAi", nil)
	req.RemoteAddr = "1.2.3.4:1111"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	// Same address, different ephemeral port: still the same client.
	req = httptest.NewRequest(http.MethodPost, "/askAi", nil)
	req.RemoteAddr = "1.2.3.4:2222"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected same-client request denied, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/askAi", nil)
	req.RemoteAddr = "5.6.7.8:3333"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected other client allowed, got %d", rec.Code)
	}
}

func TestClientKey(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"1.2.3.4:51234", "1.2.3.4"},
		{"[::1]:51234", "::1"},
		{"1.2.3.4", "1.2.3.4"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/askAi", nil)
		req.RemoteAddr = tt.remoteAddr
		if got := clientKey(req); got != tt.want {
			t.Errorf("clientKey(%q) = %q, want %q", tt.remoteAddr, got, tt.want)
		}
	}
}
