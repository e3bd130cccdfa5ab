package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/halcyon-labs/prompt-relay/internal/config"
	"github.com/halcyon-labs/prompt-relay/internal/httputil"
	"github.com/halcyon-labs/prompt-relay/internal/origin"
	"github.com/halcyon-labs/prompt-relay/internal/provider"
	"github.com/halcyon-labs/prompt-relay/internal/telemetry"
)

// Handler holds dependencies for the relay HTTP handlers.
type Handler struct {
	provider provider.Provider
	policy   *origin.Policy
	cfg      func() *config.Config
	metrics  *telemetry.Metrics
	timeout  time.Duration
	version  string
}

func NewHandler(p provider.Provider, policy *origin.Policy, cfg func() *config.Config, metrics *telemetry.Metrics, timeout time.Duration, version string) *Handler {
	return &Handler{
		provider: p,
		policy:   policy,
		cfg:      cfg,
		metrics:  metrics,
		timeout:  timeout,
		version:  version,
	}
}

type askRequest struct {
	Message string `json:"message"`
}

// AskAI handles POST /askAi: validate the prompt, call the provider once,
// and shape the result into the response envelope.
func (h *Handler) AskAI(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	receivedAt := time.Now()
	cfg := h.cfg()

	r.Body = http.MaxBytesReader(w, r.Body, cfg.Limits.MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.reject(w, reqID, fmt.Sprintf("request body exceeds %d bytes", cfg.Limits.MaxBodyBytes))
			return
		}
		h.reject(w, reqID, "failed to read request body")
		return
	}
	defer r.Body.Close()

	var req askRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.reject(w, reqID, "message must be a JSON object with a string message field")
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		h.reject(w, reqID, "message is required and must be a non-empty string")
		return
	}
	if n := utf8.RuneCountInString(message); n > cfg.Limits.MaxMessageChars {
		h.reject(w, reqID, fmt.Sprintf("message length %d exceeds the maximum of %d characters", n, cfg.Limits.MaxMessageChars))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	completion, err := h.provider.Complete(ctx, message)
	if err != nil {
		h.writeProviderError(w, reqID, err, cfg.Mode)
		return
	}

	durationMs := float64(time.Since(receivedAt).Milliseconds())
	slog.Info("request completed",
		"request_id", reqID,
		"provider", h.provider.Name(),
		"model", completion.Model,
		"tokens", completion.Tokens,
		"duration_ms", durationMs,
		"status_code", http.StatusOK,
	)
	if h.metrics != nil {
		h.metrics.RecordRequest(telemetry.RequestLabels{
			Route:      "/askAi",
			Status:     "200",
			Provider:   h.provider.Name(),
			Model:      completion.Model,
			DurationMs: durationMs,
			Tokens:     completion.Tokens,
		})
	}

	httputil.WriteSuccess(w, reqID, completion.Text, completion.Model, completion.Tokens)
}

func (h *Handler) reject(w http.ResponseWriter, reqID, message string) {
	if h.metrics != nil {
		h.metrics.RecordRequest(telemetry.RequestLabels{Route: "/askAi", Status: "400"})
	}
	httputil.WriteInvalidRequest(w, reqID, message)
}

func (h *Handler) writeProviderError(w http.ResponseWriter, reqID string, err error, mode config.Mode) {
	var kind, status string
	switch {
	case errors.Is(err, provider.ErrUnauthorized):
		kind, status = "unauthorized", "401"
	case errors.Is(err, provider.ErrRateLimited):
		kind, status = "rate_limited", "429"
	case errors.Is(err, context.DeadlineExceeded):
		kind, status = "timeout", "504"
	case errors.Is(err, provider.ErrEmptyCompletion):
		kind, status = "empty_completion", "500"
	default:
		kind, status = "upstream", "500"
	}

	slog.Error("provider request failed",
		"request_id", reqID,
		"provider", h.provider.Name(),
		"kind", kind,
		"error", err,
	)
	if h.metrics != nil {
		h.metrics.RecordUpstreamError(kind)
		h.metrics.RecordRequest(telemetry.RequestLabels{Route: "/askAi", Status: status})
	}

	switch kind {
	case "unauthorized":
		httputil.WriteUnauthorized(w, reqID)
	case "rate_limited":
		httputil.WriteUpstreamRateLimited(w, reqID)
	case "timeout":
		httputil.WriteUpstreamTimeout(w, reqID)
	case "empty_completion":
		httputil.WriteEmptyCompletion(w, reqID)
	default:
		details := ""
		if mode.IsDevelopment() {
			details = err.Error()
		}
		httputil.WriteUpstreamError(w, reqID, details)
	}
}

// Banner handles GET /: service identity and the active origin policy.
func (h *Handler) Banner(w http.ResponseWriter, r *http.Request) {
	cfg := h.cfg()
	writeJSON(w, http.StatusOK, map[string]any{
		"service":         "prompt-relay",
		"version":         h.version,
		"mode":            string(cfg.Mode),
		"allowed_origins": h.policy.AllowedOrigins(),
		"endpoints": map[string]string{
			"POST /askAi":    "submit a prompt, receive a completion",
			"GET /health":    "liveness probe",
			"GET /test-cors": "check whether your origin is allowed",
		},
	})
}

// Health handles GET /health. Always succeeds, regardless of provider state.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"mode":      string(h.cfg().Mode),
	})
}

// TestCORS handles GET /test-cors: echoes whether the caller's origin is
// allowed. A denied origin never reaches this handler, so allowed is true
// for any browser request that arrives; the endpoint exists so clients can
// distinguish "no Origin sent" from "origin allowed".
func (h *Handler) TestCORS(w http.ResponseWriter, r *http.Request) {
	reqOrigin := r.Header.Get("Origin")
	writeJSON(w, http.StatusOK, map[string]any{
		"origin":  reqOrigin,
		"allowed": h.policy.Allows(reqOrigin),
	})
}

// NotFound is the structured fallback for unmatched routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteNotFound(w, w.Header().Get("X-Request-ID"))
}

// MethodNotAllowed is the structured fallback for matched paths with the
// wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteMethodNotAllowed(w, w.Header().Get("X-Request-ID"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
