package httputil

import (
	"encoding/json"
	"net/http"
)

// SuccessEnvelope is the body of every 200 completion response.
type SuccessEnvelope struct {
	Success bool           `json:"success"`
	Data    CompletionData `json:"data"`
	Meta    CompletionMeta `json:"meta"`
}

type CompletionData struct {
	Text string `json:"text"`
}

type CompletionMeta struct {
	Model  string `json:"model"`
	Tokens int    `json:"tokens,omitempty"`
}

// ErrorEnvelope is the body of every non-2xx response. Details carries
// diagnostic text and must stay empty in production.
type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteSuccess writes the 200 success envelope.
func WriteSuccess(w http.ResponseWriter, requestID, text, model string, tokens int) {
	w.Header().Set("Content-Type", "application/json")
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(SuccessEnvelope{
		Success: true,
		Data:    CompletionData{Text: text},
		Meta:    CompletionMeta{Model: model, Tokens: tokens},
	})
}

// WriteError writes a structured failure envelope. Callers pass details=""
// outside development mode.
func WriteError(w http.ResponseWriter, requestID string, statusCode int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorEnvelope{
		Success: false,
		Error:   message,
		Details: details,
	})
}

func WriteInvalidRequest(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusBadRequest, message, "")
}

func WriteUnauthorized(w http.ResponseWriter, requestID string) {
	WriteError(w, requestID, http.StatusUnauthorized, "Provider credential rejected", "")
}

func WriteOriginDenied(w http.ResponseWriter, requestID, details string) {
	WriteError(w, requestID, http.StatusForbidden, "Origin not allowed", details)
}

func WriteRateLimited(w http.ResponseWriter, requestID string) {
	WriteError(w, requestID, http.StatusTooManyRequests, "Too many requests", "")
}

func WriteUpstreamRateLimited(w http.ResponseWriter, requestID string) {
	WriteError(w, requestID, http.StatusTooManyRequests, "Provider rate limit exceeded", "")
}

func WriteUpstreamTimeout(w http.ResponseWriter, requestID string) {
	WriteError(w, requestID, http.StatusGatewayTimeout, "Provider request timed out", "")
}

func WriteUpstreamError(w http.ResponseWriter, requestID, details string) {
	WriteError(w, requestID, http.StatusInternalServerError, "Provider request failed", details)
}

func WriteEmptyCompletion(w http.ResponseWriter, requestID string) {
	WriteError(w, requestID, http.StatusInternalServerError, "Provider returned an empty completion", "")
}

func WriteNotFound(w http.ResponseWriter, requestID string) {
	WriteError(w, requestID, http.StatusNotFound, "Not found", "")
}

func WriteMethodNotAllowed(w http.ResponseWriter, requestID string) {
	WriteError(w, requestID, http.StatusMethodNotAllowed, "Method not allowed", "")
}
