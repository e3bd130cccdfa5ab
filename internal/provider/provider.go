// Package provider contains the upstream completion clients. Each provider
// issues exactly one synchronous request per call — no retries, no backoff —
// and maps upstream failures onto a small error taxonomy the HTTP layer can
// translate into response statuses.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/halcyon-labs/prompt-relay/internal/config"
)

// Completion is the provider-agnostic result of a completion call.
type Completion struct {
	Text   string
	Model  string
	Tokens int
}

// Provider sends a single user message to an upstream completion API.
type Provider interface {
	Name() string
	Complete(ctx context.Context, message string) (*Completion, error)
}

var (
	// ErrUnauthorized means the upstream rejected the configured credential.
	ErrUnauthorized = errors.New("provider rejected credential")
	// ErrRateLimited means the upstream throttled us, not the client.
	ErrRateLimited = errors.New("provider rate limit exceeded")
	// ErrEmptyCompletion means the upstream answered 200 with no text content.
	ErrEmptyCompletion = errors.New("provider returned no text content")
)

// Build constructs the configured provider with its own HTTP client.
// The caller is responsible for the missing-credential policy; Build refuses
// to construct a real client without one.
func Build(cfg config.ProviderConfig) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("provider api key is not configured")
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		},
	}

	switch cfg.Type {
	case "openai":
		return NewOpenAI(cfg, client), nil
	case "anthropic":
		return NewAnthropic(cfg, client), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}
