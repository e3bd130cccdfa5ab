package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/halcyon-labs/prompt-relay/internal/config"
)

func anthropicCfg(baseURL string) config.ProviderConfig {
	return config.ProviderConfig{
		Type:        "anthropic",
		BaseURL:     baseURL,
		APIKey:      "ant-test-key",
		Model:       "claude-3-5-haiku-latest",
		MaxTokens:   256,
		Temperature: 0.7,
		Timeout:     5 * time.Second,
	}
}

func TestAnthropic_Complete(t *testing.T) {
	var gotBody anthropicRequestBody
	var gotKey, gotVersion string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"model": "claude-3-5-haiku-20241022",
			"content": []map[string]string{
				{"type": "text", "text": "anthropic reply"},
			},
			"stop_reason": "end_turn",
			"usage":       map[string]int{"input_tokens": 9, "output_tokens": 4},
		})
	}))
	defer srv.Close()

	p := NewAnthropic(anthropicCfg(srv.URL), srv.Client())
	got, err := p.Complete(context.Background(), "hello claude")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if got.Text != "anthropic reply" {
		t.Errorf("text = %q", got.Text)
	}
	if got.Tokens != 13 {
		t.Errorf("tokens = %d, want input+output = 13", got.Tokens)
	}

	if gotKey != "ant-test-key" {
		t.Errorf("x-api-key = %q", gotKey)
	}
	if gotVersion == "" {
		t.Error("expected anthropic-version header")
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Role != "user" || gotBody.Messages[0].Content != "hello claude" {
		t.Errorf("expected single user turn, got %+v", gotBody.Messages)
	}
	if gotBody.MaxTokens != 256 {
		t.Errorf("max_tokens = %d", gotBody.MaxTokens)
	}
}

func TestAnthropic_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ErrUnauthorized},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			p := NewAnthropic(anthropicCfg(srv.URL), srv.Client())
			_, err := p.Complete(context.Background(), "hi")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAnthropic_EmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Tool-use only response: no text block.
		w.Write([]byte(`{"model":"m","content":[{"type":"tool_use"}],"usage":{"input_tokens":1,"output_tokens":1}}`))
	}))
	defer srv.Close()

	p := NewAnthropic(anthropicCfg(srv.URL), srv.Client())
	_, err := p.Complete(context.Background(), "hi")
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}
