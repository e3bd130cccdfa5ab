package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of a rate limit check.
type Result struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter bounds completion requests per client key within a time window.
// Implementations must be safe for concurrent use.
type Limiter interface {
	// Check records one request attempt for key and reports whether it is
	// within the configured ceiling.
	Check(ctx context.Context, key string) (Result, error)
	// Limit returns the configured per-window request ceiling.
	Limit() int64
}
