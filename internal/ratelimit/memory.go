package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryLimiter counts requests per key in a fixed window held in process
// memory. State is lost on restart. The backing cache expires a key's window
// on access once it elapses and its janitor evicts stale windows, so the map
// does not grow unbounded under churning client IPs.
type MemoryLimiter struct {
	limit  int64
	window time.Duration

	mu      sync.Mutex
	windows *cache.Cache
}

type windowState struct {
	count   int64
	resetAt time.Time
}

func NewMemoryLimiter(limit int64, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		windows: cache.New(window, window),
	}
}

func (l *MemoryLimiter) Limit() int64 { return l.limit }

func (l *MemoryLimiter) Check(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	var st *windowState
	if v, ok := l.windows.Get(key); ok {
		st = v.(*windowState)
	} else {
		st = &windowState{resetAt: now.Add(l.window)}
		l.windows.Set(key, st, cache.DefaultExpiration)
	}

	if st.count >= l.limit {
		return Result{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    st.resetAt,
			RetryAfter: time.Until(st.resetAt),
		}, nil
	}

	st.count++
	return Result{
		Allowed:   true,
		Remaining: l.limit - st.count,
		ResetAt:   st.resetAt,
	}, nil
}
