package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestRedisLimiter_AllowsUpToLimit(t *testing.T) {
	_, rdb := testRedis(t)
	l := NewRedisLimiter(rdb, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := l.Check(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("Check failed: %v", err)
		}
		if !result.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	result, err := l.Check(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if result.Allowed {
		t.Error("request over the ceiling should be denied")
	}
	if result.RetryAfter <= 0 {
		t.Errorf("expected positive RetryAfter, got %s", result.RetryAfter)
	}
}

func TestRedisLimiter_WindowSlides(t *testing.T) {
	mr, rdb := testRedis(t)
	l := NewRedisLimiter(rdb, 1, time.Minute)
	ctx := context.Background()

	if r, _ := l.Check(ctx, "1.2.3.4"); !r.Allowed {
		t.Fatal("first request should be allowed")
	}
	if r, _ := l.Check(ctx, "1.2.3.4"); r.Allowed {
		t.Fatal("second request inside the window should be denied")
	}

	// The bucket key carries a TTL of window+1s; advancing the clock past it
	// drops the recorded requests.
	mr.FastForward(2 * time.Minute)

	if r, _ := l.Check(ctx, "1.2.3.4"); !r.Allowed {
		t.Error("request after the window slid should be allowed again")
	}
}

func TestRedisLimiter_KeysIndependent(t *testing.T) {
	_, rdb := testRedis(t)
	l := NewRedisLimiter(rdb, 1, time.Minute)
	ctx := context.Background()

	if r, _ := l.Check(ctx, "1.2.3.4"); !r.Allowed {
		t.Fatal("first client should be allowed")
	}
	if r, _ := l.Check(ctx, "5.6.7.8"); !r.Allowed {
		t.Error("second client must have its own window")
	}
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	mr, rdb := testRedis(t)
	l := NewRedisLimiter(rdb, 1, time.Minute)
	ctx := context.Background()

	mr.Close()

	result, err := l.Check(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("Check should not surface backend errors: %v", err)
	}
	if !result.Allowed {
		t.Error("limiter must fail open when Redis is unreachable")
	}
}
