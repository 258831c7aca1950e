package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestStartLimiter(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter := NewStartLimiter(client, 2, 1, time.Minute)

	allowed, err := limiter.Allow(ctx, "u1")
	if err != nil || !allowed {
		t.Fatalf("expected first start allowed, got allowed=%v err=%v", allowed, err)
	}
	allowed, _ = limiter.Allow(ctx, "u1")
	if !allowed {
		t.Fatal("expected second start allowed")
	}
	allowed, _ = limiter.Allow(ctx, "u1")
	if allowed {
		t.Fatal("expected third start to be rejected")
	}

	// Buckets are per user; another user is unaffected.
	allowed, _ = limiter.Allow(ctx, "u2")
	if !allowed {
		t.Fatal("expected a fresh user to be allowed")
	}

	// Note: refill cannot be tested with miniredis.FastForward() because the
	// script receives time from Go's time.Now(), not Redis's internal clock.
}
