package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiterTest(t *testing.T, cfg Config) (*Limiter, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return New(client, cfg), mr, func() {
		_ = client.Close()
		mr.Close()
	}
}

func loginConfig() Config {
	return Config{
		EnableIPThrottle:      true,
		MaxLoginAttempts:      3,
		LoginCooldownDuration: time.Minute,
	}
}

func TestCheckLoginFreshIdentifierAllowed(t *testing.T) {
	l, _, done := newLimiterTest(t, loginConfig())
	defer done()

	if err := l.CheckLogin(context.Background(), "alice@example.com", "203.0.113.1"); err != nil {
		t.Fatalf("fresh identifier rejected: %v", err)
	}
}

func TestIncrementLoginTripsAfterBudget(t *testing.T) {
	l, _, done := newLimiterTest(t, loginConfig())
	defer done()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := l.IncrementLogin(ctx, "alice@example.com", "203.0.113.1"); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}

	if err := l.IncrementLogin(ctx, "alice@example.com", "203.0.113.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("fourth attempt = %v, want ErrRateLimited", err)
	}
	if err := l.CheckLogin(ctx, "alice@example.com", "203.0.113.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("check after trip = %v, want ErrRateLimited", err)
	}
}

func TestIPThrottleBlocksOtherIdentifiers(t *testing.T) {
	l, _, done := newLimiterTest(t, loginConfig())
	defer done()

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_ = l.IncrementLogin(ctx, "alice@example.com", "203.0.113.1")
	}

	if err := l.CheckLogin(ctx, "bob@example.com", "203.0.113.1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("shared IP not throttled: %v", err)
	}
	if err := l.CheckLogin(ctx, "bob@example.com", "198.51.100.7"); err != nil {
		t.Fatalf("different IP rejected: %v", err)
	}
}

func TestResetLoginClearsCounters(t *testing.T) {
	l, _, done := newLimiterTest(t, loginConfig())
	defer done()

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_ = l.IncrementLogin(ctx, "alice@example.com", "203.0.113.1")
	}
	if err := l.ResetLogin(ctx, "alice@example.com", "203.0.113.1"); err != nil {
		t.Fatalf("ResetLogin: %v", err)
	}
	if err := l.CheckLogin(ctx, "alice@example.com", "203.0.113.1"); err != nil {
		t.Fatalf("check after reset: %v", err)
	}

	got, err := l.GetLoginAttempts(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetLoginAttempts: %v", err)
	}
	if got != 0 {
		t.Fatalf("attempts after reset = %d, want 0", got)
	}
}

func TestLoginWindowExpires(t *testing.T) {
	l, mr, done := newLimiterTest(t, loginConfig())
	defer done()

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_ = l.IncrementLogin(ctx, "alice@example.com", "")
	}
	if err := l.CheckLogin(ctx, "alice@example.com", ""); !errors.Is(err, ErrRateLimited) {
		t.Fatal("expected throttle before window expiry")
	}

	mr.FastForward(2 * time.Minute)

	if err := l.CheckLogin(ctx, "alice@example.com", ""); err != nil {
		t.Fatalf("check after window expiry: %v", err)
	}
}

func TestCheckRefreshDisabledIsNoOp(t *testing.T) {
	l, _, done := newLimiterTest(t, Config{EnableRefreshThrottle: false})
	defer done()

	for i := 0; i < 50; i++ {
		if err := l.CheckRefresh(context.Background(), "jti-1"); err != nil {
			t.Fatalf("disabled throttle returned %v", err)
		}
	}
}

func TestCheckRefreshTripsPerTokenID(t *testing.T) {
	l, _, done := newLimiterTest(t, Config{
		EnableRefreshThrottle:   true,
		MaxRefreshAttempts:      2,
		RefreshCooldownDuration: 10 * time.Second,
	})
	defer done()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := l.CheckRefresh(ctx, "jti-1"); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if err := l.CheckRefresh(ctx, "jti-1"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("third attempt = %v, want ErrRateLimited", err)
	}

	// A different token ID has its own window.
	if err := l.CheckRefresh(ctx, "jti-2"); err != nil {
		t.Fatalf("second token throttled: %v", err)
	}
}
