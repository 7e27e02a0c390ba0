package limiters

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLimiterTest(t *testing.T, attempts int, allowList []string) (*AttemptLimiter, *LockTracker, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tracker := NewLockTracker(rdb, time.Hour, allowList)
	limiter := NewAttemptLimiter(rdb, tracker, attempts, time.Hour)
	return limiter, tracker, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestAccountLocksAtThreshold(t *testing.T) {
	limiter, tracker, _, done := newLimiterTest(t, 5, nil)
	defer done()
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		res, err := limiter.IncrementAccount(ctx, 1)
		if err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
		if !res.CanTry {
			t.Fatalf("attempt %d: expected CanTry", i)
		}
		if res.Remaining != 5-i {
			t.Fatalf("attempt %d: expected remaining %d, got %d", i, 5-i, res.Remaining)
		}
	}

	res, err := limiter.IncrementAccount(ctx, 1)
	if err != nil {
		t.Fatalf("fifth increment: %v", err)
	}
	if res.Remaining != 0 {
		t.Fatalf("expected remaining 0 at threshold, got %d", res.Remaining)
	}

	locked, err := tracker.IsAccountLocked(ctx, 1)
	if err != nil {
		t.Fatalf("lock query: %v", err)
	}
	if !locked {
		t.Fatal("expected account locked at threshold")
	}
}

func TestLockedAccountNotIncremented(t *testing.T) {
	limiter, _, mr, done := newLimiterTest(t, 2, nil)
	defer done()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := limiter.IncrementAccount(ctx, 7); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	counter, _ := mr.Get("account_login_attempts_7")

	res, err := limiter.IncrementAccount(ctx, 7)
	if err != nil {
		t.Fatalf("increment while locked: %v", err)
	}
	if res.CanTry {
		t.Fatal("expected CanTry=false while locked")
	}

	// Hits during the lock window must not move the counter or the TTL.
	after, _ := mr.Get("account_login_attempts_7")
	if after != counter {
		t.Fatalf("counter changed while locked: %q -> %q", counter, after)
	}
}

func TestLockExpiresByTTL(t *testing.T) {
	limiter, tracker, mr, done := newLimiterTest(t, 1, nil)
	defer done()
	ctx := context.Background()

	if _, err := limiter.IncrementAccount(ctx, 3); err != nil {
		t.Fatalf("increment: %v", err)
	}
	locked, _ := tracker.IsAccountLocked(ctx, 3)
	if !locked {
		t.Fatal("expected lock after single-attempt threshold")
	}

	mr.FastForward(time.Hour + time.Second)

	locked, err := tracker.IsAccountLocked(ctx, 3)
	if err != nil {
		t.Fatalf("lock query: %v", err)
	}
	if locked {
		t.Fatal("expected lock window to expire")
	}
}

func TestUnlockClearsLockAndCounter(t *testing.T) {
	limiter, tracker, mr, done := newLimiterTest(t, 1, nil)
	defer done()
	ctx := context.Background()

	if _, err := limiter.IncrementAccount(ctx, 4); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := tracker.UnlockAccount(ctx, 4); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	if locked, _ := tracker.IsAccountLocked(ctx, 4); locked {
		t.Fatal("expected unlocked")
	}
	if mr.Exists("account_login_attempts_4") {
		t.Fatal("expected attempt counter cleared by unlock")
	}

	res, err := limiter.IncrementAccount(ctx, 4)
	if err != nil {
		t.Fatalf("increment after unlock: %v", err)
	}
	if res.Count != 1 {
		t.Fatalf("expected fresh counter, got count %d", res.Count)
	}
}

func TestIPLockAndSanitizedKeys(t *testing.T) {
	limiter, tracker, mr, done := newLimiterTest(t, 2, nil)
	defer done()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := limiter.IncrementIP(ctx, "203.0.113.9"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}

	locked, err := tracker.IsIPLocked(ctx, "203.0.113.9")
	if err != nil {
		t.Fatalf("lock query: %v", err)
	}
	if !locked {
		t.Fatal("expected ip locked")
	}
	if !mr.Exists("locked_ip_203_0_113_9") {
		t.Fatal("expected sanitized lock key")
	}
	if !mr.Exists("ip_login_attempts_203_0_113_9") {
		t.Fatal("expected sanitized counter key")
	}
}

func TestAllowListedIPNeverLocks(t *testing.T) {
	limiter, tracker, _, done := newLimiterTest(t, 2, []string{"10.0.0.1"})
	defer done()
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		res, err := limiter.IncrementIP(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
		if !res.CanTry {
			t.Fatalf("attempt %d: allow-listed ip reported locked", i)
		}
	}

	if locked, _ := tracker.IsIPLocked(ctx, "10.0.0.1"); locked {
		t.Fatal("allow-listed ip must never lock")
	}
}

func TestEmptyIPSkipsCounting(t *testing.T) {
	limiter, _, mr, done := newLimiterTest(t, 2, nil)
	defer done()

	res, err := limiter.IncrementIP(context.Background(), "")
	if err != nil {
		t.Fatalf("increment: %v", err)
	}
	if !res.CanTry || res.Remaining != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("expected no keys written, got %v", mr.Keys())
	}
}

func TestCounterWindowNotRefreshed(t *testing.T) {
	limiter, _, mr, done := newLimiterTest(t, 10, nil)
	defer done()
	ctx := context.Background()

	if _, err := limiter.IncrementAccount(ctx, 8); err != nil {
		t.Fatalf("first increment: %v", err)
	}
	first := mr.TTL("account_login_attempts_8")

	mr.FastForward(30 * time.Minute)

	if _, err := limiter.IncrementAccount(ctx, 8); err != nil {
		t.Fatalf("second increment: %v", err)
	}
	second := mr.TTL("account_login_attempts_8")
	if second > first-30*time.Minute+time.Second {
		t.Fatalf("window refreshed: first %v, second %v", first, second)
	}
}

func TestResetClearsCounters(t *testing.T) {
	limiter, _, mr, done := newLimiterTest(t, 5, nil)
	defer done()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := limiter.IncrementAccount(ctx, 9); err != nil {
			t.Fatalf("account increment: %v", err)
		}
		if _, err := limiter.IncrementIP(ctx, "10.0.0.9"); err != nil {
			t.Fatalf("ip increment: %v", err)
		}
	}

	if err := limiter.ResetAccount(ctx, 9); err != nil {
		t.Fatalf("reset account: %v", err)
	}
	if err := limiter.ResetIP(ctx, "10.0.0.9"); err != nil {
		t.Fatalf("reset ip: %v", err)
	}
	if mr.Exists("account_login_attempts_9") {
		t.Fatal("expected account counter deleted")
	}
	if mr.Exists("ip_login_attempts_10_0_0_9") {
		t.Fatal("expected ip counter deleted")
	}

	// The window restarts from scratch after a reset.
	res, err := limiter.IncrementAccount(ctx, 9)
	if err != nil {
		t.Fatalf("increment after reset: %v", err)
	}
	if res.Count != 1 || res.Remaining != 4 {
		t.Fatalf("expected fresh counter, got %+v", res)
	}
}

func TestResetEmptyIPIsNoOp(t *testing.T) {
	limiter, _, _, done := newLimiterTest(t, 5, nil)
	defer done()

	if err := limiter.ResetIP(context.Background(), ""); err != nil {
		t.Fatalf("reset empty ip: %v", err)
	}
}
