package limiters

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/identware/userguard/internal"
)

// AttemptResult reports the outcome of recording a failed login attempt.
// Count and Remaining are meaningful only when CanTry is true.
type AttemptResult struct {
	CanTry    bool
	Count     int
	Remaining int
}

// AttemptLimiter counts failed logins per subject and triggers the lock
// tracker at the configured threshold.
type AttemptLimiter struct {
	redis    redis.UniversalClient
	tracker  *LockTracker
	attempts int
	window   time.Duration
}

// NewAttemptLimiter creates a limiter sharing the lock tracker's window so
// counters and lock windows expire together.
func NewAttemptLimiter(redisClient redis.UniversalClient, tracker *LockTracker, attempts int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{
		redis:    redisClient,
		tracker:  tracker,
		attempts: attempts,
		window:   window,
	}
}

// IncrementAccount records a failed attempt for the account. A subject that
// is already locked is reported as CanTry=false without touching the
// counter: repeated hits must not extend the lock window.
func (l *AttemptLimiter) IncrementAccount(ctx context.Context, userID int64) (AttemptResult, error) {
	locked, err := l.tracker.IsAccountLocked(ctx, userID)
	if err != nil {
		return AttemptResult{}, err
	}
	if locked {
		return AttemptResult{CanTry: false}, nil
	}

	count, err := l.bump(ctx, internal.AccountAttemptsKey(userID))
	if err != nil {
		return AttemptResult{}, err
	}

	if count >= int64(l.attempts) {
		if err := l.tracker.LockAccount(ctx, userID); err != nil {
			return AttemptResult{}, err
		}
	}

	return l.result(count), nil
}

// IncrementIP records a failed attempt for the client IP. Allow-listed IPs
// still count attempts but never reach a lock (LockIP skips them).
func (l *AttemptLimiter) IncrementIP(ctx context.Context, ip string) (AttemptResult, error) {
	if ip == "" {
		return AttemptResult{CanTry: true, Remaining: l.attempts}, nil
	}

	locked, err := l.tracker.IsIPLocked(ctx, ip)
	if err != nil {
		return AttemptResult{}, err
	}
	if locked {
		return AttemptResult{CanTry: false}, nil
	}

	count, err := l.bump(ctx, internal.IPAttemptsKey(ip))
	if err != nil {
		return AttemptResult{}, err
	}

	if count >= int64(l.attempts) {
		if err := l.tracker.LockIP(ctx, ip); err != nil {
			return AttemptResult{}, err
		}
	}

	return l.result(count), nil
}

// ResetAccount clears the account's counter after a successful login.
func (l *AttemptLimiter) ResetAccount(ctx context.Context, userID int64) error {
	return l.reset(ctx, internal.AccountAttemptsKey(userID))
}

// ResetIP clears the IP's counter after a successful login.
func (l *AttemptLimiter) ResetIP(ctx context.Context, ip string) error {
	if ip == "" {
		return nil
	}
	return l.reset(ctx, internal.IPAttemptsKey(ip))
}

func (l *AttemptLimiter) result(count int64) AttemptResult {
	remaining := l.attempts - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return AttemptResult{CanTry: true, Count: int(count), Remaining: remaining}
}

func (l *AttemptLimiter) reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (l *AttemptLimiter) bump(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// Fixed-window semantics: TTL starts with the first failure and is not
	// refreshed by later ones.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return count, nil
}
