package limiters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/identware/userguard/internal"
)

// ErrUnavailable wraps Redis transport failures from the lock subsystem.
var ErrUnavailable = errors.New("lock backend unavailable")

// LockRecord is the stored lock window. Presence of a non-expired key is the
// lock condition; the fields exist for admin inspection.
type LockRecord struct {
	LockedFrom int64 `json:"locked_from"`
	LockedTo   int64 `json:"locked_to"`
}

// LockTracker records and queries lock state per account and per IP.
type LockTracker struct {
	redis  redis.UniversalClient
	window time.Duration
	allow  map[string]struct{}
}

// NewLockTracker creates a tracker with the given lock window. IPs in
// allowList are never IP-locked; account locks are unaffected by the list.
func NewLockTracker(redisClient redis.UniversalClient, window time.Duration, allowList []string) *LockTracker {
	allow := make(map[string]struct{}, len(allowList))
	for _, ip := range allowList {
		allow[ip] = struct{}{}
	}
	return &LockTracker{redis: redisClient, window: window, allow: allow}
}

// IsAccountLocked reports whether a lock window is open for the account.
func (t *LockTracker) IsAccountLocked(ctx context.Context, userID int64) (bool, error) {
	return t.exists(ctx, internal.LockedAccountKey(userID))
}

// IsIPLocked reports whether a lock window is open for the IP.
func (t *LockTracker) IsIPLocked(ctx context.Context, ip string) (bool, error) {
	if ip == "" {
		return false, nil
	}
	return t.exists(ctx, internal.LockedIPKey(ip))
}

// LockAccount opens a lock window for the account.
func (t *LockTracker) LockAccount(ctx context.Context, userID int64) error {
	return t.lock(ctx, internal.LockedAccountKey(userID))
}

// LockIP opens a lock window for the IP. Allow-listed IPs are skipped.
func (t *LockTracker) LockIP(ctx context.Context, ip string) error {
	if ip == "" {
		return nil
	}
	if _, ok := t.allow[ip]; ok {
		return nil
	}
	return t.lock(ctx, internal.LockedIPKey(ip))
}

// UnlockAccount closes the account's lock window and clears its attempt
// counter. Used by cache-admin tooling; TTL expiry is the normal path.
func (t *LockTracker) UnlockAccount(ctx context.Context, userID int64) error {
	keys := []string{internal.LockedAccountKey(userID), internal.AccountAttemptsKey(userID)}
	if err := t.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// UnlockIP closes the IP's lock window and clears its attempt counter.
func (t *LockTracker) UnlockIP(ctx context.Context, ip string) error {
	keys := []string{internal.LockedIPKey(ip), internal.IPAttemptsKey(ip)}
	if err := t.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (t *LockTracker) exists(ctx context.Context, key string) (bool, error) {
	n, err := t.redis.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

func (t *LockTracker) lock(ctx context.Context, key string) error {
	now := time.Now()
	data, err := json.Marshal(LockRecord{
		LockedFrom: now.Unix(),
		LockedTo:   now.Add(t.window).Unix(),
	})
	if err != nil {
		return err
	}
	if err := t.redis.Set(ctx, key, data, t.window).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
