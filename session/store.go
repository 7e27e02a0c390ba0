package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/identware/userguard/internal"
)

var (
	// ErrNotFound is returned when no bundle exists for the user.
	ErrNotFound = errors.New("session bundle not found")
	// ErrCorrupt is returned when the stored blob fails to decode.
	ErrCorrupt = errors.New("session bundle corrupt")
	// ErrUnavailable wraps Redis transport failures.
	ErrUnavailable = errors.New("session cache unavailable")
)

// Store is a Redis-backed bundle store. Safe for concurrent use.
type Store struct {
	redis redis.UniversalClient
	ttl   time.Duration
}

// NewStore creates a [Store] with the given bundle TTL. The TTL should match
// the refresh-token lifetime: a bundle outliving every refresh token is dead
// weight, one expiring earlier would revoke live tokens.
func NewStore(redisClient redis.UniversalClient, ttl time.Duration) *Store {
	return &Store{redis: redisClient, ttl: ttl}
}

// Load retrieves the bundle for a user.
func (s *Store) Load(ctx context.Context, userID int64) (*Bundle, error) {
	data, err := s.redis.Get(ctx, internal.UserBundleKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &b, nil
}

// Save writes the bundle, resetting its TTL.
func (s *Store) Save(ctx context.Context, userID int64, b *Bundle) error {
	b.TimeUpdated = time.Now().Unix()

	data, err := json.Marshal(b)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, internal.UserBundleKey(userID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete removes the bundle, revoking every token it listed. Deleting a
// missing bundle is a no-op.
func (s *Store) Delete(ctx context.Context, userID int64) error {
	if err := s.redis.Del(ctx, internal.UserBundleKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Mutate loads the bundle, applies fn, and saves the result. A missing
// bundle starts empty so callers can mutate unconditionally. This is
// read-modify-write without CAS; see the package comment.
func (s *Store) Mutate(ctx context.Context, userID int64, fn func(*Bundle)) (*Bundle, error) {
	b, err := s.Load(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		b = &Bundle{Account: AccountSnapshot{ID: userID}}
	}

	fn(b)

	if err := s.Save(ctx, userID, b); err != nil {
		return nil, err
	}
	return b, nil
}
