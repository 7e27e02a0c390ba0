package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/identware/userguard/internal"
)

// Kind distinguishes access from refresh tokens. The kind is embedded in the
// signed payload and checked against the matched route's requirement.
type Kind string

const (
	// KindAccess is the short-lived request token.
	KindAccess Kind = "access"
	// KindRefresh is the long-lived renewal token.
	KindRefresh Kind = "refresh"
)

var (
	// ErrInvalid covers every parse rejection. Deliberately a single message:
	// distinguishing signature failures from revocation would leak state.
	ErrInvalid = errors.New("invalid token")
	// ErrUnavailable wraps Redis transport failures.
	ErrUnavailable = errors.New("token cache unavailable")
)

// Claims is the signed token payload.
type Claims struct {
	ID    string   `json:"id"`
	UID   int64    `json:"uid"`
	Kind  Kind     `json:"type"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Config holds the shared signing secret and per-kind lifetimes.
type Config struct {
	Secret     []byte
	ExpAccess  time.Duration
	ExpRefresh time.Duration
}

// Codec issues and verifies tokens. Safe for concurrent use.
type Codec struct {
	redis  redis.UniversalClient
	config Config
}

// mirror is the cache-side record kept under token-<id>. Its presence is the
// revocation check; its fields let cache-admin tooling inspect live tokens.
type mirror struct {
	UID       int64 `json:"uid"`
	Kind      Kind  `json:"type"`
	IssuedAt  int64 `json:"iat"`
	ExpiresAt int64 `json:"exp"`
}

// NewCodec creates a [Codec] backed by the given Redis client.
func NewCodec(redisClient redis.UniversalClient, cfg Config) (*Codec, error) {
	if redisClient == nil {
		return nil, errors.New("redis client required")
	}
	if len(cfg.Secret) == 0 {
		return nil, errors.New("signing secret required")
	}
	if cfg.ExpAccess <= 0 || cfg.ExpRefresh <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	return &Codec{redis: redisClient, config: cfg}, nil
}

// TTL returns the configured lifetime for a token kind.
func (c *Codec) TTL(kind Kind) time.Duration {
	if kind == KindRefresh {
		return c.config.ExpRefresh
	}
	return c.config.ExpAccess
}

// Generate builds, mirrors, and signs a token for the user. The mirror entry
// shares the token TTL, so an untouched token and its revocation record
// always expire together.
func (c *Codec) Generate(ctx context.Context, userID int64, kind Kind, roles []string) (string, *Claims, error) {
	if kind != KindAccess && kind != KindRefresh {
		return "", nil, fmt.Errorf("unknown token kind %q", kind)
	}

	now := time.Now()
	ttl := c.TTL(kind)

	claims := &Claims{
		ID:    uuid.NewString(),
		UID:   userID,
		Kind:  kind,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	data, err := json.Marshal(mirror{
		UID:       userID,
		Kind:      kind,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
	})
	if err != nil {
		return "", nil, err
	}

	if err := c.redis.Set(ctx, internal.TokenKey(claims.ID), data, ttl).Err(); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.config.Secret)
	if err != nil {
		// Roll the mirror back so a never-issued token id cannot linger.
		_ = c.redis.Del(ctx, internal.TokenKey(claims.ID)).Err()
		return "", nil, err
	}

	return signed, claims, nil
}

// Parse verifies the signature, payload shape, expiry, and mirror presence.
// All rejections return [ErrInvalid].
func (c *Codec) Parse(ctx context.Context, raw string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	tok, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return c.config.Secret, nil
	})
	if err != nil {
		return nil, ErrInvalid
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalid
	}
	if claims.ID == "" || claims.UID <= 0 {
		return nil, ErrInvalid
	}
	if claims.Kind != KindAccess && claims.Kind != KindRefresh {
		return nil, ErrInvalid
	}

	exists, err := c.redis.Exists(ctx, internal.TokenKey(claims.ID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if exists == 0 {
		return nil, ErrInvalid
	}

	return claims, nil
}

// Revoke deletes the mirror entry, invalidating the token immediately.
// Revoking an unknown or already-expired id is a no-op.
func (c *Codec) Revoke(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := c.redis.Del(ctx, internal.TokenKey(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
