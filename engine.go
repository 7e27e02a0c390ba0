package userguard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/identware/userguard/internal/audit"
	"github.com/identware/userguard/internal/limiters"
	"github.com/identware/userguard/password"
	"github.com/identware/userguard/permission"
	"github.com/identware/userguard/secure"
	"github.com/identware/userguard/session"
	"github.com/identware/userguard/token"
	"github.com/identware/userguard/validate"
)

// Engine is the assembled identity service: token issuance and
// verification, session bundles, lockout, roles, and validation behind one
// facade. Construct it with [Builder]; all methods are safe for concurrent
// use.
type Engine struct {
	config   Config
	redis    redis.UniversalClient
	log      zerolog.Logger
	accounts AccountProvider
	roles    RoleProvider

	codec    *token.Codec
	sessions *session.Store
	registry *permission.Registry
	locks    *limiters.LockTracker
	attempts *limiters.AttemptLimiter
	hasher   *password.Hasher
	chains   *validate.Chain
	metrics  *Metrics
	audit    *audit.Dispatcher

	// now is the OTP expiry clock; tests move it forward.
	now func() time.Time
}

// Authenticate verifies a raw bearer token end to end: signature, cache
// mirror, kind, session bundle membership, account status, and role
// filtering against the live role list of the context's section.
//
// Every parse-level failure surfaces as [ErrTokenInvalid]; the distinct
// causes are not observable through the API.
func (e *Engine) Authenticate(ctx context.Context, raw string, kind TokenKind) (*AuthnResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	start := time.Now()
	defer func() {
		e.metrics.Observe(MetricAuthenticateLatency, time.Since(start))
	}()

	if raw == "" {
		e.metrics.Inc(MetricTokenRejected)
		return nil, ErrTokenMissing
	}

	claims, err := e.codec.Parse(ctx, raw)
	if err != nil {
		e.metrics.Inc(MetricTokenRejected)
		if errors.Is(err, token.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
		}
		return nil, ErrTokenInvalid
	}
	if claims.Kind != kind {
		e.metrics.Inc(MetricTokenRejected)
		return nil, ErrTokenKind
	}

	bundle, err := e.sessions.Load(ctx, claims.UID)
	if err != nil {
		e.metrics.Inc(MetricTokenRejected)
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrCorrupt) {
			return nil, ErrTokenRevoked
		}
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	if !bundle.HasToken(claims.Kind, claims.ID) {
		e.metrics.Inc(MetricTokenRejected)
		return nil, ErrTokenRevoked
	}

	account := accountFromSnapshot(bundle.Account)
	if account.Status != AccountActive {
		e.metrics.Inc(MetricTokenRejected)
		return nil, ErrAccountInactive
	}

	// Claimed roles survive only while still present in the live list:
	// deleting a role takes effect on the next request, not at next login.
	roles, err := e.registry.Filter(ctx, bundle.Roles, sectionFromContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}

	return &AuthnResult{Account: account, Roles: roles, TokenID: claims.ID}, nil
}

// IsGranted reports whether any of roles grants the permission key in the
// context's section. Unknown keys deny.
func (e *Engine) IsGranted(ctx context.Context, roles []string, key string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}
	ok, err := e.registry.IsGranted(ctx, roles, key, sectionFromContext(ctx))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	if !ok {
		e.metrics.Inc(MetricAuthzDenied)
	}
	return ok, nil
}

// FilterRoles intersects claimed role names with the live role list of the
// context's section.
func (e *Engine) FilterRoles(ctx context.Context, claimed []string) ([]string, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	roles, err := e.registry.Filter(ctx, claimed, sectionFromContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	return roles, nil
}

// ValidateInput runs the named validation chain against in. A nil return
// means the input passed.
func (e *Engine) ValidateInput(ctx context.Context, purpose validate.Purpose, in validate.Input) FieldErrors {
	if e == nil {
		return FieldErrors{"engine": "engine not initialized"}
	}
	errs := e.chains.Run(ctx, purpose, in)
	if errs != nil {
		e.metrics.Inc(MetricValidationRejected)
	}
	return errs
}

// MetricsSnapshot exposes the counters to exporters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}, Histograms: map[MetricID][]uint64{}}
	}
	return e.metrics.Snapshot()
}

// MetricValue reads one counter, mainly for tests and health endpoints.
func (e *Engine) MetricValue(id MetricID) uint64 {
	if e == nil {
		return 0
	}
	return e.metrics.Value(id)
}

// SecurityConfig returns the security pipeline section of the engine
// configuration for the HTTP layer to consume.
func (e *Engine) SecurityConfig() secure.Config {
	return e.config.Security.Clone()
}

// Redis exposes the cache client so the HTTP layer can share it with the
// security pipeline.
func (e *Engine) Redis() redis.UniversalClient {
	return e.redis
}

// LockTracker exposes the lock tracker for the security pipeline's IP check.
func (e *Engine) LockTracker() *limiters.LockTracker {
	return e.locks
}

// Logger returns the engine's logger for adjacent components.
func (e *Engine) Logger() zerolog.Logger {
	return e.log
}

func accountFromSnapshot(s session.AccountSnapshot) Account {
	return Account{
		ID:          s.ID,
		Identity:    s.Identity,
		Name:        s.Name,
		Email:       s.Email,
		Mobile:      s.Mobile,
		Avatar:      s.Avatar,
		Status:      AccountStatus(s.Status),
		TimeCreated: time.Unix(s.TimeCreated, 0).UTC(),
	}
}

func snapshotFromAccount(a Account) session.AccountSnapshot {
	return session.AccountSnapshot{
		ID:          a.ID,
		Identity:    a.Identity,
		Name:        a.Name,
		Email:       a.Email,
		Mobile:      a.Mobile,
		Avatar:      a.Avatar,
		Status:      uint8(a.Status),
		TimeCreated: a.TimeCreated.Unix(),
	}
}

// bundleOTPSource lets the validation chains read pending codes without
// importing the session package.
type bundleOTPSource struct {
	sessions *session.Store
}

func (s *bundleOTPSource) PendingCode(ctx context.Context, userID int64, purpose, target string) (string, error) {
	bundle, err := s.sessions.Load(ctx, userID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	otp, ok := bundle.PendingOTP(purpose, time.Now())
	if !ok || otp.Target != target {
		return "", nil
	}
	return otp.Code, nil
}
