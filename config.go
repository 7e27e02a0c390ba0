package userguard

import (
	"errors"
	"time"

	"github.com/identware/userguard/secure"
	"github.com/identware/userguard/validate"
)

// Config is the full engine configuration tree. Zero values are filled by
// defaultConfig; Builder.Build rejects configurations that fail Validate.
type Config struct {
	Token      TokenConfig
	Lockout    LockoutConfig
	OTP        OTPConfig
	Password   PasswordConfig
	Roles      RolesConfig
	Security   secure.Config
	Validation validate.Options
	Metrics    MetricsConfig
	Audit      AuditConfig
}

// TokenConfig controls signing and lifetimes of bearer tokens.
type TokenConfig struct {
	// Secret is the HS256 signing key shared by all instances.
	Secret []byte
	// ExpAccess is the access-token lifetime.
	ExpAccess time.Duration
	// ExpRefresh is the refresh-token lifetime; it also bounds the session
	// bundle TTL.
	ExpRefresh time.Duration
}

// LockoutConfig controls the brute-force lock tracker and attempt limiter.
type LockoutConfig struct {
	// Attempts is the failed-attempt threshold that opens a lock window.
	Attempts int
	// Window is both the lock duration and the attempt-counter TTL.
	Window time.Duration
	// IPAllowList lists source IPs that are never IP-locked.
	IPAllowList []string
}

// OTPConfig controls one-time verification codes.
type OTPConfig struct {
	Digits int
	TTL    time.Duration
	// ReissuePending permits requesting a fresh code while one is pending.
	ReissuePending bool
}

// PasswordConfig holds the argon2id parameters.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// RolesConfig controls the cached live role registry.
type RolesConfig struct {
	// CacheTTL bounds how long role and permission tables may be served from
	// Redis before re-reading the provider. Deletion through the engine
	// invalidates the cache immediately regardless of TTL.
	CacheTTL time.Duration
}

// MetricsConfig toggles the in-process counters. Latency histograms are
// opt-in on top of Enabled.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the stock configuration. Callers set Token.Secret
// and adjust the rest as needed before handing it to the builder.
func DefaultConfig() Config {
	return cloneConfig(defaultConfig())
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			ExpAccess:  15 * time.Minute,
			ExpRefresh: 14 * 24 * time.Hour,
		},
		Lockout: LockoutConfig{
			Attempts: 5,
			Window:   time.Hour,
		},
		OTP: OTPConfig{
			Digits:         6,
			TTL:            2 * time.Minute,
			ReissuePending: true,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Roles: RolesConfig{
			CacheTTL: 10 * time.Minute,
		},
		Security:   secure.DefaultConfig(),
		Validation: validate.DefaultOptions(),
		Metrics:    MetricsConfig{Enabled: true},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

// Validate checks invariants the engine depends on. It is called by
// Builder.Build; direct callers only need it when mutating a Config at
// runtime, which is unsupported.
func (c *Config) Validate() error {
	if len(c.Token.Secret) < 32 {
		return errors.New("token secret must be at least 32 bytes")
	}
	if c.Token.ExpAccess <= 0 || c.Token.ExpRefresh <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.Token.ExpAccess >= c.Token.ExpRefresh {
		return errors.New("access lifetime must be shorter than refresh lifetime")
	}
	if c.Lockout.Attempts < 1 {
		return errors.New("lockout attempts must be >= 1")
	}
	if c.Lockout.Window <= 0 {
		return errors.New("lockout window must be positive")
	}
	if c.OTP.Digits < 4 || c.OTP.Digits > 10 {
		return errors.New("otp digits must be between 4 and 10")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("otp ttl must be positive")
	}
	if c.Roles.CacheTTL <= 0 {
		return errors.New("roles cache ttl must be positive")
	}
	if err := c.Security.Validate(); err != nil {
		return err
	}
	if c.Validation.PasswordMin < 1 || c.Validation.PasswordMax < c.Validation.PasswordMin {
		return errors.New("password length bounds invalid")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	out.Lockout.IPAllowList = cloneStrings(cfg.Lockout.IPAllowList)
	out.Security = cfg.Security.Clone()
	out.Validation = cfg.Validation.Clone()
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
