package userguard

import (
	"bytes"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = []byte("0123456789abcdef0123456789abcdef")
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with secret",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "secret too short",
			mutate: func(c *Config) {
				c.Token.Secret = []byte("short")
			},
			wantValid: false,
		},
		{
			name: "access outlives refresh",
			mutate: func(c *Config) {
				c.Token.ExpAccess = 30 * 24 * time.Hour
			},
			wantValid: false,
		},
		{
			name: "zero lockout attempts",
			mutate: func(c *Config) {
				c.Lockout.Attempts = 0
			},
			wantValid: false,
		},
		{
			name: "negative lockout window",
			mutate: func(c *Config) {
				c.Lockout.Window = -time.Minute
			},
			wantValid: false,
		},
		{
			name: "otp digits out of range",
			mutate: func(c *Config) {
				c.OTP.Digits = 3
			},
			wantValid: false,
		},
		{
			name: "otp digits upper bound",
			mutate: func(c *Config) {
				c.OTP.Digits = 10
			},
			wantValid: true,
		},
		{
			name: "zero roles cache ttl",
			mutate: func(c *Config) {
				c.Roles.CacheTTL = 0
			},
			wantValid: false,
		},
		{
			name: "password bounds inverted",
			mutate: func(c *Config) {
				c.Validation.PasswordMin = 40
			},
			wantValid: false,
		},
		{
			name: "security misconfigured",
			mutate: func(c *Config) {
				c.Security.Method.AllowMethod = nil
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDefaultConfigIsolated(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()

	a.Security.Method.AllowMethod[0] = "TRACE"
	if b.Security.Method.AllowMethod[0] == "TRACE" {
		t.Fatal("default configs share backing arrays")
	}
}

func TestCloneConfigDeepCopies(t *testing.T) {
	cfg := validConfig()
	cfg.Lockout.IPAllowList = []string{"10.0.0.1"}

	clone := cloneConfig(cfg)
	clone.Token.Secret[0] = 'x'
	clone.Lockout.IPAllowList[0] = "changed"

	if bytes.Equal(cfg.Token.Secret, clone.Token.Secret) {
		t.Fatal("secret not copied")
	}
	if cfg.Lockout.IPAllowList[0] != "10.0.0.1" {
		t.Fatal("allow list not copied")
	}
}
