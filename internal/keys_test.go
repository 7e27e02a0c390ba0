package internal

import "testing"

func TestKeyNamespaces(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"user bundle", UserBundleKey(42), "user-42"},
		{"token mirror", TokenKey("abc-123"), "token-abc-123"},
		{"locked account", LockedAccountKey(7), "locked_account_7"},
		{"locked ip", LockedIPKey("10.0.0.1"), "locked_ip_10_0_0_1"},
		{"account attempts", AccountAttemptsKey(7), "account_login_attempts_7"},
		{"ip attempts", IPAttemptsKey("10.0.0.1"), "ip_login_attempts_10_0_0_1"},
		{"rate limit", RateLimitKey("10.0.0.1"), "rate_limit_10_0_0_1"},
		{"roles full", RolesKey(""), "roles-list"},
		{"roles api", RolesKey("api"), "roles-api"},
		{"roles admin", RolesKey("admin"), "roles-admin"},
		{"roles light", RolesKey("light"), "roles-light"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Fatalf("%s: expected %q, got %q", tt.name, tt.want, tt.got)
		}
	}
}

func TestSanitizeIPv6(t *testing.T) {
	if got := SanitizeIP("2001:db8::1"); got != "2001_db8__1" {
		t.Fatalf("unexpected sanitized form %q", got)
	}
}

func TestNewOTPDigits(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := NewOTP(6)
		if err != nil {
			t.Fatalf("new otp: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in code %q", code)
			}
		}
	}
}
