package internaldefs

import (
	userguard "github.com/identware/userguard"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   userguard.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   userguard.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: userguard.MetricLoginSuccess, Name: "userguard_login_success_total", Help: "Successful login attempts."},
	{ID: userguard.MetricLoginFailure, Name: "userguard_login_failure_total", Help: "Failed login attempts."},
	{ID: userguard.MetricLoginLocked, Name: "userguard_login_locked_total", Help: "Login attempts refused because the account or IP was locked."},
	{ID: userguard.MetricRefreshSuccess, Name: "userguard_refresh_success_total", Help: "Successful token refreshes."},
	{ID: userguard.MetricRefreshFailure, Name: "userguard_refresh_failure_total", Help: "Failed token refreshes."},
	{ID: userguard.MetricLogout, Name: "userguard_logout_total", Help: "Logout operations."},
	{ID: userguard.MetricTokenIssued, Name: "userguard_token_issued_total", Help: "Issued tokens of either kind."},
	{ID: userguard.MetricTokenRevoked, Name: "userguard_token_revoked_total", Help: "Revoked tokens."},
	{ID: userguard.MetricTokenRejected, Name: "userguard_token_rejected_total", Help: "Tokens rejected during authentication."},
	{ID: userguard.MetricAuthzDenied, Name: "userguard_authz_denied_total", Help: "Permission checks that denied a request."},
	{ID: userguard.MetricValidationRejected, Name: "userguard_validation_rejected_total", Help: "Requests rejected by input validation."},
	{ID: userguard.MetricRateLimitHit, Name: "userguard_rate_limit_hit_total", Help: "Requests refused by the per-IP rate limiter."},
	{ID: userguard.MetricInjectionBlocked, Name: "userguard_injection_blocked_total", Help: "Requests blocked by the injection check."},
	{ID: userguard.MetricOTPIssued, Name: "userguard_otp_issued_total", Help: "Issued one-time codes."},
	{ID: userguard.MetricOTPVerified, Name: "userguard_otp_verified_total", Help: "Successful one-time code verifications."},
	{ID: userguard.MetricOTPRejected, Name: "userguard_otp_rejected_total", Help: "Failed one-time code verifications."},
	{ID: userguard.MetricAccountCreated, Name: "userguard_account_created_total", Help: "Created accounts."},
	{ID: userguard.MetricAccountLocked, Name: "userguard_account_locked_total", Help: "Accounts locked by the attempt limiter."},
	{ID: userguard.MetricAccountUnlocked, Name: "userguard_account_unlocked_total", Help: "Accounts unlocked by an operator."},
	{ID: userguard.MetricRoleCacheInvalidated, Name: "userguard_role_cache_invalidated_total", Help: "Role cache invalidations after role mutations."},
}

var HistogramDefs = []HistogramDef{
	{ID: userguard.MetricAuthenticateLatency, Name: "userguard_authenticate_latency_seconds", Help: "Token authentication latency histogram."},
}

// HistogramBounds are the upper bucket bounds in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix holds the bound spellings usable in metric names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to Prometheus-style
// cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := range raw {
		running += raw[i]
		out[i] = running
	}
	return out
}
