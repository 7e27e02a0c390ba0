package internal

import (
	"fmt"
	"strings"
)

// Cache key namespaces. These are stable across implementations: admin
// tooling and sibling deployments read and delete the same keys.
const (
	rolesListKey  = "roles-list"
	rolesAPIKey   = "roles-api"
	rolesAdminKey = "roles-admin"
	rolesLightKey = "roles-light"
)

// UserBundleKey returns the session-bundle key for a user id ("user-%d").
func UserBundleKey(userID int64) string {
	return fmt.Sprintf("user-%d", userID)
}

// TokenKey returns the mirror key for a token id.
func TokenKey(id string) string {
	return "token-" + id
}

// LockedAccountKey returns the lock-record key for an account.
func LockedAccountKey(userID int64) string {
	return fmt.Sprintf("locked_account_%d", userID)
}

// LockedIPKey returns the lock-record key for a client IP.
func LockedIPKey(ip string) string {
	return "locked_ip_" + SanitizeIP(ip)
}

// AccountAttemptsKey returns the failed-login counter key for an account.
func AccountAttemptsKey(userID int64) string {
	return fmt.Sprintf("account_login_attempts_%d", userID)
}

// IPAttemptsKey returns the failed-login counter key for a client IP.
func IPAttemptsKey(ip string) string {
	return "ip_login_attempts_" + SanitizeIP(ip)
}

// RateLimitKey returns the request-window counter key for a client IP.
func RateLimitKey(ip string) string {
	return "rate_limit_" + SanitizeIP(ip)
}

// RolesKey returns the role-cache key for a section scope: "" for the full
// list, "api"/"admin" for a section, "light" for the name-only projection.
func RolesKey(scope string) string {
	switch scope {
	case "api":
		return rolesAPIKey
	case "admin":
		return rolesAdminKey
	case "light":
		return rolesLightKey
	default:
		return rolesListKey
	}
}

// SanitizeIP rewrites an IP into a key-safe form. Dots and colons collide
// with key-segment conventions, so both map to underscores.
func SanitizeIP(ip string) string {
	r := strings.NewReplacer(".", "_", ":", "_")
	return r.Replace(ip)
}
