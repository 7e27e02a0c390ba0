package validate

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
)

// invalid-character tables by strictness; a value failing its table is
// rejected with a field-scoped message.
var (
	reStrict = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	reMedium = regexp.MustCompile(`^[A-Za-z0-9_.,'-]+$`)
	reMobile = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	reDigits = regexp.MustCompile(`^[0-9]+$`)
)

func charsetOK(value string, s Strictness) bool {
	base := value
	switch s {
	case StrictSpace, MediumSpace, LooseSpace:
		if strings.HasPrefix(value, " ") || strings.HasSuffix(value, " ") {
			return false
		}
		base = strings.ReplaceAll(value, " ", "")
	}
	switch s {
	case Strict, StrictSpace:
		return reStrict.MatchString(base)
	case Medium, MediumSpace:
		return reMedium.MatchString(base)
	default:
		for _, r := range base {
			if unicode.IsControl(r) || r == '@' || r == ':' {
				return false
			}
		}
		return base != ""
	}
}

func blacklisted(value string, list []string) bool {
	lower := strings.ToLower(value)
	for _, bad := range list {
		if bad != "" && strings.Contains(lower, strings.ToLower(bad)) {
			return true
		}
	}
	return false
}

func checkIdentity(value string, o Options) string {
	if value == "" {
		return "identity is required"
	}
	if len(value) < o.IdentityMin || len(value) > o.IdentityMax {
		return fmt.Sprintf("identity must be between %d and %d characters", o.IdentityMin, o.IdentityMax)
	}
	if !charsetOK(value, o.IdentityStrictness) {
		return "identity contains invalid characters"
	}
	if blacklisted(value, o.IdentityBlacklist) {
		return "identity is not allowed"
	}
	return ""
}

func checkName(value string, o Options) string {
	if value == "" {
		return "name is required"
	}
	if len(value) < o.NameMin || len(value) > o.NameMax {
		return fmt.Sprintf("name must be between %d and %d characters", o.NameMin, o.NameMax)
	}
	if !charsetOK(value, o.NameStrictness) {
		return "name contains invalid characters"
	}
	if blacklisted(value, o.NameBlacklist) {
		return "name is not allowed"
	}
	return ""
}

func checkEmail(value string) string {
	if value == "" {
		return "email is required"
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return "email is not valid"
	}
	return ""
}

func checkMobile(value string) string {
	if value == "" {
		return "mobile is required"
	}
	if !reMobile.MatchString(value) {
		return "mobile is not valid"
	}
	return ""
}

func checkPassword(value string, o Options) string {
	if value == "" {
		return "credential is required"
	}
	if len(value) < o.PasswordMin || len(value) > o.PasswordMax {
		return fmt.Sprintf("credential must be between %d and %d characters", o.PasswordMin, o.PasswordMax)
	}
	return ""
}

func checkOTPFormat(value string, o Options) string {
	if value == "" {
		return "otp is required"
	}
	if len(value) != o.OTPDigits || !reDigits.MatchString(value) {
		return "otp is not valid"
	}
	return ""
}
