package secure

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"
)

// Config holds one section per check and transform. IsActive toggles are
// honored at pipeline construction: an inactive check is not instantiated.
type Config struct {
	IP           IPConfig
	Method       MethodConfig
	InputSize    InputSizeConfig
	RequestLimit RequestLimitConfig
	Injection    InjectionConfig
	EscapeCheck  EscapeCheckConfig
	InputCheck   InputCheckConfig

	Headers        HeadersConfig
	EscapeResponse EscapeResponseConfig
	Compress       CompressConfig
}

// IPConfig controls the source-IP check. Whitelist and Blacklist entries are
// plain IPs or CIDR blocks.
type IPConfig struct {
	IsActive  bool
	Whitelist []string
	Blacklist []string
}

// MethodConfig restricts the HTTP methods accepted.
type MethodConfig struct {
	IsActive    bool
	AllowMethod []string
}

// InputSizeConfig bounds the request body.
type InputSizeConfig struct {
	IsActive     bool
	MaxInputSize int64
}

// RequestLimitConfig is the per-IP fixed-window request budget.
type RequestLimitConfig struct {
	IsActive        bool
	MaxRequests     int
	RateLimit       time.Duration
	IgnoreWhitelist bool
}

// InjectionConfig controls the SQLi/XSS pattern scan.
type InjectionConfig struct {
	IsActive        bool
	IgnoreWhitelist bool
}

// EscapeCheckConfig controls the escape-difference variant of the injection
// scan: any string value that differs from its HTML-escaped form fails.
type EscapeCheckConfig struct {
	IsActive        bool
	IgnoreWhitelist bool
}

// InputCheckConfig controls the generic type-inferred input validation.
type InputCheckConfig struct {
	IsActive        bool
	MaxStringLength int
}

// HeadersConfig toggles the fixed security-header set on responses.
type HeadersConfig struct {
	IsActive bool
}

// EscapeResponseConfig toggles recursive HTML-escaping of JSON response
// string values.
type EscapeResponseConfig struct {
	IsActive bool
}

// CompressConfig toggles gzip encoding of responses.
type CompressConfig struct {
	IsActive bool
}

// DefaultConfig returns the pipeline defaults: the hardening checks on, the
// lossy ones (escape variant, generic input validation, response escaping)
// off until explicitly enabled.
func DefaultConfig() Config {
	return Config{
		IP: IPConfig{IsActive: true},
		Method: MethodConfig{
			IsActive:    true,
			AllowMethod: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		},
		InputSize: InputSizeConfig{
			IsActive:     true,
			MaxInputSize: 1 << 20, // 1 MiB
		},
		RequestLimit: RequestLimitConfig{
			IsActive:        true,
			MaxRequests:     120,
			RateLimit:       time.Minute,
			IgnoreWhitelist: true,
		},
		Injection: InjectionConfig{
			IsActive:        true,
			IgnoreWhitelist: true,
		},
		InputCheck: InputCheckConfig{MaxStringLength: 4096},
		Headers:    HeadersConfig{IsActive: true},
		Compress:   CompressConfig{IsActive: true},
	}
}

// Validate rejects configurations the pipeline cannot honor.
func (c *Config) Validate() error {
	if c.Method.IsActive && len(c.Method.AllowMethod) == 0 {
		return errors.New("method check active with empty allow list")
	}
	if c.InputSize.IsActive && c.InputSize.MaxInputSize <= 0 {
		return errors.New("input size limit must be positive")
	}
	if c.RequestLimit.IsActive {
		if c.RequestLimit.MaxRequests <= 0 {
			return errors.New("request limit must be positive")
		}
		if c.RequestLimit.RateLimit <= 0 {
			return errors.New("request limit window must be positive")
		}
	}
	for _, entry := range append(append([]string{}, c.IP.Whitelist...), c.IP.Blacklist...) {
		if !validIPEntry(entry) {
			return errors.New("invalid ip list entry: " + entry)
		}
	}
	return nil
}

// Clone deep-copies the list-valued fields.
func (c Config) Clone() Config {
	out := c
	out.IP.Whitelist = append([]string(nil), c.IP.Whitelist...)
	out.IP.Blacklist = append([]string(nil), c.IP.Blacklist...)
	out.Method.AllowMethod = append([]string(nil), c.Method.AllowMethod...)
	return out
}

func validIPEntry(entry string) bool {
	if strings.Contains(entry, "/") {
		_, _, err := net.ParseCIDR(entry)
		return err == nil
	}
	return net.ParseIP(entry) != nil
}
