package secure

import (
	"encoding/json"
	"net"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"
)

type inputCheck struct {
	maxString int
}

func newInputCheck(cfg InputCheckConfig) *inputCheck {
	max := cfg.MaxStringLength
	if max <= 0 {
		max = 4096
	}
	return &inputCheck{maxString: max}
}

func (c *inputCheck) Name() string { return CheckNameInput }

// Check type-infers every request value and applies a generic validator:
// numbers pass as-is (the JSON decoder already typed them), strings are
// length-bounded, and fields whose names advertise a format (email, url, ip,
// date, json) must parse as that format.
func (c *inputCheck) Check(r *http.Request, stream *Stream) Result {
	for _, v := range stream.Values(r) {
		switch raw := v.Raw.(type) {
		case string:
			if msg := c.validateString(v.Path, raw); msg != "" {
				return Result{
					Name:   CheckNameInput,
					Status: StatusBlocked,
					Data:   map[string]any{"field": v.Path, "reason": msg},
					Err:    ErrInputInvalid,
				}
			}
		case float64, bool, nil:
			// Typed by the decoder; nothing generic left to assert.
		}
	}
	return Result{OK: true, Name: CheckNameInput, Status: StatusPassed}
}

func (c *inputCheck) validateString(path, s string) string {
	if len(s) > c.maxString {
		return "too long"
	}

	field := path
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		field = path[i+1:]
	}
	field = strings.ToLower(field)

	switch {
	case field == "email" || strings.HasSuffix(field, "_email"):
		if _, err := mail.ParseAddress(s); err != nil {
			return "invalid email"
		}
	case field == "url" || strings.HasSuffix(field, "_url") || field == "link":
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return "invalid url"
		}
	case field == "ip" || strings.HasSuffix(field, "_ip"):
		if net.ParseIP(s) == nil {
			return "invalid ip"
		}
	case field == "date" || strings.HasSuffix(field, "_date") || strings.HasSuffix(field, "_at"):
		if !validDate(s) {
			return "invalid date"
		}
	case field == "json" || strings.HasSuffix(field, "_json"):
		if !json.Valid([]byte(s)) {
			return "invalid json"
		}
	}

	return ""
}

func validDate(s string) bool {
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
