package secure

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
)

// Check status values carried in [Result.Status].
const (
	StatusPassed      = "passed"
	StatusWhitelisted = "whitelisted"
	StatusIgnored     = "ignored"
	StatusBlocked     = "blocked"
)

// Result is the outcome of one request check.
type Result struct {
	OK     bool
	Name   string
	Status string
	Data   map[string]any
	// Err classifies the failure for the HTTP boundary; nil when OK.
	Err error
}

// Stream accumulates the results of the request-phase checks plus the
// request material they share: the captured body and the flattened value
// set. Later middleware reads the stream from the request scope.
type Stream struct {
	ClientIP string
	Body     []byte
	results  []Result
	values   []Value
	parsed   bool
}

// Value is one request datum: a query parameter or a (possibly nested) JSON
// body field. Path is dotted for nested fields.
type Value struct {
	Path string
	Raw  any
}

// Add appends a check result.
func (s *Stream) Add(r Result) {
	s.results = append(s.results, r)
}

// Results returns the accumulated check results in pass order.
func (s *Stream) Results() []Result {
	return s.results
}

// Lookup returns the result of a named check.
func (s *Stream) Lookup(name string) (Result, bool) {
	for _, r := range s.results {
		if r.Name == name {
			return r, true
		}
	}
	return Result{}, false
}

// InWhitelist reports whether the IP check marked the caller whitelisted.
func (s *Stream) InWhitelist() bool {
	r, ok := s.Lookup(CheckNameIP)
	if !ok {
		return false
	}
	v, _ := r.Data["in_whitelist"].(bool)
	return v
}

// Values returns the flattened request values, parsing query parameters and
// a JSON body on first use. Non-JSON bodies contribute no values.
func (s *Stream) Values(r *http.Request) []Value {
	if s.parsed {
		return s.values
	}
	s.parsed = true

	for key, vals := range r.URL.Query() {
		for _, v := range vals {
			s.values = append(s.values, Value{Path: key, Raw: v})
		}
	}

	if len(s.Body) > 0 && isJSONRequest(r) {
		var doc any
		if err := json.Unmarshal(s.Body, &doc); err == nil {
			flatten("", doc, &s.values)
		}
	}

	return s.values
}

func flatten(path string, v any, out *[]Value) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			flatten(joinPath(path, k), child, out)
		}
	case []any:
		for _, child := range t {
			flatten(path, child, out)
		}
	default:
		*out = append(*out, Value{Path: path, Raw: v})
	}
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func isJSONRequest(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/json") || strings.HasPrefix(ct, "text/json")
}

// capture reads and restores the request body, buffering at most max+1
// bytes so the size check can tell "at the limit" from "over it" without
// holding an unbounded stream. An over-limit body is restored with its
// unread remainder intact: when the size check is off, the handler must
// still see the whole request, not a truncated one.
func capture(r *http.Request, max int64) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	limited := io.LimitReader(r.Body, max+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}

	if int64(len(body)) > max {
		r.Body = rejoinedBody{
			Reader: io.MultiReader(bytes.NewReader(body), r.Body),
			closer: r.Body,
		}
		return body, nil
	}

	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

// rejoinedBody splices the buffered prefix back onto the unread remainder
// of the original body.
type rejoinedBody struct {
	io.Reader
	closer io.Closer
}

func (b rejoinedBody) Close() error { return b.closer.Close() }

// ClientIP extracts the caller's source IP, preferring proxy headers over
// the socket address.
func ClientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		if ip := strings.TrimSpace(fwd); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
