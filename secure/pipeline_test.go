package secure

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newPipelineTest(t *testing.T, cfg Config) (*Pipeline, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	p, err := NewPipeline(cfg, Deps{Redis: rdb})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func jsonRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	r.RemoteAddr = "198.51.100.7:40000"
	return r
}

func TestCleanRequestPasses(t *testing.T) {
	p, _, done := newPipelineTest(t, DefaultConfig())
	defer done()

	stream, err := p.CheckRequest(jsonRequest(http.MethodPost, "/auth/login", `{"identity":"alice","credential":"hunter2hunter2"}`))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	for _, res := range stream.Results() {
		if !res.OK {
			t.Fatalf("check %q failed: %v", res.Name, res.Err)
		}
	}
}

func TestInjectionBlockedInBody(t *testing.T) {
	p, _, done := newPipelineTest(t, DefaultConfig())
	defer done()

	payloads := []string{
		`{"identity":"x' OR 1=1 --"}`,
		`{"identity":"1 or 1 = 1"}`,
		`{"name":"<script>alert(1)</script>"}`,
		`{"q":"UNION SELECT password FROM users"}`,
		`{"bio":"a; DROP TABLE accounts"}`,
	}
	for _, body := range payloads {
		stream, err := p.CheckRequest(jsonRequest(http.MethodPost, "/auth/register", body))
		if !errors.Is(err, ErrInjectionDetected) {
			t.Fatalf("body %s: expected ErrInjectionDetected, got %v", body, err)
		}
		res, ok := stream.Lookup(CheckNameInjection)
		if !ok || res.Status != StatusBlocked {
			t.Fatalf("body %s: expected blocked injection result", body)
		}
	}
}

func TestInjectionBlockedInQuery(t *testing.T) {
	p, _, done := newPipelineTest(t, DefaultConfig())
	defer done()

	r := jsonRequest(http.MethodGet, "/search?q=union+select+*+from+accounts", "")
	if _, err := p.CheckRequest(r); !errors.Is(err, ErrInjectionDetected) {
		t.Fatalf("expected ErrInjectionDetected, got %v", err)
	}
}

func TestWhitelistedIPSkipsInjectionScan(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IP.Whitelist = []string{"198.51.100.7"}
	p, _, done := newPipelineTest(t, cfg)
	defer done()

	stream, err := p.CheckRequest(jsonRequest(http.MethodPost, "/import", `{"sql":"SELECT id FROM legacy"}`))
	if err != nil {
		t.Fatalf("expected whitelisted pass, got %v", err)
	}
	if !stream.InWhitelist() {
		t.Fatal("expected in_whitelist mark")
	}
	res, _ := stream.Lookup(CheckNameInjection)
	if res.Status != StatusIgnored {
		t.Fatalf("expected injection check ignored, got %q", res.Status)
	}
}

func TestWhitelistHonoredToggle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IP.Whitelist = []string{"198.51.100.7"}
	cfg.Injection.IgnoreWhitelist = false
	p, _, done := newPipelineTest(t, cfg)
	defer done()

	if _, err := p.CheckRequest(jsonRequest(http.MethodPost, "/import", `{"sql":"union select 1"}`)); !errors.Is(err, ErrInjectionDetected) {
		t.Fatalf("expected scan to apply with IgnoreWhitelist off, got %v", err)
	}
}

func TestBlacklistedIPBlocked(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IP.Blacklist = []string{"198.51.100.0/24"}
	p, _, done := newPipelineTest(t, cfg)
	defer done()

	if _, err := p.CheckRequest(jsonRequest(http.MethodGet, "/", "")); !errors.Is(err, ErrIPBlocked) {
		t.Fatalf("expected ErrIPBlocked, got %v", err)
	}
}

func TestMethodBlocked(t *testing.T) {
	p, _, done := newPipelineTest(t, DefaultConfig())
	defer done()

	r := jsonRequest("TRACE", "/", "")
	if _, err := p.CheckRequest(r); !errors.Is(err, ErrMethodBlocked) {
		t.Fatalf("expected ErrMethodBlocked, got %v", err)
	}
}

func TestOversizedBodyBlocked(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InputSize.MaxInputSize = 64
	p, _, done := newPipelineTest(t, cfg)
	defer done()

	big := `{"data":"` + strings.Repeat("a", 128) + `"}`
	if _, err := p.CheckRequest(jsonRequest(http.MethodPost, "/", big)); !errors.Is(err, ErrInputTooLarge) {
		t.Fatalf("expected ErrInputTooLarge, got %v", err)
	}
}

func TestRequestLimitWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequestLimit.MaxRequests = 3
	cfg.RequestLimit.RateLimit = time.Minute
	p, mr, done := newPipelineTest(t, cfg)
	defer done()

	for i := 0; i < 3; i++ {
		if _, err := p.CheckRequest(jsonRequest(http.MethodGet, "/", "")); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}
	if _, err := p.CheckRequest(jsonRequest(http.MethodGet, "/", "")); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if !mr.Exists("rate_limit_198_51_100_7") {
		t.Fatal("expected sanitized rate limit key")
	}

	// Counter self-expires; the window resets.
	mr.FastForward(2 * time.Minute)
	if _, err := p.CheckRequest(jsonRequest(http.MethodGet, "/", "")); err != nil {
		t.Fatalf("expected fresh window, got %v", err)
	}
}

func TestEscapeCheckVariant(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Injection.IsActive = false
	cfg.EscapeCheck = EscapeCheckConfig{IsActive: true}
	p, _, done := newPipelineTest(t, cfg)
	defer done()

	if _, err := p.CheckRequest(jsonRequest(http.MethodPost, "/", `{"name":"a<b"}`)); !errors.Is(err, ErrInjectionDetected) {
		t.Fatalf("expected ErrInjectionDetected, got %v", err)
	}
	if _, err := p.CheckRequest(jsonRequest(http.MethodPost, "/", `{"name":"plain"}`)); err != nil {
		t.Fatalf("expected clean pass, got %v", err)
	}
}

func TestInputCheckFormats(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InputCheck.IsActive = true
	p, _, done := newPipelineTest(t, cfg)
	defer done()

	if _, err := p.CheckRequest(jsonRequest(http.MethodPost, "/", `{"email":"not-an-email"}`)); !errors.Is(err, ErrInputInvalid) {
		t.Fatalf("expected ErrInputInvalid for email field, got %v", err)
	}
	if _, err := p.CheckRequest(jsonRequest(http.MethodPost, "/", `{"email":"a@example.com","count":3}`)); err != nil {
		t.Fatalf("expected valid payload pass, got %v", err)
	}
}

func TestBodyRestoredAfterCapture(t *testing.T) {
	p, _, done := newPipelineTest(t, DefaultConfig())
	defer done()

	body := `{"identity":"alice"}`
	r := jsonRequest(http.MethodPost, "/", body)
	stream, err := p.CheckRequest(r)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if string(stream.Body) != body {
		t.Fatalf("stream body %q != %q", stream.Body, body)
	}

	// The handler downstream must still be able to read the body.
	replay, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("re-read body: %v", err)
	}
	if string(replay) != body {
		t.Fatalf("restored body %q != %q", replay, body)
	}
}

func TestOversizedBodyNotTruncatedWhenSizeCheckOff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InputSize = InputSizeConfig{IsActive: false, MaxInputSize: 16}
	cfg.Injection.IsActive = false
	p, _, done := newPipelineTest(t, cfg)
	defer done()

	body := `{"note":"` + strings.Repeat("a", 64) + `"}`
	r := jsonRequest(http.MethodPost, "/", body)
	if _, err := p.CheckRequest(r); err != nil {
		t.Fatalf("check: %v", err)
	}

	// Only the scan buffer is bounded; the handler still reads everything.
	replay, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("re-read body: %v", err)
	}
	if string(replay) != body {
		t.Fatalf("expected full body of %d bytes downstream, got %d", len(body), len(replay))
	}
}

func TestResponseHeadersApplied(t *testing.T) {
	p, _, done := newPipelineTest(t, DefaultConfig())
	defer done()

	r := jsonRequest(http.MethodGet, "/", "")
	header := http.Header{"X-Powered-By": {"PHP/8.2"}}
	header, _, err := p.ProcessResponse(r, header, []byte("{}"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if header.Get("X-Frame-Options") != "DENY" {
		t.Fatal("expected X-Frame-Options set")
	}
	if header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("expected X-Content-Type-Options set")
	}
	if header.Get("X-Powered-By") != "" {
		t.Fatal("expected X-Powered-By stripped")
	}
}

func TestResponseCompression(t *testing.T) {
	p, _, done := newPipelineTest(t, DefaultConfig())
	defer done()

	r := jsonRequest(http.MethodGet, "/", "")
	r.Header.Set("Accept-Encoding", "gzip, deflate")

	payload := bytes.Repeat([]byte("abcdefgh"), 128)
	header, body, err := p.ProcessResponse(r, http.Header{}, payload)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if header.Get("Content-Encoding") != "gzip" {
		t.Fatal("expected gzip encoding")
	}

	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	plain, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompress: %v", err)
	}
	if !bytes.Equal(plain, payload) {
		t.Fatal("round-tripped body differs")
	}
}

func TestSmallResponseNotCompressed(t *testing.T) {
	p, _, done := newPipelineTest(t, DefaultConfig())
	defer done()

	r := jsonRequest(http.MethodGet, "/", "")
	r.Header.Set("Accept-Encoding", "gzip")

	header, body, err := p.ProcessResponse(r, http.Header{}, []byte(`{"ok":true}`))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if header.Get("Content-Encoding") != "" {
		t.Fatal("expected tiny body left uncompressed")
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("body altered: %q", body)
	}
}

func TestEscapeResponseTransform(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EscapeResponse.IsActive = true
	cfg.Compress.IsActive = false
	p, _, done := newPipelineTest(t, cfg)
	defer done()

	r := jsonRequest(http.MethodGet, "/", "")
	header := http.Header{"Content-Type": {"application/json"}}
	_, body, err := p.ProcessResponse(r, header, []byte(`{"name":"<b>bold</b>"}`))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if strings.Contains(string(body), "<b>") {
		t.Fatalf("expected escaped body, got %s", body)
	}
}

func TestConfigValidation(t *testing.T) {
	bad := DefaultConfig()
	bad.IP.Whitelist = []string{"not-an-ip"}
	if _, err := NewPipeline(bad, Deps{}); err == nil {
		t.Fatal("expected invalid ip entry rejected")
	}

	bad = DefaultConfig()
	bad.Method.AllowMethod = nil
	if _, err := NewPipeline(bad, Deps{}); err == nil {
		t.Fatal("expected empty method allow list rejected")
	}
}

func TestInactiveChecksNotInstantiated(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Injection.IsActive = false
	cfg.RequestLimit.IsActive = false
	p, _, done := newPipelineTest(t, cfg)
	defer done()

	for _, name := range p.ActiveChecks() {
		if name == CheckNameInjection || name == CheckNameRequestLimit {
			t.Fatalf("disabled check %q instantiated", name)
		}
	}
}
