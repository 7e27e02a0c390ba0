package secure

import "net/http"

// securityHeaders is the fixed hardening set attached to every response.
// Values are literal by design: they are part of the external contract.
var securityHeaders = map[string]string{
	"Content-Security-Policy":   "default-src 'self'; frame-ancestors 'none'",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"X-Frame-Options":           "DENY",
	"X-Content-Type-Options":    "nosniff",
	"X-XSS-Protection":          "1; mode=block",
	"Referrer-Policy":           "no-referrer",
	"Cache-Control":             "no-store",
}

// strippedHeaders identify the server software and are removed.
var strippedHeaders = []string{"Server", "X-Powered-By", "X-AspNet-Version"}

type headersTransform struct{}

func (headersTransform) Name() string { return "headers" }

func (headersTransform) Process(_ *http.Request, header http.Header, body []byte) (http.Header, []byte, error) {
	for name, value := range securityHeaders {
		header.Set(name, value)
	}
	for _, name := range strippedHeaders {
		header.Del(name)
	}
	return header, body, nil
}
