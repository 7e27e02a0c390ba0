package secure

import (
	"encoding/json"
	"html"
	"net/http"
	"strings"
)

// escapeTransform HTML-escapes every string value of a JSON response body,
// recursively. Non-JSON responses pass through untouched.
type escapeTransform struct{}

func (escapeTransform) Name() string { return "escape" }

func (escapeTransform) Process(_ *http.Request, header http.Header, body []byte) (http.Header, []byte, error) {
	if len(body) == 0 || !strings.HasPrefix(header.Get("Content-Type"), "application/json") {
		return header, body, nil
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		// Not well-formed JSON after all; leave it alone.
		return header, body, nil
	}

	escaped, err := json.Marshal(escapeValue(doc))
	if err != nil {
		return header, body, err
	}
	return header, escaped, nil
}

func escapeValue(v any) any {
	switch t := v.(type) {
	case string:
		return html.EscapeString(t)
	case map[string]any:
		for k, child := range t {
			t[k] = escapeValue(child)
		}
		return t
	case []any:
		for i, child := range t {
			t[i] = escapeValue(child)
		}
		return t
	default:
		return v
	}
}
