package middleware

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/identware/userguard/secure"
)

// Security runs the request checks before the handler and the response
// transforms after it. The handler's output is buffered so transforms can
// rewrite headers and body before anything reaches the wire.
func Security(pipeline *secure.Pipeline, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			stream, err := pipeline.CheckRequest(r)
			if err != nil {
				log.Warn().Err(err).Str("ip", secure.ClientIP(r)).Str("path", r.URL.Path).Msg("request blocked")
				WriteError(w, err)
				return
			}
			if scope := ScopeFromContext(r.Context()); scope != nil {
				scope.Stream = stream
			}

			buf := &bufferedResponse{header: make(http.Header), status: http.StatusOK}
			next.ServeHTTP(buf, r)

			header, body, err := pipeline.ProcessResponse(r, buf.header, buf.body.Bytes())
			if err != nil {
				log.Error().Err(err).Str("path", r.URL.Path).Msg("response transform failed")
				header, body = buf.header, buf.body.Bytes()
			}

			for k, vals := range header {
				w.Header()[k] = vals
			}
			if w.Header().Get("Content-Length") == "" {
				w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			}
			w.WriteHeader(buf.status)
			_, _ = w.Write(body)
		})
	}
}

// bufferedResponse captures the downstream handler's response in memory.
type bufferedResponse struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func (b *bufferedResponse) Header() http.Header {
	return b.header
}

func (b *bufferedResponse) WriteHeader(status int) {
	b.status = status
}

func (b *bufferedResponse) Write(p []byte) (int, error) {
	return b.body.Write(p)
}
