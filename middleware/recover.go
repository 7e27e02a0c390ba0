package middleware

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

// Recover converts a panicking handler chain into a 500 envelope. It wraps
// the whole pipeline so no panic escapes to the server.
func Recover(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panic")
					WriteError(w, errors.New("internal error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
