package middleware

import (
	"net/http"

	userguard "github.com/identware/userguard"
)

// TokenHeader is the request header carrying the signed token. The wire
// format predates this implementation; it is not Authorization/Bearer.
const TokenHeader = "token"

// Authenticate resolves the token header into an active account and
// attaches it to the request scope. Anonymous routes pass through
// untouched. Downstream layers and handlers never re-check the token.
func Authenticate(engine *userguard.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := ScopeFromContext(r.Context())
			if scope == nil {
				WriteError(w, userguard.ErrEngineNotReady)
				return
			}
			if scope.Meta.Anonymous {
				next.ServeHTTP(w, r)
				return
			}

			raw := r.Header.Get(TokenHeader)
			if raw == "" {
				WriteError(w, userguard.ErrTokenMissing)
				return
			}

			kind := scope.Meta.Token
			if kind == "" {
				kind = userguard.TokenAccess
			}
			res, err := engine.Authenticate(r.Context(), raw, kind)
			if err != nil {
				WriteError(w, err)
				return
			}

			scope.Account = res.Account
			scope.Roles = res.Roles
			scope.TokenID = res.TokenID
			next.ServeHTTP(w, r)
		})
	}
}
