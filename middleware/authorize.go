package middleware

import (
	"net/http"

	userguard "github.com/identware/userguard"
)

// Authorize enforces the role and permission requirements of the matched
// route. Roles on the scope have already been filtered against the live
// role list by Authenticate; an empty surviving set denies outright, and
// the permission key check denies unless some surviving role grants it.
func Authorize(engine *userguard.Engine) func(http.Handler) http.Handler {
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

			if len(scope.Roles) == 0 {
				WriteError(w, userguard.ErrPermissionDenied)
				return
			}
			if !scope.Meta.SkipPermission {
				ok, err := engine.IsGranted(r.Context(), scope.Roles, scope.Meta.PermissionKey())
				if err != nil {
					WriteError(w, err)
					return
				}
				if !ok {
					WriteError(w, userguard.ErrPermissionDenied)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
