package middleware

import (
	"context"
	"net/http"

	userguard "github.com/identware/userguard"
	"github.com/identware/userguard/permission"
	"github.com/identware/userguard/secure"
	"github.com/identware/userguard/validate"
)

// RouteMeta is the static description of one protected route: which
// section it belongs to, the permission key coordinates, the token kind it
// accepts, and the validation chain its payload must pass.
type RouteMeta struct {
	Section userguard.Section
	Module  string
	Package string
	Handler string

	// Token selects the accepted kind. Anonymous routes skip
	// authentication entirely.
	Token     userguard.TokenKind
	Anonymous bool

	// Purpose names the validation chain for the request payload; empty
	// skips the validation layer.
	Purpose validate.Purpose

	// SkipPermission keeps authentication and role filtering but drops the
	// fine-grained permission check (profile routes any role may call).
	SkipPermission bool
}

// PermissionKey builds the section-module-package-handler key the
// permission table is indexed by.
func (m RouteMeta) PermissionKey() string {
	return permission.BuildKey(m.Section, m.Module, m.Package, m.Handler)
}

// Scope is the per-request state accumulated by the middleware layers.
// Handlers read it; only middleware writes it.
type Scope struct {
	Meta     RouteMeta
	ClientIP string

	// Stream carries the security pipeline results, including whitelist
	// marks later handlers may consult.
	Stream *secure.Stream

	// Account, Roles, and TokenID are set by Authenticate/Authorize.
	Account userguard.Account
	Roles   []string
	TokenID string
}

type scopeContextKey struct{}

// ScopeFromContext returns the request scope, or nil outside the pipeline.
func ScopeFromContext(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeContextKey{}).(*Scope)
	return s
}

// WithScope seeds a request with its route description. It must be the
// outermost wrapper so every later layer finds the scope in the context.
func WithScope(meta RouteMeta) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := &Scope{Meta: meta, ClientIP: secure.ClientIP(r)}
			ctx := context.WithValue(r.Context(), scopeContextKey{}, scope)
			ctx = userguard.WithClientIP(ctx, scope.ClientIP)
			ctx = userguard.WithSection(ctx, meta.Section)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
