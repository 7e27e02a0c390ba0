package httpapi

import (
	"net/http"

	"github.com/rs/zerolog"

	userguard "github.com/identware/userguard"
	"github.com/identware/userguard/middleware"
	"github.com/identware/userguard/secure"
	"github.com/identware/userguard/validate"
)

// Server mounts the identity routes on a mux with the full middleware
// pipeline applied per route.
type Server struct {
	engine   *userguard.Engine
	pipeline *secure.Pipeline
	log      zerolog.Logger
	mux      *http.ServeMux
}

// NewServer builds the security pipeline from the engine's configuration
// and registers every route.
func NewServer(engine *userguard.Engine, log zerolog.Logger) (*Server, error) {
	pipeline, err := secure.NewPipeline(engine.SecurityConfig(), secure.Deps{
		Redis: engine.Redis(),
		Locks: engine.LockTracker(),
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		engine:   engine,
		pipeline: pipeline,
		log:      log,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type route struct {
	pattern string
	meta    middleware.RouteMeta
	handler http.HandlerFunc
}

func (s *Server) routes() {
	api := userguard.SectionAPI
	admin := userguard.SectionAdmin

	table := []route{
		{
			pattern: "POST /auth/login",
			meta:    middleware.RouteMeta{Section: api, Module: "user", Package: "auth", Handler: "login", Anonymous: true, Purpose: validate.PurposeLogin},
			handler: s.handleLogin,
		},
		{
			pattern: "POST /auth/refresh",
			meta:    middleware.RouteMeta{Section: api, Module: "user", Package: "auth", Handler: "refresh", Token: userguard.TokenRefresh, SkipPermission: true},
			handler: s.handleRefresh,
		},
		{
			pattern: "POST /auth/logout",
			meta:    middleware.RouteMeta{Section: api, Module: "user", Package: "auth", Handler: "logout", Token: userguard.TokenAccess, SkipPermission: true},
			handler: s.handleLogout,
		},
		{
			pattern: "POST /auth/register",
			meta:    middleware.RouteMeta{Section: api, Module: "user", Package: "auth", Handler: "register", Anonymous: true, Purpose: validate.PurposeRegister},
			handler: s.handleRegister,
		},
		{
			pattern: "GET /profile",
			meta:    middleware.RouteMeta{Section: api, Module: "user", Package: "profile", Handler: "view", Token: userguard.TokenAccess, SkipPermission: true},
			handler: s.handleProfileView,
		},
		{
			pattern: "PUT /profile",
			meta:    middleware.RouteMeta{Section: api, Module: "user", Package: "profile", Handler: "update", Token: userguard.TokenAccess, SkipPermission: true, Purpose: validate.PurposeEditProfile},
			handler: s.handleProfileUpdate,
		},
		{
			pattern: "PUT /profile/credential",
			meta:    middleware.RouteMeta{Section: api, Module: "user", Package: "profile", Handler: "credential", Token: userguard.TokenAccess, SkipPermission: true, Purpose: validate.PurposePasswordUpdate},
			handler: s.handleCredentialUpdate,
		},
		{
			pattern: "POST /otp/request",
			meta:    middleware.RouteMeta{Section: api, Module: "user", Package: "otp", Handler: "request", Token: userguard.TokenAccess, SkipPermission: true},
			handler: s.handleOTPRequest,
		},
		{
			pattern: "POST /otp/verify",
			meta:    middleware.RouteMeta{Section: api, Module: "user", Package: "otp", Handler: "verify", Token: userguard.TokenAccess, SkipPermission: true},
			handler: s.handleOTPVerify,
		},
		{
			pattern: "POST /admin/accounts/{id}/unlock",
			meta:    middleware.RouteMeta{Section: admin, Module: "user", Package: "account", Handler: "unlock", Token: userguard.TokenAccess},
			handler: s.handleUnlock,
		},
		{
			pattern: "PUT /admin/accounts/{id}/status",
			meta:    middleware.RouteMeta{Section: admin, Module: "user", Package: "account", Handler: "status", Token: userguard.TokenAccess},
			handler: s.handleStatus,
		},
		{
			pattern: "POST /admin/accounts/{id}/roles",
			meta:    middleware.RouteMeta{Section: admin, Module: "user", Package: "roles", Handler: "assign", Token: userguard.TokenAccess},
			handler: s.handleRoleAssign,
		},
		{
			pattern: "DELETE /admin/accounts/{id}/roles",
			meta:    middleware.RouteMeta{Section: admin, Module: "user", Package: "roles", Handler: "revoke", Token: userguard.TokenAccess},
			handler: s.handleRoleRevoke,
		},
		{
			pattern: "POST /admin/roles/refresh",
			meta:    middleware.RouteMeta{Section: admin, Module: "user", Package: "roles", Handler: "refresh", Token: userguard.TokenAccess},
			handler: s.handleRolesRefresh,
		},
	}

	for _, rt := range table {
		s.mux.Handle(rt.pattern, s.wrap(rt.meta, rt.handler))
	}

	// Health stays outside the pipeline so probes never rate-limit.
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

// wrap applies the pipeline to one route, outermost first.
func (s *Server) wrap(meta middleware.RouteMeta, h http.Handler) http.Handler {
	h = middleware.Validate(s.engine)(h)
	h = middleware.Authorize(s.engine)(h)
	h = middleware.Authenticate(s.engine)(h)
	h = middleware.Security(s.pipeline, s.log)(h)
	h = middleware.Recover(s.log)(h)
	h = middleware.WithScope(meta)(h)
	return h
}
