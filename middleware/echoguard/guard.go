package echoguard

import (
	"github.com/labstack/echo/v4"

	userguard "github.com/identware/userguard"
	"github.com/identware/userguard/middleware"
)

const (
	accountKey = "userguard.account"
	rolesKey   = "userguard.roles"
	tokenIDKey = "userguard.token_id"
)

// Account returns the authenticated account stored by [Authenticate].
func Account(c echo.Context) (userguard.Account, bool) {
	a, ok := c.Get(accountKey).(userguard.Account)
	return a, ok
}

// Roles returns the filtered role list stored by [Authenticate].
func Roles(c echo.Context) []string {
	r, _ := c.Get(rolesKey).([]string)
	return r
}

// Authenticate validates the token header for the given kind and section
// and stores account, roles, and token id in the echo context.
func Authenticate(engine *userguard.Engine, kind userguard.TokenKind, section userguard.Section) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get(middleware.TokenHeader)
			if raw == "" {
				return respondError(c, userguard.ErrTokenMissing)
			}

			ctx := userguard.WithSection(c.Request().Context(), section)
			ctx = userguard.WithClientIP(ctx, c.RealIP())
			res, err := engine.Authenticate(ctx, raw, kind)
			if err != nil {
				return respondError(c, err)
			}

			c.SetRequest(c.Request().WithContext(ctx))
			c.Set(accountKey, res.Account)
			c.Set(rolesKey, res.Roles)
			c.Set(tokenIDKey, res.TokenID)
			return next(c)
		}
	}
}

// RequirePermission denies unless a surviving role grants the permission
// key. Wrap after [Authenticate].
func RequirePermission(engine *userguard.Engine, key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			roles := Roles(c)
			if len(roles) == 0 {
				return respondError(c, userguard.ErrPermissionDenied)
			}
			ok, err := engine.IsGranted(c.Request().Context(), roles, key)
			if err != nil {
				return respondError(c, err)
			}
			if !ok {
				return respondError(c, userguard.ErrPermissionDenied)
			}
			return next(c)
		}
	}
}

// respondError funnels every failure through the shared translation point
// so the echo surface emits the same envelope as the net/http one.
func respondError(c echo.Context, err error) error {
	middleware.WriteError(c.Response().Writer, err)
	return nil
}
