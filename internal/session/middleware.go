package session

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/craftwerk/portfolio-backend/internal/apperr"
	"github.com/craftwerk/portfolio-backend/internal/rbac"
	"github.com/craftwerk/portfolio-backend/internal/token"
)

const (
	ctxUserID   = "userID"
	ctxUsername = "username"
	ctxEmail    = "email"
)

type Middleware struct {
	Tokens   *token.Service
	Resolver *rbac.Resolver
}

// RequireAuth resolves identity from the access cookie first, falling
// back to the Authorization header. Expired tokens get their own error
// code so clients know to hit /auth/refresh.
func (m *Middleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := ""
		if cookie, err := c.Cookie(AccessCookie); err == nil && cookie.Value != "" {
			raw = cookie.Value
		} else if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
			raw = strings.TrimPrefix(auth, "Bearer ")
		}
		if raw == "" {
			return apperr.Unauthorized("missing credentials")
		}

		claims, err := m.Tokens.ParseAccess(raw)
		if err != nil {
			if errors.Is(err, token.ErrExpired) {
				return apperr.TokenExpired("access token expired")
			}
			return apperr.Unauthorized("invalid access token")
		}

		c.Set(ctxUserID, claims.UserID())
		c.Set(ctxUsername, claims.Username)
		c.Set(ctxEmail, claims.Email)
		return next(c)
	}
}

// RequirePermission guards a route group with an RBAC check. Must run
// after RequireAuth.
func (m *Middleware) RequirePermission(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := UserID(c)
			if !ok {
				return apperr.Unauthorized("missing credentials")
			}
			allowed, err := m.Resolver.HasPermission(c.Request().Context(), userID, key)
			if err != nil {
				return apperr.Internal(err)
			}
			if !allowed {
				return apperr.PermissionDenied("permission denied")
			}
			return next(c)
		}
	}
}

// UserID reads the resolved identity out of the echo context.
func UserID(c echo.Context) (uint, bool) {
	id, ok := c.Get(ctxUserID).(uint)
	return id, ok
}

func Username(c echo.Context) string {
	name, _ := c.Get(ctxUsername).(string)
	return name
}

func Email(c echo.Context) string {
	email, _ := c.Get(ctxEmail).(string)
	return email
}
