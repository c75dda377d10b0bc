package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/marketplace/internal/models"
	"github.com/Skotchmaster/marketplace/internal/session"
)

const userContextKey = "user"

type Middleware struct {
	Sessions *session.Store
}

// RequireLogin resolves the session cookie and stashes the user in the
// echo context. No cookie or a stale session is a 401.
func (m *Middleware) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie(session.CookieName)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "login required")
		}

		user, _, err := m.Sessions.Resolve(c.Request().Context(), cookie.Value)
		if err != nil {
			c.SetCookie(session.ExpiredCookie())
			return echo.NewHTTPError(http.StatusUnauthorized, "login required")
		}

		c.Set(userContextKey, user)
		return next(c)
	}
}

// RequireRole gates a route to the given roles. It composes after
// RequireLogin, which must have run first.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := CurrentUser(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "login required")
			}
			if !allowed[user.Role] {
				return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
			}
			return next(c)
		}
	}
}

func CurrentUser(c echo.Context) (*models.User, bool) {
	user, ok := c.Get(userContextKey).(*models.User)
	return user, ok
}

// SetCurrentUser is exposed for handler tests that bypass the middleware.
func SetCurrentUser(c echo.Context, u *models.User) {
	c.Set(userContextKey, u)
}
