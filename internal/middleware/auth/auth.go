package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/agrokasa/advert_market/internal/authz"
	"github.com/agrokasa/advert_market/internal/logging"
	"github.com/agrokasa/advert_market/internal/models"
	"github.com/agrokasa/advert_market/internal/service"
)

const userContextKey = "user"

type Resolver interface {
	ResolveUser(ctx context.Context, raw string) (*models.User, error)
}

type Guard struct {
	Resolver Resolver
}

// Authenticate requires an "Authorization: Bearer <token>" header whose subject
// still exists, and stores that user in the echo context.
func (g *Guard) Authenticate() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  userContextKey,
		TokenLookup: "header:Authorization:Bearer ",
		ParseTokenFunc: func(c echo.Context, raw string) (interface{}, error) {
			ctx := c.Request().Context()
			user, err := g.Resolver.ResolveUser(ctx, raw)
			if err != nil {
				return nil, &resolveError{err: err}
			}
			c.SetRequest(c.Request().WithContext(logging.WithActor(ctx, user.ID.String(), string(user.Role))))
			return user, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			l := logging.FromContext(c.Request().Context()).With("middleware", "authenticate")

			var re *resolveError
			if !errors.As(err, &re) {
				l.Warn("auth_failed", "status", 401, "reason", "missing bearer token", "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			err = re.err

			switch {
			case errors.Is(err, jwt.ErrTokenExpired):
				l.Warn("auth_failed", "status", 401, "reason", "token expired")
				return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
			case errors.Is(err, service.ErrUnknownSubject):
				l.Warn("auth_failed", "status", 401, "reason", "user not found")
				return echo.NewHTTPError(http.StatusUnauthorized, "user not found")
			case errors.Is(err, service.ErrUnauthorized):
				l.Warn("auth_failed", "status", 401, "reason", "invalid token", "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			l.Error("auth_failed", "status", 500, "reason", "cannot resolve user", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot authenticate request")
		},
	})
}

// resolveError marks a token that was extracted but could not be resolved to a
// user, so the error handler can tell it apart from a missing header.
type resolveError struct{ err error }

func (e *resolveError) Error() string { return e.err.Error() }
func (e *resolveError) Unwrap() error { return e.err }

// Require must run after Authenticate.
func Require(p authz.Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := CurrentUser(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}
			if !authz.Allowed(user.Role, p) {
				logging.FromContext(c.Request().Context()).Warn("permission_denied",
					"status", 403, "user_id", user.ID, "role", user.Role, "permission", p)
				return echo.NewHTTPError(http.StatusForbidden, "permission denied")
			}
			return next(c)
		}
	}
}

func CurrentUser(c echo.Context) (*models.User, bool) {
	u, ok := c.Get(userContextKey).(*models.User)
	return u, ok && u != nil
}
