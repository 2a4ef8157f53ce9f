package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// principalKey is the echo context key the middleware stores the caller under.
const principalKey = "principal"

// Middleware returns an echo middleware that authenticates the bearer token
// with the configured strategy and stores the resulting Principal on the
// request context.
func Middleware(authn Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request())
			principal, err := authn.Authenticate(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, ErrMissingToken) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization token")
				}
				var invalid *InvalidTokenError
				if errors.As(err, &invalid) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token: "+invalid.Err.Error())
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "Token validation failed: "+err.Error())
			}
			c.Set(principalKey, principal)
			return next(c)
		}
	}
}

// PrincipalFromContext returns the Principal stored by Middleware.
func PrincipalFromContext(c echo.Context) (Principal, bool) {
	p, ok := c.Get(principalKey).(Principal)
	return p, ok
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return h[7:]
	}
	return ""
}
