package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"horse.fit/jachtproef/internal/auth"
)

// requireToken admits requests carrying the operator bearer token. With no
// token hash configured the guarded routes are disabled.
func (s *Server) requireToken() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s.opts.APITokenHash == "" {
				return fail(c, http.StatusForbidden, "Endpoint disabled: API_TOKEN_HASH is not set", nil)
			}

			token, ok := auth.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok || !auth.VerifyToken(token, s.opts.APITokenHash) {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="jachtproef"`)
				return unauthorizedResponse(c)
			}
			return next(c)
		}
	}
}

func unauthorizedResponse(c echo.Context) error {
	return fail(c, http.StatusUnauthorized, "Authentication required", nil)
}
