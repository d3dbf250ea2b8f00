package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// OriginPolicy decides which origins may call the API and which headers they get.
type OriginPolicy interface {
	AllowOrigin(origin string) (string, bool)
	ResponseHeaders(allowOrigin string) map[string]string
}

// Preflight answers OPTIONS requests from the policy. Other methods pass
// through; the chart handler applies the policy itself.
func Preflight(p OriginPolicy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodOptions {
				return next(c)
			}

			origin := c.Request().Header.Get(echo.HeaderOrigin)
			allow, ok := p.AllowOrigin(origin)
			if !ok {
				// no allow-origin header; the browser blocks the actual request
				return c.NoContent(http.StatusNoContent)
			}
			h := c.Response().Header()
			for k, v := range p.ResponseHeaders(allow) {
				h.Set(k, v)
			}
			if h.Get(echo.HeaderAccessControlAllowMethods) == "" {
				h.Set(echo.HeaderAccessControlAllowMethods, "POST, OPTIONS")
			}
			if h.Get(echo.HeaderAccessControlAllowHeaders) == "" {
				h.Set(echo.HeaderAccessControlAllowHeaders, "Content-Type")
			}
			h.Add(echo.HeaderVary, echo.HeaderOrigin)
			return c.NoContent(http.StatusNoContent)
		}
	}
}
