package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Allower reports whether a request from key may proceed.
type Allower interface {
	Allow(key string) bool
}

// RateLimit rejects requests with 429 once the client IP's budget is spent.
func RateLimit(a Allower) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !a.Allow(c.RealIP()) {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"status":  "ERROR",
					"message": "rate limit exceeded",
				})
			}
			return next(c)
		}
	}
}
