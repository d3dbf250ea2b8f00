package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RawResponse writes a pre-encoded body with the given headers.
func RawResponse(c echo.Context, statusCode int, headers map[string]string, body []byte) error {
	h := c.Response().Header()
	for k, v := range headers {
		h.Set(k, v)
	}
	contentType := h.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = echo.MIMEApplicationJSON
	}
	return c.Blob(statusCode, contentType, body)
}

// HealthyResponse writes a 200 health body.
func HealthyResponse(c echo.Context, checks map[string]string) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Checks: checks})
}

// UnhealthyResponse writes a 503 health body.
func UnhealthyResponse(c echo.Context, checks map[string]string) error {
	return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Checks: checks})
}
