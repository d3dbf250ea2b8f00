package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	domrepo "CommuteTrends/internal/domain/repository"
	"CommuteTrends/internal/usecase"
	xhttp "CommuteTrends/pkg/http"
	xlogger "CommuteTrends/pkg/logger"

	"github.com/labstack/echo/v4"
)

const maxBodyBytes = 1 << 20

// CommuteEchoHandler exposes the chart profiles over Echo.
type CommuteEchoHandler struct {
	logger        *xlogger.Logger
	live          *usecase.CommuteChart
	stats         *usecase.CommuteChart
	store         domrepo.TrafficQuerier
	healthTimeout time.Duration
}

func NewCommuteEchoHandler(logger *xlogger.Logger, live, stats *usecase.CommuteChart, store domrepo.TrafficQuerier) *CommuteEchoHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &CommuteEchoHandler{logger: logger, live: live, stats: stats, store: store, healthTimeout: 2 * time.Second}
}

func (h *CommuteEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/commute", h.Live)
	g.OPTIONS("/commute", h.preflight)
	g.POST("/commute/stats", h.Stats)
	g.OPTIONS("/commute/stats", h.preflight)
	e.GET("/healthz", h.Health)
}

// Live serves the bounded commute chart.
func (h *CommuteEchoHandler) Live(c echo.Context) error {
	return h.serve(c, h.live)
}

// Stats serves the unbounded statistics chart.
func (h *CommuteEchoHandler) Stats(c echo.Context) error {
	return h.serve(c, h.stats)
}

func (h *CommuteEchoHandler) serve(c echo.Context, chart *usecase.CommuteChart) error {
	req, err := ToRequest(c.Request())
	if err != nil {
		h.logger.Warn("request body read error", xlogger.Error(err))
		res := chart.Reject(req, usecase.InvalidBody(err))
		return xhttp.RawResponse(c, res.StatusCode, res.Headers, res.Body)
	}
	res := chart.Handle(c.Request().Context(), req)
	return xhttp.RawResponse(c, res.StatusCode, res.Headers, res.Body)
}

// preflight is reached only when the Preflight middleware is not installed.
func (h *CommuteEchoHandler) preflight(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

// Health pings the samples store.
func (h *CommuteEchoHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.healthTimeout)
	defer cancel()

	if err := h.store.Health(ctx); err != nil {
		h.logger.Warn("health check failed", xlogger.Error(err))
		return xhttp.UnhealthyResponse(c, map[string]string{"store": "unavailable"})
	}
	return xhttp.HealthyResponse(c, map[string]string{"store": "ok"})
}

// ToRequest flattens an HTTP request into the transport-neutral form. Only the
// first value of a repeated header is kept. Bodies over maxBodyBytes are an
// error; the returned request still carries the headers.
func ToRequest(r *http.Request) (usecase.Request, error) {
	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	var body []byte
	if r.Body != nil {
		b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if err != nil {
			return usecase.Request{Headers: headers}, err
		}
		if len(b) > maxBodyBytes {
			return usecase.Request{Headers: headers}, fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
		}
		body = b
	}
	return usecase.Request{Headers: headers, Body: string(body)}, nil
}
