package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"CommuteTrends/internal/domain/models"
	drepo "CommuteTrends/internal/domain/repository"
	"CommuteTrends/internal/service/cors"
	applogger "CommuteTrends/pkg/logger"
	"CommuteTrends/pkg/util"
)

const (
	HeaderContentType   = "Content-Type"
	HeaderTimestampMode = "X-Timestamp-Mode"
	HeaderWindowDays    = "X-Window-Days"

	contentTypeForm = "application/x-www-form-urlencoded"
	contentTypeJSON = "application/json"
)

// Request is a transport-neutral inbound chart request.
type Request struct {
	Headers map[string]string
	Body    string
}

// Response is a transport-neutral outbound response. Body is always JSON.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// ErrorBody is the failure payload.
type ErrorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type stage string

const (
	stageValidateOrigin      stage = "validate_origin"
	stageValidateContentType stage = "validate_content_type"
	stageResolve             stage = "resolve"
	stageExecute             stage = "execute"
	stageTransform           stage = "transform"
	stageRespond             stage = "respond"
)

// ChartOption configures CommuteChart.
type ChartOption func(*CommuteChart)

// CommuteChart runs one chart request through origin check, body parsing,
// resolution, query and transformation. The first failing stage ends the request.
type CommuteChart struct {
	rc            *models.RuntimeContext
	policy        *cors.Policy
	querier       drepo.TrafficQuerier
	profile       Profile
	metrics       drepo.Metrics
	logger        *applogger.Logger
	errorStatus   map[models.ErrorKind]int
	defaultStatus int
}

// NewCommuteChart creates the request handler for one profile.
func NewCommuteChart(rc *models.RuntimeContext, policy *cors.Policy, querier drepo.TrafficQuerier, profile Profile, opts ...ChartOption) *CommuteChart {
	h := &CommuteChart{
		rc:            rc,
		policy:        policy,
		querier:       querier,
		profile:       profile,
		metrics:       nopMetrics{},
		logger:        applogger.NewNop(),
		defaultStatus: 403,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// WithLogger sets the logger.
func WithLogger(l *applogger.Logger) ChartOption {
	return func(h *CommuteChart) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m drepo.Metrics) ChartOption {
	return func(h *CommuteChart) {
		if m != nil {
			h.metrics = m
		}
	}
}

// WithErrorStatus maps error kinds to HTTP status codes. Unmapped kinds use the default.
func WithErrorStatus(m map[models.ErrorKind]int) ChartOption {
	return func(h *CommuteChart) {
		h.errorStatus = m
	}
}

// WithDefaultErrorStatus sets the status used for unmapped error kinds.
func WithDefaultErrorStatus(code int) ChartOption {
	return func(h *CommuteChart) {
		if code > 0 {
			h.defaultStatus = code
		}
	}
}

// Profile returns the handler's profile.
func (h *CommuteChart) Profile() Profile {
	return h.profile
}

// Handle processes one request. It never returns an error: every failure is
// rendered as an error response.
func (h *CommuteChart) Handle(ctx context.Context, req Request) Response {
	start := time.Now()
	headers := util.LowerKeys(req.Headers)
	origin := headers["origin"]
	log := h.logger.With(applogger.String("profile", h.profile.Name), applogger.String("origin", origin))

	// ValidateOrigin
	allowOrigin, ok := h.policy.AllowOrigin(origin)
	if !ok {
		return h.fail(log, stageValidateOrigin, nil, models.NewError(models.KindOriginNotAllowed, "invalid origin", nil), start)
	}
	respHeaders := h.policy.ResponseHeaders(allowOrigin)

	// ValidateContentType
	params, err := parseBody(headers["content-type"], req.Body)
	if err != nil {
		return h.fail(log, stageValidateContentType, respHeaders, err, start)
	}

	// ResolveDescriptor
	d, err := h.profile.Resolver.Resolve(params, h.rc.Routes)
	if err != nil {
		return h.fail(log, stageResolve, respHeaders, err, start)
	}
	log.Debug("commute.resolve ok",
		applogger.String("route_origin", d.Origin),
		applogger.String("route_destination", d.Destination),
		applogger.Strings("fields", d.Fields),
		applogger.Bool("bounded", d.Bounded),
	)

	// ExecuteQuery
	qStart := time.Now()
	rows, err := h.querier.Execute(ctx, d)
	h.metrics.RecordLatency("query", time.Since(qStart))
	if err != nil {
		return h.fail(log, stageExecute, respHeaders, err, start)
	}
	h.metrics.RecordRows(h.profile.Name, len(rows))

	// TransformResults
	chart, err := h.profile.Transformer.Transform(rows, d, h.profile.Mode)
	if err != nil {
		return h.fail(log, stageTransform, respHeaders, err, start)
	}

	// Respond
	body, err := json.Marshal(chart)
	if err != nil {
		return h.fail(log, stageRespond, respHeaders, models.NewError(models.KindInternal, "internal error", err), start)
	}
	respHeaders[HeaderContentType] = contentTypeJSON
	respHeaders[HeaderTimestampMode] = string(h.profile.Mode)
	respHeaders[HeaderWindowDays] = windowDaysHeader(h.profile.Resolver.WindowDays())

	h.metrics.RecordRequest(h.profile.Name, "ok")
	h.metrics.RecordLatency("request", time.Since(start))
	log.Info("commute.request ok",
		applogger.Int("rows", len(rows)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return Response{StatusCode: 200, Headers: respHeaders, Body: body}
}

// InvalidBody reports an unreadable request body as an InvalidArgument.
func InvalidBody(cause error) *models.Error {
	return models.NewError(models.KindInvalidArgument, "invalid arguments (body)", cause)
}

// Reject renders a failure raised by a transport before the body reached
// Handle, such as an oversized or undecodable body. The origin is still checked
// first and err goes through the same status mapping as Handle's failures.
func (h *CommuteChart) Reject(req Request, err error) Response {
	start := time.Now()
	origin := util.LowerKeys(req.Headers)["origin"]
	log := h.logger.With(applogger.String("profile", h.profile.Name), applogger.String("origin", origin))

	allowOrigin, ok := h.policy.AllowOrigin(origin)
	if !ok {
		return h.fail(log, stageValidateOrigin, nil, models.NewError(models.KindOriginNotAllowed, "invalid origin", nil), start)
	}
	return h.fail(log, stageValidateContentType, h.policy.ResponseHeaders(allowOrigin), err, start)
}

func (h *CommuteChart) fail(log *applogger.Logger, st stage, headers map[string]string, err error, start time.Time) Response {
	kind := models.KindOf(err)
	msg := clientMessage(kind, err)

	fields := []applogger.Field{
		applogger.String("stage", string(st)),
		applogger.String("kind", string(kind)),
		applogger.Error(err),
		applogger.Duration("duration_ms", time.Since(start)),
	}
	switch kind {
	case models.KindStoreUnavailable, models.KindStoreError, models.KindInternal:
		log.Error("commute.request failed", fields...)
	default:
		log.Warn("commute.request rejected", fields...)
	}

	h.metrics.RecordError(string(kind))
	h.metrics.RecordRequest(h.profile.Name, string(kind))

	if headers == nil {
		headers = map[string]string{}
	}
	headers[HeaderContentType] = contentTypeJSON

	body, _ := json.Marshal(ErrorBody{Status: "ERROR", Message: msg})
	return Response{StatusCode: h.statusFor(kind), Headers: headers, Body: body}
}

func (h *CommuteChart) statusFor(kind models.ErrorKind) int {
	if code, ok := h.errorStatus[kind]; ok {
		return code
	}
	return h.defaultStatus
}

// clientMessage hides store and internal details from callers.
func clientMessage(kind models.ErrorKind, err error) string {
	switch kind {
	case models.KindStoreUnavailable:
		return "store unavailable"
	case models.KindStoreError:
		return "store error"
	case models.KindInternal:
		return "internal error"
	}
	var e *models.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func windowDaysHeader(days int) string {
	if days == 0 {
		return "all"
	}
	return strconv.Itoa(days)
}

// parseBody decodes a form or JSON body into a flat parameter map.
func parseBody(contentType, body string) (map[string]string, error) {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, contentTypeForm):
		return parseForm(body)
	case strings.Contains(ct, contentTypeJSON):
		return parseJSON(body)
	default:
		return nil, models.NewError(models.KindUnsupportedContentType, "invalid content-type: "+ct, nil)
	}
}

func parseForm(body string) (map[string]string, error) {
	values, err := url.ParseQuery(body)
	if err != nil {
		return nil, InvalidBody(err)
	}
	params := make(map[string]string, len(values))
	for k, vs := range values {
		// last occurrence wins
		if len(vs) > 0 {
			params[k] = vs[len(vs)-1]
		}
	}
	return params, nil
}

func parseJSON(body string) (map[string]string, error) {
	if strings.TrimSpace(body) == "" {
		return map[string]string{}, nil
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, InvalidBody(err)
	}
	params := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			params[k] = val
		case []any:
			parts := make([]string, 0, len(val))
			for _, p := range val {
				parts = append(parts, fmt.Sprint(p))
			}
			params[k] = strings.Join(parts, ",")
		default:
			params[k] = fmt.Sprint(val)
		}
	}
	return params, nil
}

type nopMetrics struct{}

func (nopMetrics) RecordRequest(string, string) {}
func (nopMetrics) RecordError(string) {}
func (nopMetrics) RecordLatency(string, time.Duration) {}
func (nopMetrics) RecordRows(string, int) {}
