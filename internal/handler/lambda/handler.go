package lambda

import (
	"context"
	"encoding/base64"

	"CommuteTrends/internal/usecase"
	xlogger "CommuteTrends/pkg/logger"

	"github.com/aws/aws-lambda-go/events"
)

// ProxyHandler adapts one chart profile to API Gateway proxy events.
type ProxyHandler struct {
	logger *xlogger.Logger
	chart  *usecase.CommuteChart
}

func NewProxyHandler(logger *xlogger.Logger, chart *usecase.CommuteChart) *ProxyHandler {
	if logger == nil {
		logger = xlogger.NewNop()
	}
	return &ProxyHandler{logger: logger, chart: chart}
}

// Handle is the function passed to lambda.Start.
func (h *ProxyHandler) Handle(ctx context.Context, ev events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req, err := ToRequest(ev)
	if err != nil {
		h.logger.Warn("lambda body decode error", xlogger.Error(err))
		return toProxyResponse(h.chart.Reject(req, usecase.InvalidBody(err))), nil
	}
	return toProxyResponse(h.chart.Handle(ctx, req)), nil
}

func toProxyResponse(res usecase.Response) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: res.StatusCode,
		Headers:    res.Headers,
		Body:       string(res.Body),
	}
}

// ToRequest converts a proxy event. Multi-value headers fill in keys missing
// from the single-value map, first value only.
func ToRequest(ev events.APIGatewayProxyRequest) (usecase.Request, error) {
	headers := make(map[string]string, len(ev.Headers)+len(ev.MultiValueHeaders))
	for k, vs := range ev.MultiValueHeaders {
		if len(vs) > 0 {
			headers[k] = vs[0]
		}
	}
	for k, v := range ev.Headers {
		headers[k] = v
	}

	body := ev.Body
	if ev.IsBase64Encoded {
		b, err := base64.StdEncoding.DecodeString(ev.Body)
		if err != nil {
			return usecase.Request{Headers: headers}, err
		}
		body = string(b)
	}
	return usecase.Request{Headers: headers, Body: body}, nil
}
