package lambda

import (
	"context"
	"encoding/base64"
	"net/http"
	"testing"

	"CommuteTrends/internal/domain/models"
	"CommuteTrends/internal/service/cors"
	"CommuteTrends/internal/usecase"

	"github.com/aws/aws-lambda-go/events"
)

type emptyStore struct{}

func (emptyStore) Execute(context.Context, models.QueryDescriptor) ([]models.RawSample, error) {
	return nil, nil
}

func (emptyStore) Health(context.Context) error { return nil }

func newHandler(opts ...usecase.ChartOption) *ProxyHandler {
	rc := &models.RuntimeContext{
		Headers: models.HeaderPolicy{"Access-Control-Allow-Origin": "https://a.example"},
		Routes:  models.RouteTable{},
	}
	profile := usecase.NewProfile(usecase.ProfileSettings{
		Name:           usecase.ProfileCommute,
		Mode:           models.EpochMillis,
		WindowDays:     30,
		Rounding:       usecase.RoundFloor,
		StandardFields: []string{"timestamp", "duration_in_traffic"},
	})
	chart := usecase.NewCommuteChart(rc, cors.NewPolicy(rc.Headers, false), emptyStore{}, profile, opts...)
	return NewProxyHandler(nil, chart)
}

func TestHandleProxyEvent(t *testing.T) {
	tests := []struct {
		name       string
		ev         events.APIGatewayProxyRequest
		wantStatus int
		wantBody   string
	}{
		{
			name: "plain form body",
			ev: events.APIGatewayProxyRequest{
				Headers: map[string]string{"origin": "https://a.example", "content-type": "application/x-www-form-urlencoded"},
				Body:    "origin=A&destination=B",
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"x_axis":{"type":"datetime"},"series":[{"type":"area","name":"A -> B","data":[]}]}`,
		},
		{
			name: "base64 body with multi-value headers",
			ev: events.APIGatewayProxyRequest{
				MultiValueHeaders: map[string][]string{
					"Origin":       {"https://a.example"},
					"Content-Type": {"application/json"},
				},
				Body:            base64.StdEncoding.EncodeToString([]byte(`{"origin":"A","destination":"B","name":"Commute"}`)),
				IsBase64Encoded: true,
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"x_axis":{"type":"datetime"},"series":[{"type":"area","name":"Commute","data":[]}]}`,
		},
		{
			name: "bad base64",
			ev: events.APIGatewayProxyRequest{
				Headers:         map[string]string{"Origin": "https://a.example"},
				Body:            "%%%",
				IsBase64Encoded: true,
			},
			wantStatus: http.StatusForbidden,
			wantBody:   `{"status":"ERROR","message":"invalid arguments (body)"}`,
		},
		{
			name: "rejected origin",
			ev: events.APIGatewayProxyRequest{
				Headers: map[string]string{"Origin": "https://evil.example", "Content-Type": "application/json"},
				Body:    `{"origin":"A","destination":"B"}`,
			},
			wantStatus: http.StatusForbidden,
			wantBody:   `{"status":"ERROR","message":"invalid origin"}`,
		},
	}

	h := newHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.Handle(context.Background(), tt.ev)
			if err != nil {
				t.Fatalf("handle: %v", err)
			}
			if res.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", res.StatusCode, tt.wantStatus, res.Body)
			}
			if res.Body != tt.wantBody {
				t.Fatalf("body = %s\nwant   %s", res.Body, tt.wantBody)
			}
		})
	}
}

func TestHandleBadBase64UsesStatusMapping(t *testing.T) {
	h := newHandler(usecase.WithErrorStatus(map[models.ErrorKind]int{models.KindInvalidArgument: http.StatusBadRequest}))
	res, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		Headers:         map[string]string{"Origin": "https://a.example"},
		Body:            "%%%",
		IsBase64Encoded: true,
	})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want mapped %d", res.StatusCode, http.StatusBadRequest)
	}
	if got := res.Headers["Access-Control-Allow-Origin"]; got != "https://a.example" {
		t.Fatalf("allow-origin = %q", got)
	}
	if got := res.Headers["Content-Type"]; got != "application/json" {
		t.Fatalf("content-type = %q", got)
	}
}
