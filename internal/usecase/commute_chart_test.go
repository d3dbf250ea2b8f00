package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"CommuteTrends/internal/domain/models"
	"CommuteTrends/internal/service/cors"
)

type fakeQuerier struct {
	rows  []models.RawSample
	err   error
	calls int
	last  models.QueryDescriptor
}

func (f *fakeQuerier) Execute(_ context.Context, d models.QueryDescriptor) ([]models.RawSample, error) {
	f.calls++
	f.last = d
	return f.rows, f.err
}

func (f *fakeQuerier) Health(context.Context) error { return nil }

type countingMetrics struct {
	outcomes []string
	errors   []string
	rows     int
}

func (m *countingMetrics) RecordRequest(_, outcome string)     { m.outcomes = append(m.outcomes, outcome) }
func (m *countingMetrics) RecordError(kind string)             { m.errors = append(m.errors, kind) }
func (m *countingMetrics) RecordLatency(string, time.Duration) {}
func (m *countingMetrics) RecordRows(_ string, n int)          { m.rows += n }

const allowed = "https://commute.example.com"

func testContext() *models.RuntimeContext {
	return &models.RuntimeContext{
		Database: models.DatabaseParams{Host: "db", Name: "commute", Table: "traffic"},
		Headers: models.HeaderPolicy{
			"Access-Control-Allow-Origin":  allowed,
			"Access-Control-Allow-Methods": "POST",
		},
		Routes: models.RouteTable{"home-work": {Origin: "Home", Destination: "Work"}},
	}
}

func commuteProfile() Profile {
	return NewProfile(ProfileSettings{
		Name:           ProfileCommute,
		Mode:           models.EpochMillis,
		WindowDays:     365,
		Rounding:       RoundFloor,
		StandardFields: []string{"timestamp", "duration_in_traffic"},
		Columns:        []string{"timestamp", "duration_in_traffic", "count"},
	}, WithClock(clock))
}

func newChart(q *fakeQuerier, opts ...ChartOption) *CommuteChart {
	rc := testContext()
	return NewCommuteChart(rc, cors.NewPolicy(rc.Headers, false), q, commuteProfile(), opts...)
}

func formRequest(origin, body string) Request {
	return Request{
		Headers: map[string]string{"Origin": origin, "Content-Type": "application/x-www-form-urlencoded; charset=UTF-8"},
		Body:    body,
	}
}

func decodeError(t *testing.T, resp Response) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		t.Fatalf("error body is not JSON: %s", resp.Body)
	}
	return body
}

func TestHandleSuccess(t *testing.T) {
	q := &fakeQuerier{rows: []models.RawSample{{
		Origin: "A", Destination: "B",
		Values: map[string]any{"timestamp": time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), "duration_in_traffic": int64(3600)},
	}}}
	m := &countingMetrics{}
	resp := newChart(q, WithMetrics(m)).Handle(context.Background(), formRequest(allowed, "origin=A&destination=B"))

	if resp.StatusCode != 200 {
		t.Fatalf("status %d: %s", resp.StatusCode, resp.Body)
	}
	want := `{"x_axis":{"type":"datetime"},"series":[{"type":"area","name":"A -> B","data":[[1577836800000,60]]}]}`
	if string(resp.Body) != want {
		t.Fatalf("body = %s\nwant   %s", resp.Body, want)
	}
	h := resp.Headers
	if h["Access-Control-Allow-Origin"] != allowed || h["Access-Control-Allow-Methods"] != "POST" {
		t.Fatalf("policy headers missing: %v", h)
	}
	if h["Content-Type"] != "application/json" || h["X-Timestamp-Mode"] != "epoch_millis" || h["X-Window-Days"] != "365" {
		t.Fatalf("mode headers missing: %v", h)
	}
	if q.last.Origin != "A" || q.last.Destination != "B" || !q.last.Bounded {
		t.Fatalf("unexpected descriptor %+v", q.last)
	}
	if !reflect.DeepEqual(m.outcomes, []string{"ok"}) || m.rows != 1 {
		t.Fatalf("metrics %+v", m)
	}
}

func TestHandleEmptyRows(t *testing.T) {
	q := &fakeQuerier{}
	resp := newChart(q).Handle(context.Background(), formRequest(allowed, "id=home-work"))
	if resp.StatusCode != 200 {
		t.Fatalf("status %d: %s", resp.StatusCode, resp.Body)
	}
	want := `{"x_axis":{"type":"datetime"},"series":[{"type":"area","name":"Home -> Work","data":[]}]}`
	if string(resp.Body) != want {
		t.Fatalf("body = %s", resp.Body)
	}
}

func TestHandleDisallowedOrigin(t *testing.T) {
	q := &fakeQuerier{}
	resp := newChart(q).Handle(context.Background(), formRequest("https://evil.example", "origin=A&destination=B"))

	if resp.StatusCode != 403 {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if body := decodeError(t, resp); body != (ErrorBody{Status: "ERROR", Message: "invalid origin"}) {
		t.Fatalf("body %+v", body)
	}
	if q.calls != 0 {
		t.Fatalf("store queried %d times for a rejected origin", q.calls)
	}
	if _, ok := resp.Headers["Access-Control-Allow-Origin"]; ok {
		t.Fatalf("rejected origin must not get an allow-origin header: %v", resp.Headers)
	}
}

func TestHandleAllowAnyOrigin(t *testing.T) {
	q := &fakeQuerier{}
	rc := testContext()
	h := NewCommuteChart(rc, cors.NewPolicy(rc.Headers, true), q, commuteProfile())
	resp := h.Handle(context.Background(), formRequest("https://other.example", "origin=A&destination=B"))
	if resp.StatusCode != 200 || resp.Headers["Access-Control-Allow-Origin"] != "*" {
		t.Fatalf("allow-any must answer with *: %d %v", resp.StatusCode, resp.Headers)
	}
}

func TestHandleMissingDestination(t *testing.T) {
	q := &fakeQuerier{}
	m := &countingMetrics{}
	resp := newChart(q, WithMetrics(m)).Handle(context.Background(), formRequest(allowed, "origin=A"))

	if resp.StatusCode != 403 {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if body := decodeError(t, resp); body.Message != "invalid arguments (destination)" {
		t.Fatalf("body %+v", body)
	}
	if q.calls != 0 {
		t.Fatalf("store must not be queried")
	}
	if resp.Headers["Access-Control-Allow-Origin"] != allowed {
		t.Fatalf("errors after the origin check keep CORS headers: %v", resp.Headers)
	}
	if !reflect.DeepEqual(m.errors, []string{string(models.KindInvalidArgument)}) {
		t.Fatalf("error metrics %v", m.errors)
	}
}

func TestHandleContentTypes(t *testing.T) {
	q := &fakeQuerier{}
	h := newChart(q)

	resp := h.Handle(context.Background(), Request{
		Headers: map[string]string{"origin": allowed, "content-type": "text/plain"},
		Body:    "origin=A&destination=B",
	})
	if body := decodeError(t, resp); body.Message != "invalid content-type: text/plain" {
		t.Fatalf("body %+v", body)
	}

	resp = h.Handle(context.Background(), Request{
		Headers: map[string]string{"ORIGIN": allowed, "Content-Type": "application/json"},
		Body:    `{"origin":"A","destination":"B","fields":["duration","count"]}`,
	})
	if resp.StatusCode != 200 {
		t.Fatalf("json body rejected: %s", resp.Body)
	}
	if !reflect.DeepEqual(q.last.Fields, []string{"duration_in_traffic", "count"}) {
		t.Fatalf("json fields %v", q.last.Fields)
	}

	resp = h.Handle(context.Background(), Request{
		Headers: map[string]string{"origin": allowed, "content-type": "application/json"},
		Body:    `{"origin":`,
	})
	if body := decodeError(t, resp); body.Message != "invalid arguments (body)" {
		t.Fatalf("body %+v", body)
	}
}

func TestHandleMultiFieldStats(t *testing.T) {
	q := &fakeQuerier{rows: []models.RawSample{
		{Values: map[string]any{"duration_in_traffic": int64(3600), "count": int64(4)}},
		{Values: map[string]any{"duration_in_traffic": int64(1200), "count": int64(9)}},
	}}
	resp := newChart(q).Handle(context.Background(), formRequest(allowed, "origin=A&destination=B&fields=duration,count"))
	if resp.StatusCode != 200 {
		t.Fatalf("status %d: %s", resp.StatusCode, resp.Body)
	}
	var chart models.ChartSeries
	if err := json.Unmarshal(resp.Body, &chart); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := [][]any{{60.0, 4.0}, {20.0, 9.0}}
	if !reflect.DeepEqual(chart.Series[0].Data, want) {
		t.Fatalf("data = %v, want %v", chart.Series[0].Data, want)
	}
}

func TestRejectUsesStatusMapping(t *testing.T) {
	cause := errors.New("illegal base64 data at input byte 0")
	tests := []struct {
		name       string
		origin     string
		opts       []ChartOption
		wantStatus int
		wantMsg    string
		wantKind   string
	}{
		{"default status", allowed, nil, 403, "invalid arguments (body)", string(models.KindInvalidArgument)},
		{"mapped status", allowed, []ChartOption{WithErrorStatus(map[models.ErrorKind]int{models.KindInvalidArgument: 400})}, 400, "invalid arguments (body)", string(models.KindInvalidArgument)},
		{"origin checked first", "https://evil.example", nil, 403, "invalid origin", string(models.KindOriginNotAllowed)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &countingMetrics{}
			q := &fakeQuerier{}
			opts := append([]ChartOption{WithMetrics(m)}, tt.opts...)
			resp := newChart(q, opts...).Reject(formRequest(tt.origin, ""), InvalidBody(cause))
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if body := decodeError(t, resp); body.Message != tt.wantMsg {
				t.Fatalf("body %+v", body)
			}
			if len(m.errors) != 1 || m.errors[0] != tt.wantKind {
				t.Fatalf("recorded errors %v", m.errors)
			}
			if q.calls != 0 {
				t.Fatalf("store queried %d times", q.calls)
			}
		})
	}
}

func TestHandleSingleFieldPairs(t *testing.T) {
	q := &fakeQuerier{rows: []models.RawSample{
		{Values: map[string]any{"timestamp": time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), "duration_in_traffic": int64(3600)}},
	}}
	resp := newChart(q).Handle(context.Background(), formRequest(allowed, "origin=A&destination=B&fields=duration"))
	if resp.StatusCode != 200 {
		t.Fatalf("status %d: %s", resp.StatusCode, resp.Body)
	}
	if !reflect.DeepEqual(q.last.Fields, []string{"timestamp", "duration_in_traffic"}) {
		t.Fatalf("selected fields %v", q.last.Fields)
	}
	var chart models.ChartSeries
	if err := json.Unmarshal(resp.Body, &chart); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if want := [][]any{{1577836800000.0, 60.0}}; !reflect.DeepEqual(chart.Series[0].Data, want) {
		t.Fatalf("data = %v, want %v", chart.Series[0].Data, want)
	}
}

func TestHandleStoreErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"unavailable", models.NewError(models.KindStoreUnavailable, "store unavailable", errors.New("dial tcp: refused")), 503, "store unavailable"},
		{"query failure", models.NewError(models.KindStoreError, "store error", errors.New("syntax error near secret_table")), 403, "store error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := &fakeQuerier{err: tc.err}
			h := newChart(q, WithErrorStatus(map[models.ErrorKind]int{models.KindStoreUnavailable: 503}))
			resp := h.Handle(context.Background(), formRequest(allowed, "origin=A&destination=B"))
			if resp.StatusCode != tc.status {
				t.Fatalf("status %d, want %d", resp.StatusCode, tc.status)
			}
			if body := decodeError(t, resp); body.Message != tc.msg {
				t.Fatalf("message %q, want %q", body.Message, tc.msg)
			}
		})
	}
}

func TestHandleUnknownRouteStatus(t *testing.T) {
	h := newChart(&fakeQuerier{}, WithDefaultErrorStatus(400))
	resp := h.Handle(context.Background(), formRequest(allowed, "id=nowhere"))
	if resp.StatusCode != 400 {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if body := decodeError(t, resp); body.Message != "unknown route (nowhere)" {
		t.Fatalf("body %+v", body)
	}
}
