package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg)

	r.RecordRequest("commute", "ok")
	r.RecordRequest("commute", "ok")
	r.RecordRequest("stats", "error")
	r.RecordError("UnknownRoute")
	r.RecordLatency("query", 25*time.Millisecond)
	r.RecordRows("commute", 12)

	if got := testutil.ToFloat64(r.requests.WithLabelValues("commute", "ok")); got != 2 {
		t.Fatalf("commute ok requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.errors.WithLabelValues("UnknownRoute")); got != 1 {
		t.Fatalf("errors = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(r.latency); n != 1 {
		t.Fatalf("latency series = %d, want 1", n)
	}
	if n, err := testutil.GatherAndCount(reg, "commute_rows_returned"); err != nil || n != 1 {
		t.Fatalf("rows series = %d (%v), want 1", n, err)
	}
}
