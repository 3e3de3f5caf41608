package metrics

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordHTTPMetrics(t *testing.T) {
	registry := NewRegistry()

	tests := []struct {
		method   string
		route    string
		status   int
		duration time.Duration
	}{
		{http.MethodGet, "/collections/:name", 200, 100 * time.Millisecond},
		{http.MethodGet, "/collections/:name/documents/:id", 404, 50 * time.Millisecond},
		{http.MethodGet, "/collections/:name/count", 400, 10 * time.Millisecond},
	}
	for _, tt := range tests {
		RecordHTTPMetrics(tt.method, tt.route, tt.status, tt.duration)
	}

	body := scrape(t, registry)
	for _, labels := range []string{
		`method="GET",route="/collections/:name",status="200"`,
		`method="GET",route="/collections/:name/documents/:id",status="404"`,
		`method="GET",route="/collections/:name/count",status="400"`,
	} {
		if !strings.Contains(body, labels) {
			t.Errorf("expected labels %s not found in metrics output", labels)
		}
	}
	if strings.Count(body, "http_request_duration_seconds_bucket") < 5 {
		t.Error("expected histogram buckets in output")
	}
}

func TestTrackRequest(t *testing.T) {
	before := testutil.ToFloat64(httpRequestsInFlight)
	beforeCount := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/collections/:name/groups/:field", "200"))

	first := TrackRequest()
	second := TrackRequest()
	if got := testutil.ToFloat64(httpRequestsInFlight) - before; got != 2 {
		t.Errorf("expected 2 in flight, got %v", got)
	}

	first(http.MethodGet, "/collections/:name/groups/:field", http.StatusOK)
	second(http.MethodGet, "/collections/:name/groups/:field", http.StatusOK)
	if got := testutil.ToFloat64(httpRequestsInFlight); got != before {
		t.Errorf("expected gauge back at %v, got %v", before, got)
	}
	got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/collections/:name/groups/:field", "200")) - beforeCount
	if got != 2 {
		t.Errorf("expected 2 completed requests, got %v", got)
	}
}
