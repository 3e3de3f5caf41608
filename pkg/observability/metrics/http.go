package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var httpLabels = []string{"method", "route", "status"}

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, httpLabels)

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, httpLabels)

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "HTTP requests currently being served",
	})
)

// TrackRequest counts a request as in flight until the returned func is
// called with its outcome. route must be a route template so label
// cardinality stays bounded.
func TrackRequest() (done func(method, route string, status int)) {
	start := time.Now()
	httpRequestsInFlight.Inc()
	return func(method, route string, status int) {
		httpRequestsInFlight.Dec()
		RecordHTTPMetrics(method, route, status, time.Since(start))
	}
}

// RecordHTTPMetrics records one served request.
func RecordHTTPMetrics(method, route string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	httpRequestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	httpRequestsTotal.WithLabelValues(method, route, code).Inc()
}
