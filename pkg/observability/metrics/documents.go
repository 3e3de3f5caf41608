package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var (
	// Labels: collection, operation, outcome
	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docmanager_operation_duration_seconds",
			Help:    "Document manager operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection", "operation", "outcome"},
	)

	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docmanager_operations_total",
			Help: "Total number of document manager operations",
		},
		[]string{"collection", "operation", "outcome"},
	)

	documentsReturned = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docmanager_documents_returned",
			Help:    "Documents or groups returned per read operation",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		},
		[]string{"collection", "operation"},
	)

	// Labels: key, outcome
	eventsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docmanager_events_dispatched_total",
			Help: "Total number of dispatched document events",
		},
		[]string{"key", "outcome"},
	)
)

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}

// RecordOperation records the duration and outcome of one manager operation.
func RecordOperation(collection, operation string, duration time.Duration, err error) {
	o := outcome(err)
	operationDuration.WithLabelValues(collection, operation, o).Observe(duration.Seconds())
	operationsTotal.WithLabelValues(collection, operation, o).Inc()
}

// RecordDocuments records how many items a read operation returned.
func RecordDocuments(collection, operation string, n int) {
	documentsReturned.WithLabelValues(collection, operation).Observe(float64(n))
}

// RecordEvent records one dispatched event.
func RecordEvent(key string, err error) {
	eventsDispatched.WithLabelValues(key, outcome(err)).Inc()
}
