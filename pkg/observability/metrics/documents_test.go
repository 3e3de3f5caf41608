package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordOperation(t *testing.T) {
	success := operationsTotal.WithLabelValues("metrics_test", "count", OutcomeSuccess)
	failure := operationsTotal.WithLabelValues("metrics_test", "count", OutcomeError)
	okBefore := testutil.ToFloat64(success)
	errBefore := testutil.ToFloat64(failure)

	RecordOperation("metrics_test", "count", 5*time.Millisecond, nil)
	RecordOperation("metrics_test", "count", 5*time.Millisecond, nil)
	RecordOperation("metrics_test", "count", 5*time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(success) - okBefore; got != 2 {
		t.Errorf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(failure) - errBefore; got != 1 {
		t.Errorf("expected 1 failure, got %v", got)
	}
}

func TestRecordEvent(t *testing.T) {
	c := eventsDispatched.WithLabelValues("metrics_test.created", OutcomeSuccess)
	before := testutil.ToFloat64(c)

	RecordEvent("metrics_test.created", nil)

	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("expected 1 event, got %v", got)
	}
}

func TestRecordDocuments(t *testing.T) {
	RecordDocuments("metrics_test", "documents", 7)
	if n := testutil.CollectAndCount(documentsReturned, "docmanager_documents_returned"); n == 0 {
		t.Error("expected documents histogram to be collected")
	}
}
