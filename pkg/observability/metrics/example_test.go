package metrics_test

import (
	"fmt"
	"net/http"
	"time"

	"github.com/nimburion/docmanager/pkg/observability/metrics"
)

func ExampleRecordOperation() {
	registry := metrics.NewRegistry()
	mux := http.NewServeMux()
	mux.Handle("/metrics", registry.Handler())

	start := time.Now()
	// run a count against the store here
	metrics.RecordOperation("organizations", "count", time.Since(start), nil)

	fmt.Println("operation recorded")
	// Output: operation recorded
}
