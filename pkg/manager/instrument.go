package manager

import (
	"context"
	"time"

	"github.com/nimburion/docmanager/pkg/observability/logger"
	"github.com/nimburion/docmanager/pkg/observability/metrics"
	"github.com/nimburion/docmanager/pkg/observability/tracing"
)

// Option configures a Manager.
type Option func(*settings)

type settings struct {
	logger  logger.Logger
	system  string
	metrics bool
}

func defaultSettings() settings {
	return settings{logger: logger.Nop(), system: "unknown", metrics: true}
}

// WithLogger sets the logger used for operation logs.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStoreSystem names the backing store ("mongodb", "memory") in spans.
func WithStoreSystem(name string) Option {
	return func(s *settings) { s.system = name }
}

// WithoutMetrics disables Prometheus recording.
func WithoutMetrics() Option {
	return func(s *settings) { s.metrics = false }
}

// observe wraps one store-facing operation in a span, metrics and a log
// line. fn returns the number of items produced, or -1 when not meaningful.
func (m *Manager[T]) observe(ctx context.Context, op string, spanOp tracing.SpanOperation, fn func(context.Context) (int, error)) error {
	collection := m.cfg.Collection()
	start := time.Now()
	ctx, span := tracing.StartDatabaseSpan(ctx, spanOp,
		tracing.WithDBCollection(collection),
		tracing.WithDBSystem(m.settings.system),
		tracing.WithDocumentType(m.cfg.Document()),
	)

	n, err := fn(ctx)
	if n >= 0 {
		tracing.RecordRows(span, n)
	}
	tracing.End(span, err)

	elapsed := time.Since(start)
	if m.settings.metrics {
		metrics.RecordOperation(collection, op, elapsed, err)
		if err == nil && n >= 0 {
			metrics.RecordDocuments(collection, op, n)
		}
	}

	log := m.settings.logger.WithContext(ctx)
	if err != nil {
		log.Error("document operation failed",
			"collection", collection,
			"operation", op,
			"duration", elapsed,
			"error", err,
		)
		return err
	}
	log.Debug("document operation",
		"collection", collection,
		"operation", op,
		"duration", elapsed,
		"items", n,
	)
	return nil
}
