// Package tracing provides OpenTelemetry tracing for document store and event
// bus operations.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanOperation represents a traced operation type.
type SpanOperation string

const (
	// SpanOperationDBQuery is a find or paginated listing.
	SpanOperationDBQuery SpanOperation = "db.query"
	// SpanOperationDBCount counts matching documents.
	SpanOperationDBCount SpanOperation = "db.count"
	// SpanOperationDBAggregate runs an aggregation pipeline.
	SpanOperationDBAggregate SpanOperation = "db.aggregate"
	// SpanOperationDBWrite flushes staged inserts, replacements and deletes.
	SpanOperationDBWrite SpanOperation = "db.write"

	// SpanOperationMsgPublish publishes an event to a broker.
	SpanOperationMsgPublish SpanOperation = "messaging.publish"
	// SpanOperationMsgDispatch delivers an event to local listeners.
	SpanOperationMsgDispatch SpanOperation = "messaging.dispatch"
)

const (
	storeScope     = "github.com/nimburion/docmanager/store"
	messagingScope = "github.com/nimburion/docmanager/eventbus"
)

// spanConfig collects what the options contribute. target names the
// collection or destination and is appended to the span name.
type spanConfig struct {
	target string
	attrs  []attribute.KeyValue
}

func (c *spanConfig) set(kv attribute.KeyValue) { c.attrs = append(c.attrs, kv) }

func startSpan(ctx context.Context, scope string, kind trace.SpanKind, operation SpanOperation, opKey attribute.Key, cfg *spanConfig) (context.Context, trace.Span) {
	name := string(operation)
	if cfg.target != "" {
		name += " " + cfg.target
	}
	attrs := append([]attribute.KeyValue{opKey.String(string(operation))}, cfg.attrs...)
	return otel.Tracer(scope).Start(ctx, name, trace.WithSpanKind(kind), trace.WithAttributes(attrs...))
}

// DatabaseSpanOption configures a document store span.
type DatabaseSpanOption func(*spanConfig)

// StartDatabaseSpan starts a client span named after the operation and,
// when set, the collection.
func StartDatabaseSpan(ctx context.Context, operation SpanOperation, opts ...DatabaseSpanOption) (context.Context, trace.Span) {
	cfg := &spanConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return startSpan(ctx, storeScope, trace.SpanKindClient, operation, "db.operation", cfg)
}

// WithDBCollection sets the collection the operation targets.
func WithDBCollection(collection string) DatabaseSpanOption {
	return func(c *spanConfig) {
		c.target = collection
		c.set(attribute.String("db.collection", collection))
	}
}

// WithDBSystem sets the store system, "mongodb" or "memory".
func WithDBSystem(system string) DatabaseSpanOption {
	return func(c *spanConfig) { c.set(attribute.String("db.system", system)) }
}

// WithDocumentType sets the managed document type.
func WithDocumentType(name string) DatabaseSpanOption {
	return func(c *spanConfig) { c.set(attribute.String("db.document", name)) }
}

// WithDBStatement sets a rendering of the filter or pipeline.
func WithDBStatement(statement string) DatabaseSpanOption {
	return func(c *spanConfig) { c.set(attribute.String("db.statement", statement)) }
}

// WithDBName sets the database name.
func WithDBName(name string) DatabaseSpanOption {
	return func(c *spanConfig) { c.set(attribute.String("db.name", name)) }
}

// MessagingSpanOption configures an event span.
type MessagingSpanOption func(*spanConfig)

// StartMessagingSpan starts a span for an event. Publishing is a producer
// span; local dispatch is internal.
func StartMessagingSpan(ctx context.Context, operation SpanOperation, opts ...MessagingSpanOption) (context.Context, trace.Span) {
	cfg := &spanConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	kind := trace.SpanKindInternal
	if operation == SpanOperationMsgPublish {
		kind = trace.SpanKindProducer
	}
	return startSpan(ctx, messagingScope, kind, operation, "messaging.operation", cfg)
}

// WithMessagingSystem sets the broker, "kafka", "rabbitmq" or "local".
func WithMessagingSystem(system string) MessagingSpanOption {
	return func(c *spanConfig) { c.set(attribute.String("messaging.system", system)) }
}

// WithMessagingDestination sets the event key, topic or routing key.
func WithMessagingDestination(destination string) MessagingSpanOption {
	return func(c *spanConfig) {
		c.target = destination
		c.set(attribute.String("messaging.destination", destination))
	}
}

// WithMessagingMessageID sets the event ID.
func WithMessagingMessageID(id string) MessagingSpanOption {
	return func(c *spanConfig) { c.set(attribute.String("messaging.message_id", id)) }
}

// WithMessagingPayloadSize sets the encoded event size in bytes.
func WithMessagingPayloadSize(size int) MessagingSpanOption {
	return func(c *spanConfig) { c.set(attribute.Int("messaging.payload_size_bytes", size)) }
}

// RecordError records err on span and marks it failed. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// RecordRows records how many documents an operation returned or wrote.
func RecordRows(span trace.Span, n int) {
	span.SetAttributes(attribute.Int("db.rows", n))
}

// RecordSuccess sets the span status to OK.
func RecordSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// End sets the span status from err and ends span.
func End(span trace.Span, err error) {
	if err == nil {
		RecordSuccess(span)
	}
	RecordError(span, err)
	span.End()
}
