// Package kafka publishes document events to Apache Kafka.
package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nimburion/docmanager/pkg/eventbus"
	"github.com/nimburion/docmanager/pkg/observability/logger"
)

// Publisher implements eventbus.Publisher over a single kafka.Writer. The
// event key becomes the Kafka message key, so events of one key stay ordered
// within a partition.
type Publisher struct {
	writer messageWriter
	logger logger.Logger
	config Config
	mu     sync.RWMutex
	closed bool
}

// messageWriter is the part of kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds the configuration for the Kafka publisher.
type Config struct {
	// Brokers is the list of Kafka broker addresses (e.g., ["localhost:9092"])
	Brokers []string

	// OperationTimeout bounds each publish
	OperationTimeout time.Duration

	// MaxRetries is the maximum number of write attempts
	MaxRetries int
}

// NewPublisher creates a Kafka publisher. No connection is made until the
// first publish or health check.
func NewPublisher(cfg Config, log logger.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required")
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.MaxRetries,
		WriteTimeout: cfg.OperationTimeout,
		ReadTimeout:  cfg.OperationTimeout,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	log.Info("kafka publisher initialized",
		"brokers", cfg.Brokers,
		"operation_timeout", cfg.OperationTimeout,
	)

	return &Publisher{writer: writer, logger: log, config: cfg}, nil
}

func (p *Publisher) checkOpen() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("kafka publisher is closed")
	}
	return nil
}

// Publish sends a single message to topic.
func (p *Publisher) Publish(ctx context.Context, topic string, message *eventbus.Message) error {
	if message == nil {
		return fmt.Errorf("message is required")
	}
	return p.PublishBatch(ctx, topic, []*eventbus.Message{message})
}

// PublishBatch sends messages to topic in one write.
func (p *Publisher) PublishBatch(ctx context.Context, topic string, messages []*eventbus.Message) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if len(messages) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.OperationTimeout)
	defer cancel()

	kafkaMessages := make([]kafka.Message, len(messages))
	for i, msg := range messages {
		kafkaMessages[i] = toKafkaMessage(topic, msg)
	}

	if err := p.writer.WriteMessages(ctx, kafkaMessages...); err != nil {
		p.logger.Error("failed to publish to kafka",
			"topic", topic,
			"batch_size", len(messages),
			"error", err,
		)
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}

	p.logger.Debug("published to kafka", "topic", topic, "batch_size", len(messages))
	return nil
}

// HealthCheck dials the first broker and fetches broker metadata.
func (p *Publisher) HealthCheck(ctx context.Context) error {
	if err := p.checkOpen(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", p.config.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to kafka broker: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Brokers(); err != nil {
		return fmt.Errorf("failed to fetch broker metadata: %w", err)
	}
	return nil
}

// Close flushes and closes the writer. Closing twice is a no-op.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	p.logger.Info("kafka publisher closed")
	return nil
}

func toKafkaMessage(topic string, msg *eventbus.Message) kafka.Message {
	headers := convertHeaders(msg.Headers)
	if msg.ContentType != "" {
		headers = append(headers, kafka.Header{Key: "content-type", Value: []byte(msg.ContentType)})
	}
	if msg.ID != "" {
		headers = append(headers, kafka.Header{Key: "message-id", Value: []byte(msg.ID)})
	}
	return kafka.Message{
		Topic:   topic,
		Key:     []byte(msg.Key),
		Value:   msg.Value,
		Headers: headers,
		Time:    msg.Timestamp,
	}
}

func convertHeaders(headers map[string]string) []kafka.Header {
	if len(headers) == 0 {
		return nil
	}
	kafkaHeaders := make([]kafka.Header, 0, len(headers))
	for key, value := range headers {
		kafkaHeaders = append(kafkaHeaders, kafka.Header{Key: key, Value: []byte(value)})
	}
	return kafkaHeaders
}
