// Package rabbitmq publishes document events to a RabbitMQ exchange.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nimburion/docmanager/pkg/eventbus"
	"github.com/nimburion/docmanager/pkg/observability/logger"
)

const (
	DefaultExchange         = "docmanager.events"
	DefaultOperationTimeout = 30 * time.Second
)

var (
	ErrClosed = errors.New("rabbitmq publisher is closed")
	// ErrNacked is returned when the broker refuses a confirmed publish.
	ErrNacked = errors.New("rabbitmq broker nacked the message")
)

// Config holds RabbitMQ publisher settings. With Confirm set the channel
// runs in confirm mode and Publish waits for the broker ack.
type Config struct {
	URL              string
	Exchange         string
	ExchangeType     string
	OperationTimeout time.Duration
	Confirm          bool
}

func (c *Config) applyDefaults() error {
	if c.URL == "" {
		return errors.New("rabbitmq URL is required")
	}
	if c.Exchange == "" {
		c.Exchange = DefaultExchange
	}
	if c.ExchangeType == "" {
		c.ExchangeType = amqp.ExchangeTopic
	}
	if c.OperationTimeout <= 0 {
		c.OperationTimeout = DefaultOperationTimeout
	}
	return nil
}

// Publisher implements eventbus.Publisher on a durable exchange, routing
// each message by its event key.
type Publisher struct {
	cfg    Config
	logger logger.Logger

	// mu guards the channel: amqp channels are not safe for concurrent
	// publishes in confirm mode.
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

// NewPublisher dials the broker and declares the exchange.
func NewPublisher(cfg Config, log logger.Logger) (*Publisher, error) {
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := openChannel(conn, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	log.Info("rabbitmq publisher ready",
		"exchange", cfg.Exchange,
		"exchange_type", cfg.ExchangeType,
		"confirm", cfg.Confirm,
	)
	return &Publisher{cfg: cfg, logger: log, conn: conn, ch: ch}, nil
}

func openChannel(conn *amqp.Connection, cfg Config) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, cfg.ExchangeType, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", cfg.Exchange, err)
	}
	if cfg.Confirm {
		if err := ch.Confirm(false); err != nil {
			_ = ch.Close()
			return nil, fmt.Errorf("enable publisher confirms: %w", err)
		}
	}
	return ch, nil
}

// Publish sends message with routingKey and, in confirm mode, waits for the ack.
func (p *Publisher) Publish(ctx context.Context, routingKey string, message *eventbus.Message) error {
	if message == nil {
		return errors.New("message is required")
	}
	if routingKey == "" {
		return errors.New("routing key is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.OperationTimeout)
	defer cancel()

	if err := p.send(ctx, routingKey, toPublishing(message)); err != nil {
		p.logger.Error("rabbitmq publish failed", "routing_key", routingKey, "message_id", message.ID, "error", err)
		return err
	}
	p.logger.Debug("rabbitmq message published", "routing_key", routingKey, "message_id", message.ID)
	return nil
}

func (p *Publisher) send(ctx context.Context, routingKey string, msg amqp.Publishing) error {
	if !p.cfg.Confirm {
		if err := p.ch.PublishWithContext(ctx, p.cfg.Exchange, routingKey, false, false, msg); err != nil {
			return fmt.Errorf("publish to %q: %w", p.cfg.Exchange, err)
		}
		return nil
	}

	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.cfg.Exchange, routingKey, false, false, msg)
	if err != nil {
		return fmt.Errorf("publish to %q: %w", p.cfg.Exchange, err)
	}
	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("wait for confirm: %w", err)
	}
	if !acked {
		return ErrNacked
	}
	return nil
}

// PublishBatch stops at the first failing message.
func (p *Publisher) PublishBatch(ctx context.Context, routingKey string, messages []*eventbus.Message) error {
	for i, msg := range messages {
		if err := p.Publish(ctx, routingKey, msg); err != nil {
			return fmt.Errorf("message %d of %d: %w", i+1, len(messages), err)
		}
	}
	return nil
}

// HealthCheck opens and closes a throwaway channel.
func (p *Publisher) HealthCheck(ctx context.Context) error {
	p.mu.Lock()
	closed, conn := p.closed, p.conn
	p.mu.Unlock()

	switch {
	case closed:
		return ErrClosed
	case conn == nil || conn.IsClosed():
		return errors.New("rabbitmq connection is closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq health check: %w", err)
	}
	return ch.Close()
}

// Close releases the channel and the connection. It is idempotent.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

func toPublishing(message *eventbus.Message) amqp.Publishing {
	var headers amqp.Table
	if len(message.Headers) > 0 {
		headers = make(amqp.Table, len(message.Headers))
		for k, v := range message.Headers {
			headers[k] = v
		}
	}
	return amqp.Publishing{
		MessageId:    message.ID,
		ContentType:  message.ContentType,
		Body:         message.Value,
		Timestamp:    message.Timestamp,
		Headers:      headers,
		DeliveryMode: amqp.Persistent,
	}
}
