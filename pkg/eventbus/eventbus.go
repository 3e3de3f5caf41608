// Package eventbus carries document events from the manager to in-process
// listeners and to message brokers (Kafka, RabbitMQ).
package eventbus

import (
	"context"
	"time"
)

// Producer writes encoded events to a broker topic. For RabbitMQ the topic
// is the routing key on the configured exchange.
type Producer interface {
	Publish(ctx context.Context, topic string, message *Message) error
	PublishBatch(ctx context.Context, topic string, messages []*Message) error
	Close() error
}

// Publisher is a Producer that can report broker connectivity.
type Publisher interface {
	Producer
	HealthCheck(ctx context.Context) error
}

// Message is an encoded event as handed to a broker. ID is the event ID
// and Key, the event key, doubles as the Kafka partition key.
type Message struct {
	ID          string
	Key         string
	Value       []byte
	ContentType string
	Headers     map[string]string
	Timestamp   time.Time
}
