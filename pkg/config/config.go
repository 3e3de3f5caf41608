// Package config loads the docmanager runtime configuration from defaults, an
// optional YAML file, an optional secrets file, environment variables and
// command line flags, in increasing order of precedence.
package config

import "time"

// Store type constants
const (
	StoreTypeMongoDB = "mongodb"
	StoreTypeMemory  = "memory"
)

// Event bus type constants
const (
	EventBusTypeNone     = "none"
	EventBusTypeKafka    = "kafka"
	EventBusTypeRabbitMQ = "rabbitmq"
)

// Config is the root configuration.
type Config struct {
	Service       ServiceConfig       `mapstructure:"service"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	Store         StoreConfig         `mapstructure:"store"`
	EventBus      EventBusConfig      `mapstructure:"eventbus"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Collections   []CollectionConfig  `mapstructure:"collections"`
}

// ServiceConfig configures service identity metadata.
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
}

// HTTPConfig configures the HTTP API server
type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxItemsPerPage caps the page size a client may request. Zero disables the cap.
	MaxItemsPerPage int `mapstructure:"max_items_per_page"`
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	Type             string        `mapstructure:"type"` // mongodb, memory
	URL              string        `mapstructure:"url"`
	Database         string        `mapstructure:"database"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	MaxPoolSize      uint64        `mapstructure:"max_pool_size"`
	// Fixtures is a YAML or JSON file of documents keyed by collection,
	// loaded into the memory store at startup.
	Fixtures string `mapstructure:"fixtures"`
}

// EventBusConfig configures where document events are published.
type EventBusConfig struct {
	Type             string        `mapstructure:"type"` // none, kafka, rabbitmq
	Brokers          []string      `mapstructure:"brokers"`
	URL              string        `mapstructure:"url"`
	Exchange         string        `mapstructure:"exchange"`
	ExchangeType     string        `mapstructure:"exchange_type"`
	TopicPrefix      string        `mapstructure:"topic_prefix"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	MaxRetries       int           `mapstructure:"max_retries"`
	// BreakerFailures consecutive publish failures open the breaker for
	// BreakerCooldown. Zero disables the breaker.
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
	// Confirm makes RabbitMQ publishes wait for the broker ack.
	Confirm bool `mapstructure:"confirm"`
}

// ObservabilityConfig configures logging, metrics, and tracing
type ObservabilityConfig struct {
	LogLevel          string             `mapstructure:"log_level"`
	LogFormat         string             `mapstructure:"log_format"` // json, text
	AsyncLogging      AsyncLoggingConfig `mapstructure:"async_logging"`
	MetricsEnabled    bool               `mapstructure:"metrics_enabled"`
	TracingEnabled    bool               `mapstructure:"tracing_enabled"`
	TracingEndpoint   string             `mapstructure:"tracing_endpoint"`
	TracingSampleRate float64            `mapstructure:"tracing_sample_rate"`
}

// AsyncLoggingConfig configures optional asynchronous logger dispatching.
type AsyncLoggingConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	QueueSize    int  `mapstructure:"queue_size"`
	WorkerCount  int  `mapstructure:"worker_count"`
	DropWhenFull bool `mapstructure:"drop_when_full"`
}

// DefaultConfig returns a configuration that runs against the memory store
// with no event bus.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "docmanager",
			Environment: "development",
		},
		HTTP: HTTPConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxItemsPerPage: 100,
		},
		Store: StoreConfig{
			Type:             StoreTypeMemory,
			Database:         "docmanager",
			ConnectTimeout:   10 * time.Second,
			OperationTimeout: 5 * time.Second,
			MaxPoolSize:      100,
		},
		EventBus: EventBusConfig{
			Type:             EventBusTypeNone,
			Exchange:         "docmanager.events",
			ExchangeType:     "topic",
			OperationTimeout: 10 * time.Second,
			MaxRetries:       3,
			BreakerFailures:  5,
			BreakerCooldown:  30 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogFormat:         "json",
			AsyncLogging:      AsyncLoggingConfig{QueueSize: 1024, WorkerCount: 1},
			MetricsEnabled:    true,
			TracingEndpoint:   "localhost:4317",
			TracingSampleRate: 0.1,
		},
	}
}

// Collection returns the collection configured under name.
func (c *Config) Collection(name string) (CollectionConfig, bool) {
	for _, col := range c.Collections {
		if col.Name == name {
			return col, true
		}
	}
	return CollectionConfig{}, false
}
