package config

import (
	"net/url"
	"slices"
	"strings"

	"github.com/nimburion/docmanager/pkg/observability/logger"
)

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs errorList

	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs.add("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.HTTP.MaxItemsPerPage < 0 {
		errs.add("http.max_items_per_page must not be negative")
	}

	c.Store.Type = strings.ToLower(strings.TrimSpace(c.Store.Type))
	switch c.Store.Type {
	case StoreTypeMongoDB:
		if c.Store.URL == "" {
			errs.add("store.url is required for MongoDB")
		}
		if c.Store.Database == "" {
			errs.add("store.database is required for MongoDB")
		}
		if c.Store.Fixtures != "" {
			errs.add("store.fixtures is only supported by the memory store")
		}
	case StoreTypeMemory:
	default:
		errs.add("invalid store.type: %s (must be one of: mongodb, memory)", c.Store.Type)
	}

	c.EventBus.Type = strings.ToLower(strings.TrimSpace(c.EventBus.Type))
	switch c.EventBus.Type {
	case "", EventBusTypeNone:
		c.EventBus.Type = EventBusTypeNone
	case EventBusTypeKafka:
		if len(c.EventBus.Brokers) == 0 {
			errs.add("eventbus.brokers is required for Kafka")
		}
	case EventBusTypeRabbitMQ:
		if c.EventBus.URL == "" {
			errs.add("eventbus.url is required for RabbitMQ")
		}
	default:
		errs.add("invalid eventbus.type: %s (must be one of: none, kafka, rabbitmq)", c.EventBus.Type)
	}
	if c.EventBus.BreakerFailures < 0 {
		errs.add("eventbus.breaker_failures must not be negative")
	}
	if c.EventBus.BreakerFailures > 0 && c.EventBus.BreakerCooldown <= 0 {
		errs.add("eventbus.breaker_cooldown must be positive when the breaker is enabled")
	}

	if _, err := logger.ParseLogLevel(c.Observability.LogLevel); err != nil {
		errs.add("observability.log_level: %v", err)
	}
	if _, err := logger.ParseLogFormat(c.Observability.LogFormat); err != nil {
		errs.add("observability.log_format: %v", err)
	}
	if r := c.Observability.TracingSampleRate; r < 0 || r > 1 {
		errs.add("observability.tracing_sample_rate must be between 0 and 1, got %v", r)
	}
	if c.Observability.TracingEnabled && c.Observability.TracingEndpoint == "" {
		errs.add("observability.tracing_endpoint is required when tracing is enabled")
	}

	var names []string
	for i, col := range c.Collections {
		if strings.TrimSpace(col.Name) == "" {
			errs.add("collections[%d].name is required", i)
			continue
		}
		if slices.Contains(names, col.Name) {
			errs.add("collections[%d]: duplicate collection %q", i, col.Name)
		}
		names = append(names, col.Name)
		if _, err := col.ManagerConfig(); err != nil {
			errs.add("collections[%d]: %v", i, err)
		}
	}

	return errs.err()
}

// Redacted returns a copy with credentials removed from connection URLs, for logging.
func (c Config) Redacted() Config {
	c.Store.URL = redactURL(c.Store.URL)
	c.EventBus.URL = redactURL(c.EventBus.URL)
	return c
}

func redactURL(raw string) string {
	if raw == "" {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}
	return u.Redacted()
}
