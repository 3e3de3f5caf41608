package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultEnvPrefix prefixes every environment variable the loader reads.
const DefaultEnvPrefix = "DOCMANAGER"

// Loader defines the interface for loading configuration
type Loader interface {
	Load() (*Config, error)
}

// ViperLoader implements Loader using Viper for configuration management
type ViperLoader struct {
	configFile string
	envPrefix  string
	flags      *pflag.FlagSet
}

// NewViperLoader creates a new ViperLoader. configFile may be empty; an empty
// envPrefix means DefaultEnvPrefix.
func NewViperLoader(configFile, envPrefix string) *ViperLoader {
	if strings.TrimSpace(envPrefix) == "" {
		envPrefix = DefaultEnvPrefix
	}
	return &ViperLoader{configFile: configFile, envPrefix: envPrefix}
}

// WithFlags binds the well-known command line flags present in flags.
func (l *ViperLoader) WithFlags(flags *pflag.FlagSet) *ViperLoader {
	l.flags = flags
	return l
}

// ConfigFile returns the configured file path, or "".
func (l *ViperLoader) ConfigFile() string {
	return l.configFile
}

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"http-port":      "http.port",
	"store-type":     "store.type",
	"store-url":      "store.url",
	"store-database": "store.database",
	"fixtures":       "store.fixtures",
	"eventbus-type":  "eventbus.type",
	"log-level":      "observability.log_level",
	"log-format":     "observability.log_format",
}

// Load loads configuration with precedence: flags > ENV > secrets file >
// config file > defaults
func (l *ViperLoader) Load() (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}

	secretsFile, err := l.discoverSecretsFile()
	if err != nil {
		return nil, err
	}
	if secretsFile != "" {
		secrets := viper.New()
		secrets.SetConfigFile(secretsFile)
		if err := secrets.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read secrets file %s: %w", secretsFile, err)
		}
		if err := v.MergeConfigMap(secrets.AllSettings()); err != nil {
			return nil, fmt.Errorf("failed to merge secrets: %w", err)
		}
	}

	l.bindEnvVars(v)
	if err := l.bindFlags(v); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// bindEnvVars explicitly binds environment variables for nested structs
func (l *ViperLoader) bindEnvVars(v *viper.Viper) {
	bindings := map[string]string{
		"service.name":        "SERVICE_NAME",
		"service.environment": "ENVIRONMENT",
		"service.version":     "SERVICE_VERSION",

		"http.port":               "HTTP_PORT",
		"http.read_timeout":       "HTTP_READ_TIMEOUT",
		"http.write_timeout":      "HTTP_WRITE_TIMEOUT",
		"http.idle_timeout":       "HTTP_IDLE_TIMEOUT",
		"http.shutdown_timeout":   "HTTP_SHUTDOWN_TIMEOUT",
		"http.max_items_per_page": "HTTP_MAX_ITEMS_PER_PAGE",

		"store.type":              "STORE_TYPE",
		"store.url":               "STORE_URL",
		"store.database":          "STORE_DATABASE",
		"store.connect_timeout":   "STORE_CONNECT_TIMEOUT",
		"store.operation_timeout": "STORE_OPERATION_TIMEOUT",
		"store.max_pool_size":     "STORE_MAX_POOL_SIZE",
		"store.fixtures":          "STORE_FIXTURES",

		"eventbus.type":              "EVENTBUS_TYPE",
		"eventbus.brokers":           "EVENTBUS_BROKERS",
		"eventbus.url":               "EVENTBUS_URL",
		"eventbus.exchange":          "EVENTBUS_EXCHANGE",
		"eventbus.exchange_type":     "EVENTBUS_EXCHANGE_TYPE",
		"eventbus.confirm":           "EVENTBUS_CONFIRM",
		"eventbus.topic_prefix":      "EVENTBUS_TOPIC_PREFIX",
		"eventbus.operation_timeout": "EVENTBUS_OPERATION_TIMEOUT",
		"eventbus.max_retries":       "EVENTBUS_MAX_RETRIES",
		"eventbus.breaker_failures":  "EVENTBUS_BREAKER_FAILURES",
		"eventbus.breaker_cooldown":  "EVENTBUS_BREAKER_COOLDOWN",

		"observability.log_level":                    "LOG_LEVEL",
		"observability.log_format":                   "LOG_FORMAT",
		"observability.async_logging.enabled":        "LOG_ASYNC_ENABLED",
		"observability.async_logging.queue_size":     "LOG_ASYNC_QUEUE_SIZE",
		"observability.async_logging.worker_count":   "LOG_ASYNC_WORKER_COUNT",
		"observability.async_logging.drop_when_full": "LOG_ASYNC_DROP_WHEN_FULL",
		"observability.metrics_enabled":              "METRICS_ENABLED",
		"observability.tracing_enabled":              "TRACING_ENABLED",
		"observability.tracing_endpoint":             "TRACING_ENDPOINT",
		"observability.tracing_sample_rate":          "TRACING_SAMPLE_RATE",
	}
	for key, suffix := range bindings {
		_ = v.BindEnv(key, l.prefixedEnv(suffix))
	}
}

func (l *ViperLoader) bindFlags(v *viper.Viper) error {
	if l.flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		flag := l.flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

func (l *ViperLoader) prefixedEnv(suffix string) string {
	return fmt.Sprintf("%s_%s", strings.ToUpper(strings.TrimSpace(l.envPrefix)), suffix)
}

// discoverSecretsFile finds the secrets file using these rules:
// 1. <PREFIX>_SECRETS_FILE, which must name a readable file
// 2. secrets.{ext} next to the config file
func (l *ViperLoader) discoverSecretsFile() (string, error) {
	env := l.prefixedEnv("SECRETS_FILE")
	if raw, ok := os.LookupEnv(env); ok {
		path := strings.TrimSpace(raw)
		if path == "" {
			return "", fmt.Errorf("%s is set but empty", env)
		}
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("%s points to an inaccessible file %s: %w", env, path, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("%s must point to a file, got directory %s", env, path)
		}
		return path, nil
	}

	if l.configFile != "" {
		path := filepath.Join(filepath.Dir(l.configFile), "secrets"+filepath.Ext(l.configFile))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", nil
}

// setDefaults sets default values in Viper from the default config
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("service.name", cfg.Service.Name)
	v.SetDefault("service.environment", cfg.Service.Environment)
	v.SetDefault("service.version", cfg.Service.Version)

	v.SetDefault("http.port", cfg.HTTP.Port)
	v.SetDefault("http.read_timeout", cfg.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", cfg.HTTP.WriteTimeout)
	v.SetDefault("http.idle_timeout", cfg.HTTP.IdleTimeout)
	v.SetDefault("http.shutdown_timeout", cfg.HTTP.ShutdownTimeout)
	v.SetDefault("http.max_items_per_page", cfg.HTTP.MaxItemsPerPage)

	v.SetDefault("store.type", cfg.Store.Type)
	v.SetDefault("store.url", cfg.Store.URL)
	v.SetDefault("store.database", cfg.Store.Database)
	v.SetDefault("store.connect_timeout", cfg.Store.ConnectTimeout)
	v.SetDefault("store.operation_timeout", cfg.Store.OperationTimeout)
	v.SetDefault("store.max_pool_size", cfg.Store.MaxPoolSize)
	v.SetDefault("store.fixtures", cfg.Store.Fixtures)

	v.SetDefault("eventbus.type", cfg.EventBus.Type)
	v.SetDefault("eventbus.brokers", cfg.EventBus.Brokers)
	v.SetDefault("eventbus.url", cfg.EventBus.URL)
	v.SetDefault("eventbus.exchange", cfg.EventBus.Exchange)
	v.SetDefault("eventbus.exchange_type", cfg.EventBus.ExchangeType)
	v.SetDefault("eventbus.confirm", cfg.EventBus.Confirm)
	v.SetDefault("eventbus.topic_prefix", cfg.EventBus.TopicPrefix)
	v.SetDefault("eventbus.operation_timeout", cfg.EventBus.OperationTimeout)
	v.SetDefault("eventbus.max_retries", cfg.EventBus.MaxRetries)
	v.SetDefault("eventbus.breaker_failures", cfg.EventBus.BreakerFailures)
	v.SetDefault("eventbus.breaker_cooldown", cfg.EventBus.BreakerCooldown)

	v.SetDefault("observability.log_level", cfg.Observability.LogLevel)
	v.SetDefault("observability.log_format", cfg.Observability.LogFormat)
	v.SetDefault("observability.async_logging.enabled", cfg.Observability.AsyncLogging.Enabled)
	v.SetDefault("observability.async_logging.queue_size", cfg.Observability.AsyncLogging.QueueSize)
	v.SetDefault("observability.async_logging.worker_count", cfg.Observability.AsyncLogging.WorkerCount)
	v.SetDefault("observability.async_logging.drop_when_full", cfg.Observability.AsyncLogging.DropWhenFull)
	v.SetDefault("observability.metrics_enabled", cfg.Observability.MetricsEnabled)
	v.SetDefault("observability.tracing_enabled", cfg.Observability.TracingEnabled)
	v.SetDefault("observability.tracing_endpoint", cfg.Observability.TracingEndpoint)
	v.SetDefault("observability.tracing_sample_rate", cfg.Observability.TracingSampleRate)
}

// errorList collects validation failures.
type errorList []error

func (e *errorList) add(format string, args ...any) {
	*e = append(*e, fmt.Errorf(format, args...))
}

func (e errorList) err() error {
	return errors.Join(e...)
}

// RegisterFlags defines the command line flags WithFlags binds. Their
// defaults only apply when no other source sets the key.
func RegisterFlags(fs *pflag.FlagSet) {
	defaults := DefaultConfig()
	fs.Int("http-port", defaults.HTTP.Port, "HTTP listen port")
	fs.String("store-type", defaults.Store.Type, "document store type (mongodb, memory)")
	fs.String("store-url", "", "document store connection URL")
	fs.String("store-database", defaults.Store.Database, "document store database name")
	fs.String("fixtures", "", "YAML fixtures loaded into the memory store")
	fs.String("eventbus-type", defaults.EventBus.Type, "event bus type (none, kafka, rabbitmq)")
	fs.String("log-level", defaults.Observability.LogLevel, "log level (debug, info, warn, error)")
	fs.String("log-format", defaults.Observability.LogFormat, "log format (json, text)")
}
