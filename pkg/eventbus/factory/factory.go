// Package factory builds the event publisher and dispatcher selected by configuration.
package factory

import (
	"context"
	"fmt"
	"strings"

	"github.com/nimburion/docmanager/pkg/config"
	"github.com/nimburion/docmanager/pkg/eventbus"
	"github.com/nimburion/docmanager/pkg/eventbus/kafka"
	"github.com/nimburion/docmanager/pkg/eventbus/rabbitmq"
	"github.com/nimburion/docmanager/pkg/observability/logger"
	"github.com/nimburion/docmanager/pkg/resilience"
)

// NewPublisher selects and initializes the broker publisher. It returns nil
// and no error when the event bus is disabled.
func NewPublisher(cfg config.EventBusConfig, log logger.Logger) (eventbus.Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", config.EventBusTypeNone:
		return nil, nil
	case config.EventBusTypeKafka:
		return kafka.NewPublisher(kafka.Config{
			Brokers:          cfg.Brokers,
			OperationTimeout: cfg.OperationTimeout,
			MaxRetries:       cfg.MaxRetries,
		}, log)
	case config.EventBusTypeRabbitMQ:
		url := cfg.URL
		if url == "" && len(cfg.Brokers) > 0 {
			url = cfg.Brokers[0]
		}
		return rabbitmq.NewPublisher(rabbitmq.Config{
			URL:              url,
			Exchange:         cfg.Exchange,
			ExchangeType:     cfg.ExchangeType,
			OperationTimeout: cfg.OperationTimeout,
			Confirm:          cfg.Confirm,
		}, log)
	default:
		return nil, fmt.Errorf("unsupported eventbus.type %q (supported: none, kafka, rabbitmq)", cfg.Type)
	}
}

// NewDispatcher combines in-process listeners with the configured broker.
// Local listeners run first, so a listener can stop an event before it is
// published. A nil publisher leaves only the local dispatcher. With
// BreakerFailures set, a failing broker is skipped for BreakerCooldown and
// publishing fails fast with resilience.ErrOpen.
func NewDispatcher(cfg config.EventBusConfig, local *eventbus.LocalDispatcher, publisher eventbus.Producer, log logger.Logger) eventbus.Dispatcher {
	var out eventbus.MultiDispatcher
	if local != nil {
		out = append(out, local)
	}
	if publisher != nil {
		bus := eventbus.NewBusDispatcher(publisher, cfg.TopicPrefix, log)
		publish := func(ctx context.Context, event *eventbus.Event) error {
			return bus.Dispatch(ctx, event)
		}
		if cfg.BreakerFailures > 0 {
			breaker := newBreaker(cfg, log)
			publish = func(ctx context.Context, event *eventbus.Event) error {
				return breaker.Execute(func() error { return bus.Dispatch(ctx, event) })
			}
		}
		out = append(out, eventbus.DispatcherFunc(func(ctx context.Context, event *eventbus.Event) error {
			if event.PropagationStopped() {
				return nil
			}
			return publish(ctx, event)
		}))
	}
	switch len(out) {
	case 0:
		return eventbus.Discard
	case 1:
		return out[0]
	}
	return out
}

func newBreaker(cfg config.EventBusConfig, log logger.Logger) *resilience.Breaker {
	return resilience.NewBreaker(cfg.BreakerFailures, cfg.BreakerCooldown,
		resilience.OnStateChange(func(from, to resilience.State) {
			if log == nil {
				return
			}
			if to == resilience.StateOpen {
				log.Warn("event bus breaker opened", "from", from.String(), "cooldown", cfg.BreakerCooldown.String())
				return
			}
			log.Info("event bus breaker state changed", "from", from.String(), "to", to.String())
		}),
	)
}
