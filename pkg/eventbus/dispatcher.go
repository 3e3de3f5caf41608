package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/nimburion/docmanager/pkg/observability/logger"
	"github.com/nimburion/docmanager/pkg/observability/metrics"
	"github.com/nimburion/docmanager/pkg/observability/tracing"
)

// Dispatcher delivers events. Dispatch is synchronous: it returns once every
// receiver has handled the event or one of them failed.
type Dispatcher interface {
	Dispatch(ctx context.Context, event *Event) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, event *Event) error

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(ctx context.Context, event *Event) error { return f(ctx, event) }

// Listener handles an event delivered by a LocalDispatcher.
type Listener func(ctx context.Context, event *Event) error

// Wildcard listens to every event key.
const Wildcard = "*"

type registration struct {
	priority int
	seq      int
	fn       Listener
}

// LocalDispatcher delivers events to in-process listeners registered per key.
// Listeners with a higher priority run first; equal priorities run in
// registration order. It is safe for concurrent use.
type LocalDispatcher struct {
	mu        sync.RWMutex
	listeners map[string][]registration
	seq       int
	logger    logger.Logger
}

// NewLocalDispatcher creates an empty dispatcher. log may be nil.
func NewLocalDispatcher(log logger.Logger) *LocalDispatcher {
	return &LocalDispatcher{
		listeners: make(map[string][]registration),
		logger:    log,
	}
}

// Listen registers fn for key with priority 0.
func (d *LocalDispatcher) Listen(key string, fn Listener) {
	d.ListenWithPriority(key, 0, fn)
}

// ListenWithPriority registers fn for key.
func (d *LocalDispatcher) ListenWithPriority(key string, priority int, fn Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	d.listeners[key] = append(d.listeners[key], registration{priority: priority, seq: d.seq, fn: fn})
}

// HasListeners reports whether anything listens to key.
func (d *LocalDispatcher) HasListeners(key string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[key]) > 0 || len(d.listeners[Wildcard]) > 0
}

func (d *LocalDispatcher) listenersFor(key string) []registration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	regs := make([]registration, 0, len(d.listeners[key])+len(d.listeners[Wildcard]))
	regs = append(regs, d.listeners[key]...)
	if key != Wildcard {
		regs = append(regs, d.listeners[Wildcard]...)
	}
	sort.SliceStable(regs, func(i, j int) bool {
		if regs[i].priority != regs[j].priority {
			return regs[i].priority > regs[j].priority
		}
		return regs[i].seq < regs[j].seq
	})
	return regs
}

// Dispatch runs the listeners for the event key in order, stopping at the
// first error or when a listener stops propagation.
func (d *LocalDispatcher) Dispatch(ctx context.Context, event *Event) error {
	if event == nil || event.Key == "" {
		return ErrEmptyEventKey
	}
	ctx, span := tracing.StartMessagingSpan(ctx, tracing.SpanOperationMsgDispatch,
		tracing.WithMessagingSystem("local"),
		tracing.WithMessagingDestination(event.Key),
		tracing.WithMessagingMessageID(event.ID.String()),
	)
	err := d.dispatch(ctx, event)
	tracing.End(span, err)
	metrics.RecordEvent(event.Key, err)
	return err
}

func (d *LocalDispatcher) dispatch(ctx context.Context, event *Event) error {
	for _, reg := range d.listenersFor(event.Key) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := reg.fn(ctx, event); err != nil {
			if d.logger != nil {
				d.logger.Error("event listener failed", "key", event.Key, "event_id", event.ID.String(), "error", err)
			}
			return fmt.Errorf("listener for %s: %w", event.Key, err)
		}
		if event.PropagationStopped() {
			break
		}
	}
	return nil
}

// BusDispatcher serializes events and publishes them to a broker. The topic
// is the event key, optionally prefixed.
type BusDispatcher struct {
	producer    Producer
	serializer  Serializer
	topicPrefix string
	logger      logger.Logger
}

// NewBusDispatcher creates a dispatcher publishing JSON events through producer.
func NewBusDispatcher(producer Producer, topicPrefix string, log logger.Logger) *BusDispatcher {
	return &BusDispatcher{
		producer:    producer,
		serializer:  NewJSONSerializer(),
		topicPrefix: topicPrefix,
		logger:      log,
	}
}

// Topic returns the broker topic for an event key.
func (d *BusDispatcher) Topic(key string) string {
	if d.topicPrefix == "" {
		return key
	}
	return strings.TrimSuffix(d.topicPrefix, ".") + "." + key
}

// Dispatch publishes the event and waits for the broker to accept it.
func (d *BusDispatcher) Dispatch(ctx context.Context, event *Event) error {
	if event == nil || event.Key == "" {
		return ErrEmptyEventKey
	}
	topic := d.Topic(event.Key)
	msg, err := d.Message(event)
	if err != nil {
		return err
	}

	ctx, span := tracing.StartMessagingSpan(ctx, tracing.SpanOperationMsgPublish,
		tracing.WithMessagingDestination(topic),
		tracing.WithMessagingMessageID(msg.ID),
		tracing.WithMessagingPayloadSize(len(msg.Value)),
	)
	err = d.producer.Publish(ctx, topic, msg)
	tracing.End(span, err)
	metrics.RecordEvent(event.Key, err)
	if err != nil {
		if d.logger != nil {
			d.logger.Error("event publish failed", "topic", topic, "event_id", msg.ID, "error", err)
		}
		return fmt.Errorf("publish %s: %w", event.Key, err)
	}
	return nil
}

// Message encodes event as a broker message keyed by the event key.
func (d *BusDispatcher) Message(event *Event) (*Message, error) {
	payload, err := d.serializer.Serialize(event)
	if err != nil {
		return nil, fmt.Errorf("serialize event %s: %w", event.Key, err)
	}
	return &Message{
		ID:          event.ID.String(),
		Key:         event.Key,
		Value:       payload,
		ContentType: d.serializer.ContentType(),
		Timestamp:   event.OccurredAt,
		Headers: map[string]string{
			"event_key": event.Key,
		},
	}, nil
}

// MultiDispatcher fans an event out to several dispatchers in order. Every
// dispatcher is tried; the failures are joined.
type MultiDispatcher []Dispatcher

// Dispatch delivers event to every dispatcher.
func (m MultiDispatcher) Dispatch(ctx context.Context, event *Event) error {
	var errs []error
	for _, d := range m {
		if d == nil {
			continue
		}
		if err := d.Dispatch(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, *Event) error { return nil }

// Discard drops every event.
var Discard Dispatcher = nopDispatcher{}
