// Package app assembles the collection managers and their collaborators
// from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/nimburion/docmanager/pkg/config"
	"github.com/nimburion/docmanager/pkg/eventbus"
	busfactory "github.com/nimburion/docmanager/pkg/eventbus/factory"
	"github.com/nimburion/docmanager/pkg/health"
	"github.com/nimburion/docmanager/pkg/manager"
	"github.com/nimburion/docmanager/pkg/observability/logger"
	"github.com/nimburion/docmanager/pkg/repository/document"
	"github.com/nimburion/docmanager/pkg/store"
)

// ErrUnknownCollection is returned by Collection for a name that is not configured.
var ErrUnknownCollection = errors.New("unknown collection")

// App holds the opened backends and one manager per configured collection.
type App struct {
	Config *config.Config
	Logger logger.Logger
	Store  *store.Backend
	// Publisher is nil when the event bus is disabled.
	Publisher eventbus.Publisher
	// Events runs in-process listeners before events reach the broker.
	Events   *eventbus.LocalDispatcher
	Health   *health.Registry
	Managers map[string]*manager.Manager[*document.Record]
}

// New opens the store and the event bus and builds the managers. Whatever
// was opened is closed again when a later step fails.
func New(cfg *config.Config, log logger.Logger) (*App, error) {
	backend, err := store.Open(cfg.Store, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a := &App{
		Config:   cfg,
		Logger:   log,
		Store:    backend,
		Events:   eventbus.NewLocalDispatcher(log),
		Health:   health.NewRegistry(),
		Managers: make(map[string]*manager.Manager[*document.Record], len(cfg.Collections)),
	}
	a.Health.Register(health.NewStoreChecker(backend))

	publisher, err := busfactory.NewPublisher(cfg.EventBus, log)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open event bus: %w", err)
	}
	var producer eventbus.Producer
	if publisher != nil {
		a.Publisher = publisher
		producer = publisher
		a.Health.Register(health.NewEventBusChecker(publisher))
	}

	a.Events.Listen(eventbus.Wildcard, func(_ context.Context, e *eventbus.Event) error {
		log.Debug("document event dispatched", "event", e.Key, "event_id", e.ID.String())
		return nil
	})
	dispatcher := busfactory.NewDispatcher(cfg.EventBus, a.Events, producer, log)

	opts := []manager.Option{manager.WithLogger(log), manager.WithStoreSystem(backend.Type)}
	if !cfg.Observability.MetricsEnabled {
		opts = append(opts, manager.WithoutMetrics())
	}
	for _, cc := range cfg.Collections {
		mc, err := cc.ManagerConfig()
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		m, err := manager.New[*document.Record](mc, manager.Collaborators[*document.Record]{
			Store:      backend.Records,
			Dispatcher: dispatcher,
		}, opts...)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("collection %s: %w", cc.Name, err)
		}
		a.Managers[cc.Name] = m
	}

	log.Info("document managers ready",
		"store", backend.Type,
		"eventbus", cfg.EventBus.Type,
		"collections", a.CollectionNames(),
	)
	return a, nil
}

// Collection returns the manager of the named collection.
func (a *App) Collection(name string) (*manager.Manager[*document.Record], error) {
	m, ok := a.Managers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (configured: %v)", ErrUnknownCollection, name, a.CollectionNames())
	}
	return m, nil
}

// CollectionNames returns the configured collection names, sorted.
func (a *App) CollectionNames() []string {
	names := make([]string, 0, len(a.Managers))
	for name := range a.Managers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases the publisher and the store.
func (a *App) Close() error {
	var errs []error
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close event bus: %w", err))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
