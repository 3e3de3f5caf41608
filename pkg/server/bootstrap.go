package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nimburion/docmanager/pkg/app"
	"github.com/nimburion/docmanager/pkg/controller"
	"github.com/nimburion/docmanager/pkg/observability/logger"
	"github.com/nimburion/docmanager/pkg/observability/metrics"
	"github.com/nimburion/docmanager/pkg/observability/tracing"
	"github.com/nimburion/docmanager/pkg/version"
)

// LifecycleHook defines a named startup/shutdown action.
type LifecycleHook struct {
	Name string
	Fn   func(context.Context) error
}

// RunOptions defines inputs for running the document API.
type RunOptions struct {
	App *app.App

	StartupHooks        []LifecycleHook
	ShutdownHooks       []LifecycleHook
	ShutdownHookTimeout time.Duration

	// OnListening, when set, receives the server once it is accepting connections.
	OnListening func(*Server)
}

// Run serves the collections of opts.App until ctx is cancelled. Tracing is
// initialized before the startup hooks and shut down after the shutdown hooks.
func Run(ctx context.Context, opts RunOptions) error {
	if opts.App == nil || opts.App.Config == nil || opts.App.Logger == nil {
		return errors.New("app with config and logger is required")
	}
	cfg := opts.App.Config
	log := opts.App.Logger

	info := versionInfo(cfg.Service.Name, cfg.Service.Version)
	log.Info("application version metadata",
		"service", info.Service,
		"version", info.Version,
		"commit", info.Commit,
		"build_time", info.BuildTime,
	)

	provider, err := tracing.NewTracerProvider(ctx, tracing.TracerConfig{
		ServiceName:    info.Service,
		ServiceVersion: info.Version,
		Environment:    normalizeEnvironment(cfg.Service.Environment),
		Endpoint:       cfg.Observability.TracingEndpoint,
		SampleRate:     cfg.Observability.TracingSampleRate,
		Enabled:        cfg.Observability.TracingEnabled,
	})
	if err != nil {
		return fmt.Errorf("initialize tracing provider: %w", err)
	}
	defer shutdownTracerProvider(provider, log)

	if err := runStartupHooks(ctx, log, opts.StartupHooks); err != nil {
		return err
	}
	defer func() {
		if err := runShutdownHooks(log, opts.ShutdownHooks, opts.ShutdownHookTimeout); err != nil {
			log.Error("shutdown hooks completed with errors", "error", err)
		}
	}()

	routerOpts := RouterOptions{
		Logger:    log,
		Documents: controller.NewDocumentController(opts.App.Managers, cfg.HTTP.MaxItemsPerPage),
		Health:    opts.App.Health,
		Tracing:   cfg.Observability.TracingEnabled,
		Version:   info,
	}
	if cfg.Observability.MetricsEnabled {
		routerOpts.Metrics = metrics.NewRegistry()
	}

	srv := NewServer(Config{
		Port:            cfg.HTTP.Port,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		IdleTimeout:     cfg.HTTP.IdleTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, NewRouter(routerOpts), log)

	if opts.OnListening != nil {
		go func() {
			select {
			case <-srv.Ready():
				opts.OnListening(srv)
			case <-ctx.Done():
			}
		}()
	}
	return srv.Start(ctx)
}

// RunWithSignals runs until SIGINT or SIGTERM, or the given signals.
func RunWithSignals(opts RunOptions, signals ...os.Signal) error {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ctx, stop := signal.NotifyContext(context.Background(), signals...)
	defer stop()
	return Run(ctx, opts)
}

func versionInfo(service, configured string) version.Info {
	return version.Current(service).WithFallback(configured)
}

func shutdownTracerProvider(provider *tracing.TracerProvider, log logger.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), tracing.DefaultShutdownTimeout)
	defer cancel()
	if err := provider.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown tracing provider", "error", err)
	}
}

func normalizeEnvironment(env string) string {
	trimmed := strings.TrimSpace(env)
	if trimmed == "" {
		return version.Unknown
	}
	return trimmed
}

func hookName(h LifecycleHook) string {
	if name := strings.TrimSpace(h.Name); name != "" {
		return name
	}
	return "unnamed"
}

func runStartupHooks(ctx context.Context, log logger.Logger, hooks []LifecycleHook) error {
	for _, hook := range hooks {
		if hook.Fn == nil {
			continue
		}
		name := hookName(hook)
		log.Info("startup hook start", "hook", name)
		if err := hook.Fn(ctx); err != nil {
			log.Error("startup hook failed", "hook", name, "error", err)
			return fmt.Errorf("startup hook %q failed: %w", name, err)
		}
		log.Info("startup hook complete", "hook", name)
	}
	return nil
}

func runShutdownHooks(log logger.Logger, hooks []LifecycleHook, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var errs []error
	for _, hook := range hooks {
		if hook.Fn == nil {
			continue
		}
		name := hookName(hook)
		log.Info("shutdown hook start", "hook", name)

		hookCtx, cancel := context.WithTimeout(context.Background(), timeout)
		err := hook.Fn(hookCtx)
		cancel()

		if err != nil {
			log.Error("shutdown hook failed", "hook", name, "error", err)
			errs = append(errs, fmt.Errorf("shutdown hook %q failed: %w", name, err))
			continue
		}
		log.Info("shutdown hook complete", "hook", name)
	}
	return errors.Join(errs...)
}
