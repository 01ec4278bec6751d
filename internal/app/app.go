package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vk/slotflow/internal/builder"
	"github.com/vk/slotflow/internal/cache"
	"github.com/vk/slotflow/internal/config"
	"github.com/vk/slotflow/internal/ctxlog"
	"github.com/vk/slotflow/internal/graph"
	"github.com/vk/slotflow/internal/metrics"
	"github.com/vk/slotflow/internal/notify"
	"github.com/vk/slotflow/internal/registry"
	"github.com/vk/slotflow/internal/runstore"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	ctx      context.Context
	settings config.Settings
	registry *registry.Registry
	graph    *graph.Graph
	metrics  *metrics.Metrics
	cache    *cache.Cache
	sink     notify.Sink
	runs     runstore.Store

	httpServer *http.Server
	closers    []func() error
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// Registry conflicts between modules are programmer errors and panic.
func NewApp(ctx context.Context, outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.Settings.LogLevel, cfg.Settings.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	a := &App{outW: outW, logger: logger, ctx: ctx}

	pipeline, err := loader.Load(ctx, cfg.PipelinePaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline: %w", err)
	}
	a.settings = cfg.Settings
	a.settings.Overlay(pipeline.Settings, cfg.Explicit)
	if err := a.settings.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("Settings resolved.", "settings", a.settings)

	a.registry = registry.New()
	if len(modules) == 0 {
		modules = CoreModules(outW)
	}
	for _, mod := range modules {
		mod.Register(a.registry)
	}
	if err := a.registry.Validate(ctx); err != nil {
		panic(err)
	}
	logger.Debug("All Go modules registered.", "count", len(modules), "nodeTypes", a.registry.NodeTypes())

	if a.graph, err = builder.Build(ctx, pipeline, a.registry); err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}

	a.metrics = metrics.New()
	if err := a.setupCache(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.setupSink(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if a.settings.RunsDB != "" {
		store, err := runstore.OpenSQLite(a.settings.RunsDB)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open run store: %w", err)
		}
		a.runs = store
		a.closers = append(a.closers, store.Close)
		logger.Debug("Run store opened.", "path", a.settings.RunsDB)
	}
	return a, nil
}

func (a *App) setupCache(ctx context.Context) error {
	backend := cache.Backend(cache.NewMemoryBackend())
	if a.settings.Cache == "redis" {
		client := redis.NewClient(&redis.Options{Addr: a.settings.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return fmt.Errorf("failed to connect to redis at %s: %w", a.settings.RedisAddr, err)
		}
		a.closers = append(a.closers, client.Close)
		backend = cache.NewRedisBackend(client, a.settings.RedisPrefix)
		a.logger.Debug("Redis cache connected.", "addr", a.settings.RedisAddr, "prefix", a.settings.RedisPrefix)
	}
	a.cache = cache.New(backend, cache.WithObserver(a.metrics))
	return nil
}

func (a *App) setupSink(ctx context.Context) error {
	a.sink = notify.LogSink{}
	if a.settings.NotifyURL == "" {
		return nil
	}
	sio, err := notify.DialSocketIO(ctx, notify.SocketIOOptions{URL: a.settings.NotifyURL})
	if err != nil {
		return fmt.Errorf("failed to connect to event hub: %w", err)
	}
	a.closers = append(a.closers, sio.Close)
	a.sink = notify.Multi{a.sink, sio}
	return nil
}

// Close releases the connections opened by NewApp and stops the health
// check server.
func (a *App) Close() error {
	errs := []error{a.closeHealthCheckServer()}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry { return a.registry }

// Graph returns the built graph.
func (a *App) Graph() *graph.Graph { return a.graph }

// Settings returns the effective settings.
func (a *App) Settings() config.Settings { return a.settings }

// Metrics returns the application's collectors.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }
