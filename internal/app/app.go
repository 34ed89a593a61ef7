package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/gridflow/internal/config"
	"github.com/vk/gridflow/internal/ctxlog"
	"github.com/vk/gridflow/internal/fsutil"
	"github.com/vk/gridflow/internal/metrics"
	"github.com/vk/gridflow/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	run        config.RunConfig
	registry   *registry.Registry
	metrics    *metrics.Observer
	httpServer *http.Server
}

// NewApp is the constructor for the main application. It loads the pipeline,
// resolves the run configuration and registers every rule, so a returned App
// is ready to run. The core modules are always registered; modules adds
// further in-process handlers.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.GridPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Configuration loaded and translated into unified model.")

	rc, err := config.NewRunConfig(model, config.Overrides{
		Root:    appConfig.Root,
		Budget:  appConfig.Budget,
		Targets: appConfig.Targets,
		DryRun:  appConfig.DryRun,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid run configuration: %w", err)
	}
	if err := fsutil.ValidateGlobs(rc.Keep); err != nil {
		return nil, fmt.Errorf("invalid keep pattern: %w", err)
	}

	reg := registry.New(rc.Sweeps)
	all := append(append([]registry.Module{}, coreModules...), modules...)
	for _, mod := range all {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(all), "handlers", reg.HandlerNames())

	if err := reg.LoadRules(ctx, model.Rules); err != nil {
		return nil, err
	}
	logger.Debug("Registry validation passed.", "rules", len(reg.Rules()))

	return &App{
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		run:      rc,
		registry: reg,
		metrics:  metrics.New(),
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// RunConfig returns the resolved configuration of the run.
func (a *App) RunConfig() config.RunConfig {
	return a.run
}

// Metrics returns the observer fed by every run of this App.
func (a *App) Metrics() *metrics.Observer {
	return a.metrics
}
