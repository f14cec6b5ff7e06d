// Package app wires the loader, the host plan and the built-in modules into
// a runnable host process.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/modcell/internal/ctxlog"
	"github.com/vk/modcell/internal/dispatch"
	"github.com/vk/modcell/internal/loader"
	"github.com/vk/modcell/internal/manifest"
	"github.com/vk/modcell/internal/module"
)

// App encapsulates the host's dependencies, configuration and lifecycle.
type App struct {
	ctx      context.Context
	outW     io.Writer
	logger   *slog.Logger
	config   *Config
	registry *loader.Registry
}

// NewApp is the constructor for the host. It builds an isolated logger and a
// fresh registry, registers all built-in module behaviors, and preloads
// their payloads into the default context. A broken built-in is a programmer
// error, so preload failures panic.
func NewApp(ctx context.Context, outW io.Writer, appConfig *Config, builtins ...Builtin) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Logger configured successfully.")

	if len(builtins) == 0 {
		builtins = coreBuiltins
	}

	behaviors := dispatch.NewBehaviors()
	for _, b := range builtins {
		b.Register(behaviors)
	}
	logger.Debug("Built-in behaviors registered.", "count", len(builtins))

	registry := loader.NewRegistry(behaviors)
	for _, b := range builtins {
		if err := preload(ctx, registry.Default(), b.Payload()); err != nil {
			panic(fmt.Errorf("failed to preload built-in module: %w", err))
		}
	}
	logger.Debug("Built-in payloads loaded into the default context.",
		"modules", registry.Default().Modules())

	return &App{
		ctx:      ctx,
		outW:     outW,
		logger:   logger,
		config:   appConfig,
		registry: registry,
	}
}

// Registry returns the host's context registry. This is primarily for
// testing.
func (a *App) Registry() *loader.Registry {
	return a.registry
}

// Run executes the host plan and, when configured, serves metrics until the
// plan finishes.
func (a *App) Run() error {
	if a.config.MetricsPort > 0 {
		a.startMetricsServer(a.config.MetricsPort)
	}
	return a.ExecutePlan()
}

// preload loads a built-in payload under its self-declared identity.
func preload(ctx context.Context, defaultCtx *loader.Context, payload []byte) error {
	mod, err := manifest.Parse(ctx, payload, "builtin")
	if err != nil {
		return err
	}
	_, err = defaultCtx.Load(ctx, module.Identity{Name: mod.Name, Version: mod.Version}, payload)
	return err
}
