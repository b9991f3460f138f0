package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/assetpipe/internal/config"
	"github.com/vk/assetpipe/internal/ctxlog"
	"github.com/vk/assetpipe/internal/imagecache"
	"github.com/vk/assetpipe/internal/registry"
	"github.com/vk/assetpipe/internal/report"
	"github.com/vk/assetpipe/internal/task"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	appConfig *Config
	config    *config.Config
	registry  *registry.Registry
	env       *registry.Env
	runner    *task.Runner
	reporter  *report.Reporter
}

// NewApp is the constructor for the main application. It loads the project
// configuration through loaders (keyed by file extension) and registers
// modules, or the core modules when none are given. Configuration problems
// are returned as *config.FatalConfigError.
func NewApp(outW io.Writer, appConfig *Config, loaders map[string]config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	cfg, err := config.Load(ctx, appConfig.Root, appConfig.ConfigPath, loaders)
	if err != nil {
		return nil, err
	}
	if appConfig.Port > 0 {
		cfg.Server.Port = appConfig.Port
	}
	if appConfig.NoOpen {
		cfg.Server.Open = false
	}
	if appConfig.Notify {
		cfg.Notify = true
	}
	logger.Debug("Configuration loaded.", "root", cfg.Root)

	cacheDir := cfg.Cache.Dir
	if cacheDir == "" {
		if cacheDir, err = imagecache.DefaultDir(); err != nil {
			cacheDir = cfg.Path(".assetcache")
			logger.Warn("No user cache directory, caching images in the project.", "dir", cacheDir, "error", err)
		}
	} else {
		cacheDir = cfg.Path(cacheDir)
	}
	logger.Debug("Image cache located.", "dir", cacheDir)

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules))

	// A missing task is a mismatch between code and command table.
	if err := reg.Validate(commandTasks[appConfig.Command]...); err != nil {
		return nil, err
	}
	if appConfig.Command == CommandDefault {
		if err := reg.Validate(watchTasks...); err != nil {
			return nil, err
		}
	}
	logger.Debug("Registry validation passed.")

	var reportOpts []report.Option
	if cfg.Notify {
		reportOpts = append(reportOpts, report.WithNotifier(report.BeeepNotifier))
	}

	return &App{
		outW:      outW,
		logger:    logger,
		appConfig: appConfig,
		config:    cfg,
		registry:  reg,
		env:       &registry.Env{Config: cfg, Cache: imagecache.NewFileStore(cacheDir)},
		runner:    &task.Runner{SlowThreshold: cfg.Watch.SlowTask},
		reporter:  report.New(outW, reportOpts...),
	}, nil
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// ProjectConfig returns the loaded project configuration.
func (a *App) ProjectConfig() *config.Config {
	return a.config
}

func (a *App) buildTasks(names ...string) ([]task.Task, error) {
	tasks, err := a.registry.BuildAll(a.env, names...)
	if err != nil {
		return nil, fmt.Errorf("failed to build tasks: %w", err)
	}
	return tasks, nil
}
