package app

import (
	"context"
	"fmt"

	"github.com/vk/assetpipe/internal/ctxlog"
	"github.com/vk/assetpipe/internal/devserver"
	"github.com/vk/assetpipe/internal/task"
	"github.com/vk/assetpipe/internal/watcher"
	"golang.org/x/sync/errgroup"
)

// Run executes the configured command. The default command runs until ctx
// is cancelled; every other command returns when its last task finishes.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.appConfig.Command)

	switch a.appConfig.Command {
	case CommandDefault:
		return a.runDev(ctx)
	case CommandRebuild:
		if err := a.config.CheckEntries(); err != nil {
			return err
		}
	}
	return a.runSeries(ctx, commandTasks[a.appConfig.Command])
}

func (a *App) runSeries(ctx context.Context, names []string) error {
	tasks, err := a.buildTasks(names...)
	if err != nil {
		return err
	}

	a.logger.Info("🚀 Running command.", "command", a.appConfig.Command, "tasks", names)
	results, err := task.Series(ctx, a.runner, tasks...)
	for _, res := range results {
		a.reporter.Report(ctx, res)
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", a.appConfig.Command, err)
	}
	a.logger.Info("🏁 Command finished.", "command", a.appConfig.Command)
	return nil
}

// runDev builds every group, serves the output and rebuilds on change.
func (a *App) runDev(ctx context.Context) error {
	if err := a.config.CheckEntries(); err != nil {
		return err
	}
	tasks, err := a.buildTasks(watchTasks...)
	if err != nil {
		return err
	}

	cfg := a.config
	patterns := map[string][]string{
		watchTasks[0]: cfg.Styles.Watch,
		watchTasks[1]: cfg.Markup.Watch,
		watchTasks[2]: cfg.Scripts.Watch,
		watchTasks[3]: cfg.Images.Patterns,
	}
	groups := make([]watcher.Group, 0, len(tasks))
	for _, t := range tasks {
		groups = append(groups, watcher.Group{Name: t.Name(), Patterns: patterns[t.Name()], Task: t})
	}

	server := devserver.New(devserver.OptionsFrom(cfg))
	orchestrator := watcher.New(cfg.Root, groups,
		watcher.WithRunner(a.runner),
		watcher.WithReporter(a.reporter),
		watcher.WithReloader(server),
		watcher.WithDebounce(cfg.Watch.Debounce),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return orchestrator.Run(gctx) })
	g.Go(func() error { return server.Run(gctx) })

	err = g.Wait()
	a.logger.Info("🏁 Stopped watching.")
	return err
}
