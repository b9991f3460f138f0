// Package clean empties the build output directory.
package clean

import (
	"context"
	"os"
	"path/filepath"

	"github.com/vk/assetpipe/internal/config"
	"github.com/vk/assetpipe/internal/ctxlog"
	"github.com/vk/assetpipe/internal/registry"
	"github.com/vk/assetpipe/internal/task"
)

// Name is the registered task name.
const Name = "clean"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the clean task factory.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask(Name, func(env *registry.Env) (task.Task, error) {
		return New(env.Config), nil
	})
}

// New creates a task that deletes everything below the clean target but
// keeps the directory itself.
func New(cfg *config.Config) task.Task {
	target := cfg.Path(cfg.Clean.Target)
	return task.New(Name, func(ctx context.Context) error {
		return Empty(ctx, target)
	})
}

// Empty removes the entries of dir. A missing dir is created.
func Empty(ctx context.Context, dir string) error {
	logger := ctxlog.FromContext(ctx)

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		logger.Debug("Clean target missing, creating it.", "dir", dir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &task.IOError{Task: Name, Op: "mkdir", Path: dir, Err: err}
		}
		return nil
	}
	if err != nil {
		return &task.IOError{Task: Name, Op: "read", Path: dir, Err: err}
	}

	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if err := os.RemoveAll(p); err != nil {
			return &task.IOError{Task: Name, Op: "remove", Path: p, Err: err}
		}
	}
	logger.Info("Cleaned build output.", "dir", dir, "removed", len(entries))
	return nil
}
