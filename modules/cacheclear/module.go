// Package cacheclear purges the persistent image cache.
package cacheclear

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/assetpipe/internal/ctxlog"
	"github.com/vk/assetpipe/internal/imagecache"
	"github.com/vk/assetpipe/internal/registry"
	"github.com/vk/assetpipe/internal/task"
)

// Name is the registered task name.
const Name = "cache-clear"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the cache-clear task factory.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask(Name, func(env *registry.Env) (task.Task, error) {
		if env.Cache == nil {
			return nil, errors.New("cache-clear task requires a cache store")
		}
		return New(env.Cache), nil
	})
}

// New creates a task that removes every entry of store.
func New(store imagecache.Store) task.Task {
	return task.New(Name, func(ctx context.Context) error {
		if err := store.Clear(); err != nil {
			return fmt.Errorf("failed to clear image cache: %w", err)
		}
		ctxlog.FromContext(ctx).Info("Cleared image cache.")
		return nil
	})
}
