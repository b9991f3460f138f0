package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/vk/assetpipe/internal/config"
	"github.com/vk/assetpipe/internal/imagecache"
	"github.com/vk/assetpipe/internal/task"
)

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Env is everything a factory may use to build its task. It is shared
// read-only between factories.
type Env struct {
	Config *config.Config
	Cache  imagecache.Store
}

// Factory builds a task from the environment.
type Factory func(env *Env) (task.Task, error)

// Registry holds all the registered task factories for a single
// application instance.
type Registry struct {
	factories map[string]Factory
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// RegisterTask registers the factory for the task called name.
func (r *Registry) RegisterTask(name string, f Factory) {
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("task with name '%s' already registered", name))
	}
	slog.Debug("Registering task factory.", "name", name)
	r.factories[name] = f
}

// Names returns the registered task names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build constructs the named task.
func (r *Registry) Build(name string, env *Env) (task.Task, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("no task registered with name '%s'", name)
	}
	t, err := f(env)
	if err != nil {
		return nil, fmt.Errorf("failed to build task '%s': %w", name, err)
	}
	return t, nil
}

// BuildAll constructs the named tasks, preserving order.
func (r *Registry) BuildAll(env *Env, names ...string) ([]task.Task, error) {
	tasks := make([]task.Task, 0, len(names))
	for _, name := range names {
		t, err := r.Build(name, env)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Validate checks that every required task name is registered.
func (r *Registry) Validate(required ...string) error {
	var missing []string
	for _, name := range required {
		if _, ok := r.factories[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("registry validation failed: no module provides %s", strings.Join(missing, ", "))
	}
	return nil
}
