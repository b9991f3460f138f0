// Package task defines the unit of work of the asset pipeline, the error
// taxonomy tasks report with, and the Runner and Series helpers that compose
// tasks into commands.
package task

import "context"

// Task is a single named pipeline step. Run returns only after every file
// the task writes has been flushed and closed.
type Task interface {
	Name() string
	Run(ctx context.Context) error
}

// funcTask adapts a function to the Task interface.
type funcTask struct {
	name string
	fn   func(ctx context.Context) error
}

// New wraps fn as a Task called name.
func New(name string, fn func(ctx context.Context) error) Task {
	return &funcTask{name: name, fn: fn}
}

func (t *funcTask) Name() string                  { return t.name }
func (t *funcTask) Run(ctx context.Context) error { return t.fn(ctx) }
