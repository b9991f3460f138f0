package task

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/vk/assetpipe/internal/config"
	"github.com/vk/assetpipe/internal/ctxlog"
)

// Result is the outcome of a single task invocation.
type Result struct {
	Task     string
	Started  time.Time
	Duration time.Duration
	Err      error
}

// Runner invokes tasks with logging, panic recovery and a slow task
// diagnostic. A zero Runner never reports slow tasks.
type Runner struct {
	// SlowThreshold is how long a task may run before a warning is logged.
	// The task is not cancelled.
	SlowThreshold time.Duration
}

// Run executes t and returns its Result.
func (r *Runner) Run(ctx context.Context, t Task) (res Result) {
	ctx, logger := ctxlog.With(ctx, "task", t.Name())
	res = Result{Task: t.Name(), Started: time.Now()}

	if r.SlowThreshold > 0 {
		timer := time.AfterFunc(r.SlowThreshold, func() {
			logger.Warn("Task is taking longer than expected.", "threshold", r.SlowThreshold)
		})
		defer timer.Stop()
	}

	defer func() {
		if p := recover(); p != nil {
			logger.Debug("Recovered task panic.", "stack", string(debug.Stack()))
			res.Err = fmt.Errorf("%s: panic: %v", t.Name(), p)
		}
		res.Duration = time.Since(res.Started)
		if res.Err != nil {
			logger.Debug("Task failed.", "duration", res.Duration, "error", res.Err)
		} else {
			logger.Info("Finished task.", "duration", res.Duration)
		}
	}()

	logger.Info("Starting task.")
	res.Err = t.Run(ctx)
	return res
}

// Series runs tasks one after another. Each task is awaited before the next
// starts. A failed task does not stop its siblings: failures are collected
// and returned joined once every task has run. Only cancellation of ctx or a
// fatal configuration error ends the sequence early.
func Series(ctx context.Context, r *Runner, tasks ...Task) ([]Result, error) {
	results := make([]Result, 0, len(tasks))
	var errs []error
	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return results, errors.Join(append(errs, err)...)
		}
		res := r.Run(ctx, t)
		results = append(results, res)
		if res.Err == nil {
			continue
		}
		errs = append(errs, res.Err)
		if aborts(ctx, res.Err) {
			return results, errors.Join(errs...)
		}
	}
	return results, errors.Join(errs...)
}

func aborts(ctx context.Context, err error) bool {
	var fatal *config.FatalConfigError
	return errors.As(err, &fatal) || ctx.Err() != nil
}
