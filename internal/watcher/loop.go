package watcher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vk/assetpipe/internal/ctxlog"
	"github.com/vk/assetpipe/internal/fsutil"
	"github.com/vk/assetpipe/internal/task"
)

// Group is one asset group: the task to run and the root-relative patterns
// whose changes trigger it.
type Group struct {
	Name     string
	Patterns []string
	Task     task.Task
}

// loop is the state machine of one group.
type loop struct {
	group   Group
	matcher *fsutil.Matcher

	// trigger has capacity one; a full channel means a run is already
	// pending.
	trigger chan struct{}

	mu    sync.Mutex
	timer *time.Timer

	runs atomic.Int64
}

func newLoop(g Group) *loop {
	return &loop{
		group:   g,
		matcher: fsutil.NewMatcher(g.Patterns),
		trigger: make(chan struct{}, 1),
	}
}

// schedule requests a run after delay. Requests within the delay window
// collapse into one.
func (l *loop) schedule(delay time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.timer == nil {
		l.timer = time.AfterFunc(delay, l.fire)
		return
	}
	l.timer.Reset(delay)
}

func (l *loop) fire() {
	select {
	case l.trigger <- struct{}{}:
	default:
	}
}

func (l *loop) stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.timer != nil {
		l.timer.Stop()
	}
}

func (l *loop) run(ctx context.Context, o *Orchestrator) error {
	ctx, logger := ctxlog.With(ctx, "group", l.group.Name)
	defer l.stop()

	l.fire()
	for {
		select {
		case <-ctx.Done():
			logger.Debug("Watch loop stopped.")
			return nil
		case <-l.trigger:
		}

		res := o.runner.Run(ctx, l.group.Task)
		l.runs.Add(1)
		if ctx.Err() != nil {
			return nil
		}
		o.reporter.Report(ctx, res)
		o.reloader.Reload(ctx)
	}
}
