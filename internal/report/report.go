// Package report presents task outcomes to the developer: a structured log
// record, a short colored console summary and, optionally, a desktop
// notification for failures.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/gookit/color"
	"github.com/mitchellh/go-wordwrap"
	"github.com/vk/assetpipe/internal/ctxlog"
	"github.com/vk/assetpipe/internal/task"
)

const wrapWidth = 88

// Notifier delivers a desktop notification.
type Notifier func(title, message string) error

// BeeepNotifier notifies through the OS notification center.
func BeeepNotifier(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Reporter writes task results. It is safe for concurrent use by the watch
// loops.
type Reporter struct {
	mu       sync.Mutex
	out      io.Writer
	colorize bool
	notify   Notifier
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithNotifier enables failure notifications through n.
func WithNotifier(n Notifier) Option {
	return func(r *Reporter) { r.notify = n }
}

// WithColor forces colored output on or off.
func WithColor(enabled bool) Option {
	return func(r *Reporter) { r.colorize = enabled }
}

// New creates a Reporter writing to out. Color follows terminal support
// unless overridden.
func New(out io.Writer, opts ...Option) *Reporter {
	r := &Reporter{out: out, colorize: color.SupportColor()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Report records one task result.
func (r *Reporter) Report(ctx context.Context, res task.Result) {
	logger := ctxlog.FromContext(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if res.Err == nil {
		fmt.Fprintf(r.out, "%s %s %s\n",
			r.paint(color.Green, "✓"),
			res.Task,
			r.paint(color.Gray, res.Duration.Round(time.Millisecond).String()),
		)
		return
	}

	kind := task.Kind(res.Err)
	logger.Error("Task failed.", "task", res.Task, "kind", kind, "error", res.Err)

	fmt.Fprintf(r.out, "%s %s %s\n",
		r.paint(color.Red, "✗"),
		res.Task,
		r.paint(color.Yellow, "("+kind+" error)"),
	)
	body := wordwrap.WrapString(res.Err.Error(), wrapWidth)
	for _, line := range strings.Split(body, "\n") {
		fmt.Fprintf(r.out, "    %s\n", line)
	}

	if r.notify != nil {
		title := fmt.Sprintf("%s failed", res.Task)
		if err := r.notify(title, res.Err.Error()); err != nil {
			logger.Warn("Failed to send desktop notification.", "error", err)
		}
	}
}

func (r *Reporter) paint(c color.Color, s string) string {
	if !r.colorize {
		return s
	}
	return c.Sprint(s)
}
