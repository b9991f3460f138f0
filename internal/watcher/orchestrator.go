package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/vk/assetpipe/internal/ctxlog"
	"github.com/vk/assetpipe/internal/task"
	"golang.org/x/sync/errgroup"
)

const defaultDebounce = 100 * time.Millisecond

// Reloader is told to refresh browsers after each run.
type Reloader interface {
	Reload(ctx context.Context)
}

// Reporter receives every run result.
type Reporter interface {
	Report(ctx context.Context, res task.Result)
}

type nopReloader struct{}

func (nopReloader) Reload(context.Context) {}

type nopReporter struct{}

func (nopReporter) Report(context.Context, task.Result) {}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRunner sets the runner used to invoke tasks.
func WithRunner(r *task.Runner) Option {
	return func(o *Orchestrator) { o.runner = r }
}

// WithReloader sets the reload target.
func WithReloader(r Reloader) Option {
	return func(o *Orchestrator) { o.reloader = r }
}

// WithReporter sets where run results go.
func WithReporter(r Reporter) Option {
	return func(o *Orchestrator) { o.reporter = r }
}

// WithDebounce sets how long a group waits for changes to settle.
func WithDebounce(d time.Duration) Option {
	return func(o *Orchestrator) { o.debounce = d }
}

// Orchestrator owns the file watcher and the group loops.
type Orchestrator struct {
	root     string
	loops    []*loop
	runner   *task.Runner
	reloader Reloader
	reporter Reporter
	debounce time.Duration
	ready    chan struct{}
}

// New creates an Orchestrator for groups below root.
func New(root string, groups []Group, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		root:     root,
		runner:   &task.Runner{},
		reloader: nopReloader{},
		reporter: nopReporter{},
		debounce: defaultDebounce,
		ready:    make(chan struct{}),
	}
	for _, g := range groups {
		o.loops = append(o.loops, newLoop(g))
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Ready is closed once the file watches are in place.
func (o *Orchestrator) Ready() <-chan struct{} {
	return o.ready
}

// Runs reports how many times the named group has run.
func (o *Orchestrator) Runs(name string) int {
	for _, l := range o.loops {
		if l.group.Name == name {
			return int(l.runs.Load())
		}
	}
	return 0
}

// Notify dispatches a change of the root-relative slash path rel to every
// group whose patterns match it.
func (o *Orchestrator) Notify(ctx context.Context, rel string) {
	for _, l := range o.loops {
		if l.matcher.Match(rel) {
			ctxlog.FromContext(ctx).Debug("Change detected.", "group", l.group.Name, "path", rel)
			l.schedule(o.debounce)
		}
	}
}

// Run watches the filesystem and drives every loop until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	for _, dir := range o.watchRoots() {
		if err := o.addRecursive(fsw, dir); err != nil {
			return err
		}
	}
	logger.Info("👀 Watching for changes.", "groups", len(o.loops), "dirs", len(fsw.WatchList()))
	close(o.ready)

	g, gctx := errgroup.WithContext(ctx)
	for _, l := range o.loops {
		g.Go(func() error { return l.run(gctx, o) })
	}
	g.Go(func() error { return o.watch(gctx, fsw) })
	return g.Wait()
}

func (o *Orchestrator) watch(ctx context.Context, fsw *fsnotify.Watcher) error {
	logger := ctxlog.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := o.addRecursive(fsw, ev.Name); err != nil {
						logger.Warn("Failed to watch new directory.", "dir", ev.Name, "error", err)
					}
					o.notifyTree(ctx, ev.Name)
					continue
				}
			}
			if rel, ok := o.rel(ev.Name); ok {
				o.Notify(ctx, rel)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("File watcher error.", "error", err)
		}
	}
}

// notifyTree reports files that appeared together with a new directory.
func (o *Orchestrator) notifyTree(ctx context.Context, dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if rel, ok := o.rel(p); ok {
			o.Notify(ctx, rel)
		}
		return nil
	})
}

func (o *Orchestrator) rel(name string) (string, bool) {
	rel, err := filepath.Rel(o.root, name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// watchRoots returns the existing directories that cover every group
// pattern.
func (o *Orchestrator) watchRoots() []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, l := range o.loops {
		for _, p := range l.group.Patterns {
			if strings.HasPrefix(p, "!") {
				continue
			}
			base, _ := doublestar.SplitPattern(p)
			dir := filepath.Join(o.root, filepath.FromSlash(base))
			for {
				if info, err := os.Stat(dir); err == nil && info.IsDir() {
					break
				}
				if dir == o.root || dir == filepath.Dir(dir) {
					break
				}
				dir = filepath.Dir(dir)
			}
			if !seen[dir] {
				seen[dir] = true
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs
}

// relevant reports whether dir lies on the path to, or below, the base of a
// group pattern. Output and dependency trees are never watched unless a
// pattern points into them.
func (o *Orchestrator) relevant(dir string) bool {
	rel, ok := o.rel(dir)
	if !ok {
		return false
	}
	within := func(parent, child string) bool {
		return parent == "." || child == parent || strings.HasPrefix(child, parent+"/")
	}
	for _, l := range o.loops {
		for _, p := range l.group.Patterns {
			if strings.HasPrefix(p, "!") {
				continue
			}
			base, _ := doublestar.SplitPattern(p)
			if within(rel, base) || within(base, rel) {
				return true
			}
		}
	}
	return false
}

func (o *Orchestrator) addRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if !o.relevant(p) {
			return filepath.SkipDir
		}
		if err := fsw.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}
