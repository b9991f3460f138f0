// Package markup expands the entry Kit template into the site's HTML page.
package markup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
	"github.com/vk/assetpipe/internal/config"
	"github.com/vk/assetpipe/internal/ctxlog"
	"github.com/vk/assetpipe/internal/fsutil"
	"github.com/vk/assetpipe/internal/kit"
	"github.com/vk/assetpipe/internal/registry"
	"github.com/vk/assetpipe/internal/task"
)

// Name is the registered task name.
const Name = "markup"

const mediaType = "text/html"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the markup task factory.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask(Name, func(env *registry.Env) (task.Task, error) {
		return New(env.Config), nil
	})
}

// Task compiles one .kit entry into <name>.html.
type Task struct {
	entry    string
	dest     string
	minifier *minify.M
}

// New creates the markup task for cfg.
func New(cfg *config.Config) *Task {
	t := &Task{
		entry: cfg.Path(cfg.Markup.Entry),
		dest:  cfg.Path(cfg.Markup.Dest),
	}
	if cfg.Markup.Minify {
		t.minifier = minify.New()
		t.minifier.Add(mediaType, &html.Minifier{KeepDocumentTags: true, KeepEndTags: true})
	}
	return t
}

// Name implements task.Task.
func (t *Task) Name() string { return Name }

// Run expands the template and writes the page.
func (t *Task) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if _, err := os.Stat(t.entry); err != nil {
		return &task.IOError{Task: Name, Op: "read", Path: t.entry, Err: err}
	}

	logger.Debug("Compiling template.", "entry", t.entry)
	out, err := kit.CompileFile(t.entry)
	if err != nil {
		var kitErr *kit.Error
		if errors.As(err, &kitErr) {
			return &task.CompileError{Task: Name, File: kitErr.File, Line: kitErr.Line, Message: kitErr.Message, Err: err}
		}
		return &task.IOError{Task: Name, Op: "read", Path: t.entry, Err: err}
	}

	if t.minifier != nil {
		minified, err := t.minifier.String(mediaType, out)
		if err != nil {
			return fmt.Errorf("failed to minify %s: %w", t.entry, err)
		}
		logger.Debug("Minified page.", "before", len(out), "after", len(minified))
		out = minified
	}

	if err := os.MkdirAll(t.dest, 0755); err != nil {
		return &task.IOError{Task: Name, Op: "mkdir", Path: t.dest, Err: err}
	}
	outPath := filepath.Join(t.dest, fsutil.ReplaceExt(filepath.Base(t.entry), ".html"))
	if err := fsutil.WriteFileAtomic(outPath, []byte(out)); err != nil {
		return &task.IOError{Task: Name, Op: "write", Path: outPath, Err: err}
	}

	logger.Info("Wrote page.", "path", outPath, "bytes", len(out))
	return nil
}
