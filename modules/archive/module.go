// Package archive packages the project tree into a zip file.
package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/vk/assetpipe/internal/config"
	"github.com/vk/assetpipe/internal/ctxlog"
	"github.com/vk/assetpipe/internal/fsutil"
	"github.com/vk/assetpipe/internal/registry"
	"github.com/vk/assetpipe/internal/task"
)

// Name is the registered task name.
const Name = "archive"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the archive task factory.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask(Name, func(env *registry.Env) (task.Task, error) {
		return New(env.Config), nil
	})
}

// Task zips every project file selected by the archive patterns.
type Task struct {
	root     string
	out      string
	matcher  *fsutil.Matcher
	dotfiles bool
}

// New creates the archive task for cfg.
func New(cfg *config.Config) *Task {
	return &Task{
		root:     cfg.Root,
		out:      filepath.Join(cfg.Path(cfg.Archive.Dest), cfg.Archive.Name),
		matcher:  fsutil.NewMatcher(cfg.Archive.Patterns),
		dotfiles: cfg.Archive.IncludeDotfiles,
	}
}

// Name implements task.Task.
func (t *Task) Name() string { return Name }

// Files returns the slash separated paths, relative to the project root,
// that the archive will contain, in walk order.
func (t *Task) Files(ctx context.Context) ([]string, error) {
	var files []string
	err := filepath.WalkDir(t.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == t.root {
			return nil
		}
		rel, err := filepath.Rel(t.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if !t.dotfiles && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if t.matcher.Prunable(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || p == t.out || t.isTemp(p) {
			return nil
		}
		if t.matcher.Match(rel) {
			files = append(files, rel)
		}
		return nil
	})
	return files, err
}

func (t *Task) isTemp(p string) bool {
	return filepath.Dir(p) == filepath.Dir(t.out) &&
		strings.HasPrefix(filepath.Base(p), "."+filepath.Base(t.out)+".tmp-")
}

// Run writes the archive through a temporary file and renames it into
// place, replacing any previous archive.
func (t *Task) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	files, err := t.Files(ctx)
	if err != nil {
		return &task.IOError{Task: Name, Op: "walk", Path: t.root, Err: err}
	}

	dir := filepath.Dir(t.out)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &task.IOError{Task: Name, Op: "mkdir", Path: dir, Err: err}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(t.out)+".tmp-*")
	if err != nil {
		return &task.IOError{Task: Name, Op: "create", Path: t.out, Err: err}
	}
	defer os.Remove(tmp.Name())

	if err := t.write(ctx, tmp, files); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return &task.IOError{Task: Name, Op: "write", Path: tmp.Name(), Err: err}
	}
	if err := os.Rename(tmp.Name(), t.out); err != nil {
		return &task.IOError{Task: Name, Op: "rename", Path: t.out, Err: err}
	}

	logger.Info("Wrote archive.", "path", t.out, "files", len(files))
	return nil
}

func (t *Task) write(ctx context.Context, w io.Writer, files []string) error {
	zw := zip.NewWriter(w)
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.add(zw, rel); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return &task.IOError{Task: Name, Op: "write", Path: t.out, Err: err}
	}
	return nil
}

func (t *Task) add(zw *zip.Writer, rel string) error {
	src := filepath.Join(t.root, filepath.FromSlash(rel))
	f, err := os.Open(src)
	if err != nil {
		return &task.IOError{Task: Name, Op: "open", Path: src, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return &task.IOError{Task: Name, Op: "stat", Path: src, Err: err}
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to build zip header for %s: %w", rel, err)
	}
	header.Name = path.Clean(rel)
	header.Method = zip.Deflate

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return &task.IOError{Task: Name, Op: "write", Path: t.out, Err: err}
	}
	if _, err := io.Copy(dst, f); err != nil {
		return &task.IOError{Task: Name, Op: "copy", Path: src, Err: err}
	}
	return nil
}
