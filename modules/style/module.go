// Package style compiles the entry stylesheet with LibSass.
package style

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bep/golibsass/libsass"
	"github.com/bep/golibsass/libsass/libsasserrors"
	"github.com/vk/assetpipe/internal/config"
	"github.com/vk/assetpipe/internal/ctxlog"
	"github.com/vk/assetpipe/internal/fsutil"
	"github.com/vk/assetpipe/internal/registry"
	"github.com/vk/assetpipe/internal/task"
)

// Name is the registered task name.
const Name = "style"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the style task factory.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask(Name, func(env *registry.Env) (task.Task, error) {
		return New(env.Config), nil
	})
}

// Task compiles one entry stylesheet into <name><suffix>.css plus its
// source map.
type Task struct {
	entry        string
	dest         string
	includePaths []string
	outputStyle  string
	suffix       string
}

// New creates the style task for cfg.
func New(cfg *config.Config) *Task {
	g := cfg.Styles
	includes := []string{filepath.Dir(cfg.Path(g.Entry))}
	for _, p := range g.IncludePaths {
		includes = append(includes, cfg.Path(p))
	}
	return &Task{
		entry:        cfg.Path(g.Entry),
		dest:         cfg.Path(g.Dest),
		includePaths: includes,
		outputStyle:  g.OutputStyle,
		suffix:       g.Suffix,
	}
}

// Name implements task.Task.
func (t *Task) Name() string { return Name }

// OutputName is the base name of the compiled stylesheet.
func (t *Task) OutputName() string {
	return fsutil.WithSuffix(fsutil.ReplaceExt(filepath.Base(t.entry), ".css"), t.suffix)
}

// Run compiles the entry and writes the stylesheet and its map.
func (t *Task) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	outName := t.OutputName()

	src, err := os.ReadFile(t.entry)
	if err != nil {
		return &task.IOError{Task: Name, Op: "read", Path: t.entry, Err: err}
	}

	transpiler, err := libsass.New(libsass.Options{
		IncludePaths: t.includePaths,
		OutputStyle:  libsass.ParseOutputStyle(t.outputStyle),
		SourceMapOptions: libsass.SourceMapOptions{
			Filename:   outName + ".map",
			OutputPath: outName,
			InputPath:  t.entry,
			Contents:   true,
			OmitURL:    true,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create sass transpiler: %w", err)
	}

	logger.Debug("Compiling stylesheet.", "entry", t.entry, "style", t.outputStyle)
	res, err := transpiler.Execute(string(src))
	if err != nil {
		return t.compileError(err)
	}

	if err := os.MkdirAll(t.dest, 0755); err != nil {
		return &task.IOError{Task: Name, Op: "mkdir", Path: t.dest, Err: err}
	}
	cssPath := filepath.Join(t.dest, outName)
	css := res.CSS + MapReference(outName+".map")
	if err := fsutil.WriteFileAtomic(cssPath, []byte(css)); err != nil {
		return &task.IOError{Task: Name, Op: "write", Path: cssPath, Err: err}
	}
	if err := fsutil.WriteFileAtomic(cssPath+".map", []byte(res.SourceMapContent)); err != nil {
		return &task.IOError{Task: Name, Op: "write", Path: cssPath + ".map", Err: err}
	}

	logger.Info("Wrote stylesheet.", "path", cssPath, "bytes", len(css))
	return nil
}

// MapReference is the trailer that links a stylesheet to its map.
func MapReference(mapName string) string {
	return fmt.Sprintf("\n/*# sourceMappingURL=%s */\n", mapName)
}

func (t *Task) compileError(err error) error {
	var sassErr libsasserrors.Error
	if !errors.As(err, &sassErr) {
		return &task.CompileError{Task: Name, File: t.entry, Message: err.Error(), Err: err}
	}
	file := sassErr.File
	if file == "" || file == "stdin" {
		file = t.entry
	}
	return &task.CompileError{
		Task:    Name,
		File:    file,
		Line:    sassErr.Line,
		Column:  sassErr.Column,
		Message: sassErr.Message,
		Err:     err,
	}
}
