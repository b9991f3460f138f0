// Package script transpiles the configured script sources, concatenates
// them in declared order and minifies the bundle.
package script

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/vk/assetpipe/internal/config"
	"github.com/vk/assetpipe/internal/ctxlog"
	"github.com/vk/assetpipe/internal/fsutil"
	"github.com/vk/assetpipe/internal/registry"
	"github.com/vk/assetpipe/internal/task"
)

// Name is the registered task name.
const Name = "script"

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the script task factory.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask(Name, func(env *registry.Env) (task.Task, error) {
		return New(env.Config)
	})
}

type source struct {
	path string
	rel  string
}

// Task builds the script bundle.
type Task struct {
	sources []source
	bundle  string
	dest    string
	suffix  string
	target  api.Target
}

// New creates the script task for cfg. The order of cfg.Scripts.Sources is
// the order of the bundle.
func New(cfg *config.Config) (*Task, error) {
	g := cfg.Scripts
	target, ok := targets[strings.ToLower(g.Target)]
	if !ok {
		return nil, fmt.Errorf("unsupported script target %q", g.Target)
	}
	t := &Task{
		bundle: g.Bundle,
		dest:   cfg.Path(g.Dest),
		suffix: g.Suffix,
		target: target,
	}
	for _, rel := range g.Sources {
		t.sources = append(t.sources, source{path: cfg.Path(rel), rel: rel})
	}
	return t, nil
}

// Name implements task.Task.
func (t *Task) Name() string { return Name }

// OutputName is the base name of the minified bundle.
func (t *Task) OutputName() string {
	return fsutil.WithSuffix(t.bundle, t.suffix)
}

// Run transpiles, concatenates and minifies the sources.
func (t *Task) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	outName := t.OutputName()

	parts := make([]string, 0, len(t.sources))
	for _, src := range t.sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := os.ReadFile(src.path)
		if err != nil {
			return &task.IOError{Task: Name, Op: "read", Path: src.path, Err: err}
		}
		res := api.Transform(string(data), api.TransformOptions{
			Loader:     api.LoaderJS,
			Target:     t.target,
			Sourcefile: src.rel,
		})
		if len(res.Errors) > 0 {
			return compileError(src.rel, res.Errors[0])
		}
		logger.Debug("Transpiled script.", "source", src.rel, "bytes", len(res.Code))
		parts = append(parts, string(res.Code))
	}

	concatenated := strings.Join(parts, "\n")
	res := api.Transform(concatenated, api.TransformOptions{
		Loader:            api.LoaderJS,
		Target:            t.target,
		Sourcefile:        t.bundle,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		Sourcemap:         api.SourceMapExternal,
		SourcesContent:    api.SourcesContentInclude,
	})
	if len(res.Errors) > 0 {
		return compileError(t.bundle, res.Errors[0])
	}

	if err := os.MkdirAll(t.dest, 0755); err != nil {
		return &task.IOError{Task: Name, Op: "mkdir", Path: t.dest, Err: err}
	}
	outPath := filepath.Join(t.dest, outName)
	code := string(res.Code) + fmt.Sprintf("//# sourceMappingURL=%s.map\n", outName)
	if err := fsutil.WriteFileAtomic(outPath, []byte(code)); err != nil {
		return &task.IOError{Task: Name, Op: "write", Path: outPath, Err: err}
	}
	if err := fsutil.WriteFileAtomic(outPath+".map", res.Map); err != nil {
		return &task.IOError{Task: Name, Op: "write", Path: outPath + ".map", Err: err}
	}

	logger.Info("Wrote script bundle.", "path", outPath, "sources", len(t.sources), "bytes", len(code))
	return nil
}

func compileError(file string, msg api.Message) error {
	ce := &task.CompileError{Task: Name, File: file, Message: msg.Text}
	if msg.Location != nil {
		ce.Line = msg.Location.Line
		ce.Column = msg.Location.Column + 1
	}
	return ce
}
