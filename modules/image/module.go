// Package image optimizes the project's images and memoizes the results in
// a content-addressed cache, so unchanged images are never recompressed.
package image

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/assetpipe/internal/config"
	"github.com/vk/assetpipe/internal/ctxlog"
	"github.com/vk/assetpipe/internal/fsutil"
	"github.com/vk/assetpipe/internal/imagecache"
	"github.com/vk/assetpipe/internal/registry"
	"github.com/vk/assetpipe/internal/task"
)

// Name is the registered task name.
const Name = "image"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the image task factory.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterTask(Name, func(env *registry.Env) (task.Task, error) {
		if env.Cache == nil {
			return nil, errors.New("image task requires a cache store")
		}
		return New(env.Config, env.Cache, NewCodecs(env.Config.Images.JPEGQuality)), nil
	})
}

// Stats summarizes one run.
type Stats struct {
	Processed  int
	CacheHits  int
	Compressed int
	Failed     int
	BytesSaved int64
}

// Task optimizes every image matched by the configured patterns.
type Task struct {
	root      string
	patterns  []string
	dest      string
	cache     imagecache.Store
	optimizer Optimizer
}

// New creates the image task for cfg.
func New(cfg *config.Config, cache imagecache.Store, opt Optimizer) *Task {
	return &Task{
		root:      cfg.Root,
		patterns:  cfg.Images.Patterns,
		dest:      cfg.Path(cfg.Images.Dest),
		cache:     cache,
		optimizer: opt,
	}
}

// Name implements task.Task.
func (t *Task) Name() string { return Name }

// Run implements task.Task.
func (t *Task) Run(ctx context.Context) error {
	_, err := t.Optimize(ctx)
	return err
}

// Optimize processes every image. A failing file is logged and counted; the
// rest continue and the failures are returned together.
func (t *Task) Optimize(ctx context.Context) (Stats, error) {
	logger := ctxlog.FromContext(ctx)
	var stats Stats

	matches, err := fsutil.Expand(t.root, t.patterns)
	if err != nil {
		return stats, err
	}
	if err := os.MkdirAll(t.dest, 0755); err != nil {
		return stats, &task.IOError{Task: Name, Op: "mkdir", Path: t.dest, Err: err}
	}

	var errs []error
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Processed++
		saved, hit, err := t.process(ctx, m)
		switch {
		case err != nil:
			stats.Failed++
			errs = append(errs, err)
			logger.Error("Failed to optimize image.", "source", m.Rel, "error", err)
		case hit:
			stats.CacheHits++
		default:
			stats.Compressed++
		}
		stats.BytesSaved += saved
	}

	logger.Info("Optimized images.",
		"processed", stats.Processed,
		"cacheHits", stats.CacheHits,
		"compressed", stats.Compressed,
		"failed", stats.Failed,
		"bytesSaved", stats.BytesSaved,
	)
	if len(errs) > 0 {
		return stats, fmt.Errorf("%d of %d images failed: %w", len(errs), stats.Processed, errors.Join(errs...))
	}
	return stats, nil
}

func (t *Task) process(ctx context.Context, m fsutil.Match) (saved int64, hit bool, err error) {
	logger := ctxlog.FromContext(ctx).With("source", m.Rel)

	data, err := os.ReadFile(m.Path)
	if err != nil {
		return 0, false, &task.IOError{Task: Name, Op: "read", Path: m.Path, Err: err}
	}
	outPath := filepath.Join(t.dest, filepath.FromSlash(m.Rel))
	key := imagecache.KeyFor(data, t.optimizer.Salt())

	entry, err := t.cache.Get(key)
	if err != nil {
		logger.Warn("Ignoring unusable cache entry.", "error", err)
		entry = nil
	}
	if entry != nil {
		logger.Debug("Image cache hit.", "key", key)
		if err := fsutil.WriteFileAtomic(outPath, entry.Data); err != nil {
			return 0, true, &task.IOError{Task: Name, Op: "write", Path: outPath, Err: err}
		}
		return 0, true, nil
	}

	out, codec, err := t.optimizer.Optimize(m.Path, data)
	if err != nil {
		return 0, false, &task.CompileError{Task: Name, File: m.Path, Message: err.Error(), Err: err}
	}
	if len(out) >= len(data) {
		out = data
	}
	saved = int64(len(data) - len(out))
	logger.Info("Compressed image.", "codec", codec, "before", len(data), "after", len(out), "saved", saved)

	entry = &imagecache.Entry{
		Key:          key,
		Source:       m.Rel,
		Codec:        codec,
		OriginalSize: int64(len(data)),
		Data:         out,
	}
	if err := t.cache.Put(entry); err != nil {
		logger.Warn("Failed to store cache entry.", "error", err)
	}
	if err := fsutil.WriteFileAtomic(outPath, out); err != nil {
		return saved, false, &task.IOError{Task: Name, Op: "write", Path: outPath, Err: err}
	}
	return saved, false, nil
}
