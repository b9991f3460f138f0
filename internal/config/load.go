package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vk/assetpipe/internal/ctxlog"
)

// Load resolves the configuration for the project at root. When path is
// empty the default file names are tried in root; when none exists the
// built-in defaults are used. loaders maps a file extension (".hcl") to the
// Loader able to read it.
func Load(ctx context.Context, root, path string, loaders map[string]Loader) (*Config, error) {
	logger := ctxlog.FromContext(ctx)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	if path == "" {
		for _, name := range DefaultFileNames {
			candidate := filepath.Join(absRoot, name)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			} else if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to stat %s: %w", candidate, err)
			}
		}
	} else if !filepath.IsAbs(path) {
		path = filepath.Join(absRoot, path)
	}

	var cfg *Config
	if path == "" {
		logger.Debug("No configuration file found, using defaults.", "root", absRoot)
		cfg = Defaults(DefaultSrcDir, DefaultDistDir)
	} else {
		ext := filepath.Ext(path)
		loader, ok := loaders[ext]
		if !ok {
			return nil, &FatalConfigError{Field: "config", Path: path, Err: fmt.Errorf("no loader for %q files", ext)}
		}
		logger.Debug("Loading configuration file.", "path", path)
		cfg, err = loader.Load(ctx, path)
		if err != nil {
			return nil, &FatalConfigError{Field: "config", Path: path, Err: err}
		}
	}

	cfg.Root = absRoot
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, &FatalConfigError{Field: "config", Path: path, Err: err}
	}
	return cfg, nil
}
