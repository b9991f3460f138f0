// Package yamlconf implements config.Loader for YAML project files. Keys
// mirror the HCL format; `${src_dir}` and `${dist_dir}` are expanded in
// values before decoding.
package yamlconf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vk/assetpipe/internal/config"
	"github.com/vk/assetpipe/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads the YAML file at path and layers it over the defaults.
func (l *Loader) Load(ctx context.Context, path string) (*config.Config, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var dirs struct {
		SrcDir  string `yaml:"src_dir"`
		DistDir string `yaml:"dist_dir"`
	}
	if err := yaml.Unmarshal(data, &dirs); err != nil {
		return nil, fmt.Errorf("failed to parse YAML file %s: %w", path, err)
	}

	cfg := config.Defaults(dirs.SrcDir, dirs.DistDir)
	expanded := strings.NewReplacer(
		"${src_dir}", cfg.SrcDir,
		"${dist_dir}", cfg.DistDir,
	).Replace(string(data))

	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", path, err)
	}

	logger.Debug("YAML loading complete.")
	return cfg, nil
}
