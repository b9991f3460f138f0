package config

import (
	"path/filepath"
	"time"
)

// Config is the path registry: every logical asset group mapped to its
// sources, destination and auxiliary names. All paths are relative to Root.
type Config struct {
	Root    string `hcl:"-" yaml:"-"`
	SrcDir  string `hcl:"src_dir" yaml:"src_dir"`
	DistDir string `hcl:"dist_dir" yaml:"dist_dir"`
	Notify  bool   `hcl:"notify" yaml:"notify"`

	Styles  StyleGroup    `yaml:"style"`
	Markup  MarkupGroup   `yaml:"markup"`
	Scripts ScriptGroup   `yaml:"script"`
	Images  ImageGroup    `yaml:"image"`
	Server  ServerConfig  `yaml:"server"`
	Archive ArchiveConfig `yaml:"archive"`
	Clean   CleanConfig   `yaml:"clean"`
	Cache   CacheConfig   `yaml:"cache"`
	Watch   WatchConfig   `yaml:"watch"`
}

// StyleGroup describes the stylesheet entry and its output.
type StyleGroup struct {
	Entry        string   `hcl:"entry" yaml:"entry"`
	Dest         string   `hcl:"dest" yaml:"dest"`
	Watch        []string `hcl:"watch" yaml:"watch"`
	IncludePaths []string `hcl:"include_paths" yaml:"include_paths"`
	OutputStyle  string   `hcl:"output_style" yaml:"output_style"`
	Suffix       string   `hcl:"suffix" yaml:"suffix"`
}

// MarkupGroup describes the Kit template entry and its output.
type MarkupGroup struct {
	Entry  string   `hcl:"entry" yaml:"entry"`
	Dest   string   `hcl:"dest" yaml:"dest"`
	Watch  []string `hcl:"watch" yaml:"watch"`
	Minify bool     `hcl:"minify" yaml:"minify"`
}

// ScriptGroup describes the ordered script sources and the bundle they are
// concatenated into. Order of Sources is significant.
type ScriptGroup struct {
	Sources []string `hcl:"sources" yaml:"sources"`
	Bundle  string   `hcl:"bundle" yaml:"bundle"`
	Dest    string   `hcl:"dest" yaml:"dest"`
	Watch   []string `hcl:"watch" yaml:"watch"`
	Target  string   `hcl:"target" yaml:"target"`
	Suffix  string   `hcl:"suffix" yaml:"suffix"`
}

// ImageGroup describes the image sources. Output mirrors each file's path
// relative to the static prefix of the pattern that matched it.
type ImageGroup struct {
	Patterns    []string `hcl:"patterns" yaml:"patterns"`
	Dest        string   `hcl:"dest" yaml:"dest"`
	JPEGQuality int      `hcl:"jpeg_quality" yaml:"jpeg_quality"`
}

// ServerConfig configures the development server.
type ServerConfig struct {
	BaseDir string `hcl:"base_dir" yaml:"base_dir"`
	Host    string `hcl:"host" yaml:"host"`
	Port    int    `hcl:"port" yaml:"port"`
	Browser string `hcl:"browser" yaml:"browser"`
	Open    bool   `hcl:"open" yaml:"open"`
}

// ArchiveConfig configures the project archive. Patterns are evaluated in
// order; a leading "!" excludes.
type ArchiveConfig struct {
	Name            string   `hcl:"name" yaml:"name"`
	Dest            string   `hcl:"dest" yaml:"dest"`
	Patterns        []string `hcl:"patterns" yaml:"patterns"`
	IncludeDotfiles bool     `hcl:"include_dotfiles" yaml:"include_dotfiles"`
}

// CleanConfig names the directory emptied by the clean task.
type CleanConfig struct {
	Target string `hcl:"target" yaml:"target"`
}

// CacheConfig locates the persistent image cache. An empty Dir resolves to
// a directory under the user cache dir.
type CacheConfig struct {
	Dir string `hcl:"dir" yaml:"dir"`
}

// WatchConfig tunes the watch orchestrator.
type WatchConfig struct {
	Debounce time.Duration `hcl:"debounce" yaml:"debounce"`
	SlowTask time.Duration `hcl:"slow_task" yaml:"slow_task"`
}

// Path resolves a config-relative path against Root.
func (c *Config) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(c.Root, filepath.FromSlash(rel))
}
