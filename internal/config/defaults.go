package config

import (
	"path"
	"time"
)

// Default file names looked up in the project root, in order.
var DefaultFileNames = []string{"assetpipe.hcl", "assetpipe.yaml", "assetpipe.yml"}

const (
	DefaultSrcDir  = "src"
	DefaultDistDir = "dist"
)

// Defaults returns the built-in registry for a project whose sources live
// in srcDir and whose build output goes to distDir.
func Defaults(srcDir, distDir string) *Config {
	if srcDir == "" {
		srcDir = DefaultSrcDir
	}
	if distDir == "" {
		distDir = DefaultDistDir
	}
	modules := path.Join(srcDir, "modules")

	return &Config{
		SrcDir:  srcDir,
		DistDir: distDir,
		Styles: StyleGroup{
			Entry:       path.Join(modules, "main.scss"),
			Dest:        path.Join(distDir, "css"),
			Watch:       []string{path.Join(modules, "**", "*.scss")},
			OutputStyle: "expanded",
			Suffix:      ".min",
		},
		Markup: MarkupGroup{
			Entry: path.Join(modules, "index.kit"),
			Dest:  distDir,
			Watch: []string{path.Join(modules, "**", "*.kit")},
		},
		Scripts: ScriptGroup{
			Sources: []string{
				path.Join(srcDir, "js", "project.js"),
				path.Join(srcDir, "js", "alert.js"),
			},
			Bundle: "script.js",
			Dest:   path.Join(distDir, "js"),
			Target: "es2015",
			Suffix: ".min",
		},
		Images: ImageGroup{
			Patterns:    []string{path.Join(srcDir, "img", "**", "*.{png,jpg,jpeg,svg,gif}")},
			Dest:        path.Join(distDir, "img"),
			JPEGQuality: 85,
		},
		Server: ServerConfig{
			BaseDir: distDir,
			Host:    "localhost",
			Port:    3000,
			Browser: "firefox",
			Open:    true,
		},
		Archive: ArchiveConfig{
			Name: "project.zip",
			Dest: ".",
			Patterns: []string{
				"**/*",
				"!" + distDir + "/**",
				"!node_modules/**",
				"!project.zip",
			},
		},
		Clean: CleanConfig{Target: distDir},
		Watch: WatchConfig{
			Debounce: 100 * time.Millisecond,
			SlowTask: 30 * time.Second,
		},
	}
}
