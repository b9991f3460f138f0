package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

var validOutputStyles = map[string]bool{
	"nested":     true,
	"expanded":   true,
	"compact":    true,
	"compressed": true,
}

// Normalize cleans every relative path and pattern in place. It is called
// once by the loading code before the config is handed out.
func (c *Config) Normalize() {
	clean := func(p string) string {
		if p == "" {
			return p
		}
		neg := strings.HasPrefix(p, "!")
		p = strings.TrimPrefix(p, "!")
		p = path.Clean(filepath.ToSlash(p))
		if neg {
			return "!" + p
		}
		return p
	}
	cleanAll := func(ps []string) []string {
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = clean(p)
		}
		return out
	}

	c.Styles.Entry = clean(c.Styles.Entry)
	c.Styles.Dest = clean(c.Styles.Dest)
	c.Styles.Watch = cleanAll(c.Styles.Watch)
	c.Markup.Entry = clean(c.Markup.Entry)
	c.Markup.Dest = clean(c.Markup.Dest)
	c.Markup.Watch = cleanAll(c.Markup.Watch)
	c.Scripts.Sources = cleanAll(c.Scripts.Sources)
	c.Scripts.Dest = clean(c.Scripts.Dest)
	c.Scripts.Watch = cleanAll(c.Scripts.Watch)
	c.Images.Patterns = cleanAll(c.Images.Patterns)
	c.Images.Dest = clean(c.Images.Dest)
	c.Server.BaseDir = clean(c.Server.BaseDir)
	c.Archive.Dest = clean(c.Archive.Dest)
	c.Archive.Patterns = cleanAll(c.Archive.Patterns)
	c.Clean.Target = clean(c.Clean.Target)

	// Without explicit watch patterns a group watches what it reads.
	if len(c.Markup.Watch) == 0 && c.Markup.Entry != "" {
		c.Markup.Watch = []string{c.Markup.Entry}
	}
	if len(c.Styles.Watch) == 0 && c.Styles.Entry != "" {
		c.Styles.Watch = []string{c.Styles.Entry}
	}
	if len(c.Scripts.Watch) == 0 {
		c.Scripts.Watch = append([]string(nil), c.Scripts.Sources...)
	}
}

// Validate checks values that do not depend on the filesystem.
func (c *Config) Validate() error {
	if !validOutputStyles[c.Styles.OutputStyle] {
		return fmt.Errorf("style.output_style: unknown style %q", c.Styles.OutputStyle)
	}
	if c.Scripts.Bundle == "" {
		return errors.New("script.bundle must not be empty")
	}
	if c.Archive.Name == "" {
		return errors.New("archive.name must not be empty")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port: %d is out of range", c.Server.Port)
	}
	if c.Images.JPEGQuality < 1 || c.Images.JPEGQuality > 100 {
		return fmt.Errorf("image.jpeg_quality: %d is out of range 1-100", c.Images.JPEGQuality)
	}
	if !belowRoot(c.Clean.Target) {
		return fmt.Errorf("clean.target: %q must name a directory below the project root", c.Clean.Target)
	}
	patterns := [][]string{c.Styles.Watch, c.Markup.Watch, c.Scripts.Watch, c.Images.Patterns, c.Archive.Patterns}
	for _, group := range patterns {
		for _, p := range group {
			if !doublestar.ValidatePattern(strings.TrimPrefix(p, "!")) {
				return fmt.Errorf("invalid pattern %q", p)
			}
		}
	}
	return nil
}

// belowRoot reports whether rel names a directory strictly inside the
// project root.
func belowRoot(rel string) bool {
	if rel == "" || filepath.IsAbs(rel) || strings.HasPrefix(filepath.ToSlash(rel), "/") {
		return false
	}
	cleaned := path.Clean(filepath.ToSlash(rel))
	return cleaned != "." && cleaned != ".." && !strings.HasPrefix(cleaned, "../")
}

// CheckEntries verifies that every entry source named by the registry exists.
// A missing entry is a FatalConfigError since no build can proceed.
func (c *Config) CheckEntries() error {
	check := func(field, rel string) error {
		if rel == "" {
			return &FatalConfigError{Field: field, Err: errors.New("no path configured")}
		}
		info, err := os.Stat(c.Path(rel))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return &FatalConfigError{Field: field, Path: rel, Err: errors.New("entry does not exist")}
			}
			return &FatalConfigError{Field: field, Path: rel, Err: err}
		}
		if info.IsDir() {
			return &FatalConfigError{Field: field, Path: rel, Err: errors.New("entry is a directory")}
		}
		return nil
	}

	if err := check("style.entry", c.Styles.Entry); err != nil {
		return err
	}
	if err := check("markup.entry", c.Markup.Entry); err != nil {
		return err
	}
	if len(c.Scripts.Sources) == 0 {
		return &FatalConfigError{Field: "script.sources", Err: errors.New("no sources configured")}
	}
	for i, src := range c.Scripts.Sources {
		if err := check(fmt.Sprintf("script.sources[%d]", i), src); err != nil {
			return err
		}
	}
	return nil
}
