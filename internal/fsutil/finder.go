// Package fsutil provides file system utility functions shared by the
// pipeline tasks: glob expansion, ordered pattern matching and atomic writes.
package fsutil

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Match is a file found by Expand.
type Match struct {
	// Path is the absolute path of the file.
	Path string
	// Rel is the slash separated path relative to the static prefix of the
	// pattern that found it. It is used to mirror directory layout.
	Rel string
}

// Expand resolves the root-relative glob patterns to files. Results are
// sorted by path and deduplicated; a file matched by several patterns is
// reported for the first one.
func Expand(root string, patterns []string) ([]Match, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]struct{})
	var matches []Match

	for _, pattern := range patterns {
		base, _ := doublestar.SplitPattern(pattern)
		found, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to expand pattern %q: %w", pattern, err)
		}
		sort.Strings(found)
		for _, name := range found {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			rel := name
			if base != "." {
				rel = strings.TrimPrefix(strings.TrimPrefix(name, base), "/")
			}
			matches = append(matches, Match{
				Path: filepath.Join(root, filepath.FromSlash(name)),
				Rel:  rel,
			})
		}
	}
	return matches, nil
}

// WithSuffix inserts suffix before the extension of name:
// WithSuffix("main.css", ".min") is "main.min.css".
func WithSuffix(name, suffix string) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + suffix + ext
}

// ReplaceExt swaps the extension of name for ext.
func ReplaceExt(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}
