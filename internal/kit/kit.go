// Package kit compiles CodeKit ".kit" templates: HTML with imports and
// variables expressed as special comments.
//
//	<!-- @import "header.kit", "nav" -->   inline other files
//	<!-- $title = Home -->                 declare a variable
//	<!-- $title -->                        print a variable
//
// Imports resolve relative to the importing file. A missing extension
// defaults to ".kit" and a leading underscore (partial) is tried as a
// fallback. Variables are shared across the whole compilation in document
// order, so a declaration in an imported file is visible after the import.
package kit

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	commentRe = regexp.MustCompile(`(?s)<!--(.*?)-->`)
	importRe  = regexp.MustCompile(`(?s)^@(?:import|include)\s+(.+)$`)
	declareRe = regexp.MustCompile(`(?s)^[$@]([A-Za-z_][\w-]*)(?:\s*[=:]\s*|\s+)(.*)$`)
	useRe     = regexp.MustCompile(`^[$@]([A-Za-z_][\w-]*)$`)
)

// Error is a template error with its location.
type Error struct {
	File    string
	Line    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
}

// compiler holds state for one compilation.
type compiler struct {
	vars  map[string]string
	stack []string
}

// CompileFile compiles the template at path and returns the expanded HTML.
func CompileFile(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	c := &compiler{vars: make(map[string]string)}
	return c.compile(abs)
}

func (c *compiler) compile(path string) (string, error) {
	for _, p := range c.stack {
		if p == path {
			chain := append(append([]string(nil), c.stack...), path)
			for i := range chain {
				chain[i] = filepath.Base(chain[i])
			}
			return "", fmt.Errorf("import cycle: %s", strings.Join(chain, " -> "))
		}
	}
	c.stack = append(c.stack, path)
	defer func() { c.stack = c.stack[:len(c.stack)-1] }()

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	src := string(data)

	var out strings.Builder
	last := 0
	for _, loc := range commentRe.FindAllStringSubmatchIndex(src, -1) {
		out.WriteString(src[last:loc[0]])
		last = loc[1]

		line := strings.Count(src[:loc[0]], "\n") + 1
		body := strings.TrimSpace(src[loc[2]:loc[3]])
		fail := func(err error) error {
			var kitErr *Error
			if errors.As(err, &kitErr) {
				return err
			}
			return &Error{File: path, Line: line, Message: err.Error()}
		}

		switch {
		case importRe.MatchString(body):
			names := splitImports(importRe.FindStringSubmatch(body)[1])
			if len(names) == 0 {
				return "", fail(errors.New("empty import"))
			}
			for _, name := range names {
				target, err := resolve(filepath.Dir(path), name)
				if err != nil {
					return "", fail(err)
				}
				expanded, err := c.compile(target)
				if err != nil {
					return "", fail(err)
				}
				out.WriteString(expanded)
			}

		case useRe.MatchString(body):
			name := useRe.FindStringSubmatch(body)[1]
			val, ok := c.vars[name]
			if !ok {
				return "", fail(fmt.Errorf("undefined variable %q", name))
			}
			out.WriteString(val)

		case declareRe.MatchString(body):
			m := declareRe.FindStringSubmatch(body)
			c.vars[m[1]] = strings.TrimSpace(m[2])

		default:
			out.WriteString(src[loc[0]:loc[1]])
		}
	}
	out.WriteString(src[last:])
	return out.String(), nil
}

// splitImports parses `"a.kit", b, 'c'` into file names.
func splitImports(list string) []string {
	var names []string
	for _, part := range strings.Split(list, ",") {
		name := strings.Trim(strings.TrimSpace(part), `"'`)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// resolve finds the file an import refers to.
func resolve(dir, name string) (string, error) {
	base := filepath.Join(dir, filepath.FromSlash(name))
	candidates := []string{base}
	if filepath.Ext(base) == "" {
		candidates = []string{base + ".kit", base}
	}
	for _, c := range append([]string(nil), candidates...) {
		candidates = append(candidates, filepath.Join(filepath.Dir(c), "_"+filepath.Base(c)))
	}

	for _, c := range candidates {
		info, err := os.Stat(c)
		if err == nil && !info.IsDir() {
			return c, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("cannot resolve import %q", name)
}
