package fsutil

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

type rule struct {
	pattern string
	exclude bool
}

// Matcher evaluates an ordered list of glob patterns. A leading "!" marks an
// exclusion. A path is selected when the last pattern that matches it is an
// inclusion, so later patterns override earlier ones.
type Matcher struct {
	rules []rule
}

// NewMatcher builds a Matcher from slash separated patterns.
func NewMatcher(patterns []string) *Matcher {
	m := &Matcher{rules: make([]rule, 0, len(patterns))}
	for _, p := range patterns {
		exclude := strings.HasPrefix(p, "!")
		m.rules = append(m.rules, rule{pattern: strings.TrimPrefix(p, "!"), exclude: exclude})
	}
	return m
}

// Match reports whether the slash separated relative path is selected.
func (m *Matcher) Match(rel string) bool {
	selected := false
	for _, r := range m.rules {
		if ok, _ := doublestar.Match(r.pattern, rel); ok {
			selected = !r.exclude
		}
	}
	return selected
}

// dirPrefix returns "dist" for "dist/**" and "dist/**/*".
func dirPrefix(pattern string) (string, bool) {
	for _, suffix := range []string{"/**/*", "/**"} {
		if strings.HasSuffix(pattern, suffix) {
			return strings.TrimSuffix(pattern, suffix), true
		}
	}
	return "", false
}

// Prunable reports whether nothing below the directory rel can ever be
// selected: some exclusion of the form "dir/**" or "dir/**/*" covers it and no inclusion
// follows that exclusion.
func (m *Matcher) Prunable(rel string) bool {
	for i, r := range m.rules {
		if !r.exclude {
			continue
		}
		prefix, ok := dirPrefix(r.pattern)
		if !ok {
			continue
		}
		if ok, _ := doublestar.Match(prefix, rel); !ok {
			if ok, _ := doublestar.Match(prefix+"/**", rel); !ok {
				continue
			}
		}
		reincluded := false
		for _, later := range m.rules[i+1:] {
			if !later.exclude {
				reincluded = true
				break
			}
		}
		if !reincluded {
			return true
		}
	}
	return false
}
