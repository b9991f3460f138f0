package task

import (
	"errors"
	"fmt"
)

// CompileError reports malformed input to a compiler (stylesheet, template
// or script). It never stops the watch loop.
type CompileError struct {
	Task    string
	File    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *CompileError) Error() string {
	loc := e.File
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
		if e.Column > 0 {
			loc = fmt.Sprintf("%s:%d", loc, e.Column)
		}
	}
	if loc == "" {
		return fmt.Sprintf("%s: compile error: %s", e.Task, e.Message)
	}
	return fmt.Sprintf("%s: compile error at %s: %s", e.Task, loc, e.Message)
}

func (e *CompileError) Unwrap() error { return e.Err }

// IOError reports a missing source or an unwritable destination. It aborts
// only the task that hit it.
type IOError struct {
	Task string
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", e.Task, e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// CacheError reports an unreadable or corrupt cache entry. Callers treat it
// as a cache miss.
type CacheError struct {
	Key string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache entry %s: %v", e.Key, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// Kind classifies err for reporting.
func Kind(err error) string {
	var (
		compileErr *CompileError
		ioErr      *IOError
		cacheErr   *CacheError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &compileErr):
		return "compile"
	case errors.As(err, &ioErr):
		return "io"
	case errors.As(err, &cacheErr):
		return "cache"
	default:
		return "internal"
	}
}
