// Package registry provides the central "glue" for the module system.
//
// The Registry maps task names (e.g., "style") to factories that build the
// task from the immutable project configuration. Modules register their
// factories at startup; commands then resolve the tasks they compose by
// name. Validation ensures every name a command refers to is backed by a
// registered module before anything runs.
package registry
