// Package config defines the format-agnostic path registry for the asset
// pipeline, along with the Loader interface used to read it from project
// configuration files.
//
// A `config.Config` is built once at startup and never mutated afterwards.
// Tasks receive the group they operate on by value at construction time.
// Concrete loaders, such as for HCL and YAML, are provided in separate
// packages.
package config
