// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It is responsible for parsing the project file, exposing the
// `src_dir` and `dist_dir` variables to block expressions, and binding
// evaluated attribute values onto the Go registry structs.
package hcl
