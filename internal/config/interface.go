package config

import "context"

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads the configuration file at path and layers it over the
	// built-in defaults. The returned Config has no Root set.
	Load(ctx context.Context, path string) (*Config, error)
}
