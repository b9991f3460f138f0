package app

import (
	"github.com/vk/assetpipe/internal/config"
	"github.com/vk/assetpipe/internal/hcl"
	"github.com/vk/assetpipe/internal/yamlconf"
)

// Loaders returns the configuration loaders compiled into the binary, keyed
// by file extension.
func Loaders() map[string]config.Loader {
	yamlLoader := yamlconf.NewLoader()
	return map[string]config.Loader{
		".hcl":  hcl.NewLoader(),
		".yaml": yamlLoader,
		".yml":  yamlLoader,
	}
}
