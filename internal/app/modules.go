package app

import (
	"github.com/vk/assetpipe/internal/registry"
	"github.com/vk/assetpipe/modules/archive"
	"github.com/vk/assetpipe/modules/cacheclear"
	"github.com/vk/assetpipe/modules/clean"
	"github.com/vk/assetpipe/modules/image"
	"github.com/vk/assetpipe/modules/markup"
	"github.com/vk/assetpipe/modules/script"
	"github.com/vk/assetpipe/modules/style"
)

// coreModules is the definitive list of all modules that are compiled into
// the assetpipe binary.
var coreModules = []registry.Module{
	&style.Module{},
	&markup.Module{},
	&script.Module{},
	&image.Module{},
	&cacheclear.Module{},
	&archive.Module{},
	&clean.Module{},
}
