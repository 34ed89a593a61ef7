package app

import (
	"github.com/vk/gridflow/internal/registry"
	"github.com/vk/gridflow/modules/fileops"
	"github.com/vk/gridflow/modules/print"
)

// coreModules is the definitive list of all modules that are compiled into
// the gridflow binary.
var coreModules = []registry.Module{
	&fileops.Module{},
	&print.Module{},
}
