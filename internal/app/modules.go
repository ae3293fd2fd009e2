package app

import (
	"github.com/vk/taskgridgo/internal/registry"
	"github.com/vk/taskgridgo/modules/delay"
	"github.com/vk/taskgridgo/modules/env_vars"
	"github.com/vk/taskgridgo/modules/print"
)

// coreModules is the default set of built-in runners available to grids.
var coreModules = []registry.Module{
	&delay.Module{},
	&env_vars.Module{},
	&print.Module{},
}
