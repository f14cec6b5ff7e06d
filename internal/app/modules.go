package app

import (
	"github.com/vk/modcell/internal/dispatch"
	"github.com/vk/modcell/modules/sysclock"
	"github.com/vk/modcell/modules/tally"
	"github.com/vk/modcell/modules/widgets"
)

// Builtin is a module compiled into the binary: its behaviors, plus the
// payload that is loaded into the default context at startup so every custom
// context can borrow it.
type Builtin interface {
	dispatch.Module
	Payload() []byte
}

// coreBuiltins is the definitive list of modules compiled into the modcell
// binary.
var coreBuiltins = []Builtin{
	widgets.Module{},
	tally.Module{},
	sysclock.Module{},
}
