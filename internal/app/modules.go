package app

import (
	"io"

	"github.com/vk/slotflow/internal/registry"
	"github.com/vk/slotflow/modules/annotate"
	"github.com/vk/slotflow/modules/env_vars"
	"github.com/vk/slotflow/modules/kinds"
	"github.com/vk/slotflow/modules/merge_rows"
	"github.com/vk/slotflow/modules/print"
	"github.com/vk/slotflow/modules/table_source"
)

// CoreModules returns the modules compiled into the slotflow binary. The
// kinds module comes first because the others use its kinds. Print nodes
// write to out.
func CoreModules(out io.Writer) []registry.Module {
	return []registry.Module{
		&kinds.Module{},
		&table_source.Module{},
		&env_vars.Module{},
		&annotate.Module{},
		&merge_rows.Module{},
		&print.Module{Out: out},
	}
}
