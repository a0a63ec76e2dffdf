package cli

import (
	"github.com/alecthomas/kong"

	"github.com/beanpipe/beanpipe/pipeline"
)

type PluginsCmd struct{}

func (cmd *PluginsCmd) Run(ctx *kong.Context, globals *Globals) error {
	for _, name := range pipeline.Names() {
		printInfof(ctx.Stdout, "%s", name)
	}
	return nil
}
