package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/alecthomas/kong"

	"github.com/beanpipe/beanpipe/loader"
	"github.com/beanpipe/beanpipe/pipeline"
	"github.com/beanpipe/beanpipe/telemetry"
)

type CheckCmd struct {
	File     FileOrStdin `help:"Ledger input filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
	Pipeline string      `help:"Run the transforms from a YAML pipeline file instead of the ledger's plugin directives." type:"existingfile"`
}

func (cmd *CheckCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return err
	}

	runCtx := context.Background()

	var collector telemetry.Collector
	var checkTimer telemetry.Timer
	var once sync.Once

	reportTelemetry := func() {
		once.Do(func() {
			if collector != nil {
				checkTimer.End()
				_, _ = fmt.Fprintln(ctx.Stderr)
				collector.Report(ctx.Stderr)
			}
		})
	}

	if globals.Telemetry {
		collector = telemetry.NewTimingCollector()
		runCtx = telemetry.WithCollector(runCtx, collector)

		checkTimer = collector.Start(fmt.Sprintf("check %s", filepath.Base(cmd.File.Filename)))

		defer reportTelemetry()
	}

	sourceContent, err := cmd.File.GetSourceContent()
	if err != nil {
		return fmt.Errorf("failed to read file for diagnostic context: %w", err)
	}
	renderer := NewDiagnosticRenderer(cmd.File.GetAbsoluteFilename(), sourceContent)

	ldr := loader.New(loader.WithFollowIncludes())
	tree, err := cmd.File.LoadAST(runCtx, ldr)
	if err != nil {
		_, _ = fmt.Fprintln(ctx.Stderr, renderer.RenderError(err))
		_, _ = fmt.Fprintln(ctx.Stderr)
		printError(ctx.Stderr, "parse error")

		reportTelemetry()
		return NewCommandError(1)
	}

	diagnostics, err := applyPipeline(runCtx, tree, cmd.Pipeline)
	if err != nil {
		return err
	}

	if len(diagnostics) > 0 {
		_, _ = fmt.Fprintln(ctx.Stderr, renderer.RenderAll(diagnostics))
		_, _ = fmt.Fprintln(ctx.Stderr)
	}

	if pipeline.HasErrors(diagnostics) {
		printError(ctx.Stderr, fmt.Sprintf("%d diagnostic(s) found", len(diagnostics)))

		reportTelemetry()
		return NewCommandError(1)
	}

	printSuccess(ctx.Stdout, "Check passed")

	return nil
}
