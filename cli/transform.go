package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/beanpipe/beanpipe/ast"
	"github.com/beanpipe/beanpipe/formatter"
	"github.com/beanpipe/beanpipe/loader"
	"github.com/beanpipe/beanpipe/pipeline"
	"github.com/beanpipe/beanpipe/telemetry"
)

type TransformCmd struct {
	File           FileOrStdin `help:"Ledger input filename (use '-' for stdin, or omit for stdin)." arg:"" optional:""`
	Write          bool        `help:"Write the transformed ledger back to the input file instead of printing it." short:"w"`
	Force          bool        `help:"Write back without asking for confirmation." short:"f"`
	Watch          bool        `help:"Re-run the transforms whenever the input file changes."`
	Pipeline       string      `help:"Run the transforms from a YAML pipeline file instead of the ledger's plugin directives." type:"existingfile"`
	CurrencyColumn int         `help:"Column for currency alignment (auto-calculated from content if 0)." default:"0"`
}

func (cmd *TransformCmd) Run(ctx *kong.Context, globals *Globals) error {
	if err := cmd.File.EnsureContents(); err != nil {
		return err
	}

	if cmd.File.IsStdin() && (cmd.Write || cmd.Watch) {
		return fmt.Errorf("--write and --watch require a file, not stdin")
	}

	runCtx := context.Background()
	if globals.Telemetry {
		collector := telemetry.NewTimingCollector()
		runCtx = telemetry.WithCollector(runCtx, collector)

		defer func() {
			_, _ = fmt.Fprintln(ctx.Stderr)
			collector.Report(ctx.Stderr)
		}()
	}

	if cmd.Watch {
		return cmd.watch(runCtx, ctx)
	}
	return cmd.runOnce(runCtx, ctx)
}

func (cmd *TransformCmd) runOnce(runCtx context.Context, ctx *kong.Context) error {
	sourceContent, err := cmd.File.GetSourceContent()
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	renderer := NewDiagnosticRenderer(cmd.File.GetAbsoluteFilename(), sourceContent)

	ldr := loader.New(loader.WithFollowIncludes())
	tree, err := cmd.File.LoadAST(runCtx, ldr)
	if err != nil {
		_, _ = fmt.Fprintln(ctx.Stderr, renderer.RenderError(err))
		_, _ = fmt.Fprintln(ctx.Stderr)
		printError(ctx.Stderr, "parse error")
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
		return NewCommandError(1)
	}

	var opts []formatter.Option
	if cmd.CurrencyColumn > 0 {
		opts = append(opts, formatter.WithCurrencyColumn(cmd.CurrencyColumn))
	}
	f := formatter.New(opts...)

	if !cmd.Write {
		return f.Format(tree, ctx.Stdout)
	}
	return cmd.writeBack(ctx, f, tree)
}

func (cmd *TransformCmd) writeBack(ctx *kong.Context, f *formatter.Formatter, tree *ast.AST) error {
	filename := cmd.File.GetAbsoluteFilename()

	if !cmd.Force {
		confirmed, err := promptYesNo(fmt.Sprintf("Overwrite %q with the transformed ledger?", filename))
		if err != nil {
			return err
		}
		if !confirmed {
			printInfof(ctx.Stdout, "Not overwriting %s", pathStyle.Render(filename))
			return nil
		}
	}

	var buf strings.Builder
	if err := f.Format(tree, &buf); err != nil {
		return err
	}
	if err := os.WriteFile(filename, []byte(buf.String()), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	printSuccess(ctx.Stdout, fmt.Sprintf("Wrote %s", pathStyle.Render(filename)))
	return nil
}

// watch re-runs the transform on every change to the input file. It watches
// the parent directory because editors typically replace files on save.
func (cmd *TransformCmd) watch(runCtx context.Context, ctx *kong.Context) error {
	filename := cmd.File.GetAbsoluteFilename()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(filename)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(filename), err)
	}

	printInfof(ctx.Stdout, "Watching %s", pathStyle.Render(filename))

	if err := cmd.runOnce(runCtx, ctx); err != nil {
		if _, isCommandError := err.(*CommandError); !isCommandError {
			return err
		}
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != filename || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}

			printInfof(ctx.Stdout, "Change detected, re-running transforms")
			if err := cmd.runOnce(runCtx, ctx); err != nil {
				if _, isCommandError := err.(*CommandError); !isCommandError {
					return err
				}
			}

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			printError(ctx.Stderr, watchErr.Error())
		}
	}
}

// applyPipeline runs either the ledger's own plugin directives or, when a
// pipeline file is given, the transforms it names.
func applyPipeline(runCtx context.Context, tree *ast.AST, pipelineFile string) ([]*pipeline.Diagnostic, error) {
	if pipelineFile == "" {
		return pipeline.Apply(runCtx, tree), nil
	}

	specs, err := loadPipelineFile(pipelineFile)
	if err != nil {
		return nil, err
	}
	return pipeline.ApplySpecs(runCtx, tree, specs), nil
}

// pipelineFile is the YAML shape of a --pipeline configuration.
type pipelineFile struct {
	Transforms []pipeline.Spec `yaml:"transforms"`
}

func loadPipelineFile(filename string) ([]pipeline.Spec, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}

	var file pipelineFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid pipeline file %s: %w", filename, err)
	}
	if len(file.Transforms) == 0 {
		return nil, fmt.Errorf("pipeline file %s names no transforms", filename)
	}
	return file.Transforms, nil
}
