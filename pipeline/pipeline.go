// Package pipeline defines the contract between the host ledger and the
// post-parse transforms.
//
// A transform is a named, pure function over an already-parsed directive
// stream: it may rewrite postings, insert synthesized directives, and report
// structured diagnostics, but it performs no I/O and keeps no state between
// invocations. Transforms register themselves by name (typically from an
// init function, like database/sql drivers) and are applied in the order the
// ledger's plugin directives name them.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/beanpipe/beanpipe/ast"
	"github.com/beanpipe/beanpipe/telemetry"
)

// Transform rewrites the directive stream in place and returns the
// diagnostics it produced. Expected domain violations are diagnostics, never
// Go errors or panics.
type Transform func(ctx context.Context, tree *ast.AST, opts *Options) []*Diagnostic

// Options carries the per-invocation configuration of a transform: the
// plugin directive's config string plus the ledger's global options.
type Options struct {
	// Config is the raw configuration string of the plugin directive
	// (or pipeline file entry) that named the transform.
	Config string

	// Ledger holds the values of the ledger's option directives by name.
	Ledger map[string]string
}

// Spec names a transform together with its configuration string. The CLI
// builds specs either from the ledger's plugin directives or from a pipeline
// file.
type Spec struct {
	Name   string `yaml:"name"`
	Config string `yaml:"config,omitempty"`
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Transform)
)

// Register makes a transform available under the given name.
// It panics if the name is already taken; transform names are a flat,
// process-wide namespace.
func Register(name string, fn Transform) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("pipeline: transform %q registered twice", name))
	}
	registry[name] = fn
}

// Lookup returns the transform registered under the given name.
func Lookup(name string) (Transform, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	fn, ok := registry[name]
	return fn, ok
}

// Names returns all registered transform names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Apply runs the transforms named by the tree's plugin directives, in order,
// and returns the concatenated diagnostics. An unknown plugin name yields an
// error diagnostic; the remaining transforms still run.
func Apply(ctx context.Context, tree *ast.AST) []*Diagnostic {
	specs := make([]Spec, 0, len(tree.Plugins))
	for _, plugin := range tree.Plugins {
		specs = append(specs, Spec{Name: plugin.Name, Config: plugin.Config})
	}
	return ApplySpecs(ctx, tree, specs)
}

// ApplySpecs runs the given transforms over the tree, in order.
func ApplySpecs(ctx context.Context, tree *ast.AST, specs []Spec) []*Diagnostic {
	timer := telemetry.FromContext(ctx).Start(fmt.Sprintf("pipeline.apply (%d transforms)", len(specs)))
	defer timer.End()

	ledgerOptions := make(map[string]string, len(tree.Options))
	for _, opt := range tree.Options {
		ledgerOptions[opt.Name] = opt.Value
	}

	var diagnostics []*Diagnostic
	for _, spec := range specs {
		fn, ok := Lookup(spec.Name)
		if !ok {
			diagnostics = append(diagnostics, &Diagnostic{
				Severity: SeverityError,
				Message:  fmt.Sprintf("unknown transform %q", spec.Name),
			})
			continue
		}

		transformTimer := timer.Child(fmt.Sprintf("transform %s", spec.Name))
		diags := fn(ctx, tree, &Options{Config: spec.Config, Ledger: ledgerOptions})
		transformTimer.End()

		diagnostics = append(diagnostics, diags...)
	}

	return diagnostics
}
