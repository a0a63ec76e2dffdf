// Package filtermap applies filter and map operations over the
// transactions of a ledger.
//
// Operations are declared in the ledger itself as custom "filter-map"
// entries. A "preset" entry defines a reusable, named set of parameters; an
// "apply" entry runs an operation (optionally based on a preset) against
// every matching transaction. Filters select transactions by time window,
// posting account, or a pattern over payee, narration, and tags; actions add
// tags or metadata and rewrite the payee or narration.
package filtermap

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/beanpipe/beanpipe/ast"
	"github.com/beanpipe/beanpipe/pipeline"
	"github.com/beanpipe/beanpipe/telemetry"
	"gopkg.in/yaml.v3"
)

// Name is the transform's registered name.
const Name = "filter-map"

func init() {
	pipeline.Register(Name, Transform)
}

// parameter keys recognized on preset and apply entries.
var parameterKeys = []string{
	"time", "account", "filter",
	"addTags", "addMeta", "setPayee", "setNarration",
}

// Transform collects presets and apply operations from the stream, then runs
// every operation against every transaction. Apply entries stay in the
// output, annotated with how many transactions they touched.
func Transform(ctx context.Context, tree *ast.AST, opts *pipeline.Options) []*pipeline.Diagnostic {
	timer := telemetry.FromContext(ctx).Start("filter-map")
	defer timer.End()

	presets, diagnostics := collectPresets(tree)

	operations, opDiagnostics := collectOperations(tree, presets)
	diagnostics = append(diagnostics, opDiagnostics...)
	if len(operations) == 0 {
		return diagnostics
	}

	for _, directive := range tree.Directives {
		txn, ok := directive.(*ast.Transaction)
		if !ok {
			continue
		}
		for _, op := range operations {
			if op.matches(txn) {
				op.apply(txn)
			}
		}
	}

	for _, op := range operations {
		op.directive.AddMetadata(ast.NewNumberMetadata("timesApplied", strconv.Itoa(op.applied)))
	}

	return diagnostics
}

// parameters is the raw key/value set of a preset or apply entry.
type parameters map[string]string

func collectParameters(custom *ast.Custom) parameters {
	params := make(parameters)
	for _, key := range parameterKeys {
		if value, ok := custom.GetMetadata(key); ok {
			params[key] = value.String()
		}
	}
	return params
}

func collectPresets(tree *ast.AST) (map[string]parameters, []*pipeline.Diagnostic) {
	presets := make(map[string]parameters)

	var diagnostics []*pipeline.Diagnostic
	for _, directive := range tree.Directives {
		custom, ok := directive.(*ast.Custom)
		if !ok || custom.Type != Name || firstValue(custom) != "preset" {
			continue
		}

		name, ok := custom.GetMetadata("name")
		if !ok {
			diagnostics = append(diagnostics, pipeline.Errorf(custom, "filter-map preset has no name"))
			continue
		}
		presets[name.String()] = collectParameters(custom)
	}

	return presets, diagnostics
}

func collectOperations(tree *ast.AST, presets map[string]parameters) ([]*operation, []*pipeline.Diagnostic) {
	var operations []*operation
	var diagnostics []*pipeline.Diagnostic

	for _, directive := range tree.Directives {
		custom, ok := directive.(*ast.Custom)
		if !ok || custom.Type != Name || firstValue(custom) != "apply" {
			continue
		}

		params := make(parameters)
		if presetName, hasPreset := custom.GetMetadata("preset"); hasPreset {
			preset, known := presets[presetName.String()]
			if !known {
				diagnostics = append(diagnostics, pipeline.Errorf(custom, "unknown filter-map preset %q", presetName.String()))
				continue
			}
			for key, value := range preset {
				params[key] = value
			}
		}
		// Direct parameters override the preset's.
		for key, value := range collectParameters(custom) {
			params[key] = value
		}

		op, err := newOperation(custom, params)
		if err != nil {
			diagnostics = append(diagnostics, pipeline.Errorf(custom, "invalid filter-map operation: %s", err))
			continue
		}
		operations = append(operations, op)
	}

	return operations, diagnostics
}

func firstValue(custom *ast.Custom) string {
	if len(custom.Values) == 0 || custom.Values[0].String == nil {
		return ""
	}
	return strings.TrimSpace(*custom.Values[0].String)
}

// applySetAction resolves a setPayee/setNarration action value. The plain
// form replaces the whole current value; the "replace:{old: new}" form
// substitutes each mapping pair inside the current value.
func applySetAction(action, current string) string {
	spec, ok := strings.CutPrefix(action, "replace:")
	if !ok {
		return action
	}

	var replacements map[string]string
	if err := yaml.Unmarshal([]byte(spec), &replacements); err != nil {
		return action
	}

	keys := make([]string, 0, len(replacements))
	for key := range replacements {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := current
	for _, key := range keys {
		result = strings.ReplaceAll(result, key, replacements[key])
	}
	return result
}

// parseMetaMapping parses an addMeta value, a YAML flow mapping like
// "{category: travel, reviewed: yes}", into sorted metadata entries.
func parseMetaMapping(spec string) ([]*ast.Metadata, error) {
	var mapping map[string]string
	if err := yaml.Unmarshal([]byte(spec), &mapping); err != nil {
		return nil, fmt.Errorf("invalid metadata mapping %q: %w", spec, err)
	}

	keys := make([]string, 0, len(mapping))
	for key := range mapping {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	meta := make([]*ast.Metadata, 0, len(keys))
	for _, key := range keys {
		meta = append(meta, ast.NewMetadata(key, mapping[key]))
	}
	return meta, nil
}
