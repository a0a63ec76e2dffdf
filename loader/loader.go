// Package loader loads ledger files with optional recursive include
// resolution. In follow mode it resolves include directives relative to the
// directory of the including file, deduplicates files included more than
// once, and merges everything into a single AST.
//
// Example usage:
//
//	// Load a single file without following includes
//	ldr := loader.New()
//	tree, err := ldr.Load(ctx, "main.beancount")
//
//	// Load with recursive include resolution
//	ldr := loader.New(loader.WithFollowIncludes())
//	tree, err := ldr.Load(ctx, "main.beancount")
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/beanpipe/beanpipe/ast"
	"github.com/beanpipe/beanpipe/parser"
	"github.com/beanpipe/beanpipe/telemetry"
)

// Loader handles loading and parsing of ledger files.
type Loader struct {
	// FollowIncludes determines whether to recursively load included files.
	// When false, only the specified file is parsed and ast.Includes is
	// preserved. When true, all included files are merged into one AST.
	FollowIncludes bool
}

// Option configures how files are loaded.
type Option func(*Loader)

// WithFollowIncludes configures the loader to recursively load and merge all
// included files. The returned AST has Includes set to nil (all resolved).
func WithFollowIncludes() Option {
	return func(l *Loader) {
		l.FollowIncludes = true
	}
}

// New creates a new Loader with the given options.
func New(opts ...Option) *Loader {
	l := &Loader{}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load parses a ledger file with optional recursive include resolution.
func (l *Loader) Load(ctx context.Context, filename string) (*ast.AST, error) {
	timer := telemetry.FromContext(ctx).Start(fmt.Sprintf("loader.load %s", filepath.Base(filename)))
	defer timer.End()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}

	return l.loadBytes(ctx, filename, data)
}

// LoadBytes parses in-memory source, resolving includes relative to the
// directory of the given filename.
func (l *Loader) LoadBytes(ctx context.Context, filename string, data []byte) (*ast.AST, error) {
	timer := telemetry.FromContext(ctx).Start(fmt.Sprintf("loader.load %s", filepath.Base(filename)))
	defer timer.End()

	return l.loadBytes(ctx, filename, data)
}

func (l *Loader) loadBytes(ctx context.Context, filename string, data []byte) (*ast.AST, error) {
	tree, err := parser.ParseBytesWithFilename(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	if !l.FollowIncludes || len(tree.Includes) == 0 {
		return tree, nil
	}

	state := &loaderState{visited: map[string]bool{absPath(filename): true}}
	if err := state.mergeIncludes(ctx, tree, filepath.Dir(filename)); err != nil {
		return nil, err
	}

	tree.Includes = nil
	ast.SortDirectives(tree)
	return tree, nil
}

type loaderState struct {
	visited map[string]bool
}

// mergeIncludes resolves the includes of tree in place, depth first.
func (s *loaderState) mergeIncludes(ctx context.Context, tree *ast.AST, dir string) error {
	includes := tree.Includes
	tree.Includes = nil

	for _, include := range includes {
		path := include.Filename
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}

		abs := absPath(path)
		if s.visited[abs] {
			continue
		}
		s.visited[abs] = true

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read include %s: %w", include.Filename, err)
		}

		sub, err := parser.ParseBytesWithFilename(ctx, path, data)
		if err != nil {
			return err
		}

		if err := s.mergeIncludes(ctx, sub, filepath.Dir(path)); err != nil {
			return err
		}

		tree.Directives = append(tree.Directives, sub.Directives...)
		tree.Options = append(tree.Options, sub.Options...)
		tree.Plugins = append(tree.Plugins, sub.Plugins...)
	}

	return nil
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
