package pipeline

import (
	"context"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/beanpipe/beanpipe/ast"
)

func TestRegisterAndLookup(t *testing.T) {
	called := 0
	Register("test-noop", func(ctx context.Context, tree *ast.AST, opts *Options) []*Diagnostic {
		called++
		return nil
	})

	fn, ok := Lookup("test-noop")
	assert.True(t, ok)
	fn(context.Background(), &ast.AST{}, &Options{})
	assert.Equal(t, 1, called)

	_, ok = Lookup("never-registered")
	assert.False(t, ok)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	Register("test-dup", func(ctx context.Context, tree *ast.AST, opts *Options) []*Diagnostic {
		return nil
	})

	defer func() {
		assert.NotEqual(t, nil, recover())
	}()
	Register("test-dup", nil)
}

func TestApplyRunsPluginsInOrder(t *testing.T) {
	var order []string
	Register("test-first", func(ctx context.Context, tree *ast.AST, opts *Options) []*Diagnostic {
		order = append(order, "first")
		return nil
	})
	Register("test-second", func(ctx context.Context, tree *ast.AST, opts *Options) []*Diagnostic {
		order = append(order, "second")
		return []*Diagnostic{Warningf(nil, "done")}
	})

	tree := &ast.AST{
		Plugins: []*ast.Plugin{
			{Name: "test-first"},
			{Name: "test-second"},
		},
	}

	diagnostics := Apply(context.Background(), tree)
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, 1, len(diagnostics))
	assert.Equal(t, SeverityWarning, diagnostics[0].Severity)
	assert.False(t, HasErrors(diagnostics))
}

func TestApplyUnknownTransform(t *testing.T) {
	tree := &ast.AST{Plugins: []*ast.Plugin{{Name: "test-missing"}}}

	diagnostics := Apply(context.Background(), tree)
	assert.Equal(t, 1, len(diagnostics))
	assert.Equal(t, SeverityError, diagnostics[0].Severity)
	assert.True(t, HasErrors(diagnostics))
}

func TestApplyPassesConfigAndLedgerOptions(t *testing.T) {
	var gotConfig, gotTitle string
	Register("test-options", func(ctx context.Context, tree *ast.AST, opts *Options) []*Diagnostic {
		gotConfig = opts.Config
		gotTitle = opts.Ledger["title"]
		return nil
	})

	tree := &ast.AST{
		Options: []*ast.Option{{Name: "title", Value: "My Ledger"}},
		Plugins: []*ast.Plugin{{Name: "test-options", Config: "{rate: 0.23}"}},
	}

	Apply(context.Background(), tree)
	assert.Equal(t, "{rate: 0.23}", gotConfig)
	assert.Equal(t, "My Ledger", gotTitle)
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in       string
		expected string
		fails    bool
	}{
		{in: "1000.00", expected: "1000"},
		{in: "1,234.56", expected: "1234.56"},
		{in: "-42", expected: "-42"},
		{in: "abc", fails: true},
	}

	for _, tt := range tests {
		dec, err := ParseDecimal(tt.in)
		if tt.fails {
			assert.Error(t, err)
			continue
		}
		assert.NoError(t, err)
		assert.Equal(t, tt.expected, dec.String())
	}
}

func TestDiagnosticError(t *testing.T) {
	txn := ast.NewTransaction(mustDate(t, "2023-01-15"), "Lunch")
	txn.Pos = ast.Position{Filename: "main.bean", Line: 7, Column: 1}

	d := Errorf(txn, "posting has no amount")
	assert.Equal(t, "main.bean:7:1: error: posting has no amount", d.Error())

	bare := &Diagnostic{Severity: SeverityError, Message: "unknown transform"}
	assert.Equal(t, "error: unknown transform", bare.Error())
}

func mustDate(t *testing.T, s string) *ast.Date {
	t.Helper()
	d, err := ast.NewDate(s)
	assert.NoError(t, err)
	return d
}
