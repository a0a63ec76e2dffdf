package filtermap

import (
	"context"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/beanpipe/beanpipe/ast"
	"github.com/beanpipe/beanpipe/parser"
	"github.com/beanpipe/beanpipe/pipeline"
)

func run(t *testing.T, source string) (*ast.AST, []*pipeline.Diagnostic) {
	t.Helper()
	tree, err := parser.ParseBytes(context.Background(), []byte(source))
	assert.NoError(t, err)
	diagnostics := Transform(context.Background(), tree, &pipeline.Options{})
	return tree, diagnostics
}

func transactionsOf(tree *ast.AST) []*ast.Transaction {
	var txns []*ast.Transaction
	for _, d := range tree.Directives {
		if txn, ok := d.(*ast.Transaction); ok {
			txns = append(txns, txn)
		}
	}
	return txns
}

func TestAddTagsByAccount(t *testing.T) {
	tree, diagnostics := run(t, `
2023-01-01 custom "filter-map" "apply"
  account: "Expenses:Travel.*"
  addTags: "#travel #work"

2023-02-01 * "Taxi"
  Expenses:Travel:Taxi  20.00 EUR
  Assets:Bank:Checking  -20.00 EUR

2023-02-02 * "Groceries"
  Expenses:Food         12.50 EUR
  Assets:Bank:Checking  -12.50 EUR
`)
	assert.Equal(t, 0, len(diagnostics))

	txns := transactionsOf(tree)
	assert.True(t, txns[0].HasTag("travel"))
	assert.True(t, txns[0].HasTag("work"))
	assert.False(t, txns[1].HasTag("travel"))
}

func TestTimeFilter(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		matched []bool
	}{
		{name: "year", spec: "2023", matched: []bool{true, true, false}},
		{name: "month", spec: "2023-02", matched: []bool{false, true, false}},
		{name: "range", spec: "2023-02 - 2024-01", matched: []bool{false, true, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, diagnostics := run(t, `
2023-01-01 custom "filter-map" "apply"
  time: "`+tt.spec+`"
  addTags: "#matched"

2023-01-15 * "One"
  Expenses:Food         1.00 EUR
  Assets:Bank:Checking  -1.00 EUR

2023-02-15 * "Two"
  Expenses:Food         1.00 EUR
  Assets:Bank:Checking  -1.00 EUR

2024-01-15 * "Three"
  Expenses:Food         1.00 EUR
  Assets:Bank:Checking  -1.00 EUR
`)
			assert.Equal(t, 0, len(diagnostics))
			for i, txn := range transactionsOf(tree) {
				assert.Equal(t, tt.matched[i], txn.HasTag("matched"))
			}
		})
	}
}

func TestNarrationFilterAndAddMeta(t *testing.T) {
	tree, diagnostics := run(t, `
2023-01-01 custom "filter-map" "apply"
  filter: "(?i)amazon"
  addMeta: "{category: shopping, reviewed: pending}"

2023-02-01 * "AMAZON EU SARL"
  Expenses:Shopping     30.00 EUR
  Assets:Bank:Checking  -30.00 EUR
`)
	assert.Equal(t, 0, len(diagnostics))

	txn := transactionsOf(tree)[0]
	category, ok := txn.GetMetadata("category")
	assert.True(t, ok)
	assert.Equal(t, "shopping", category.String())
	reviewed, ok := txn.GetMetadata("reviewed")
	assert.True(t, ok)
	assert.Equal(t, "pending", reviewed.String())
}

func TestSetPayeeAndNarration(t *testing.T) {
	tree, diagnostics := run(t, `
2023-01-01 custom "filter-map" "apply"
  filter: "AMZN"
  setPayee: "Amazon"
  setNarration: "replace:{AMZN Mktp: Order}"

2023-02-01 * "AMZN*123" "AMZN Mktp DE"
  Expenses:Shopping     30.00 EUR
  Assets:Bank:Checking  -30.00 EUR
`)
	assert.Equal(t, 0, len(diagnostics))

	txn := transactionsOf(tree)[0]
	assert.Equal(t, "Amazon", txn.Payee)
	assert.Equal(t, "Order DE", txn.Narration)
}

func TestPresetWithOverride(t *testing.T) {
	tree, diagnostics := run(t, `
2023-01-01 custom "filter-map" "preset"
  name: "travel"
  account: "Expenses:Travel.*"
  addTags: "#travel"

2023-01-02 custom "filter-map" "apply"
  preset: "travel"

2023-01-03 custom "filter-map" "apply"
  preset: "travel"
  addTags: "#trip"

2023-02-01 * "Taxi"
  Expenses:Travel:Taxi  20.00 EUR
  Assets:Bank:Checking  -20.00 EUR
`)
	assert.Equal(t, 0, len(diagnostics))

	txn := transactionsOf(tree)[0]
	assert.True(t, txn.HasTag("travel"))
	assert.True(t, txn.HasTag("trip"))
}

func TestUnknownPreset(t *testing.T) {
	_, diagnostics := run(t, `
2023-01-01 custom "filter-map" "apply"
  preset: "nope"
`)
	assert.Equal(t, 1, len(diagnostics))
	assert.Equal(t, pipeline.SeverityError, diagnostics[0].Severity)
}

func TestTimesAppliedAnnotation(t *testing.T) {
	tree, diagnostics := run(t, `
2023-01-01 custom "filter-map" "apply"
  account: "Expenses:Food"
  addTags: "#food"

2023-02-01 * "Groceries"
  Expenses:Food         12.50 EUR
  Assets:Bank:Checking  -12.50 EUR

2023-02-02 * "Restaurant"
  Expenses:Food         40.00 EUR
  Assets:Bank:Checking  -40.00 EUR
`)
	assert.Equal(t, 0, len(diagnostics))

	var apply *ast.Custom
	for _, d := range tree.Directives {
		if custom, ok := d.(*ast.Custom); ok && custom.Type == Name {
			apply = custom
		}
	}
	assert.NotEqual(t, nil, apply)
	times, ok := apply.GetMetadata("timesApplied")
	assert.True(t, ok)
	assert.Equal(t, "2", times.String())
}

func TestApplySetAction(t *testing.T) {
	tests := []struct {
		name     string
		action   string
		current  string
		expected string
	}{
		{name: "whole value", action: "Amazon", current: "AMZN*123", expected: "Amazon"},
		{name: "replace pair", action: "replace:{AMZN: Amazon}", current: "AMZN Marketplace", expected: "Amazon Marketplace"},
		{name: "replace multiple", action: "replace:{a: x, b: y}", current: "ab", expected: "xy"},
		{name: "invalid replace spec keeps action", action: "replace:{", current: "anything", expected: "replace:{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, applySetAction(tt.action, tt.current))
		})
	}
}

func TestParseTimeSpecInvalid(t *testing.T) {
	for _, spec := range []string{"23", "2023-13", "2024 - 2023", "soon"} {
		_, err := parseTimeSpec(spec)
		assert.Error(t, err, "spec %q", spec)
	}
}
