package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/beanpipe/beanpipe/parser"
	"github.com/beanpipe/beanpipe/pipeline"
)

func TestLoadPipelineFile(t *testing.T) {
	t.Run("ValidFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pipeline.yaml")
		assert.NoError(t, os.WriteFile(path, []byte(`
transforms:
  - name: valuation
  - name: vat
    config: "{rate: '0.21'}"
`), 0644))

		specs, err := loadPipelineFile(path)
		assert.NoError(t, err)
		assert.Equal(t, 2, len(specs))
		assert.Equal(t, "valuation", specs[0].Name)
		assert.Equal(t, "vat", specs[1].Name)
		assert.Equal(t, "{rate: '0.21'}", specs[1].Config)
	})

	t.Run("EmptyTransforms", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pipeline.yaml")
		assert.NoError(t, os.WriteFile(path, []byte("transforms: []\n"), 0644))

		_, err := loadPipelineFile(path)
		assert.Error(t, err)
	})

	t.Run("InvalidYAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "pipeline.yaml")
		assert.NoError(t, os.WriteFile(path, []byte("transforms: {"), 0644))

		_, err := loadPipelineFile(path)
		assert.Error(t, err)
	})
}

func TestDiagnosticRendererShowsSourceContext(t *testing.T) {
	source := `2023-01-01 custom "valuation-config" Assets:Funds:Pension
  commodity: PENSION
`
	tree, err := parser.ParseBytes(context.Background(), []byte(source))
	assert.NoError(t, err)

	d := pipeline.Errorf(tree.Directives[0], "missing pnl account")

	renderer := NewDiagnosticRenderer("<input>", []byte(source))
	rendered := renderer.Render(d)

	assert.True(t, strings.Contains(rendered, "missing pnl account"))
	assert.True(t, strings.Contains(rendered, "valuation-config"))
	assert.True(t, strings.Contains(rendered, "^"))
}

func TestDiagnosticRendererWithoutPosition(t *testing.T) {
	d := &pipeline.Diagnostic{Severity: pipeline.SeverityError, Message: "unknown transform"}

	renderer := NewDiagnosticRenderer("ledger.bean", []byte("2023-01-01 open Assets:Cash\n"))
	rendered := renderer.Render(d)

	// No position, no context block.
	assert.True(t, strings.Contains(rendered, "unknown transform"))
	assert.False(t, strings.Contains(rendered, "open Assets:Cash"))
}

func TestCommandErrorExitCode(t *testing.T) {
	err := NewCommandError(2)
	assert.Equal(t, 2, err.ExitCode())
	assert.Equal(t, "command failed", err.Error())
}

func TestFileOrStdinAbsoluteFilename(t *testing.T) {
	f := &FileOrStdin{Filename: "<stdin>", Contents: []byte("")}
	assert.True(t, f.IsStdin())
	assert.Equal(t, "<stdin>", f.GetAbsoluteFilename())

	g := &FileOrStdin{Filename: "ledger.bean"}
	assert.False(t, g.IsStdin())
	assert.True(t, filepath.IsAbs(g.GetAbsoluteFilename()))
}
