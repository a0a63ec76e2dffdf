package cli

import (
	"strings"

	"github.com/beanpipe/beanpipe/ast"
	"github.com/beanpipe/beanpipe/parser"
	"github.com/beanpipe/beanpipe/pipeline"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	caretStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"})
	contextStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})
)

// DiagnosticRenderer renders pipeline diagnostics and load errors with
// terminal styling and source-line context.
type DiagnosticRenderer struct {
	source   []byte
	filename string
	width    int
}

// NewDiagnosticRenderer creates a renderer for the given source file. The
// source is used to show the offending lines under each diagnostic.
func NewDiagnosticRenderer(filename string, source []byte) *DiagnosticRenderer {
	return &DiagnosticRenderer{
		source:   source,
		filename: filename,
		width:    terminalWidth(),
	}
}

// RenderError formats a load or parse error.
func (r *DiagnosticRenderer) RenderError(err error) string {
	if e, ok := err.(*parser.ParseError); ok {
		return r.renderWithSourceContext(e.Pos, errorStyle.Render(e.Error()))
	}
	return errorStyle.Render(err.Error())
}

// RenderAll formats the diagnostics, separated by blank lines.
func (r *DiagnosticRenderer) RenderAll(diagnostics []*pipeline.Diagnostic) string {
	var buf strings.Builder
	for i, d := range diagnostics {
		buf.WriteString(r.Render(d))
		if i < len(diagnostics)-1 {
			buf.WriteString("\n\n")
		}
	}
	return buf.String()
}

// Render formats one diagnostic with the source lines around its position.
func (r *DiagnosticRenderer) Render(d *pipeline.Diagnostic) string {
	style := errorStyle
	if d.Severity == pipeline.SeverityWarning {
		style = warnStyle
	}
	return r.renderWithSourceContext(d.GetPosition(), style.Render(d.Error()))
}

func (r *DiagnosticRenderer) renderWithSourceContext(pos ast.Position, message string) string {
	var buf strings.Builder
	buf.WriteString(message)

	// Context is only available for positions in the file we loaded;
	// directives pulled in through includes render without it.
	if r.source == nil || pos.Line == 0 || (pos.Filename != "" && pos.Filename != r.filename) {
		return buf.String()
	}

	lines := strings.Split(string(r.source), "\n")
	if pos.Line > len(lines) {
		return buf.String()
	}

	buf.WriteString("\n\n")

	start := max(pos.Line-3, 0)
	end := min(pos.Line, len(lines)-1)

	for i := start; i <= end; i++ {
		line := lines[i]
		if r.width > 6 && runewidth.StringWidth(line) > r.width-4 {
			line = runewidth.Truncate(line, r.width-4, "…")
		}

		buf.WriteString("   ")
		buf.WriteString(contextStyle.Render(line))
		buf.WriteByte('\n')

		if i == pos.Line-1 && pos.Column > 0 {
			buf.WriteString("   ")
			buf.WriteString(strings.Repeat(" ", pos.Column-1))
			buf.WriteString(caretStyle.Render("^"))
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}
