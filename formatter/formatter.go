// Package formatter renders a directive stream back to beancount text.
//
// Amounts are aligned on a currency column, either fixed by option or
// calculated from the widest amount in the stream. Alignment uses terminal
// display width, so ledgers with wide characters in account names still line
// up.
package formatter

import (
	"io"
	"strings"

	"github.com/beanpipe/beanpipe/ast"
	"github.com/mattn/go-runewidth"
)

const (
	// DefaultCurrencyColumn matches bean-format's default alignment column.
	DefaultCurrencyColumn = 52

	// MinimumSpacing is the minimum gap between an account name and its amount.
	MinimumSpacing = 2

	dateWidth = len("2006-01-02")
)

// Formatter renders directives with amount alignment.
type Formatter struct {
	// CurrencyColumn is the target column for currency alignment. Zero means
	// calculate it from the stream's contents.
	CurrencyColumn int
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithCurrencyColumn fixes the column amounts are aligned to.
func WithCurrencyColumn(col int) Option {
	return func(f *Formatter) {
		f.CurrencyColumn = col
	}
}

// New creates a Formatter.
func New(opts ...Option) *Formatter {
	f := &Formatter{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format renders the full ledger: options, includes, and plugins in source
// order, then every directive. Transactions are preceded by a blank line.
func (f *Formatter) Format(tree *ast.AST, w io.Writer) error {
	column := f.CurrencyColumn
	if column == 0 {
		column = calculateCurrencyColumn(tree)
	}

	var buf strings.Builder
	buf.Grow((len(tree.Options) + len(tree.Includes) + len(tree.Plugins) + len(tree.Directives)) * 64)

	for _, opt := range tree.Options {
		buf.WriteString("option \"")
		buf.WriteString(escapeString(opt.Name))
		buf.WriteString("\" \"")
		buf.WriteString(escapeString(opt.Value))
		buf.WriteString("\"\n")
	}
	for _, plugin := range tree.Plugins {
		buf.WriteString("plugin \"")
		buf.WriteString(escapeString(plugin.Name))
		buf.WriteByte('"')
		if plugin.Config != "" {
			buf.WriteString(" \"")
			buf.WriteString(escapeString(plugin.Config))
			buf.WriteByte('"')
		}
		buf.WriteByte('\n')
	}
	for _, include := range tree.Includes {
		buf.WriteString("include \"")
		buf.WriteString(escapeString(include.Filename))
		buf.WriteString("\"\n")
	}

	preamble := buf.Len() > 0
	for i, directive := range tree.Directives {
		_, isTransaction := directive.(*ast.Transaction)
		if isTransaction && (preamble || i > 0) {
			buf.WriteByte('\n')
		}
		formatDirective(directive, column, &buf)
	}

	_, err := io.WriteString(w, buf.String())
	return err
}

// calculateCurrencyColumn returns the column fitting the stream's widest
// account and amount pair, or the default when the stream has no amounts.
func calculateCurrencyColumn(tree *ast.AST) int {
	widest := 0
	for _, directive := range tree.Directives {
		switch d := directive.(type) {
		case *ast.Transaction:
			for _, posting := range d.Postings {
				if posting.Amount == nil {
					continue
				}
				width := MinimumSpacing + runewidth.StringWidth(string(posting.Account))
				if posting.Flag != "" {
					width += 2
				}
				widest = max(widest, width+MinimumSpacing+len(posting.Amount.Value))
			}
		case *ast.Balance:
			width := dateWidth + len(" balance ") + runewidth.StringWidth(string(d.Account))
			widest = max(widest, width+MinimumSpacing+len(d.Amount.Value))
		case *ast.Price:
			width := dateWidth + len(" price ") + runewidth.StringWidth(d.Commodity)
			widest = max(widest, width+MinimumSpacing+len(d.Amount.Value))
		}
	}

	if widest == 0 {
		return DefaultCurrencyColumn
	}
	return widest + MinimumSpacing
}

func formatDirective(directive ast.Directive, column int, buf *strings.Builder) {
	switch d := directive.(type) {
	case *ast.Commodity:
		buf.WriteString(d.Dated.String())
		buf.WriteString(" commodity ")
		buf.WriteString(d.Currency)
		buf.WriteByte('\n')
		formatMetadata(d.Metadata, buf)

	case *ast.Open:
		formatOpen(d, buf)

	case *ast.Close:
		buf.WriteString(d.Dated.String())
		buf.WriteString(" close ")
		buf.WriteString(string(d.Account))
		buf.WriteByte('\n')
		formatMetadata(d.Metadata, buf)

	case *ast.Balance:
		buf.WriteString(d.Dated.String())
		buf.WriteString(" balance ")
		buf.WriteString(string(d.Account))
		formatAmountAligned(d.Amount, column, lineWidth(buf), buf)
		buf.WriteByte('\n')
		formatMetadata(d.Metadata, buf)

	case *ast.Pad:
		buf.WriteString(d.Dated.String())
		buf.WriteString(" pad ")
		buf.WriteString(string(d.Account))
		buf.WriteByte(' ')
		buf.WriteString(string(d.AccountPad))
		buf.WriteByte('\n')
		formatMetadata(d.Metadata, buf)

	case *ast.Note:
		buf.WriteString(d.Dated.String())
		buf.WriteString(" note ")
		buf.WriteString(string(d.Account))
		buf.WriteString(" \"")
		buf.WriteString(escapeString(d.Description))
		buf.WriteString("\"\n")
		formatMetadata(d.Metadata, buf)

	case *ast.Price:
		buf.WriteString(d.Dated.String())
		buf.WriteString(" price ")
		buf.WriteString(d.Commodity)
		formatAmountAligned(d.Amount, column, lineWidth(buf), buf)
		buf.WriteByte('\n')
		formatMetadata(d.Metadata, buf)

	case *ast.Event:
		buf.WriteString(d.Dated.String())
		buf.WriteString(" event \"")
		buf.WriteString(escapeString(d.Name))
		buf.WriteString("\" \"")
		buf.WriteString(escapeString(d.Value))
		buf.WriteString("\"\n")
		formatMetadata(d.Metadata, buf)

	case *ast.Custom:
		formatCustom(d, buf)

	case *ast.Transaction:
		formatTransaction(d, column, buf)
	}
}

func formatOpen(d *ast.Open, buf *strings.Builder) {
	buf.WriteString(d.Dated.String())
	buf.WriteString(" open ")
	buf.WriteString(string(d.Account))

	for i, currency := range d.ConstraintCurrencies {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte(' ')
		buf.WriteString(currency)
	}
	if d.BookingMethod != "" {
		buf.WriteString(" \"")
		buf.WriteString(d.BookingMethod)
		buf.WriteByte('"')
	}
	buf.WriteByte('\n')
	formatMetadata(d.Metadata, buf)
}

func formatCustom(d *ast.Custom, buf *strings.Builder) {
	buf.WriteString(d.Dated.String())
	buf.WriteString(" custom \"")
	buf.WriteString(escapeString(d.Type))
	buf.WriteByte('"')

	for _, value := range d.Values {
		buf.WriteByte(' ')
		switch {
		case value.String != nil:
			buf.WriteByte('"')
			buf.WriteString(escapeString(*value.String))
			buf.WriteByte('"')
		case value.Account != nil:
			buf.WriteString(string(*value.Account))
		case value.Amount != nil:
			buf.WriteString(value.Amount.Value)
			buf.WriteByte(' ')
			buf.WriteString(value.Amount.Currency)
		case value.Number != nil:
			buf.WriteString(*value.Number)
		case value.Boolean != nil:
			if *value.Boolean {
				buf.WriteString("TRUE")
			} else {
				buf.WriteString("FALSE")
			}
		}
	}
	buf.WriteByte('\n')
	formatMetadata(d.Metadata, buf)
}

func formatTransaction(t *ast.Transaction, column int, buf *strings.Builder) {
	buf.WriteString(t.Dated.String())
	buf.WriteByte(' ')
	if t.Flag != "" {
		buf.WriteString(t.Flag)
	} else {
		buf.WriteString("txn")
	}

	if t.Payee != "" {
		buf.WriteString(" \"")
		buf.WriteString(escapeString(t.Payee))
		buf.WriteByte('"')
	}
	// The narration is always rendered; a payee without a narration would
	// otherwise reparse as a bare narration.
	buf.WriteString(" \"")
	buf.WriteString(escapeString(t.Narration))
	buf.WriteByte('"')

	for _, tag := range t.Tags {
		buf.WriteString(" #")
		buf.WriteString(string(tag))
	}
	for _, link := range t.Links {
		buf.WriteString(" ^")
		buf.WriteString(string(link))
	}
	buf.WriteByte('\n')

	formatMetadata(t.Metadata, buf)

	for _, posting := range t.Postings {
		formatPosting(posting, column, buf)
	}
}

func formatPosting(p *ast.Posting, column int, buf *strings.Builder) {
	buf.WriteString("  ")
	if p.Flag != "" {
		buf.WriteString(p.Flag)
		buf.WriteByte(' ')
	}
	buf.WriteString(string(p.Account))

	if p.Amount != nil {
		formatAmountAligned(p.Amount, column, lineWidth(buf), buf)

		if p.Cost != nil {
			buf.WriteByte(' ')
			formatCost(p.Cost, buf)
		}
		if p.Price != nil {
			if p.PriceTotal {
				buf.WriteString(" @@ ")
			} else {
				buf.WriteString(" @ ")
			}
			buf.WriteString(p.Price.Value)
			buf.WriteByte(' ')
			buf.WriteString(p.Price.Currency)
		}
	}
	buf.WriteByte('\n')

	formatMetadata(p.Metadata, buf)
}

func formatCost(cost *ast.Cost, buf *strings.Builder) {
	buf.WriteByte('{')
	if cost.Amount != nil {
		buf.WriteString(cost.Amount.Value)
		buf.WriteByte(' ')
		buf.WriteString(cost.Amount.Currency)
	}
	if cost.Date != nil {
		buf.WriteString(", ")
		buf.WriteString(cost.Date.String())
	}
	if cost.Label != "" {
		buf.WriteString(", \"")
		buf.WriteString(escapeString(cost.Label))
		buf.WriteByte('"')
	}
	buf.WriteByte('}')
}

// formatAmountAligned pads the amount so its currency starts at the target
// column, with at least the minimum spacing.
func formatAmountAligned(amount *ast.Amount, column, current int, buf *strings.Builder) {
	if amount == nil {
		return
	}

	padding := column - current - len(amount.Value)
	if padding < MinimumSpacing {
		padding = MinimumSpacing
	}
	buf.WriteString(strings.Repeat(" ", padding))
	buf.WriteString(amount.Value)
	buf.WriteByte(' ')
	buf.WriteString(amount.Currency)
}

func formatMetadata(metadata []*ast.Metadata, buf *strings.Builder) {
	for _, m := range metadata {
		buf.WriteString("  ")
		buf.WriteString(m.Key)
		buf.WriteString(": ")
		buf.WriteString(formatMetadataValue(m.Value))
		buf.WriteByte('\n')
	}
}

// formatMetadataValue renders a metadata value in its source form: strings
// quoted, everything else bare with its sigil.
func formatMetadataValue(v *ast.MetadataValue) string {
	switch {
	case v == nil:
		return `""`
	case v.StringValue != nil:
		return `"` + escapeString(*v.StringValue) + `"`
	case v.Tag != nil:
		return "#" + string(*v.Tag)
	case v.Link != nil:
		return "^" + string(*v.Link)
	default:
		return v.String()
	}
}

// lineWidth returns the display width of the current (unterminated) line.
func lineWidth(buf *strings.Builder) int {
	s := buf.String()
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return runewidth.StringWidth(s)
}

// escapeString escapes quotes and backslashes for quoted rendering.
func escapeString(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return s
	}

	var buf strings.Builder
	buf.Grow(len(s) + 8)
	for _, c := range s {
		switch c {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		default:
			buf.WriteRune(c)
		}
	}
	return buf.String()
}
