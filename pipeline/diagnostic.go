package pipeline

import (
	"fmt"

	"github.com/beanpipe/beanpipe/ast"
)

// Severity grades a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Diagnostic is a structured report of a domain violation found by a
// transform. It carries the offending directive so callers can point back at
// the source.
type Diagnostic struct {
	Severity  Severity
	Message   string
	Directive ast.Directive
}

func (d *Diagnostic) Error() string {
	if d.Directive != nil {
		return fmt.Sprintf("%s: %s: %s", d.Directive.Position(), d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Severity, d.Message)
}

// GetPosition returns the source position of the offending directive, if any.
func (d *Diagnostic) GetPosition() ast.Position {
	if d.Directive != nil {
		return d.Directive.Position()
	}
	return ast.Position{}
}

// GetDirective returns the directive the diagnostic refers to, if any.
func (d *Diagnostic) GetDirective() ast.Directive {
	return d.Directive
}

// Errorf builds an error diagnostic attached to the given directive.
func Errorf(directive ast.Directive, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Severity:  SeverityError,
		Message:   fmt.Sprintf(format, args...),
		Directive: directive,
	}
}

// Warningf builds a warning diagnostic attached to the given directive.
func Warningf(directive ast.Directive, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Severity:  SeverityWarning,
		Message:   fmt.Sprintf(format, args...),
		Directive: directive,
	}
}

// HasErrors reports whether any diagnostic in the slice is an error.
func HasErrors(diagnostics []*Diagnostic) bool {
	for _, d := range diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
