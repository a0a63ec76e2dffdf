// Package ast declares the types used to represent a parsed Beancount-style
// directive stream.
//
// The types model the directives the beanpipe transforms operate on:
// transactions with postings, balance assertions, account and commodity
// declarations, prices, events, and the generic custom directive that the
// transforms use for their own configuration records. An AST can be produced
// by the parser package or constructed programmatically with the builders.
package ast

import (
	"golang.org/x/exp/slices"
)

// Directives is a slice of Directive sorted by date, then type priority.
type Directives []Directive

func (d Directives) Len() int           { return len(d) }
func (d Directives) Swap(i, j int)      { d[i], d[j] = d[j], d[i] }
func (d Directives) Less(i, j int) bool { return compareDirectives(d[i], d[j]) < 0 }

// compareDirectives compares two directives by their date, then by type
// priority. Returns -1 if a < b, 0 if a == b, 1 if a > b.
//
// For same-date directives, the processing order is:
//  1. Open and Commodity (declarations come before use)
//  2. Close
//  3. All other directives (transactions, balance, price, custom, ...)
func compareDirectives(a, b Directive) int {
	if a.Date().Before(b.Date().Time) {
		return -1
	} else if a.Date().After(b.Date().Time) {
		return 1
	}

	aPriority := directiveTypePriority(a)
	bPriority := directiveTypePriority(b)
	if aPriority < bPriority {
		return -1
	} else if aPriority > bPriority {
		return 1
	}

	return 0
}

func directiveTypePriority(d Directive) int {
	switch d.(type) {
	case *Open, *Commodity:
		return 0
	case *Close:
		return 1
	default:
		return 2
	}
}

// AST represents a parsed ledger file: the dated directives plus the
// top-level option, include and plugin declarations.
type AST struct {
	Directives Directives
	Options    []*Option
	Includes   []*Include
	Plugins    []*Plugin
}

// WithMetadata is an interface for AST nodes that can have metadata attached.
type WithMetadata interface {
	AddMetadata(...*Metadata)
	GetMetadata(key string) (*MetadataValue, bool)
}

// withMetadata is an embeddable struct that implements WithMetadata.
type withMetadata struct {
	Metadata []*Metadata
}

func (w *withMetadata) AddMetadata(m ...*Metadata) {
	w.Metadata = append(w.Metadata, m...)
}

// GetMetadata returns the value of the first metadata entry with the given key.
func (w *withMetadata) GetMetadata(key string) (*MetadataValue, bool) {
	for _, m := range w.Metadata {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// Directive is the interface implemented by all dated directive types.
type Directive interface {
	WithMetadata

	Date() *Date
	Position() Position
	Directive() string
}

// isSorted checks if directives are already sorted by date.
func isSorted(d Directives) bool {
	for i := 1; i < len(d); i++ {
		if d.Less(i, i-1) {
			return false
		}
	}
	return true
}

// SortDirectives sorts all directives by their parsed date.
//
// This is called automatically during parsing, but can be called on a
// manually constructed or transformed AST.
func SortDirectives(tree *AST) {
	// Skip sorting if already sorted (common case for well-maintained files)
	if isSorted(tree.Directives) {
		return
	}

	slices.SortStableFunc(tree.Directives, compareDirectives)
}
