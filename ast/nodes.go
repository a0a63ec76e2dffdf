package ast

// Option sets a configuration parameter that affects how the ledger is
// processed. Options apply globally to the entire ledger and are made
// available to every transform through the pipeline options.
//
// Example:
//
//	option "title" "Personal Ledger"
//	option "operating_currency" "EUR"
type Option struct {
	Pos   Position
	Name  string
	Value string
}

func (o *Option) Position() Position { return o.Pos }

// Include imports directives from another file. Paths are resolved relative
// to the file containing the include directive.
//
// Example:
//
//	include "funds/2023.beancount"
type Include struct {
	Pos      Position
	Filename string
}

func (i *Include) Position() Position { return i.Pos }

// Plugin names a transform to run over the parsed directive stream, with an
// optional configuration string passed through to the transform.
//
// Example:
//
//	plugin "valuation"
//	plugin "vat" "{rate: '0.21'}"
type Plugin struct {
	Pos    Position
	Name   string
	Config string
}

func (p *Plugin) Position() Position { return p.Pos }
