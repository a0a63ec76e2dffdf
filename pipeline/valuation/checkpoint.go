package valuation

import (
	"github.com/beanpipe/beanpipe/ast"
	"github.com/beanpipe/beanpipe/pipeline"
	"github.com/shopspring/decimal"
)

// Checkpoint is one dated observation of a fund account's total value.
type Checkpoint struct {
	Account  ast.Account
	Date     *ast.Date
	Value    decimal.Decimal
	Currency string

	// Directive is the observation entry the checkpoint came from.
	Directive *ast.Custom
}

// checkpointSet indexes the validated checkpoints by their source directive
// so the chronological walk can recalibrate when it reaches them.
type checkpointSet struct {
	byDirective map[*ast.Custom]*Checkpoint
	byAccount   map[ast.Account][]*Checkpoint
}

func (s *checkpointSet) at(directive *ast.Custom) (*Checkpoint, bool) {
	cp, ok := s.byDirective[directive]
	return cp, ok
}

// rejectedCheckpoint records a checkpoint the collection scan refused,
// keyed by its directive so the chronological walk can exclude the account
// at that point in the stream rather than retroactively. Entries preceding
// the rejected checkpoint are still rewritten.
type rejectedCheckpoint struct {
	account    ast.Account
	diagnostic *pipeline.Diagnostic
}

// collectCheckpoints performs the first-scan collection of checkpoints.
// Rejected observations are diagnosed here; the returned map lets the walk
// apply each exclusion when it reaches the offending directive.
func collectCheckpoints(tree *ast.AST, reg *registry) (*checkpointSet, map[*ast.Custom]*rejectedCheckpoint, []*pipeline.Diagnostic) {
	set := &checkpointSet{
		byDirective: make(map[*ast.Custom]*Checkpoint),
		byAccount:   make(map[ast.Account][]*Checkpoint),
	}
	rejected := make(map[*ast.Custom]*rejectedCheckpoint)

	var diagnostics []*pipeline.Diagnostic
	fail := func(err directiveError, custom *ast.Custom, account ast.Account) {
		d := diagnose(err)
		diagnostics = append(diagnostics, d)
		if account != "" {
			rejected[custom] = &rejectedCheckpoint{account: account, diagnostic: d}
		}
	}

	for _, directive := range tree.Directives {
		custom, ok := directive.(*ast.Custom)
		if !ok || custom.Type != checkpointDirective {
			continue
		}

		if len(custom.Values) == 0 || custom.Values[0].Account == nil {
			fail(NewMissingFieldError("account", custom), custom, "")
			continue
		}
		account := *custom.Values[0].Account

		if _, configured := reg.lookup(account); !configured {
			fail(NewUnknownAccountError(account, custom), custom, "")
			continue
		}

		if len(custom.Values) < 2 || custom.Values[1].Amount == nil {
			fail(NewMissingFieldError("value", custom), custom, account)
			continue
		}
		value, err := pipeline.ParseAmount(custom.Values[1].Amount)
		if err != nil {
			fail(NewMissingFieldError("value", custom), custom, account)
			continue
		}

		previous := set.byAccount[account]
		if len(previous) > 0 {
			last := previous[len(previous)-1]
			if !custom.Dated.After(last.Date.Time) {
				fail(NewUnorderedCheckpointError(account, last.Date, custom), custom, account)
				continue
			}
		}

		cp := &Checkpoint{
			Account:   account,
			Date:      custom.Dated,
			Value:     value,
			Currency:  custom.Values[1].Amount.Currency,
			Directive: custom,
		}
		set.byDirective[custom] = cp
		set.byAccount[account] = append(set.byAccount[account], cp)
	}

	return set, rejected, diagnostics
}
