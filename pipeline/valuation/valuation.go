// Package valuation rewrites the activity of externally valued fund
// accounts into lot-based commodity accounting.
//
// A fund account holds an opaque investment whose per-unit value is only
// observable at discrete checkpoints. The transform discovers the implied
// unit price from those checkpoints, converts every deposit and withdrawal
// into postings of a synthetic per-account commodity, tracks cost-basis lots
// with FIFO consumption, and recognizes realized gains and losses on
// withdrawal. Previously recorded nominal amounts are never recomputed;
// postings are restated in units whose value matches the original amount
// exactly.
package valuation

import (
	"context"

	"github.com/beanpipe/beanpipe/ast"
	"github.com/beanpipe/beanpipe/pipeline"
	"github.com/beanpipe/beanpipe/telemetry"
)

// Name is the transform's registered name.
const Name = "valuation"

// skippedKey marks entries that passed through unmodified because their
// fund account was excluded after an earlier error.
const skippedKey = "valuation"

func init() {
	pipeline.Register(Name, Transform)
}

// Transform is the valuation transform. It scans the stream once to collect
// fund configurations and checkpoints, then walks it chronologically,
// routing every entry that touches a configured fund account through that
// account's state machine. Errors exclude only the affected account; the
// rest of the ledger is processed normally.
func Transform(ctx context.Context, tree *ast.AST, opts *pipeline.Options) []*pipeline.Diagnostic {
	timer := telemetry.FromContext(ctx).Start("valuation")
	defer timer.End()

	reg, diagnostics := collectConfigs(tree)
	if len(reg.byAccount) == 0 {
		return diagnostics
	}

	checkpoints, rejected, cpDiagnostics := collectCheckpoints(tree, reg)
	diagnostics = append(diagnostics, cpDiagnostics...)

	pass := &walker{
		reg:         reg,
		checkpoints: checkpoints,
		rejected:    rejected,
		states:      make(map[ast.Account]*FundState, len(reg.byAccount)),
		opened:      make(map[ast.Account]bool, len(reg.byAccount)),
	}

	rewriteTimer := timer.Child("rewrite")
	out := make([]ast.Directive, 0, len(tree.Directives))
	for _, directive := range tree.Directives {
		out = pass.visit(out, directive)
	}
	tree.Directives = out
	rewriteTimer.End()

	return append(diagnostics, pass.diagnostics...)
}

// walker is the chronological second scan: it rewrites entries in stream
// order and assembles the output, inserting synthesized commodity and price
// directives immediately before the entries they belong to.
type walker struct {
	reg         *registry
	checkpoints *checkpointSet
	rejected    map[*ast.Custom]*rejectedCheckpoint
	states      map[ast.Account]*FundState
	opened      map[ast.Account]bool
	diagnostics []*pipeline.Diagnostic
}

func (w *walker) stateFor(account ast.Account) *FundState {
	state, ok := w.states[account]
	if !ok {
		state = newFundState(w.reg.byAccount[account])
		w.states[account] = state
	}
	return state
}

func (w *walker) fail(state *FundState, err directiveError) {
	d := diagnose(err)
	w.diagnostics = append(w.diagnostics, d)
	state.Fail(d)
}

// skip flags an entry that passes through unmodified because its account
// was excluded.
func (w *walker) skip(directive ast.Directive) {
	if _, flagged := directive.GetMetadata(skippedKey); flagged {
		return
	}
	directive.AddMetadata(ast.NewMetadata(skippedKey, "skipped"))
}

// open emits the synthesized commodity directive for an account the first
// time one of its directives reaches the output.
func (w *walker) open(out []ast.Directive, state *FundState, date *ast.Date) []ast.Directive {
	if w.opened[state.config.Account] {
		return out
	}
	w.opened[state.config.Account] = true
	return append(out, &ast.Commodity{Dated: date, Currency: state.config.Commodity})
}

func (w *walker) visit(out []ast.Directive, directive ast.Directive) []ast.Directive {
	switch d := directive.(type) {
	case *ast.Custom:
		if d.Type == checkpointDirective {
			return w.visitCheckpoint(out, d)
		}

	case *ast.Balance:
		if state, ok := w.fundState(d.Account); ok {
			return w.visitSeed(out, d, state)
		}

	case *ast.Transaction:
		return w.visitTransaction(out, d)
	}

	return append(out, directive)
}

func (w *walker) fundState(account ast.Account) (*FundState, bool) {
	if _, ok := w.reg.lookup(account); !ok {
		return nil, false
	}
	return w.stateFor(account), true
}

func (w *walker) visitSeed(out []ast.Directive, balance *ast.Balance, state *FundState) []ast.Directive {
	if state.Failed() {
		w.skip(balance)
		return append(out, balance)
	}

	if err := rewriteSeed(balance, state); err != nil {
		w.fail(state, err)
		w.skip(balance)
		return append(out, balance)
	}

	out = w.open(out, state, balance.Dated)
	return append(out, balance)
}

func (w *walker) visitCheckpoint(out []ast.Directive, custom *ast.Custom) []ast.Directive {
	cp, ok := w.checkpoints.at(custom)
	if !ok {
		// Rejected during collection; the diagnostic is already recorded.
		// The exclusion takes effect here, so entries before this point
		// were still rewritten.
		if rej, found := w.rejected[custom]; found {
			w.stateFor(rej.account).Fail(rej.diagnostic)
			w.skip(custom)
		}
		return append(out, custom)
	}

	state := w.stateFor(cp.Account)
	if state.Failed() {
		w.skip(custom)
		return append(out, custom)
	}

	if err := state.EstablishCurrency(cp.Currency, custom); err != nil {
		w.fail(state, err)
		w.skip(custom)
		return append(out, custom)
	}

	publish, err := state.Recalibrate(cp)
	if err != nil {
		w.fail(state, err)
		w.skip(custom)
		return append(out, custom)
	}

	if publish {
		out = w.open(out, state, cp.Date)
		out = append(out, &ast.Price{
			Dated:     cp.Date,
			Commodity: state.config.Commodity,
			Amount:    &ast.Amount{Value: formatDecimal(state.Price()), Currency: cp.Currency},
		})
	}
	return append(out, custom)
}

func (w *walker) visitTransaction(out []ast.Directive, txn *ast.Transaction) []ast.Directive {
	indexes := fundPostingIndexes(txn, w.reg)
	if len(indexes) == 0 {
		return append(out, txn)
	}

	if len(indexes) > 1 {
		// One fund account per transaction; exclude every account touched.
		for _, i := range indexes {
			state := w.stateFor(txn.Postings[i].Account)
			w.fail(state, NewMultiCurrencyUnsupportedError(txn.Postings[i].Account, "", state.currency, txn))
		}
		w.skip(txn)
		return append(out, txn)
	}

	state := w.stateFor(txn.Postings[indexes[0]].Account)
	if state.Failed() {
		w.skip(txn)
		return append(out, txn)
	}

	if err := rewriteTransaction(txn, indexes[0], state); err != nil {
		w.fail(state, err)
		w.skip(txn)
		return append(out, txn)
	}

	out = w.open(out, state, txn.Dated)
	return append(out, txn)
}
