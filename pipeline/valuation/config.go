package valuation

import (
	"github.com/beanpipe/beanpipe/ast"
	"github.com/beanpipe/beanpipe/pipeline"
)

const (
	// configDirective is the custom directive type declaring a fund account.
	configDirective = "valuation-config"

	// checkpointDirective is the custom directive type observing a fund
	// account's total value at a date.
	checkpointDirective = "valuation"
)

// FundConfig declares one fund account: the synthetic commodity its units
// are denominated in and the account receiving realized gains and losses.
// Immutable once collected.
type FundConfig struct {
	Account   ast.Account
	Commodity string
	PnL       ast.Account

	// Directive is the config entry the declaration came from.
	Directive *ast.Custom
}

// registry maps fund accounts to their configuration.
type registry struct {
	byAccount map[ast.Account]*FundConfig
}

func (r *registry) lookup(account ast.Account) (*FundConfig, bool) {
	cfg, ok := r.byAccount[account]
	return cfg, ok
}

// collectConfigs performs the first-scan collection of fund configurations.
// Invalid declarations become diagnostics and are not registered.
func collectConfigs(tree *ast.AST) (*registry, []*pipeline.Diagnostic) {
	reg := &registry{byAccount: make(map[ast.Account]*FundConfig)}
	commodities := make(map[string]ast.Account)

	var diagnostics []*pipeline.Diagnostic
	for _, directive := range tree.Directives {
		custom, ok := directive.(*ast.Custom)
		if !ok || custom.Type != configDirective {
			continue
		}

		cfg, err := parseConfig(custom)
		if err != nil {
			diagnostics = append(diagnostics, diagnose(err))
			continue
		}

		if _, dup := reg.byAccount[cfg.Account]; dup {
			diagnostics = append(diagnostics, diagnose(NewDuplicateConfigError("account", string(cfg.Account), custom)))
			continue
		}
		if _, dup := commodities[cfg.Commodity]; dup {
			diagnostics = append(diagnostics, diagnose(NewDuplicateConfigError("commodity", cfg.Commodity, custom)))
			continue
		}

		reg.byAccount[cfg.Account] = cfg
		commodities[cfg.Commodity] = cfg.Account
	}

	return reg, diagnostics
}

func parseConfig(custom *ast.Custom) (*FundConfig, directiveError) {
	cfg := &FundConfig{Directive: custom}

	if len(custom.Values) == 0 || custom.Values[0].Account == nil {
		return nil, NewMissingFieldError("account", custom)
	}
	cfg.Account = *custom.Values[0].Account

	commodity, ok := custom.GetMetadata("commodity")
	switch {
	case !ok:
		return nil, NewMissingFieldError("commodity", custom)
	case commodity.Currency != nil:
		cfg.Commodity = *commodity.Currency
	case commodity.StringValue != nil && *commodity.StringValue != "":
		cfg.Commodity = *commodity.StringValue
	default:
		return nil, NewMissingFieldError("commodity", custom)
	}

	pnl, ok := custom.GetMetadata("pnl")
	switch {
	case !ok:
		return nil, NewMissingFieldError("pnl", custom)
	case pnl.Account != nil:
		cfg.PnL = *pnl.Account
	case pnl.StringValue != nil:
		account, err := ast.NewAccount(*pnl.StringValue)
		if err != nil {
			return nil, NewMissingFieldError("pnl", custom)
		}
		cfg.PnL = account
	default:
		return nil, NewMissingFieldError("pnl", custom)
	}

	return cfg, nil
}
