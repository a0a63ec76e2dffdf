// Package vat extracts value-added tax from transactions tagged #vat.
//
// Posting amounts in tagged transactions are treated as gross, VAT
// inclusive. Every Expenses and Income posting with an explicit amount is
// reduced to its net value, and the tax component moves to a dedicated VAT
// account: input VAT for expenses, output VAT for income.
package vat

import (
	"context"
	"fmt"

	"github.com/beanpipe/beanpipe/ast"
	"github.com/beanpipe/beanpipe/pipeline"
	"github.com/beanpipe/beanpipe/telemetry"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Name is the transform's registered name.
const Name = "vat"

// Tag marks transactions the transform applies to.
const Tag = ast.Tag("vat")

const (
	defaultRate          = "0.23"
	defaultInputAccount  = ast.Account("Assets:VAT:Input")
	defaultOutputAccount = ast.Account("Liabilities:Taxes:VAT:Output")
)

func init() {
	pipeline.Register(Name, Transform)
}

// config is the transform's plugin configuration, given as a YAML flow
// mapping in the plugin directive's config string.
type config struct {
	Rate          string `yaml:"rate"`
	InputAccount  string `yaml:"input_account"`
	OutputAccount string `yaml:"output_account"`
}

func parseConfig(configStr string) (decimal.Decimal, ast.Account, ast.Account, error) {
	cfg := config{
		Rate:          defaultRate,
		InputAccount:  string(defaultInputAccount),
		OutputAccount: string(defaultOutputAccount),
	}
	if configStr != "" {
		if err := yaml.Unmarshal([]byte(configStr), &cfg); err != nil {
			return decimal.Zero, "", "", fmt.Errorf("invalid vat configuration: %w", err)
		}
	}

	rate, err := decimal.NewFromString(cfg.Rate)
	if err != nil {
		return decimal.Zero, "", "", fmt.Errorf("invalid vat rate %q: %w", cfg.Rate, err)
	}

	input, err := ast.NewAccount(cfg.InputAccount)
	if err != nil {
		return decimal.Zero, "", "", fmt.Errorf("invalid input account: %w", err)
	}
	output, err := ast.NewAccount(cfg.OutputAccount)
	if err != nil {
		return decimal.Zero, "", "", fmt.Errorf("invalid output account: %w", err)
	}

	return rate, input, output, nil
}

// computeVAT returns the tax component of a gross, VAT-inclusive value:
// gross * rate / (1 + rate), rounded half away from zero to two decimals.
// The result carries the sign of the gross amount.
func computeVAT(gross, rate decimal.Decimal) decimal.Decimal {
	one := decimal.New(1, 0)
	return gross.Mul(rate).Div(one.Add(rate)).Round(2)
}

// Transform splits the gross Expenses and Income postings of #vat-tagged
// transactions into a net posting plus a VAT posting.
func Transform(ctx context.Context, tree *ast.AST, opts *pipeline.Options) []*pipeline.Diagnostic {
	timer := telemetry.FromContext(ctx).Start("vat")
	defer timer.End()

	rate, inputAccount, outputAccount, err := parseConfig(opts.Config)
	if err != nil {
		return []*pipeline.Diagnostic{{Severity: pipeline.SeverityError, Message: err.Error()}}
	}

	var diagnostics []*pipeline.Diagnostic
	for _, directive := range tree.Directives {
		txn, ok := directive.(*ast.Transaction)
		if !ok || !txn.HasTag(Tag) {
			continue
		}

		var vatPostings []*ast.Posting
		for _, posting := range txn.Postings {
			// Postings without explicit amounts are inferred by the host
			// and carry no VAT of their own.
			if posting.Amount == nil {
				continue
			}

			var vatAccount ast.Account
			switch {
			case posting.Account.HasRoot("Expenses"):
				vatAccount = inputAccount
			case posting.Account.HasRoot("Income"):
				vatAccount = outputAccount
			default:
				continue
			}

			gross, parseErr := pipeline.ParseAmount(posting.Amount)
			if parseErr != nil {
				diagnostics = append(diagnostics, pipeline.Errorf(txn, "vat: %s", parseErr))
				continue
			}

			vat := computeVAT(gross, rate)
			net := gross.Sub(vat)

			posting.Amount = &ast.Amount{Value: net.String(), Currency: posting.Amount.Currency}
			vatPostings = append(vatPostings, &ast.Posting{
				Account: vatAccount,
				Amount:  &ast.Amount{Value: vat.String(), Currency: posting.Amount.Currency},
			})
		}

		txn.Postings = append(txn.Postings, vatPostings...)
	}

	return diagnostics
}
