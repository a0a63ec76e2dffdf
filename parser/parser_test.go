package parser

import (
	"context"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/beanpipe/beanpipe/ast"
)

func parse(t *testing.T, source string) *ast.AST {
	t.Helper()
	tree, err := ParseBytes(context.Background(), []byte(source))
	assert.NoError(t, err)
	return tree
}

func TestParseTopLevelDeclarations(t *testing.T) {
	tree := parse(t, `
option "title" "Retirement ledger"
include "funds.bean"
plugin "valuation"
plugin "vat" "{rate: '0.21'}"
`)

	assert.Equal(t, 1, len(tree.Options))
	assert.Equal(t, "title", tree.Options[0].Name)
	assert.Equal(t, "Retirement ledger", tree.Options[0].Value)

	assert.Equal(t, 1, len(tree.Includes))
	assert.Equal(t, "funds.bean", tree.Includes[0].Filename)

	assert.Equal(t, 2, len(tree.Plugins))
	assert.Equal(t, "valuation", tree.Plugins[0].Name)
	assert.Equal(t, "", tree.Plugins[0].Config)
	assert.Equal(t, "{rate: '0.21'}", tree.Plugins[1].Config)
}

func TestParseTransaction(t *testing.T) {
	tree := parse(t, `
2023-01-15 * "Broker" "Fund deposit" #savings ^q1-statement
  Assets:Funds:Pension    1000.00 EUR
  Assets:Checking
`)

	assert.Equal(t, 1, len(tree.Directives))
	txn, ok := tree.Directives[0].(*ast.Transaction)
	assert.True(t, ok)

	assert.Equal(t, "*", txn.Flag)
	assert.Equal(t, "Broker", txn.Payee)
	assert.Equal(t, "Fund deposit", txn.Narration)
	assert.Equal(t, []ast.Tag{"savings"}, txn.Tags)
	assert.Equal(t, []ast.Link{"q1-statement"}, txn.Links)

	assert.Equal(t, 2, len(txn.Postings))
	assert.Equal(t, ast.Account("Assets:Funds:Pension"), txn.Postings[0].Account)
	assert.Equal(t, "1000.00", txn.Postings[0].Amount.Value)
	assert.Equal(t, "EUR", txn.Postings[0].Amount.Currency)
	assert.Zero(t, txn.Postings[1].Amount)
}

func TestParseTransactionNarrationOnly(t *testing.T) {
	tree := parse(t, `2023-01-15 ! "pending transfer"` + "\n")

	txn := tree.Directives[0].(*ast.Transaction)
	assert.Equal(t, "!", txn.Flag)
	assert.Equal(t, "", txn.Payee)
	assert.Equal(t, "pending transfer", txn.Narration)
}

func TestParseTransactionBareTxnKeyword(t *testing.T) {
	tree := parse(t, `
2023-01-15 txn "no flag"
  Assets:Checking  -10.00 EUR
  Expenses:Misc     10.00 EUR
`)

	txn := tree.Directives[0].(*ast.Transaction)
	assert.Equal(t, "", txn.Flag)
	assert.Equal(t, "no flag", txn.Narration)
}

func TestParsePostingCostAndPrice(t *testing.T) {
	tree := parse(t, `
2023-06-10 * "Fund withdrawal"
  Assets:Funds:Pension  -454.54 FUND {1.00 EUR, 2023-01-15} @ 1.10 EUR
  Assets:Checking        500.00 EUR
  Expenses:Fees           12.50 EUR @@ 13.00 USD
`)

	txn := tree.Directives[0].(*ast.Transaction)

	fund := txn.Postings[0]
	assert.Equal(t, "-454.54", fund.Amount.Value)
	assert.Equal(t, "FUND", fund.Amount.Currency)
	assert.Equal(t, "1.00", fund.Cost.Amount.Value)
	assert.Equal(t, "EUR", fund.Cost.Amount.Currency)
	assert.Equal(t, "2023-01-15", fund.Cost.Date.String())
	assert.Equal(t, "1.10", fund.Price.Value)
	assert.False(t, fund.PriceTotal)

	fees := txn.Postings[2]
	assert.Equal(t, "13.00", fees.Price.Value)
	assert.True(t, fees.PriceTotal)
}

func TestParseGroupedAmount(t *testing.T) {
	tree := parse(t, `
2023-01-15 * "big deposit"
  Assets:Funds:Pension  1,234.56 EUR
  Assets:Checking
2023-01-16 balance Assets:Funds:Pension 1,234.56 EUR
`)

	txn := tree.Directives[0].(*ast.Transaction)
	assert.Equal(t, "1,234.56", txn.Postings[0].Amount.Value)

	balance := tree.Directives[1].(*ast.Balance)
	assert.Equal(t, "1,234.56", balance.Amount.Value)
}

func TestParsePostingFlag(t *testing.T) {
	tree := parse(t, `
2023-06-10 * "flagged leg"
  ! Assets:Funds:Pension  100.00 EUR
  Assets:Checking
`)

	txn := tree.Directives[0].(*ast.Transaction)
	assert.Equal(t, "!", txn.Postings[0].Flag)
	assert.Equal(t, "", txn.Postings[1].Flag)
}

func TestParseEmptyCost(t *testing.T) {
	tree := parse(t, `
2023-06-10 * "lot wildcard"
  Assets:Funds:Pension  -10 FUND {}
  Assets:Checking
`)

	txn := tree.Directives[0].(*ast.Transaction)
	assert.True(t, txn.Postings[0].Cost.IsEmpty())
}

func TestParseMetadataAttachment(t *testing.T) {
	tree := parse(t, `
2023-01-15 * "deposit"
  statement: "2023-Q1"
  Assets:Funds:Pension  1000.00 EUR
    lot-date: 2023-01-15
  Assets:Checking
`)

	txn := tree.Directives[0].(*ast.Transaction)

	// Metadata before the first posting belongs to the transaction.
	value, ok := txn.GetMetadata("statement")
	assert.True(t, ok)
	assert.Equal(t, "2023-Q1", value.String())

	// Metadata after a posting belongs to that posting.
	value, ok = txn.Postings[0].GetMetadata("lot-date")
	assert.True(t, ok)
	assert.NotZero(t, value.Date)
	assert.Equal(t, "2023-01-15", value.Date.String())

	_, ok = txn.Postings[1].GetMetadata("lot-date")
	assert.False(t, ok)
}

func TestParseMetadataValueTypes(t *testing.T) {
	tree := parse(t, `
2023-01-15 commodity PENSION
  name: "Pension fund units"
  issuer-account: Assets:Funds:Pension
  quote: EUR
  nav: 1.0534
  seeded: 1000.00 EUR
  active: TRUE
  category: #retirement
  prospectus: ^fund-docs
  placeholder:
`)

	commodity := tree.Directives[0].(*ast.Commodity)

	tests := []struct {
		key  string
		want string
	}{
		{key: "name", want: "Pension fund units"},
		{key: "issuer-account", want: "Assets:Funds:Pension"},
		{key: "quote", want: "EUR"},
		{key: "nav", want: "1.0534"},
		{key: "seeded", want: "1000.00 EUR"},
		{key: "active", want: "TRUE"},
		{key: "category", want: "retirement"},
		{key: "prospectus", want: "fund-docs"},
		{key: "placeholder", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			value, ok := commodity.GetMetadata(tt.key)
			assert.True(t, ok)
			assert.Equal(t, tt.want, value.String())
		})
	}
}

func TestParseCustomValues(t *testing.T) {
	tree := parse(t, `
2023-01-01 custom "valuation" Assets:Funds:Pension 1053.15 EUR
2023-01-02 custom "flags" "a string" TRUE 42
`)

	assert.Equal(t, 2, len(tree.Directives))

	checkpoint := tree.Directives[0].(*ast.Custom)
	assert.Equal(t, "valuation", checkpoint.Type)
	assert.Equal(t, 2, len(checkpoint.Values))
	assert.Equal(t, ast.Account("Assets:Funds:Pension"), *checkpoint.Values[0].Account)
	assert.Equal(t, "1053.15", checkpoint.Values[1].Amount.Value)
	assert.Equal(t, "EUR", checkpoint.Values[1].Amount.Currency)

	flags := tree.Directives[1].(*ast.Custom)
	assert.Equal(t, 3, len(flags.Values))
	assert.Equal(t, "a string", *flags.Values[0].String)
	assert.True(t, *flags.Values[1].Boolean)
	assert.Equal(t, "42", *flags.Values[2].Number)
}

func TestParseSimpleDirectives(t *testing.T) {
	tree := parse(t, `
2023-01-01 open Assets:Funds:Pension PENSION, EUR "FIFO"
2023-01-01 price PENSION 1.05 EUR
2023-01-02 balance Assets:Funds:Pension 1053.15 EUR
2023-01-03 pad Assets:Funds:Pension Equity:Opening-Balances
2023-01-04 note Assets:Funds:Pension "quarterly statement received"
2023-01-05 event "location" "Amsterdam"
2023-12-31 close Assets:Funds:Pension
`)

	assert.Equal(t, 7, len(tree.Directives))

	open := tree.Directives[0].(*ast.Open)
	assert.Equal(t, []string{"PENSION", "EUR"}, open.ConstraintCurrencies)
	assert.Equal(t, "FIFO", open.BookingMethod)

	price := tree.Directives[1].(*ast.Price)
	assert.Equal(t, "PENSION", price.Commodity)
	assert.Equal(t, "1.05", price.Amount.Value)

	balance := tree.Directives[2].(*ast.Balance)
	assert.Equal(t, "1053.15", balance.Amount.Value)

	pad := tree.Directives[3].(*ast.Pad)
	assert.Equal(t, ast.Account("Equity:Opening-Balances"), pad.AccountPad)

	note := tree.Directives[4].(*ast.Note)
	assert.Equal(t, "quarterly statement received", note.Description)

	event := tree.Directives[5].(*ast.Event)
	assert.Equal(t, "location", event.Name)
	assert.Equal(t, "Amsterdam", event.Value)

	assert.Equal(t, "close", tree.Directives[6].Directive())
}

func TestParseSortsByDate(t *testing.T) {
	tree := parse(t, `
2023-03-01 event "c" "3"
2023-01-01 event "a" "1"
2023-02-01 event "b" "2"
`)

	names := make([]string, 0, 3)
	for _, d := range tree.Directives {
		names = append(names, d.(*ast.Event).Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestParseStringEscapes(t *testing.T) {
	tree := parse(t, `2023-01-15 * "He said \"sell\""` + "\n")

	txn := tree.Directives[0].(*ast.Transaction)
	assert.Equal(t, `He said "sell"`, txn.Narration)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{name: "UnexpectedTopLevel", source: "hello world\n"},
		{name: "InvalidAccount", source: "2023-01-01 open Banana:Checking\n"},
		{name: "MissingCurrency", source: "2023-01-02 balance Assets:Checking 10.00\n"},
		{name: "UnknownKeywordAfterDate", source: "2023-01-03 frobnicate Assets:Checking\n"},
		{name: "UnterminatedCost", source: "2023-01-04 * \"x\"\n  Assets:Checking 1 FUND {1.00 EUR\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBytes(context.Background(), []byte(tt.source))
			assert.Error(t, err)
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := ParseBytesWithFilename(context.Background(), "main.bean", []byte("2023-01-01 open what\n"))
	assert.Error(t, err)

	parseErr, ok := err.(*ParseError)
	assert.True(t, ok)
	assert.Equal(t, "main.bean", parseErr.Pos.Filename)
	assert.Equal(t, 1, parseErr.Pos.Line)
}

func TestParseCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ParseBytes(ctx, []byte("2023-01-01 event \"a\" \"1\"\n"))
	assert.Error(t, err)
}
