package valuation

import (
	"github.com/beanpipe/beanpipe/ast"
	"github.com/beanpipe/beanpipe/pipeline"
	"github.com/shopspring/decimal"
)

// fundPostingIndexes returns the positions of all postings in the
// transaction that reference a configured fund account.
func fundPostingIndexes(txn *ast.Transaction, reg *registry) []int {
	var indexes []int
	for i, posting := range txn.Postings {
		if _, ok := reg.lookup(posting.Account); ok {
			indexes = append(indexes, i)
		}
	}
	return indexes
}

// rewriteTransaction replaces the fund-account posting at the given index
// with unit-denominated postings, leaving every other posting untouched.
// A deposit becomes a single lot acquisition; a withdrawal becomes one
// posting per lot segment consumed plus an aggregated PnL posting. On error
// the transaction is left unchanged.
func rewriteTransaction(txn *ast.Transaction, index int, state *FundState) directiveError {
	posting := txn.Postings[index]
	cfg := state.config

	amount, parseErr := pipeline.ParseAmount(posting.Amount)
	if parseErr != nil {
		return NewMissingFieldError("amount", txn)
	}

	if err := state.EstablishCurrency(posting.Amount.Currency, txn); err != nil {
		return err
	}

	currency := posting.Amount.Currency

	switch {
	case amount.IsPositive():
		units := state.Deposit(txn.Dated, amount)
		posting.Amount = &ast.Amount{Value: formatDecimal(units), Currency: cfg.Commodity}
		posting.Cost = &ast.Cost{Amount: &ast.Amount{Value: formatDecimal(state.Price()), Currency: currency}}
		posting.Price = nil
		posting.PriceTotal = false

	case amount.IsNegative():
		segments, realized, err := state.Withdraw(amount.Neg(), txn)
		if err != nil {
			return err
		}
		if len(segments) == 0 {
			// The redeemed units fell below epsilon; like a zero amount,
			// the posting stays as written.
			return nil
		}

		replacements := make([]*ast.Posting, 0, len(segments)+1)
		for _, segment := range segments {
			replacements = append(replacements, &ast.Posting{
				Pos:     posting.Pos,
				Account: posting.Account,
				Amount:  &ast.Amount{Value: formatDecimal(segment.Units.Neg()), Currency: cfg.Commodity},
				Cost: &ast.Cost{
					Amount: &ast.Amount{Value: formatDecimal(segment.Cost), Currency: currency},
					Date:   segment.Date,
				},
				Price: &ast.Amount{Value: formatDecimal(state.Price()), Currency: currency},
			})
		}
		// The first segment inherits the original posting's flag and
		// metadata.
		replacements[0].Flag = posting.Flag
		replacements[0].AddMetadata(posting.Metadata...)
		if !realized.IsZero() {
			replacements = append(replacements, &ast.Posting{
				Pos:     posting.Pos,
				Account: cfg.PnL,
				Amount:  &ast.Amount{Value: formatDecimal(realized.Neg()), Currency: currency},
			})
		}

		postings := make([]*ast.Posting, 0, len(txn.Postings)+len(replacements)-1)
		postings = append(postings, txn.Postings[:index]...)
		postings = append(postings, replacements...)
		postings = append(postings, txn.Postings[index+1:]...)
		txn.Postings = postings

	default:
		// A zero posting moves nothing; leave it as written.
	}

	return nil
}

// rewriteSeed converts a balance assertion on a fund account into the
// account's initial lot and restates the assertion in units of the
// synthetic commodity.
func rewriteSeed(balance *ast.Balance, state *FundState) directiveError {
	amount, parseErr := pipeline.ParseAmount(balance.Amount)
	if parseErr != nil {
		return NewMissingFieldError("amount", balance)
	}

	if err := state.EstablishCurrency(balance.Amount.Currency, balance); err != nil {
		return err
	}
	if err := state.Seed(balance.Dated, amount, balance); err != nil {
		return err
	}

	balance.Amount = &ast.Amount{Value: formatDecimal(amount), Currency: state.config.Commodity}
	return nil
}

// formatDecimal renders a decimal for a directive amount, keeping the full
// precision the computation produced.
func formatDecimal(d decimal.Decimal) string {
	return d.String()
}
