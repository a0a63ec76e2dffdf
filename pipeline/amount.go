package pipeline

import (
	"fmt"
	"strings"

	"github.com/beanpipe/beanpipe/ast"
	"github.com/shopspring/decimal"
)

// ParseAmount converts the textual value of an amount to a decimal.
// Thousands separators are accepted and stripped.
func ParseAmount(amount *ast.Amount) (decimal.Decimal, error) {
	if amount == nil {
		return decimal.Zero, fmt.Errorf("amount is nil")
	}
	return ParseDecimal(amount.Value)
}

// ParseDecimal converts a directive's numeric text to a decimal.
func ParseDecimal(value string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(value, ",", "")

	dec, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q: %w", value, err)
	}
	return dec, nil
}
