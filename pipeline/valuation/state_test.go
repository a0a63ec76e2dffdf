package valuation

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/beanpipe/beanpipe/ast"
	"github.com/shopspring/decimal"
)

func date(t *testing.T, s string) *ast.Date {
	t.Helper()
	d, err := ast.NewDate(s)
	assert.NoError(t, err)
	return d
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testConfig() *FundConfig {
	return &FundConfig{
		Account:   "Assets:Funds:Pension",
		Commodity: "PENSION",
		PnL:       "Income:Funds:Pension:PnL",
	}
}

func checkpointAt(t *testing.T, day, value string) *Checkpoint {
	t.Helper()
	return &Checkpoint{
		Account:  "Assets:Funds:Pension",
		Date:     date(t, day),
		Value:    dec(value),
		Currency: "EUR",
		Directive: &ast.Custom{
			Dated: date(t, day),
			Type:  checkpointDirective,
		},
	}
}

func TestFundStateRoundTrip(t *testing.T) {
	state := newFundState(testConfig())

	units := state.Deposit(date(t, "2023-01-15"), dec("1000.00"))
	assert.True(t, units.Equal(dec("1000")))
	assert.Equal(t, 1, len(state.Lots()))

	// Checkpoint at 900 reprices without touching the lot.
	publish, err := state.Recalibrate(checkpointAt(t, "2023-02-01", "900.00"))
	assert.NoError(t, err)
	assert.True(t, publish)
	assert.True(t, state.Price().Equal(dec("0.9")))
	assert.True(t, state.Lots()[0].Units.Equal(dec("1000")))
	assert.True(t, state.Lots()[0].Cost.Equal(dec("1")))

	publish, err = state.Recalibrate(checkpointAt(t, "2023-03-01", "1100.00"))
	assert.NoError(t, err)
	assert.True(t, publish)
	assert.True(t, state.Price().Equal(dec("1.1")))

	txn := ast.NewTransaction(date(t, "2023-04-01"), "Withdraw")
	segments, realized, err := state.Withdraw(dec("500.00"), txn)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(segments))
	assert.True(t, segments[0].Units.Round(6).Equal(dec("454.545455")))
	assert.True(t, segments[0].Cost.Equal(dec("1")))
	assert.True(t, realized.Round(6).Equal(dec("45.454545")))
	assert.True(t, state.TotalUnits().Round(6).Equal(dec("545.454545")))
}

func TestFundStateValueConservation(t *testing.T) {
	state := newFundState(testConfig())

	state.Deposit(date(t, "2023-01-01"), dec("250.00"))

	_, err := state.Recalibrate(checkpointAt(t, "2023-02-01", "300.00"))
	assert.NoError(t, err)
	held := state.TotalUnits().Mul(state.Price())
	assert.True(t, held.Sub(dec("300")).Abs().LessThan(epsilon))

	state.Deposit(date(t, "2023-02-15"), dec("150.00"))
	held = state.TotalUnits().Mul(state.Price())
	assert.True(t, held.Sub(dec("450")).Abs().LessThan(epsilon))

	_, _, withdrawErr := state.Withdraw(dec("100.00"), ast.NewTransaction(date(t, "2023-03-01"), ""))
	assert.NoError(t, withdrawErr)
	held = state.TotalUnits().Mul(state.Price())
	assert.True(t, held.Sub(dec("350")).Abs().LessThan(epsilon))
}

func TestFundStateWithdrawSpansLotsFIFO(t *testing.T) {
	state := newFundState(testConfig())

	state.Deposit(date(t, "2023-01-01"), dec("1000.00"))

	_, err := state.Recalibrate(checkpointAt(t, "2023-02-01", "1200.00"))
	assert.NoError(t, err)
	assert.True(t, state.Price().Equal(dec("1.2")))

	state.Deposit(date(t, "2023-02-15"), dec("600.00"))
	assert.Equal(t, 2, len(state.Lots()))
	assert.True(t, state.Lots()[1].Units.Equal(dec("500")))
	assert.True(t, state.Lots()[1].Cost.Equal(dec("1.2")))

	segments, realized, withdrawErr := state.Withdraw(dec("1300.00"), ast.NewTransaction(date(t, "2023-03-01"), ""))
	assert.NoError(t, withdrawErr)

	// Oldest lot first: the full first lot, then part of the second.
	assert.Equal(t, 2, len(segments))
	assert.True(t, segments[0].Units.Equal(dec("1000")))
	assert.True(t, segments[0].Cost.Equal(dec("1")))
	assert.True(t, segments[1].Units.Round(6).Equal(dec("83.333333")))
	assert.True(t, segments[1].Cost.Equal(dec("1.2")))

	// Only the first lot carries a gain; the second was bought at the
	// current price.
	assert.True(t, realized.Round(6).Equal(dec("200")))
	assert.Equal(t, 1, len(state.Lots()))
}

func TestFundStateSeed(t *testing.T) {
	state := newFundState(testConfig())
	balance := &ast.Balance{Dated: date(t, "2023-01-01"), Account: "Assets:Funds:Pension"}

	err := state.Seed(balance.Dated, dec("1000.00"), balance)
	assert.NoError(t, err)
	assert.True(t, state.Price().Equal(dec("1")))
	assert.Equal(t, 1, len(state.Lots()))
	assert.True(t, state.Lots()[0].Cost.Equal(dec("1")))
}

func TestFundStateSeedAfterActivity(t *testing.T) {
	state := newFundState(testConfig())
	state.Deposit(date(t, "2023-01-01"), dec("100.00"))

	balance := &ast.Balance{Dated: date(t, "2023-02-01"), Account: "Assets:Funds:Pension"}
	err := state.Seed(balance.Dated, dec("1000.00"), balance)
	assert.Error(t, err)
	_, ok := err.(*SeedAfterActivityError)
	assert.True(t, ok)

	// The failed seed must not disturb existing lots.
	assert.Equal(t, 1, len(state.Lots()))
	assert.True(t, state.Lots()[0].Units.Equal(dec("100")))
}

func TestFundStateDuplicateSeed(t *testing.T) {
	state := newFundState(testConfig())

	first := &ast.Balance{Dated: date(t, "2023-01-01"), Account: "Assets:Funds:Pension"}
	assert.NoError(t, state.Seed(first.Dated, dec("1000.00"), first))

	// A balance assertion states a total, not an increment; a second seed
	// must be rejected instead of doubling the held units.
	second := &ast.Balance{Dated: date(t, "2023-02-01"), Account: "Assets:Funds:Pension"}
	err := state.Seed(second.Dated, dec("1000.00"), second)
	assert.Error(t, err)
	_, ok := err.(*DuplicateSeedError)
	assert.True(t, ok)

	assert.Equal(t, 1, len(state.Lots()))
	assert.True(t, state.TotalUnits().Equal(dec("1000")))
}

func TestFundStateInsufficientUnits(t *testing.T) {
	state := newFundState(testConfig())
	state.Deposit(date(t, "2023-01-01"), dec("100.00"))

	_, _, err := state.Withdraw(dec("150.00"), ast.NewTransaction(date(t, "2023-02-01"), ""))
	assert.Error(t, err)
	_, ok := err.(*InsufficientUnitsError)
	assert.True(t, ok)

	// State unchanged on failure.
	assert.True(t, state.TotalUnits().Equal(dec("100")))
}

func TestFundStateZeroUnitCheckpoint(t *testing.T) {
	state := newFundState(testConfig())

	// Nonzero value with nothing to attribute it to.
	_, err := state.Recalibrate(checkpointAt(t, "2023-01-01", "500.00"))
	assert.Error(t, err)
	_, ok := err.(*UnresolvableCheckpointError)
	assert.True(t, ok)

	// Zero value on zero units resets the baseline without publishing.
	publish, err := state.Recalibrate(checkpointAt(t, "2023-01-02", "0"))
	assert.NoError(t, err)
	assert.False(t, publish)
	assert.True(t, state.Price().Equal(dec("1")))
}

func TestFundStateCurrencyEstablished(t *testing.T) {
	state := newFundState(testConfig())
	txn := ast.NewTransaction(date(t, "2023-01-01"), "")

	assert.Equal(t, nil, state.EstablishCurrency("EUR", txn))
	assert.Equal(t, nil, state.EstablishCurrency("EUR", txn))

	err := state.EstablishCurrency("USD", txn)
	assert.Error(t, err)
	_, ok := err.(*MultiCurrencyUnsupportedError)
	assert.True(t, ok)
}
