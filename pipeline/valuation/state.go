package valuation

import (
	"github.com/beanpipe/beanpipe/ast"
	"github.com/beanpipe/beanpipe/pipeline"
	"github.com/shopspring/decimal"
)

// epsilon absorbs decimal rounding drift on unit comparisons. It tolerates
// residue from repeated divisions, not genuine over-withdrawal.
var epsilon = decimal.New(1, -9)

var one = decimal.New(1, 0)

type fundPhase int

const (
	phaseUninitialized fundPhase = iota
	phaseSeeded
	phaseActive
)

// Lot is a quantity of synthetic-commodity units acquired at one cost-basis
// price. Created by deposits, shrunk oldest-first by withdrawals. Units
// never increase after creation.
type Lot struct {
	Date  *ast.Date
	Units decimal.Decimal
	Cost  decimal.Decimal
}

// LotSegment records the units a single withdrawal took from one lot.
type LotSegment struct {
	Date  *ast.Date
	Units decimal.Decimal
	Cost  decimal.Decimal
}

// FundState is the evolving per-account valuation state: the current unit
// price and the FIFO queue of open lots. It is owned exclusively by the
// transform pass for one account and mutated strictly in chronological
// order; no other component touches the lot queue.
type FundState struct {
	config *FundConfig

	phase    fundPhase
	price    decimal.Decimal
	currency string

	// lots[head:] are the open lots, oldest first. Consumed lots advance
	// head instead of reslicing so withdrawals stay allocation-free.
	lots []*Lot
	head int

	// failed holds the diagnostic that excluded this account from further
	// rewriting, if any.
	failed *pipeline.Diagnostic
}

func newFundState(config *FundConfig) *FundState {
	return &FundState{config: config, price: one}
}

// Price returns the current unit price.
func (s *FundState) Price() decimal.Decimal {
	return s.price
}

// TotalUnits sums the units of all open lots.
func (s *FundState) TotalUnits() decimal.Decimal {
	total := decimal.Zero
	for _, lot := range s.lots[s.head:] {
		total = total.Add(lot.Units)
	}
	return total
}

// Lots returns the open lots, oldest first.
func (s *FundState) Lots() []*Lot {
	return s.lots[s.head:]
}

// EstablishCurrency pins the account to its first observed currency and
// rejects any other one afterwards.
func (s *FundState) EstablishCurrency(currency string, directive ast.Directive) directiveError {
	if s.currency == "" {
		s.currency = currency
		return nil
	}
	if s.currency != currency {
		return NewMultiCurrencyUnsupportedError(s.config.Account, currency, s.currency, directive)
	}
	return nil
}

// Seed installs the initial balance: one lot at cost basis 1.0 and a unit
// price of 1.0. Valid at most once, and only before any deposit or
// withdrawal.
func (s *FundState) Seed(date *ast.Date, amount decimal.Decimal, directive ast.Directive) directiveError {
	switch s.phase {
	case phaseSeeded:
		return NewDuplicateSeedError(s.config.Account, directive)
	case phaseActive:
		return NewSeedAfterActivityError(s.config.Account, directive)
	}

	s.price = one
	s.lots = append(s.lots, &Lot{Date: date, Units: amount, Cost: one})
	s.phase = phaseSeeded
	return nil
}

// Deposit converts a positive monetary amount to units at the current price
// and appends a new lot. Returns the units acquired.
func (s *FundState) Deposit(date *ast.Date, amount decimal.Decimal) decimal.Decimal {
	units := amount.Div(s.price)
	s.lots = append(s.lots, &Lot{Date: date, Units: units, Cost: s.price})
	s.phase = phaseActive
	return units
}

// Withdraw redeems units worth the given positive monetary amount at the
// current price, consuming lots oldest-first. It returns the per-lot
// segments taken and the realized gain or loss (proceeds minus cost basis).
// On error the state is left unchanged.
func (s *FundState) Withdraw(amount decimal.Decimal, directive ast.Directive) ([]LotSegment, decimal.Decimal, directiveError) {
	redeem := amount.Div(s.price)

	held := s.TotalUnits()
	if held.Add(epsilon).LessThan(redeem) {
		return nil, decimal.Zero, NewInsufficientUnitsError(s.config.Account, redeem, held, directive)
	}

	var segments []LotSegment
	realized := decimal.Zero
	remaining := redeem
	for s.head < len(s.lots) && remaining.GreaterThan(epsilon) {
		lot := s.lots[s.head]

		take := remaining
		if lot.Units.LessThan(take) {
			take = lot.Units
		}

		cost := take.Mul(lot.Cost)
		proceeds := take.Mul(s.price)
		realized = realized.Add(proceeds.Sub(cost))
		segments = append(segments, LotSegment{Date: lot.Date, Units: take, Cost: lot.Cost})

		lot.Units = lot.Units.Sub(take)
		if lot.Units.LessThanOrEqual(epsilon) {
			s.head++
		}
		remaining = remaining.Sub(take)
	}

	s.phase = phaseActive
	return segments, realized, nil
}

// Recalibrate adjusts the current price so the held units match the
// checkpoint's observed value. Lots are never touched; gains realize only
// on withdrawal. It reports whether the account now has a price worth
// publishing as a price directive.
func (s *FundState) Recalibrate(cp *Checkpoint) (bool, directiveError) {
	held := s.TotalUnits()
	if held.LessThanOrEqual(epsilon) {
		if !cp.Value.IsZero() {
			return false, NewUnresolvableCheckpointError(s.config.Account, cp.Value, cp.Directive)
		}
		// Empty account observed empty: reset the baseline for the next
		// deposit without publishing a price.
		s.price = one
		return false, nil
	}

	s.price = cp.Value.Div(held)
	return true, nil
}

// Fail excludes the account from further rewriting.
func (s *FundState) Fail(d *pipeline.Diagnostic) {
	if s.failed == nil {
		s.failed = d
	}
}

// Failed reports whether the account has been excluded from rewriting.
func (s *FundState) Failed() bool {
	return s.failed != nil
}
