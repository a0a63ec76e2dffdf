package valuation

import (
	"fmt"

	"github.com/beanpipe/beanpipe/ast"
	"github.com/beanpipe/beanpipe/pipeline"
	"github.com/shopspring/decimal"
)

// directiveError is implemented by every valuation error so it can be
// attached to the offending directive as a diagnostic.
type directiveError interface {
	error
	GetDirective() ast.Directive
}

func diagnose(err directiveError) *pipeline.Diagnostic {
	return &pipeline.Diagnostic{
		Severity:  pipeline.SeverityError,
		Message:   err.Error(),
		Directive: err.GetDirective(),
	}
}

// DuplicateConfigError is returned when two fund configurations claim the
// same account or the same commodity symbol.
type DuplicateConfigError struct {
	Field     string
	Value     string
	Directive *ast.Custom
}

// NewDuplicateConfigError creates a new DuplicateConfigError.
func NewDuplicateConfigError(field, value string, directive *ast.Custom) *DuplicateConfigError {
	return &DuplicateConfigError{Field: field, Value: value, Directive: directive}
}

func (e *DuplicateConfigError) Error() string {
	return fmt.Sprintf("duplicate fund configuration: %s %q already configured", e.Field, e.Value)
}

// GetPosition returns the position of the offending directive.
func (e *DuplicateConfigError) GetPosition() ast.Position {
	return e.Directive.Pos
}

// GetDirective returns the offending directive.
func (e *DuplicateConfigError) GetDirective() ast.Directive {
	return e.Directive
}

// GetDate returns the date of the offending directive.
func (e *DuplicateConfigError) GetDate() *ast.Date {
	return e.Directive.Dated
}

// MissingFieldError is returned when a fund configuration, checkpoint, or
// rewritten posting lacks a required field.
type MissingFieldError struct {
	Field     string
	Directive ast.Directive
}

// NewMissingFieldError creates a new MissingFieldError.
func NewMissingFieldError(field string, directive ast.Directive) *MissingFieldError {
	return &MissingFieldError{Field: field, Directive: directive}
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("directive is missing required field %q", e.Field)
}

// GetPosition returns the position of the offending directive.
func (e *MissingFieldError) GetPosition() ast.Position {
	return e.Directive.Position()
}

// GetDirective returns the offending directive.
func (e *MissingFieldError) GetDirective() ast.Directive {
	return e.Directive
}

// GetDate returns the date of the offending directive.
func (e *MissingFieldError) GetDate() *ast.Date {
	return e.Directive.Date()
}

// UnknownAccountError is returned when a checkpoint references an account
// without a fund configuration.
type UnknownAccountError struct {
	Account   ast.Account
	Directive *ast.Custom
}

// NewUnknownAccountError creates a new UnknownAccountError.
func NewUnknownAccountError(account ast.Account, directive *ast.Custom) *UnknownAccountError {
	return &UnknownAccountError{Account: account, Directive: directive}
}

func (e *UnknownAccountError) Error() string {
	return fmt.Sprintf("checkpoint references account %q which has no fund configuration", e.Account)
}

// GetPosition returns the position of the offending directive.
func (e *UnknownAccountError) GetPosition() ast.Position {
	return e.Directive.Pos
}

// GetDirective returns the offending directive.
func (e *UnknownAccountError) GetDirective() ast.Directive {
	return e.Directive
}

// GetAccount returns the account the error refers to.
func (e *UnknownAccountError) GetAccount() ast.Account {
	return e.Account
}

// GetDate returns the date of the offending directive.
func (e *UnknownAccountError) GetDate() *ast.Date {
	return e.Directive.Dated
}

// UnorderedCheckpointError is returned when a checkpoint is dated at or
// before an earlier checkpoint for the same account.
type UnorderedCheckpointError struct {
	Account   ast.Account
	Previous  *ast.Date
	Directive *ast.Custom
}

// NewUnorderedCheckpointError creates a new UnorderedCheckpointError.
func NewUnorderedCheckpointError(account ast.Account, previous *ast.Date, directive *ast.Custom) *UnorderedCheckpointError {
	return &UnorderedCheckpointError{Account: account, Previous: previous, Directive: directive}
}

func (e *UnorderedCheckpointError) Error() string {
	return fmt.Sprintf("checkpoint for %q dated %s is not after previous checkpoint %s", e.Account, e.Directive.Dated, e.Previous)
}

// GetPosition returns the position of the offending directive.
func (e *UnorderedCheckpointError) GetPosition() ast.Position {
	return e.Directive.Pos
}

// GetDirective returns the offending directive.
func (e *UnorderedCheckpointError) GetDirective() ast.Directive {
	return e.Directive
}

// GetAccount returns the account the error refers to.
func (e *UnorderedCheckpointError) GetAccount() ast.Account {
	return e.Account
}

// GetDate returns the date of the offending directive.
func (e *UnorderedCheckpointError) GetDate() *ast.Date {
	return e.Directive.Dated
}

// SeedAfterActivityError is returned when a balance seed appears after the
// account has already seen a deposit or withdrawal.
type SeedAfterActivityError struct {
	Account   ast.Account
	Directive ast.Directive
}

// NewSeedAfterActivityError creates a new SeedAfterActivityError.
func NewSeedAfterActivityError(account ast.Account, directive ast.Directive) *SeedAfterActivityError {
	return &SeedAfterActivityError{Account: account, Directive: directive}
}

func (e *SeedAfterActivityError) Error() string {
	return fmt.Sprintf("balance seed for %q must precede all deposits and withdrawals", e.Account)
}

// GetPosition returns the position of the offending directive.
func (e *SeedAfterActivityError) GetPosition() ast.Position {
	return e.Directive.Position()
}

// GetDirective returns the offending directive.
func (e *SeedAfterActivityError) GetDirective() ast.Directive {
	return e.Directive
}

// GetAccount returns the account the error refers to.
func (e *SeedAfterActivityError) GetAccount() ast.Account {
	return e.Account
}

// GetDate returns the date of the offending directive.
func (e *SeedAfterActivityError) GetDate() *ast.Date {
	return e.Directive.Date()
}

// DuplicateSeedError is returned when an account receives a second balance
// seed; at most one seed is allowed per account.
type DuplicateSeedError struct {
	Account   ast.Account
	Directive ast.Directive
}

// NewDuplicateSeedError creates a new DuplicateSeedError.
func NewDuplicateSeedError(account ast.Account, directive ast.Directive) *DuplicateSeedError {
	return &DuplicateSeedError{Account: account, Directive: directive}
}

func (e *DuplicateSeedError) Error() string {
	return fmt.Sprintf("fund account %q is already seeded; at most one balance seed is allowed", e.Account)
}

// GetPosition returns the position of the offending directive.
func (e *DuplicateSeedError) GetPosition() ast.Position {
	return e.Directive.Position()
}

// GetDirective returns the offending directive.
func (e *DuplicateSeedError) GetDirective() ast.Directive {
	return e.Directive
}

// GetAccount returns the account the error refers to.
func (e *DuplicateSeedError) GetAccount() ast.Account {
	return e.Account
}

// GetDate returns the date of the offending directive.
func (e *DuplicateSeedError) GetDate() *ast.Date {
	return e.Directive.Date()
}

// InsufficientUnitsError is returned when a withdrawal redeems more units
// than the account holds.
type InsufficientUnitsError struct {
	Account   ast.Account
	Requested decimal.Decimal
	Held      decimal.Decimal
	Directive ast.Directive
}

// NewInsufficientUnitsError creates a new InsufficientUnitsError.
func NewInsufficientUnitsError(account ast.Account, requested, held decimal.Decimal, directive ast.Directive) *InsufficientUnitsError {
	return &InsufficientUnitsError{Account: account, Requested: requested, Held: held, Directive: directive}
}

func (e *InsufficientUnitsError) Error() string {
	return fmt.Sprintf("withdrawal from %q redeems %s units but only %s are held", e.Account, e.Requested, e.Held)
}

// GetPosition returns the position of the offending directive.
func (e *InsufficientUnitsError) GetPosition() ast.Position {
	return e.Directive.Position()
}

// GetDirective returns the offending directive.
func (e *InsufficientUnitsError) GetDirective() ast.Directive {
	return e.Directive
}

// GetAccount returns the account the error refers to.
func (e *InsufficientUnitsError) GetAccount() ast.Account {
	return e.Account
}

// GetDate returns the date of the offending directive.
func (e *InsufficientUnitsError) GetDate() *ast.Date {
	return e.Directive.Date()
}

// UnresolvableCheckpointError is returned when a checkpoint observes a
// nonzero value on an account holding no units.
type UnresolvableCheckpointError struct {
	Account   ast.Account
	Value     decimal.Decimal
	Directive *ast.Custom
}

// NewUnresolvableCheckpointError creates a new UnresolvableCheckpointError.
func NewUnresolvableCheckpointError(account ast.Account, value decimal.Decimal, directive *ast.Custom) *UnresolvableCheckpointError {
	return &UnresolvableCheckpointError{Account: account, Value: value, Directive: directive}
}

func (e *UnresolvableCheckpointError) Error() string {
	return fmt.Sprintf("checkpoint for %q observes value %s but no units are held to attribute it to", e.Account, e.Value)
}

// GetPosition returns the position of the offending directive.
func (e *UnresolvableCheckpointError) GetPosition() ast.Position {
	return e.Directive.Pos
}

// GetDirective returns the offending directive.
func (e *UnresolvableCheckpointError) GetDirective() ast.Directive {
	return e.Directive
}

// GetAccount returns the account the error refers to.
func (e *UnresolvableCheckpointError) GetAccount() ast.Account {
	return e.Account
}

// GetDate returns the date of the offending directive.
func (e *UnresolvableCheckpointError) GetDate() *ast.Date {
	return e.Directive.Dated
}

// MultiCurrencyUnsupportedError is returned when a posting uses a currency
// other than the account's established one, or when a single transaction
// touches more than one fund account.
type MultiCurrencyUnsupportedError struct {
	Account     ast.Account
	Currency    string
	Established string
	Directive   ast.Directive
}

// NewMultiCurrencyUnsupportedError creates a new MultiCurrencyUnsupportedError.
func NewMultiCurrencyUnsupportedError(account ast.Account, currency, established string, directive ast.Directive) *MultiCurrencyUnsupportedError {
	return &MultiCurrencyUnsupportedError{Account: account, Currency: currency, Established: established, Directive: directive}
}

func (e *MultiCurrencyUnsupportedError) Error() string {
	if e.Currency == "" {
		return fmt.Sprintf("transaction touches fund account %q alongside another fund account; one fund account per transaction", e.Account)
	}
	return fmt.Sprintf("fund account %q is established in %s; posting in %s is unsupported", e.Account, e.Established, e.Currency)
}

// GetPosition returns the position of the offending directive.
func (e *MultiCurrencyUnsupportedError) GetPosition() ast.Position {
	return e.Directive.Position()
}

// GetDirective returns the offending directive.
func (e *MultiCurrencyUnsupportedError) GetDirective() ast.Directive {
	return e.Directive
}

// GetAccount returns the account the error refers to.
func (e *MultiCurrencyUnsupportedError) GetAccount() ast.Account {
	return e.Account
}

// GetDate returns the date of the offending directive.
func (e *MultiCurrencyUnsupportedError) GetDate() *ast.Date {
	return e.Directive.Date()
}
