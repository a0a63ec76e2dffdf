package ast

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Amount represents a numerical value with its associated currency or
// commodity symbol. The value is stored as a string to preserve the exact
// decimal representation from the input, avoiding floating-point precision
// issues.
type Amount struct {
	Value    string
	Currency string
}

// Cost represents the cost basis specification for a posting, written between
// braces after the amount. Beanpipe uses it to carry the cost-basis price of
// synthetic commodity lots, optionally together with the acquisition date.
//
// Example cost specifications:
//
//	454.54 FUND {1.00 EUR}
//	454.54 FUND {1.00 EUR, 2023-01-15}
type Cost struct {
	Amount *Amount
	Date   *Date
	Label  string
}

// IsEmpty returns true if this is an empty cost specification {}.
func (c *Cost) IsEmpty() bool {
	return c != nil && c.Amount == nil && c.Date == nil && c.Label == ""
}

// Account represents an account name consisting of at least two
// colon-separated segments. The first segment must be one of the five account
// categories: Assets, Liabilities, Equity, Income, or Expenses. Subsequent
// segments must start with an uppercase letter or digit.
//
// Example accounts:
//
//	Assets:Funds:Pension
//	Income:Funds:Pension:PnL
type Account string

// Root returns the account category (the first segment).
func (a Account) Root() string {
	name := string(a)
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i]
	}
	return name
}

// HasRoot reports whether the account belongs to the given category.
func (a Account) HasRoot(root string) bool {
	return a.Root() == root
}

// NewAccount creates an Account from the given name string and validates it.
func NewAccount(name string) (Account, error) {
	parts := strings.Split(name, ":")
	if len(parts) < 2 {
		return "", fmt.Errorf("account must have at least two segments: %s", name)
	}

	switch parts[0] {
	case "Assets", "Liabilities", "Equity", "Income", "Expenses":
	default:
		return "", fmt.Errorf("unexpected account type %q", parts[0])
	}

	for i := 1; i < len(parts); i++ {
		if !isValidAccountSegment(parts[i]) {
			return "", fmt.Errorf("invalid account segment at position %d: %s", i, parts[i])
		}
	}

	return Account(name), nil
}

// accountSegmentRegex validates account segments (after the first).
// Must start with uppercase letter or digit, can contain alphanumerics and hyphens.
var accountSegmentRegex = regexp.MustCompile(`^[A-Z0-9][A-Za-z0-9-]*$`)

func isValidAccountSegment(segment string) bool {
	return len(segment) > 0 && accountSegmentRegex.MatchString(segment)
}

// Date represents a calendar date in ISO 8601 format (YYYY-MM-DD). All
// directives have a date; dates are the ordering key of the directive stream.
type Date struct {
	time.Time
}

// NewDate parses a date string in YYYY-MM-DD format and returns a Date.
func NewDate(s string) (*Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %s", s)
	}
	return &Date{Time: t}, nil
}

// NewDateFromTime creates a Date from a time.Time value.
func NewDateFromTime(t time.Time) *Date {
	return &Date{Time: t}
}

// IsZero returns true if the Date is nil or represents the zero time.
func (d *Date) IsZero() bool {
	if d == nil {
		return true
	}
	return d.Time.IsZero()
}

// String renders the date in ISO 8601 format.
func (d *Date) String() string {
	return d.Format("2006-01-02")
}

// Link represents a reference link starting with ^, used to connect related
// transactions together.
type Link string

// Tag represents a hashtag starting with #, used to categorize and filter
// transactions. The stored value excludes the # prefix.
type Tag string

// NewTag creates a Tag from the given name, stripping a leading # if present.
func NewTag(name string) Tag {
	return Tag(strings.TrimPrefix(name, "#"))
}

// NewLink creates a Link from the given name, stripping a leading ^ if present.
func NewLink(name string) Link {
	return Link(strings.TrimPrefix(name, "^"))
}

// MetadataValue represents a typed value stored in metadata. This is a
// discriminated union where exactly one of the pointer fields is non-nil.
//
// Example metadata with different value types:
//
//	commodity: FUND                   ; Currency (uppercase identifier)
//	pnl: Income:Funds:PnL             ; Account (colon-separated)
//	observed: 1053.15 EUR             ; Amount (number + currency)
//	note: "quarterly statement"       ; String (quoted)
//	since: 2023-01-15                 ; Date (ISO format)
//	applied: 42                       ; Number (decimal)
//	active: TRUE                      ; Boolean (uppercase TRUE/FALSE)
type MetadataValue struct {
	StringValue *string
	Date        *Date
	Account     *Account
	Currency    *string
	Tag         *Tag
	Link        *Link
	Number      *string // Stored as string to preserve precision
	Amount      *Amount
	Boolean     *bool
}

// String returns a string representation of the metadata value.
func (m *MetadataValue) String() string {
	if m == nil {
		return ""
	}
	switch {
	case m.StringValue != nil:
		return *m.StringValue
	case m.Date != nil:
		return m.Date.String()
	case m.Account != nil:
		return string(*m.Account)
	case m.Currency != nil:
		return *m.Currency
	case m.Tag != nil:
		return string(*m.Tag)
	case m.Link != nil:
		return string(*m.Link)
	case m.Number != nil:
		return *m.Number
	case m.Amount != nil:
		return m.Amount.Value + " " + m.Amount.Currency
	case m.Boolean != nil:
		if *m.Boolean {
			return "TRUE"
		}
		return "FALSE"
	default:
		return ""
	}
}

// Metadata represents a key-value pair attached to a directive or posting on
// the indented lines that follow it.
type Metadata struct {
	Key   string
	Value *MetadataValue
}
