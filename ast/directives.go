package ast

// Commodity declares a commodity or currency that can be used in the ledger.
// The valuation transform synthesizes one of these per fund account so that
// downstream reporting knows about the synthetic per-fund commodity.
//
// Example:
//
//	2023-01-01 commodity FUND
type Commodity struct {
	Pos      Position
	Dated    *Date
	Currency string

	withMetadata
}

var _ Directive = &Commodity{}

func (c *Commodity) Position() Position { return c.Pos }
func (c *Commodity) Date() *Date        { return c.Dated }
func (c *Commodity) Directive() string  { return "commodity" }

// Open declares the opening of an account at a specific date, optionally
// constrained to a set of currencies and a booking method.
//
// Example:
//
//	2023-01-01 open Assets:Funds:Pension EUR
type Open struct {
	Pos                  Position
	Dated                *Date
	Account              Account
	ConstraintCurrencies []string
	BookingMethod        string

	withMetadata
}

var _ Directive = &Open{}

func (o *Open) Position() Position { return o.Pos }
func (o *Open) Date() *Date        { return o.Dated }
func (o *Open) Directive() string  { return "open" }

// Close declares the closing of an account at a specific date.
//
// Example:
//
//	2024-12-31 close Assets:Funds:Pension
type Close struct {
	Pos     Position
	Dated   *Date
	Account Account

	withMetadata
}

var _ Directive = &Close{}

func (c *Close) Position() Position { return c.Pos }
func (c *Close) Date() *Date        { return c.Dated }
func (c *Close) Directive() string  { return "close" }

// Balance asserts that an account has a specific balance at the beginning of
// a given date. A balance assertion on a configured fund account, dated
// before any activity, seeds the fund's initial lot.
//
// Example:
//
//	2023-01-01 balance Assets:Funds:Pension 1000.00 EUR
type Balance struct {
	Pos     Position
	Dated   *Date
	Account Account
	Amount  *Amount

	withMetadata
}

var _ Directive = &Balance{}

func (b *Balance) Position() Position { return b.Pos }
func (b *Balance) Date() *Date        { return b.Dated }
func (b *Balance) Directive() string  { return "balance" }

// Pad automatically inserts a transaction to bring an account to the balance
// asserted by the next balance directive. Beanpipe passes pads through
// unchanged; they are resolved by the host ledger.
//
// Example:
//
//	2023-01-01 pad Assets:Checking Equity:Opening-Balances
type Pad struct {
	Pos        Position
	Dated      *Date
	Account    Account
	AccountPad Account

	withMetadata
}

var _ Directive = &Pad{}

func (p *Pad) Position() Position { return p.Pos }
func (p *Pad) Date() *Date        { return p.Dated }
func (p *Pad) Directive() string  { return "pad" }

// Note attaches a dated comment to an account.
//
// Example:
//
//	2023-07-09 note Assets:Funds:Pension "provider statement received"
type Note struct {
	Pos         Position
	Dated       *Date
	Account     Account
	Description string

	withMetadata
}

var _ Directive = &Note{}

func (n *Note) Position() Position { return n.Pos }
func (n *Note) Date() *Date        { return n.Dated }
func (n *Note) Directive() string  { return "note" }

// Price declares the price of a commodity in terms of another currency at a
// specific date. The valuation transform synthesizes these whenever a
// checkpoint recalibrates a fund's unit price.
//
// Example:
//
//	2023-02-01 price FUND 0.90 EUR
type Price struct {
	Pos       Position
	Dated     *Date
	Commodity string
	Amount    *Amount

	withMetadata
}

var _ Directive = &Price{}

func (p *Price) Position() Position { return p.Pos }
func (p *Price) Date() *Date        { return p.Dated }
func (p *Price) Directive() string  { return "price" }

// Event records a named value at a specific date.
//
// Example:
//
//	2023-07-09 event "location" "Amsterdam, NL"
type Event struct {
	Pos   Position
	Dated *Date
	Name  string
	Value string

	withMetadata
}

var _ Directive = &Event{}

func (e *Event) Position() Position { return e.Pos }
func (e *Event) Date() *Date        { return e.Dated }
func (e *Event) Directive() string  { return "event" }

// Custom is the extension directive the transforms use for their
// configuration and observation records. Values can be strings, numbers,
// booleans, accounts, or amounts in any combination.
//
// Example:
//
//	2023-01-01 custom "valuation-config" Assets:Funds:Pension
//	  commodity: FUND
//	  pnl: Income:Funds:Pension:PnL
//	2023-02-01 custom "valuation" Assets:Funds:Pension 900.00 EUR
type Custom struct {
	Pos    Position
	Dated  *Date
	Type   string
	Values []*CustomValue

	withMetadata
}

var _ Directive = &Custom{}

func (c *Custom) Position() Position { return c.Pos }
func (c *Custom) Date() *Date        { return c.Dated }
func (c *Custom) Directive() string  { return "custom" }

// CustomValue represents a single value in a custom directive. Exactly one
// field is non-nil for each value.
type CustomValue struct {
	String  *string
	Account *Account
	Amount  *Amount
	Number  *string
	Boolean *bool
}
