// Constructor functions for programmatically building AST nodes. The
// transforms use these to synthesize directives (prices, commodity
// declarations, rewritten postings); tests use them to assemble expectations.
//
// Complex nodes use functional options, following Go idioms for configurable
// constructors.
package ast

// NewAmount creates a new Amount with the given value and currency.
// The value should be a decimal string (e.g., "100.50", "-42.00").
// No validation is performed on the value or currency.
func NewAmount(value, currency string) *Amount {
	return &Amount{
		Value:    value,
		Currency: currency,
	}
}

// NewMetadata creates a Metadata key-value pair with a string value.
func NewMetadata(key, value string) *Metadata {
	return &Metadata{
		Key:   key,
		Value: &MetadataValue{StringValue: &value},
	}
}

// NewAccountMetadata creates a Metadata key-value pair holding an account.
func NewAccountMetadata(key string, account Account) *Metadata {
	return &Metadata{
		Key:   key,
		Value: &MetadataValue{Account: &account},
	}
}

// NewCurrencyMetadata creates a Metadata key-value pair holding a currency
// or commodity symbol.
func NewCurrencyMetadata(key, currency string) *Metadata {
	return &Metadata{
		Key:   key,
		Value: &MetadataValue{Currency: &currency},
	}
}

// NewNumberMetadata creates a Metadata key-value pair holding a number,
// stored as a string to preserve precision.
func NewNumberMetadata(key, number string) *Metadata {
	return &Metadata{
		Key:   key,
		Value: &MetadataValue{Number: &number},
	}
}

// TransactionOption is a functional option for configuring a Transaction.
type TransactionOption func(*Transaction)

// NewTransaction creates a new Transaction with the given date and narration.
// Additional fields can be set using functional options.
//
// Example:
//
//	txn := ast.NewTransaction(date, "Fund deposit",
//	    ast.WithFlag("*"),
//	    ast.WithPostings(
//	        ast.NewPosting(fundAccount, ast.WithAmount("1000.00", "EUR")),
//	        ast.NewPosting(checkingAccount),
//	    ),
//	)
func NewTransaction(date *Date, narration string, opts ...TransactionOption) *Transaction {
	txn := &Transaction{
		Dated:     date,
		Narration: narration,
	}

	for _, opt := range opts {
		opt(txn)
	}

	return txn
}

// WithFlag sets the transaction flag. Common values: "*" (cleared), "!" (pending).
func WithFlag(flag string) TransactionOption {
	return func(t *Transaction) {
		t.Flag = flag
	}
}

// WithPayee sets the transaction payee.
func WithPayee(payee string) TransactionOption {
	return func(t *Transaction) {
		t.Payee = payee
	}
}

// WithTags adds tags to the transaction. Tag names should not include the
// # prefix (it is added during formatting).
func WithTags(tags ...string) TransactionOption {
	return func(t *Transaction) {
		for _, tag := range tags {
			t.Tags = append(t.Tags, NewTag(tag))
		}
	}
}

// WithLinks adds links to the transaction.
func WithLinks(links ...string) TransactionOption {
	return func(t *Transaction) {
		for _, link := range links {
			t.Links = append(t.Links, NewLink(link))
		}
	}
}

// WithPostings sets the postings for the transaction.
func WithPostings(postings ...*Posting) TransactionOption {
	return func(t *Transaction) {
		t.Postings = postings
	}
}

// PostingOption is a functional option for configuring a Posting.
type PostingOption func(*Posting)

// NewPosting creates a new Posting for the given account.
func NewPosting(account Account, opts ...PostingOption) *Posting {
	posting := &Posting{
		Account: account,
	}

	for _, opt := range opts {
		opt(posting)
	}

	return posting
}

// WithAmount sets the amount for a posting.
func WithAmount(value, currency string) PostingOption {
	return func(p *Posting) {
		p.Amount = NewAmount(value, currency)
	}
}

// WithCost sets the cost specification for a posting.
func WithCost(cost *Cost) PostingOption {
	return func(p *Posting) {
		p.Cost = cost
	}
}

// WithPrice sets the per-unit price for a posting (the @ syntax).
func WithPrice(price *Amount) PostingOption {
	return func(p *Posting) {
		p.Price = price
		p.PriceTotal = false
	}
}

// WithPostingMetadata adds metadata entries to the posting.
func WithPostingMetadata(metadata ...*Metadata) PostingOption {
	return func(p *Posting) {
		p.AddMetadata(metadata...)
	}
}

// NewCost creates a Cost specification with just an amount (per-unit cost).
func NewCost(amount *Amount) *Cost {
	return &Cost{Amount: amount}
}

// NewCostWithDate creates a Cost specification with an amount and
// acquisition date.
func NewCostWithDate(amount *Amount, date *Date) *Cost {
	return &Cost{Amount: amount, Date: date}
}

// NewOpen creates an Open directive for an account. constraintCurrencies may
// be nil; bookingMethod may be empty for the host default.
func NewOpen(date *Date, account Account, constraintCurrencies []string, bookingMethod string) *Open {
	return &Open{
		Dated:                date,
		Account:              account,
		ConstraintCurrencies: constraintCurrencies,
		BookingMethod:        bookingMethod,
	}
}

// NewClose creates a Close directive for an account.
func NewClose(date *Date, account Account) *Close {
	return &Close{Dated: date, Account: account}
}

// NewBalance creates a Balance assertion directive.
func NewBalance(date *Date, account Account, amount *Amount) *Balance {
	return &Balance{Dated: date, Account: account, Amount: amount}
}

// NewPad creates a Pad directive.
func NewPad(date *Date, account, padAccount Account) *Pad {
	return &Pad{Dated: date, Account: account, AccountPad: padAccount}
}

// NewNote creates a Note directive for an account.
func NewNote(date *Date, account Account, description string) *Note {
	return &Note{Dated: date, Account: account, Description: description}
}

// NewCommodity creates a Commodity directive.
func NewCommodity(date *Date, currency string) *Commodity {
	return &Commodity{Dated: date, Currency: currency}
}

// NewPrice creates a Price directive for a commodity.
func NewPrice(date *Date, commodity string, amount *Amount) *Price {
	return &Price{Dated: date, Commodity: commodity, Amount: amount}
}

// NewEvent creates an Event directive.
func NewEvent(date *Date, name, value string) *Event {
	return &Event{Dated: date, Name: name, Value: value}
}

// NewCustom creates a Custom directive.
func NewCustom(date *Date, typeName string, values ...*CustomValue) *Custom {
	return &Custom{Dated: date, Type: typeName, Values: values}
}

// NewCustomString creates a string value for a custom directive.
func NewCustomString(s string) *CustomValue {
	return &CustomValue{String: &s}
}

// NewCustomAccount creates an account value for a custom directive.
func NewCustomAccount(account Account) *CustomValue {
	return &CustomValue{Account: &account}
}

// NewCustomAmount creates an amount value for a custom directive.
func NewCustomAmount(value, currency string) *CustomValue {
	return &CustomValue{Amount: NewAmount(value, currency)}
}
