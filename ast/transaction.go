package ast

// Transaction records a financial transaction with a date, flag, optional
// payee, narration, and a list of postings. The flag indicates transaction
// status: '*' for cleared transactions, '!' for pending ones. Tags and links
// categorize and connect related transactions.
//
// Example:
//
//	2023-01-15 * "Broker" "Fund deposit" #savings
//	  Assets:Funds:Pension         1000.00 EUR
//	  Assets:Checking             -1000.00 EUR
type Transaction struct {
	Pos       Position
	Dated     *Date
	Flag      string
	Payee     string
	Narration string
	Links     []Link
	Tags      []Tag

	withMetadata

	Postings []*Posting
}

var _ Directive = &Transaction{}

func (t *Transaction) Position() Position { return t.Pos }
func (t *Transaction) Date() *Date        { return t.Dated }
func (t *Transaction) Directive() string  { return "transaction" }

// HasTag reports whether the transaction carries the given tag.
func (t *Transaction) HasTag(tag Tag) bool {
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}

// Posting represents a single leg of a transaction: an account with an
// optional amount, cost specification, and price. One posting may omit its
// amount, to be inferred by the host ledger. Cost specifications carry the
// acquisition cost of commodity lots; price specifications record a
// conversion rate without affecting the cost basis.
//
// Example postings:
//
//	Assets:Funds:Pension    1000 FUND {1.00 EUR}       ; deposit with cost
//	Assets:Funds:Pension    -454.54 FUND {1.00 EUR} @ 1.10 EUR
//	Assets:Checking                                    ; inferred amount
type Posting struct {
	Pos        Position
	Flag       string
	Account    Account
	Amount     *Amount
	Cost       *Cost
	Price      *Amount
	PriceTotal bool // True when the price used the @@ (total) form

	withMetadata
}
