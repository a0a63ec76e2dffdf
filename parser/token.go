package parser

// TokenType identifies the lexical class of a token.
type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF

	// Literals
	DATE    // 2023-01-15
	NUMBER  // 1000.00, -42
	STRING  // "..."
	TAG     // #vat
	LINK    // ^statement-2023
	ACCOUNT // Assets:Funds:Pension
	IDENT   // EUR, FUND, TRUE, metadata keys

	// Keywords
	TXN
	OPEN
	CLOSE
	BALANCE
	PAD
	NOTE
	PRICE
	COMMODITY
	EVENT
	CUSTOM
	OPTION
	INCLUDE
	PLUGIN

	// Punctuation
	ASTERISK // *
	EXCLAIM  // !
	COLON    // :
	COMMA    // ,
	LBRACE   // {
	RBRACE   // }
	AT       // @
	ATAT     // @@
)

// Token is a zero-copy reference into the source buffer. Text is recovered
// on demand with Text().
type Token struct {
	Type   TokenType
	Start  int // Byte offset of first character
	End    int // Byte offset past last character
	Line   int // Line number (1-indexed)
	Column int // Column number (1-indexed)
}

// Text returns the source text of the token.
func (t Token) Text(source []byte) string {
	return string(source[t.Start:t.End])
}

func (t TokenType) String() string {
	switch t {
	case EOF:
		return "EOF"
	case DATE:
		return "date"
	case NUMBER:
		return "number"
	case STRING:
		return "string"
	case TAG:
		return "tag"
	case LINK:
		return "link"
	case ACCOUNT:
		return "account"
	case IDENT:
		return "identifier"
	case TXN:
		return "txn"
	case OPEN:
		return "open"
	case CLOSE:
		return "close"
	case BALANCE:
		return "balance"
	case PAD:
		return "pad"
	case NOTE:
		return "note"
	case PRICE:
		return "price"
	case COMMODITY:
		return "commodity"
	case EVENT:
		return "event"
	case CUSTOM:
		return "custom"
	case OPTION:
		return "option"
	case INCLUDE:
		return "include"
	case PLUGIN:
		return "plugin"
	case ASTERISK:
		return "*"
	case EXCLAIM:
		return "!"
	case COLON:
		return ":"
	case COMMA:
		return ","
	case LBRACE:
		return "{"
	case RBRACE:
		return "}"
	case AT:
		return "@"
	case ATAT:
		return "@@"
	default:
		return "illegal"
	}
}
