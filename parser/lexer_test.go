package parser

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func scan(source string) []Token {
	return NewLexer([]byte(source), "<input>").ScanAll()
}

func tokenTypes(tokens []Token) []TokenType {
	types := make([]TokenType, 0, len(tokens))
	for _, tok := range tokens {
		types = append(types, tok.Type)
	}
	return types
}

func TestLexerDirectiveLine(t *testing.T) {
	tokens := scan(`2023-01-15 balance Assets:Funds:Pension 1053.15 EUR`)

	assert.Equal(t,
		[]TokenType{DATE, BALANCE, ACCOUNT, NUMBER, IDENT, EOF},
		tokenTypes(tokens))
}

func TestLexerDateVersusNumber(t *testing.T) {
	tokens := scan("2023-01-15 2023 -42.50 +7")

	assert.Equal(t, []TokenType{DATE, NUMBER, NUMBER, NUMBER, EOF}, tokenTypes(tokens))
	assert.Equal(t, "-42.50", tokens[2].Text([]byte("2023-01-15 2023 -42.50 +7")))
}

func TestLexerGroupedNumbers(t *testing.T) {
	source := "1,000.00 1,234,567.89 1,00 1, 2023-01-15"
	tokens := scan(source)

	assert.Equal(t,
		[]TokenType{NUMBER, NUMBER, NUMBER, COMMA, NUMBER, NUMBER, COMMA, DATE, EOF},
		tokenTypes(tokens))
	assert.Equal(t, "1,000.00", tokens[0].Text([]byte(source)))
	assert.Equal(t, "1,234,567.89", tokens[1].Text([]byte(source)))
}

func TestLexerSkipsComments(t *testing.T) {
	tokens := scan(`
; full-line comment
2023-01-15 event "a" "1" ; trailing comment
`)

	assert.Equal(t, []TokenType{DATE, EVENT, STRING, STRING, EOF}, tokenTypes(tokens))
}

func TestLexerMetadataColonStaysSeparate(t *testing.T) {
	// "commodity:" is a metadata key, not an account, because no account
	// segment follows the colon.
	tokens := scan("commodity: PENSION")
	assert.Equal(t, []TokenType{COMMODITY, COLON, IDENT, EOF}, tokenTypes(tokens))

	tokens = scan("pnl: Income:Funds:PnL")
	assert.Equal(t, []TokenType{IDENT, COLON, ACCOUNT, EOF}, tokenTypes(tokens))
}

func TestLexerPositions(t *testing.T) {
	tokens := scan("2023-01-15 * \"x\"\n  Assets:Checking 5.00 EUR\n")

	account := tokens[3]
	assert.Equal(t, ACCOUNT, account.Type)
	assert.Equal(t, 2, account.Line)
	assert.Equal(t, 3, account.Column)
}

func TestLexerAtAndAtAt(t *testing.T) {
	tokens := scan("@ 1.10 EUR @@ 13.00 USD")
	assert.Equal(t, []TokenType{AT, NUMBER, IDENT, ATAT, NUMBER, IDENT, EOF}, tokenTypes(tokens))
}
