package parser

// Lexer implements a zero-copy lexer for Beancount-style files.
//
// Tokens store byte offsets into the source buffer instead of string values;
// the parser materializes strings only for the tokens it keeps.

import (
	"bytes"
)

// Lexer tokenizes source code.
type Lexer struct {
	source   []byte
	filename string
	pos      int // Current byte position
	line     int // Current line (1-indexed)
	column   int // Current column (1-indexed)
	tokens   []Token
}

// NewLexer creates a new lexer for the given source.
func NewLexer(source []byte, filename string) *Lexer {
	// Empirically ~1 token per 20 bytes; pre-allocation avoids most growth.
	estimatedTokens := len(source)/20 + 64

	return &Lexer{
		source:   source,
		filename: filename,
		line:     1,
		column:   1,
		tokens:   make([]Token, 0, estimatedTokens),
	}
}

// ScanAll lexes the entire source and returns all tokens. Single pass, no
// backtracking.
func (l *Lexer) ScanAll() []Token {
	for l.pos < len(l.source) {
		l.skipWhitespace()

		if l.pos >= len(l.source) {
			break
		}

		if l.peek() == ';' {
			l.skipComment()
			continue
		}

		tok := l.scanToken()
		l.tokens = append(l.tokens, tok)
	}

	l.tokens = append(l.tokens, Token{
		Type:   EOF,
		Start:  l.pos,
		End:    l.pos,
		Line:   l.line,
		Column: l.column,
	})

	return l.tokens
}

func (l *Lexer) scanToken() Token {
	start := l.pos
	startLine := l.line
	startCol := l.column

	ch := l.advance()

	switch {
	// Dates must be checked before numbers: YYYY-MM-DD starts with a digit.
	case ch >= '0' && ch <= '9':
		if l.isDatePattern(start) {
			return l.scanDate(start, startLine, startCol)
		}
		return l.scanNumber(start, startLine, startCol)
	case (ch == '-' || ch == '+') && l.peekIsDigit():
		return l.scanNumber(start, startLine, startCol)

	case ch == '"':
		return l.scanString(start, startLine, startCol)

	case ch == '#':
		return l.scanNameChars(TAG, start, startLine, startCol)

	case ch == '^':
		return l.scanNameChars(LINK, start, startLine, startCol)

	case ch >= 'A' && ch <= 'Z':
		return l.scanAccountOrIdent(start, startLine, startCol)

	case ch >= 'a' && ch <= 'z':
		return l.scanKeywordOrIdent(start, startLine, startCol)

	case ch == '*':
		return Token{ASTERISK, start, l.pos, startLine, startCol}
	case ch == '!':
		return Token{EXCLAIM, start, l.pos, startLine, startCol}
	case ch == ':':
		return Token{COLON, start, l.pos, startLine, startCol}
	case ch == ',':
		return Token{COMMA, start, l.pos, startLine, startCol}
	case ch == '{':
		return Token{LBRACE, start, l.pos, startLine, startCol}
	case ch == '}':
		return Token{RBRACE, start, l.pos, startLine, startCol}

	case ch == '@':
		if l.peek() == '@' {
			l.advance()
			return Token{ATAT, start, l.pos, startLine, startCol}
		}
		return Token{AT, start, l.pos, startLine, startCol}

	default:
		return Token{ILLEGAL, start, l.pos, startLine, startCol}
	}
}

// isDatePattern checks if the position starts a date pattern YYYY-MM-DD.
func (l *Lexer) isDatePattern(start int) bool {
	if start+10 > len(l.source) {
		return false
	}

	src := l.source[start:]
	for _, i := range [8]int{0, 1, 2, 3, 5, 6, 8, 9} {
		if src[i] < '0' || src[i] > '9' {
			return false
		}
	}
	return src[4] == '-' && src[7] == '-'
}

// scanDate scans a date: YYYY-MM-DD. The first digit is already consumed.
func (l *Lexer) scanDate(start, line, col int) Token {
	for i := 0; i < 9; i++ {
		l.advance()
	}
	return Token{DATE, start, l.pos, line, col}
}

// scanNumber scans a number: [-+]?[0-9]+(,[0-9]{3})*(\.[0-9]+)?
func (l *Lexer) scanNumber(start, line, col int) Token {
	for l.pos < len(l.source) && l.source[l.pos] >= '0' && l.source[l.pos] <= '9' {
		l.advance()
	}

	// Thousands separators: a comma binds to the number only when exactly
	// three digits follow, so list commas ("1, 2023-01-15") stay their own
	// token.
	for l.pos+3 < len(l.source) && l.source[l.pos] == ',' &&
		isDigit(l.source[l.pos+1]) && isDigit(l.source[l.pos+2]) && isDigit(l.source[l.pos+3]) &&
		(l.pos+4 >= len(l.source) || !isDigit(l.source[l.pos+4])) {
		for i := 0; i < 4; i++ {
			l.advance()
		}
	}

	if l.pos+1 < len(l.source) && l.source[l.pos] == '.' &&
		l.source[l.pos+1] >= '0' && l.source[l.pos+1] <= '9' {
		l.advance() // consume '.'
		for l.pos < len(l.source) && l.source[l.pos] >= '0' && l.source[l.pos] <= '9' {
			l.advance()
		}
	}

	return Token{NUMBER, start, l.pos, line, col}
}

// scanString scans a quoted string. Strings do not span lines.
func (l *Lexer) scanString(start, line, col int) Token {
	for l.pos < len(l.source) {
		ch := l.source[l.pos]
		if ch == '"' {
			l.advance()
			break
		}
		if ch == '\n' {
			break
		}
		if ch == '\\' && l.pos+1 < len(l.source) {
			l.advance()
			l.advance()
		} else {
			l.advance()
		}
	}

	return Token{STRING, start, l.pos, line, col}
}

// scanNameChars scans the [A-Za-z0-9_-]+ body of a tag or link.
func (l *Lexer) scanNameChars(typ TokenType, start, line, col int) Token {
	for l.pos < len(l.source) {
		ch := l.source[l.pos]
		if (ch < 'A' || ch > 'Z') && (ch < 'a' || ch > 'z') &&
			(ch < '0' || ch > '9') && ch != '_' && ch != '-' {
			break
		}
		l.advance()
	}

	return Token{typ, start, l.pos, line, col}
}

// scanAccountOrIdent scans an account name or identifier starting with a
// capital letter. Accounts contain colons (Assets:Funds:Pension),
// identifiers do not (EUR, FUND, TRUE).
func (l *Lexer) scanAccountOrIdent(start, line, col int) Token {
	hasColon := false

	for l.pos < len(l.source) {
		ch := l.source[l.pos]

		isLetter := (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z')
		isDigit := ch >= '0' && ch <= '9'
		isSpecial := ch == ':' || ch == '-' || ch == '_' || ch == '\'' || ch == '.'

		if !isLetter && !isDigit && !isSpecial {
			break
		}

		if ch == ':' {
			// A colon only extends an account if an account segment follows;
			// "commodity:" in metadata keeps the colon as its own token.
			next := byte(0)
			if l.pos+1 < len(l.source) {
				next = l.source[l.pos+1]
			}
			if (next < 'A' || next > 'Z') && (next < '0' || next > '9') {
				break
			}
			hasColon = true
		}
		l.advance()
	}

	if hasColon {
		return Token{ACCOUNT, start, l.pos, line, col}
	}

	return Token{IDENT, start, l.pos, line, col}
}

// scanKeywordOrIdent scans a keyword or identifier starting with a lowercase
// letter.
func (l *Lexer) scanKeywordOrIdent(start, line, col int) Token {
	for l.pos < len(l.source) {
		ch := l.source[l.pos]
		if (ch < 'a' || ch > 'z') && (ch < 'A' || ch > 'Z') &&
			(ch < '0' || ch > '9') && ch != '_' && ch != '-' {
			break
		}
		l.advance()
	}

	word := l.source[start:l.pos]
	return Token{l.keywordType(word), start, l.pos, line, col}
}

// keywordType returns the token type for a keyword, or IDENT if not a keyword.
func (l *Lexer) keywordType(word []byte) TokenType {
	// Byte comparison avoids allocating strings.
	switch {
	case bytes.Equal(word, []byte("txn")):
		return TXN
	case bytes.Equal(word, []byte("open")):
		return OPEN
	case bytes.Equal(word, []byte("close")):
		return CLOSE
	case bytes.Equal(word, []byte("balance")):
		return BALANCE
	case bytes.Equal(word, []byte("pad")):
		return PAD
	case bytes.Equal(word, []byte("note")):
		return NOTE
	case bytes.Equal(word, []byte("price")):
		return PRICE
	case bytes.Equal(word, []byte("commodity")):
		return COMMODITY
	case bytes.Equal(word, []byte("event")):
		return EVENT
	case bytes.Equal(word, []byte("custom")):
		return CUSTOM
	case bytes.Equal(word, []byte("option")):
		return OPTION
	case bytes.Equal(word, []byte("include")):
		return INCLUDE
	case bytes.Equal(word, []byte("plugin")):
		return PLUGIN
	default:
		return IDENT
	}
}

// skipWhitespace skips whitespace and updates line/column tracking.
func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.source) {
		ch := l.source[l.pos]
		if ch != ' ' && ch != '\t' && ch != '\n' && ch != '\r' {
			break
		}
		if ch == '\n' {
			l.line++
			l.column = 1
			l.pos++
		} else {
			l.column++
			l.pos++
		}
	}
}

// skipComment skips a comment line (;...).
func (l *Lexer) skipComment() {
	for l.pos < len(l.source) && l.source[l.pos] != '\n' {
		l.pos++
	}
	if l.pos < len(l.source) && l.source[l.pos] == '\n' {
		l.pos++
		l.line++
		l.column = 1
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.source) {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekIsDigit() bool {
	if l.pos >= len(l.source) {
		return false
	}
	ch := l.source[l.pos]
	return ch >= '0' && ch <= '9'
}

func (l *Lexer) advance() byte {
	if l.pos >= len(l.source) {
		return 0
	}
	ch := l.source[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return ch
}
