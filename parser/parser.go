// Package parser turns Beancount-style source text into an ast.AST.
//
// The parser is a recursive-descent walk over the token stream produced by
// the lexer. It recognizes the directive surface the beanpipe transforms
// operate on: transactions with postings, balance assertions, account and
// commodity declarations, prices, events, notes, pads, custom records, and
// the top-level option/include/plugin declarations.
package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/beanpipe/beanpipe/ast"
)

// ParseError describes a syntax error with its source location.
type ParseError struct {
	Pos     ast.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// ParseBytes parses source text into an AST. Directives are sorted by date
// before the AST is returned.
func ParseBytes(ctx context.Context, data []byte) (*ast.AST, error) {
	return ParseBytesWithFilename(ctx, "<input>", data)
}

// ParseBytesWithFilename parses source text, attributing positions to the
// given filename.
func ParseBytesWithFilename(ctx context.Context, filename string, data []byte) (*ast.AST, error) {
	p := &parser{
		source:   data,
		filename: filename,
		tokens:   NewLexer(data, filename).ScanAll(),
	}

	tree, err := p.parseFile(ctx)
	if err != nil {
		return nil, err
	}

	ast.SortDirectives(tree)
	return tree, nil
}

type parser struct {
	source   []byte
	filename string
	tokens   []Token
	pos      int
}

func (p *parser) cur() Token {
	return p.tokens[p.pos]
}

func (p *parser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Type != EOF {
		p.pos++
	}
	return tok
}

func (p *parser) text(tok Token) string {
	return tok.Text(p.source)
}

func (p *parser) position(tok Token) ast.Position {
	return ast.Position{
		Filename: p.filename,
		Offset:   tok.Start,
		Line:     tok.Line,
		Column:   tok.Column,
	}
}

func (p *parser) errorf(tok Token, format string, args ...any) error {
	return &ParseError{
		Pos:     p.position(tok),
		Message: fmt.Sprintf(format, args...),
	}
}

func (p *parser) expect(typ TokenType) (Token, error) {
	tok := p.cur()
	if tok.Type != typ {
		return tok, p.errorf(tok, "expected %s, found %s %q", typ, tok.Type, p.text(tok))
	}
	return p.advance(), nil
}

func (p *parser) parseFile(ctx context.Context) (*ast.AST, error) {
	tree := &ast.AST{}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		tok := p.cur()
		switch tok.Type {
		case EOF:
			return tree, nil

		case OPTION:
			p.advance()
			name, err := p.expectString()
			if err != nil {
				return nil, err
			}
			value, err := p.expectString()
			if err != nil {
				return nil, err
			}
			tree.Options = append(tree.Options, &ast.Option{Pos: p.position(tok), Name: name, Value: value})

		case INCLUDE:
			p.advance()
			filename, err := p.expectString()
			if err != nil {
				return nil, err
			}
			tree.Includes = append(tree.Includes, &ast.Include{Pos: p.position(tok), Filename: filename})

		case PLUGIN:
			p.advance()
			name, err := p.expectString()
			if err != nil {
				return nil, err
			}
			plugin := &ast.Plugin{Pos: p.position(tok), Name: name}
			if p.cur().Type == STRING && p.cur().Line == tok.Line {
				plugin.Config, _ = p.expectString()
			}
			tree.Plugins = append(tree.Plugins, plugin)

		case DATE:
			directive, err := p.parseDated()
			if err != nil {
				return nil, err
			}
			tree.Directives = append(tree.Directives, directive)

		default:
			return nil, p.errorf(tok, "unexpected %s %q at top level", tok.Type, p.text(tok))
		}
	}
}

func (p *parser) parseDated() (ast.Directive, error) {
	dateTok := p.advance()
	date, err := ast.NewDate(p.text(dateTok))
	if err != nil {
		return nil, p.errorf(dateTok, "%v", err)
	}
	pos := p.position(dateTok)

	tok := p.cur()
	switch tok.Type {
	case ASTERISK, EXCLAIM, TXN:
		return p.parseTransaction(pos, date)

	case OPEN:
		p.advance()
		account, err := p.expectAccount()
		if err != nil {
			return nil, err
		}
		open := &ast.Open{Pos: pos, Dated: date, Account: account}
		for p.cur().Type == IDENT && p.cur().Line == tok.Line {
			open.ConstraintCurrencies = append(open.ConstraintCurrencies, p.text(p.advance()))
			if p.cur().Type == COMMA {
				p.advance()
			}
		}
		if p.cur().Type == STRING && p.cur().Line == tok.Line {
			open.BookingMethod, _ = p.expectString()
		}
		p.parseMetadataInto(open, tok.Line)
		return open, nil

	case CLOSE:
		p.advance()
		account, err := p.expectAccount()
		if err != nil {
			return nil, err
		}
		cl := &ast.Close{Pos: pos, Dated: date, Account: account}
		p.parseMetadataInto(cl, tok.Line)
		return cl, nil

	case BALANCE:
		p.advance()
		account, err := p.expectAccount()
		if err != nil {
			return nil, err
		}
		amount, err := p.parseAmount()
		if err != nil {
			return nil, err
		}
		balance := &ast.Balance{Pos: pos, Dated: date, Account: account, Amount: amount}
		p.parseMetadataInto(balance, tok.Line)
		return balance, nil

	case PAD:
		p.advance()
		account, err := p.expectAccount()
		if err != nil {
			return nil, err
		}
		padAccount, err := p.expectAccount()
		if err != nil {
			return nil, err
		}
		pad := &ast.Pad{Pos: pos, Dated: date, Account: account, AccountPad: padAccount}
		p.parseMetadataInto(pad, tok.Line)
		return pad, nil

	case NOTE:
		p.advance()
		account, err := p.expectAccount()
		if err != nil {
			return nil, err
		}
		description, err := p.expectString()
		if err != nil {
			return nil, err
		}
		note := &ast.Note{Pos: pos, Dated: date, Account: account, Description: description}
		p.parseMetadataInto(note, tok.Line)
		return note, nil

	case PRICE:
		p.advance()
		commodityTok, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		amount, err := p.parseAmount()
		if err != nil {
			return nil, err
		}
		price := &ast.Price{Pos: pos, Dated: date, Commodity: p.text(commodityTok), Amount: amount}
		p.parseMetadataInto(price, tok.Line)
		return price, nil

	case COMMODITY:
		p.advance()
		currencyTok, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		commodity := &ast.Commodity{Pos: pos, Dated: date, Currency: p.text(currencyTok)}
		p.parseMetadataInto(commodity, tok.Line)
		return commodity, nil

	case EVENT:
		p.advance()
		name, err := p.expectString()
		if err != nil {
			return nil, err
		}
		value, err := p.expectString()
		if err != nil {
			return nil, err
		}
		event := &ast.Event{Pos: pos, Dated: date, Name: name, Value: value}
		p.parseMetadataInto(event, tok.Line)
		return event, nil

	case CUSTOM:
		p.advance()
		typeName, err := p.expectString()
		if err != nil {
			return nil, err
		}
		custom := &ast.Custom{Pos: pos, Dated: date, Type: typeName}
		values, err := p.parseCustomValues(tok.Line)
		if err != nil {
			return nil, err
		}
		custom.Values = values
		p.parseMetadataInto(custom, tok.Line)
		return custom, nil

	default:
		return nil, p.errorf(tok, "unexpected %s %q after date", tok.Type, p.text(tok))
	}
}

// parseCustomValues reads the typed values of a custom directive up to the
// end of the directive line.
func (p *parser) parseCustomValues(line int) ([]*ast.CustomValue, error) {
	var values []*ast.CustomValue

	for p.cur().Line == line {
		tok := p.cur()
		switch tok.Type {
		case STRING:
			s, _ := p.expectString()
			values = append(values, &ast.CustomValue{String: &s})

		case ACCOUNT:
			account, err := p.expectAccount()
			if err != nil {
				return nil, err
			}
			values = append(values, &ast.CustomValue{Account: &account})

		case NUMBER:
			numTok := p.advance()
			if p.cur().Type == IDENT && p.cur().Line == line {
				currencyTok := p.advance()
				values = append(values, &ast.CustomValue{
					Amount: ast.NewAmount(p.text(numTok), p.text(currencyTok)),
				})
			} else {
				number := p.text(numTok)
				values = append(values, &ast.CustomValue{Number: &number})
			}

		case IDENT:
			word := p.text(p.advance())
			switch word {
			case "TRUE", "FALSE":
				b := word == "TRUE"
				values = append(values, &ast.CustomValue{Boolean: &b})
			default:
				values = append(values, &ast.CustomValue{String: &word})
			}

		default:
			return values, nil
		}
	}

	return values, nil
}

func (p *parser) parseTransaction(pos ast.Position, date *ast.Date) (*ast.Transaction, error) {
	flagTok := p.advance()

	txn := &ast.Transaction{Pos: pos, Dated: date}
	switch flagTok.Type {
	case ASTERISK:
		txn.Flag = "*"
	case EXCLAIM:
		txn.Flag = "!"
	case TXN:
		// Bare txn keyword; no flag.
	}

	// Payee and narration: one string is narration only, two are payee then
	// narration.
	if p.cur().Type == STRING && p.cur().Line == flagTok.Line {
		first, _ := p.expectString()
		if p.cur().Type == STRING && p.cur().Line == flagTok.Line {
			second, _ := p.expectString()
			txn.Payee = first
			txn.Narration = second
		} else {
			txn.Narration = first
		}
	}

	for p.cur().Type != EOF && p.cur().Line == flagTok.Line {
		switch p.cur().Type {
		case TAG:
			txn.Tags = append(txn.Tags, ast.NewTag(p.text(p.advance())))
		case LINK:
			txn.Links = append(txn.Links, ast.NewLink(p.text(p.advance())))
		default:
			return nil, p.errorf(p.cur(), "unexpected %s %q in transaction header", p.cur().Type, p.text(p.cur()))
		}
	}

	// Indented body: metadata and postings. Metadata before the first
	// posting attaches to the transaction, afterwards to the last posting.
	for p.isIndentedContinuation(flagTok.Line) {
		if p.atMetadataKey() {
			meta, err := p.parseMetadataEntry()
			if err != nil {
				return nil, err
			}
			if len(txn.Postings) > 0 {
				txn.Postings[len(txn.Postings)-1].AddMetadata(meta)
			} else {
				txn.AddMetadata(meta)
			}
			continue
		}

		posting, err := p.parsePosting()
		if err != nil {
			return nil, err
		}
		txn.Postings = append(txn.Postings, posting)
	}

	return txn, nil
}

func (p *parser) parsePosting() (*ast.Posting, error) {
	tok := p.cur()
	posting := &ast.Posting{Pos: p.position(tok)}

	if tok.Type == ASTERISK || tok.Type == EXCLAIM {
		posting.Flag = p.text(p.advance())
	}

	account, err := p.expectAccount()
	if err != nil {
		return nil, err
	}
	posting.Account = account

	if p.cur().Type == NUMBER && p.cur().Line == tok.Line {
		amount, err := p.parseAmount()
		if err != nil {
			return nil, err
		}
		posting.Amount = amount
	}

	if p.cur().Type == LBRACE && p.cur().Line == tok.Line {
		cost, err := p.parseCost()
		if err != nil {
			return nil, err
		}
		posting.Cost = cost
	}

	if (p.cur().Type == AT || p.cur().Type == ATAT) && p.cur().Line == tok.Line {
		posting.PriceTotal = p.advance().Type == ATAT
		price, err := p.parseAmount()
		if err != nil {
			return nil, err
		}
		posting.Price = price
	}

	return posting, nil
}

// parseCost parses a cost specification: {} or {AMOUNT [, DATE] [, LABEL]}.
func (p *parser) parseCost() (*ast.Cost, error) {
	if _, err := p.expect(LBRACE); err != nil {
		return nil, err
	}

	cost := &ast.Cost{}
	for p.cur().Type != RBRACE {
		tok := p.cur()
		switch tok.Type {
		case NUMBER:
			amount, err := p.parseAmount()
			if err != nil {
				return nil, err
			}
			cost.Amount = amount
		case DATE:
			date, err := ast.NewDate(p.text(p.advance()))
			if err != nil {
				return nil, p.errorf(tok, "%v", err)
			}
			cost.Date = date
		case STRING:
			cost.Label, _ = p.expectString()
		case COMMA:
			p.advance()
		default:
			return nil, p.errorf(tok, "unexpected %s %q in cost specification", tok.Type, p.text(tok))
		}
	}

	_, err := p.expect(RBRACE)
	return cost, err
}

func (p *parser) parseAmount() (*ast.Amount, error) {
	numTok, err := p.expect(NUMBER)
	if err != nil {
		return nil, err
	}
	currencyTok, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	return ast.NewAmount(p.text(numTok), p.text(currencyTok)), nil
}

// isIndentedContinuation reports whether the current token begins an
// indented line belonging to a directive that started on headLine.
func (p *parser) isIndentedContinuation(headLine int) bool {
	tok := p.cur()
	return tok.Type != EOF && tok.Line > headLine && tok.Column > 1
}

// atMetadataKey reports whether the current token starts a `key:` metadata
// entry. Keys are lowercase words, so keyword tokens are accepted as keys.
func (p *parser) atMetadataKey() bool {
	tok := p.cur()
	switch tok.Type {
	case IDENT, TXN, OPEN, CLOSE, BALANCE, PAD, NOTE, PRICE, COMMODITY, EVENT, CUSTOM, OPTION, INCLUDE, PLUGIN:
		next := p.tokens[p.pos+1]
		return next.Type == COLON && next.Start == tok.End
	}
	return false
}

// parseMetadataInto attaches all indented metadata lines to the directive.
func (p *parser) parseMetadataInto(d ast.WithMetadata, headLine int) {
	for p.isIndentedContinuation(headLine) && p.atMetadataKey() {
		meta, err := p.parseMetadataEntry()
		if err != nil {
			return
		}
		d.AddMetadata(meta)
	}
}

func (p *parser) parseMetadataEntry() (*ast.Metadata, error) {
	keyTok := p.advance()
	if _, err := p.expect(COLON); err != nil {
		return nil, err
	}

	meta := &ast.Metadata{Key: p.text(keyTok)}

	tok := p.cur()
	if tok.Line != keyTok.Line {
		empty := ""
		meta.Value = &ast.MetadataValue{StringValue: &empty}
		return meta, nil
	}

	switch tok.Type {
	case STRING:
		s, _ := p.expectString()
		meta.Value = &ast.MetadataValue{StringValue: &s}

	case DATE:
		date, err := ast.NewDate(p.text(p.advance()))
		if err != nil {
			return nil, p.errorf(tok, "%v", err)
		}
		meta.Value = &ast.MetadataValue{Date: date}

	case ACCOUNT:
		account, err := p.expectAccount()
		if err != nil {
			return nil, err
		}
		meta.Value = &ast.MetadataValue{Account: &account}

	case NUMBER:
		numTok := p.advance()
		if p.cur().Type == IDENT && p.cur().Line == keyTok.Line {
			currencyTok := p.advance()
			meta.Value = &ast.MetadataValue{Amount: ast.NewAmount(p.text(numTok), p.text(currencyTok))}
		} else {
			number := p.text(numTok)
			meta.Value = &ast.MetadataValue{Number: &number}
		}

	case TAG:
		tag := ast.NewTag(p.text(p.advance()))
		meta.Value = &ast.MetadataValue{Tag: &tag}

	case LINK:
		link := ast.NewLink(p.text(p.advance()))
		meta.Value = &ast.MetadataValue{Link: &link}

	case IDENT:
		word := p.text(p.advance())
		switch word {
		case "TRUE", "FALSE":
			b := word == "TRUE"
			meta.Value = &ast.MetadataValue{Boolean: &b}
		default:
			meta.Value = &ast.MetadataValue{Currency: &word}
		}

	default:
		return nil, p.errorf(tok, "unexpected %s %q as metadata value", tok.Type, p.text(tok))
	}

	return meta, nil
}

func (p *parser) expectAccount() (ast.Account, error) {
	tok, err := p.expect(ACCOUNT)
	if err != nil {
		return "", err
	}
	account, err := ast.NewAccount(p.text(tok))
	if err != nil {
		return "", p.errorf(tok, "%v", err)
	}
	return account, nil
}

func (p *parser) expectString() (string, error) {
	tok, err := p.expect(STRING)
	if err != nil {
		return "", err
	}
	return unquote(p.text(tok)), nil
}

// unquote strips the surrounding quotes and resolves \" and \\ escapes.
func unquote(s string) string {
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)

	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var buf strings.Builder
	buf.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			buf.WriteByte(s[i])
			continue
		}
		buf.WriteByte(s[i])
	}
	return buf.String()
}
