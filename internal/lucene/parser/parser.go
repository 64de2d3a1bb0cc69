package parser

import (
	"strings"

	"github.com/roach88/lucq/internal/lucene/ast"
)

// maxParenDepth bounds parenthesized nesting.
const maxParenDepth = 256

// Parser builds an AST from Lucene query text.
//
// Grammar (informal):
//
//	node     := clause [AND | OR] [node]
//	clause   := {NOT | "!"} ["+" | "-"] primary
//	primary  := "(" node ")" modifiers
//	          | field ":" value
//	          | value
//	value    := term | quoted | regex | range | compare
//	range    := ("[" | "{") bound TO bound ("]" | "}") | bound ".." bound
//	compare  := (">" | ">=" | "<" | "<=") bound
//	modifiers:= {"~" [text] | "^" text}
//
// Groups are right-recursive: "a b c" parses as Group(a, Group(b, c)).
type Parser struct {
	input  string
	tokens []Token
	pos    int
	depth  int
}

// Parse parses input into a tree rooted at a group. Blank input yields an
// empty group. Malformed input returns a *SyntaxError.
func Parse(input string) (*ast.GroupNode, error) {
	p, err := NewParser(input)
	if err != nil {
		return nil, err
	}
	return p.Parse()
}

// NewParser tokenizes input.
func NewParser(input string) (*Parser, error) {
	lexer := NewLexer(input)
	var tokens []Token
	for {
		tok, err := lexer.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return &Parser{input: input, tokens: tokens}, nil
}

// Parse parses the whole input.
func (p *Parser) Parse() (*ast.GroupNode, error) {
	if p.cur().Type == TokenEOF {
		root := &ast.GroupNode{}
		root.SetPos(p.position(0))
		return root, nil
	}

	root, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	if tok := p.cur(); tok.Type != TokenEOF {
		return nil, p.unexpected(tok)
	}
	return root, nil
}

func (p *Parser) cur() Token {
	return p.tokens[p.pos]
}

func (p *Parser) peek() Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
}

func (p *Parser) position(offset int) ast.Position {
	line, col := lineColumn(p.input, offset)
	return ast.Position{Offset: offset, Line: line, Column: col}
}

func (p *Parser) errorf(tok Token, format string, args ...any) *SyntaxError {
	return newSyntaxError(p.input, tok.Pos, format, args...)
}

func (p *Parser) unexpected(tok Token) *SyntaxError {
	switch tok.Type {
	case TokenEOF:
		return p.errorf(tok, "unexpected end of input")
	case TokenTerm:
		return p.errorf(tok, "unexpected term %q", tok.Value)
	default:
		return p.errorf(tok, "unexpected %s", tok.Type)
	}
}

// parseNode parses a clause, an optional operator and the rest of the
// sequence as the right operand.
func (p *Parser) parseNode() (*ast.GroupNode, error) {
	g := &ast.GroupNode{}
	g.SetPos(p.position(p.cur().Pos))

	left, err := p.parseClause()
	if err != nil {
		return nil, err
	}
	g.SetLeft(left)

	switch p.cur().Type {
	case TokenAnd:
		g.Operator = ast.OpAnd
		p.advance()
	case TokenOr:
		g.Operator = ast.OpOr
		p.advance()
	}

	if t := p.cur().Type; t == TokenEOF || t == TokenRParen {
		if g.Operator != ast.OpDefault {
			return nil, p.errorf(p.cur(), "expected clause after %s", g.Operator)
		}
		return g, nil
	}

	rest, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	if rest.Right() == nil {
		// a single trailing clause joins this group directly
		only := rest.Left()
		rest.SetLeft(nil)
		g.SetRight(only)
	} else {
		g.SetRight(rest)
	}
	return g, nil
}

// parseClause parses negation and prefix markers followed by a primary.
func (p *Parser) parseClause() (ast.Node, error) {
	var negated bool
	var prefix string
	start := p.cur()

markers:
	for {
		tok := p.cur()
		switch tok.Type {
		case TokenNot:
			if prefix != "" {
				return nil, p.unexpected(tok)
			}
			negated = true
			p.advance()
		case TokenPlus, TokenMinus:
			if prefix != "" {
				return nil, p.unexpected(tok)
			}
			prefix = tok.Value
			p.advance()
		default:
			break markers
		}
	}

	node, err := p.parsePrimary("")
	if err != nil {
		return nil, err
	}

	fq := node.FieldPart()
	if negated {
		fq.IsNegated = true
	}
	if prefix != "" {
		fq.Prefix = prefix
	}
	if negated || prefix != "" {
		setPos(node, p.position(start.Pos))
	}
	return node, nil
}

// parsePrimary parses a parenthesized group, a field-qualified value or a
// bare value. field is set when the caller already consumed "field:".
func (p *Parser) parsePrimary(field string) (ast.FieldQueryNode, error) {
	tok := p.cur()

	switch tok.Type {
	case TokenLParen:
		return p.parseGroup(field)

	case TokenTerm:
		if field == "" && p.peek().Type == TokenColon {
			p.advance()
			p.advance()
			return p.parseFieldValue(tok)
		}
		return p.parseTerm(field)

	case TokenQuoted, TokenRegex:
		p.advance()
		n := &ast.TermNode{
			FieldQuery: ast.FieldQuery{Field: field},
			Term:       tok.Value,
			IsQuoted:   tok.Type == TokenQuoted,
			IsRegex:    tok.Type == TokenRegex,
		}
		n.SetPos(p.position(tok.Pos))
		if err := p.modifiers(&n.Proximity, &n.Boost); err != nil {
			return nil, err
		}
		return n, nil

	case TokenCompare:
		return p.parseCompare(field)

	case TokenLBracket, TokenLBrace:
		return p.parseRange(field)

	case TokenPlus, TokenMinus:
		// a signed value after "field:", like "price:-5"
		if field != "" {
			return p.parseTerm(field)
		}
	}

	if tok.Type == TokenEOF {
		return nil, p.errorf(tok, "unexpected end of input, expected a term")
	}
	return nil, p.unexpected(tok)
}

func (p *Parser) parseGroup(field string) (*ast.GroupNode, error) {
	open := p.cur()
	p.advance()

	if p.cur().Type == TokenRParen {
		return nil, p.errorf(p.cur(), "empty group")
	}
	if p.depth >= maxParenDepth {
		return nil, p.errorf(open, "query nested too deeply")
	}

	p.depth++
	g, err := p.parseNode()
	p.depth--
	if err != nil {
		return nil, err
	}

	if p.cur().Type != TokenRParen {
		return nil, p.errorf(p.cur(), "expected ')' to close '(' at column %d", p.position(open.Pos).Column)
	}
	p.advance()

	g.HasParens = true
	g.Field = field
	g.SetPos(p.position(open.Pos))
	if err := p.modifiers(&g.Proximity, &g.Boost); err != nil {
		return nil, err
	}
	return g, nil
}

func (p *Parser) parseFieldValue(fieldTok Token) (ast.FieldQueryNode, error) {
	switch fieldTok.Value {
	case "_exists_", "_missing_":
		tok := p.cur()
		if tok.Type != TokenTerm && tok.Type != TokenQuoted {
			return nil, p.errorf(tok, "expected field name after %s:", fieldTok.Value)
		}
		p.advance()
		fq := ast.FieldQuery{Field: tok.Value}
		if fieldTok.Value == "_exists_" {
			n := &ast.ExistsNode{FieldQuery: fq}
			n.SetPos(p.position(fieldTok.Pos))
			return n, nil
		}
		n := &ast.MissingNode{FieldQuery: fq}
		n.SetPos(p.position(fieldTok.Pos))
		return n, nil
	}

	if fieldTok.Value == "" {
		return nil, p.errorf(fieldTok, "empty field name")
	}

	node, err := p.parsePrimary(fieldTok.Value)
	if err != nil {
		return nil, err
	}
	setPos(node, p.position(fieldTok.Pos))
	return node, nil
}

// parseTerm parses a bare word, which is a range when written "min..max".
func (p *Parser) parseTerm(field string) (ast.FieldQueryNode, error) {
	start := p.cur()
	value, ok := p.bound()
	if !ok {
		return nil, p.unexpected(start)
	}

	if lo, hi, ok := splitDots(value); ok {
		r := &ast.TermRangeNode{
			FieldQuery:   ast.FieldQuery{Field: field},
			Min:          lo,
			Max:          hi,
			MinInclusive: true,
			MaxInclusive: true,
			Delimiter:    "..",
		}
		r.SetPos(p.position(start.Pos))
		if err := p.modifiers(&r.Proximity, &r.Boost); err != nil {
			return nil, err
		}
		return r, nil
	}

	n := &ast.TermNode{FieldQuery: ast.FieldQuery{Field: field}, Term: value}
	n.SetPos(p.position(start.Pos))
	if err := p.modifiers(&n.Proximity, &n.Boost); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *Parser) parseCompare(field string) (*ast.TermRangeNode, error) {
	op := p.cur()
	p.advance()

	value, ok := p.bound()
	if !ok {
		return nil, p.errorf(p.cur(), "expected value after %s", op.Value)
	}

	r := &ast.TermRangeNode{FieldQuery: ast.FieldQuery{Field: field}, Operator: op.Value}
	switch op.Value {
	case ">":
		r.Min = value
	case ">=":
		r.Min = value
		r.MinInclusive = true
	case "<":
		r.Max = value
	case "<=":
		r.Max = value
		r.MaxInclusive = true
	}
	r.SetPos(p.position(op.Pos))
	if err := p.modifiers(&r.Proximity, &r.Boost); err != nil {
		return nil, err
	}
	return r, nil
}

func (p *Parser) parseRange(field string) (*ast.TermRangeNode, error) {
	open := p.cur()
	p.advance()

	lo, ok := p.bound()
	if !ok {
		return nil, p.errorf(p.cur(), "expected range start")
	}
	if tok := p.cur(); tok.Type != TokenTerm || tok.Value != "TO" {
		return nil, p.errorf(tok, "expected TO in range")
	}
	p.advance()
	hi, ok := p.bound()
	if !ok {
		return nil, p.errorf(p.cur(), "expected range end")
	}

	closing := p.cur()
	if closing.Type != TokenRBracket && closing.Type != TokenRBrace {
		return nil, p.errorf(closing, "expected ']' or '}' to close range")
	}
	p.advance()

	r := &ast.TermRangeNode{
		FieldQuery:   ast.FieldQuery{Field: field},
		Min:          lo,
		Max:          hi,
		MinInclusive: open.Type == TokenLBracket,
		MaxInclusive: closing.Type == TokenRBracket,
		Delimiter:    "TO",
	}
	r.SetPos(p.position(open.Pos))
	if err := p.modifiers(&r.Proximity, &r.Boost); err != nil {
		return nil, err
	}
	return r, nil
}

// bound reads a range bound or a bare value: a term or quoted string, with
// an adjacent sign folded in ("-5") and adjacent colons joined
// ("2024-01-01T10:00").
func (p *Parser) bound() (string, bool) {
	tok := p.cur()
	var sb strings.Builder
	end := tok.Pos

	if tok.Type == TokenPlus || tok.Type == TokenMinus {
		next := p.peek()
		if next.Type != TokenTerm || next.Pos != tok.End {
			return "", false
		}
		sb.WriteString(tok.Value)
		p.advance()
		tok = p.cur()
	}

	switch tok.Type {
	case TokenQuoted:
		p.advance()
		return sb.String() + tok.Value, true
	case TokenTerm:
		sb.WriteString(tok.Value)
		end = tok.End
		p.advance()
	default:
		return "", false
	}

	for {
		colon, next := p.cur(), p.peek()
		if colon.Type != TokenColon || colon.Pos != end || next.Type != TokenTerm || next.Pos != colon.End {
			break
		}
		sb.WriteString(":" + next.Value)
		end = next.End
		p.advance()
		p.advance()
	}
	return sb.String(), true
}

// modifiers reads trailing ~proximity and ^boost markers.
func (p *Parser) modifiers(proximity, boost *string) error {
	for {
		tok := p.cur()
		switch tok.Type {
		case TokenTilde:
			*proximity = tok.Value
		case TokenCaret:
			if tok.Value == "" {
				return p.errorf(tok, "expected boost value after '^'")
			}
			*boost = tok.Value
		default:
			return nil
		}
		p.advance()
	}
}

func splitDots(v string) (string, string, bool) {
	i := strings.Index(v, "..")
	if i <= 0 || i+2 >= len(v) || strings.Count(v, "..") != 1 {
		return "", "", false
	}
	return v[:i], v[i+2:], true
}

func setPos(n ast.Node, pos ast.Position) {
	if s, ok := n.(interface{ SetPos(ast.Position) }); ok {
		s.SetPos(pos)
	}
}
