package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TokenType identifies a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenTerm
	TokenQuoted
	TokenRegex
	TokenColon
	TokenLParen
	TokenRParen
	TokenLBracket
	TokenRBracket
	TokenLBrace
	TokenRBrace
	TokenAnd
	TokenOr
	TokenNot
	TokenPlus
	TokenMinus
	TokenCompare // >, >=, <, <=
	TokenTilde   // ~ with the modifier text as value
	TokenCaret   // ^ with the modifier text as value
)

var tokenNames = map[TokenType]string{
	TokenEOF:      "end of input",
	TokenTerm:     "term",
	TokenQuoted:   "quoted term",
	TokenRegex:    "regex",
	TokenColon:    "':'",
	TokenLParen:   "'('",
	TokenRParen:   "')'",
	TokenLBracket: "'['",
	TokenRBracket: "']'",
	TokenLBrace:   "'{'",
	TokenRBrace:   "'}'",
	TokenAnd:      "AND",
	TokenOr:       "OR",
	TokenNot:      "NOT",
	TokenPlus:     "'+'",
	TokenMinus:    "'-'",
	TokenCompare:  "comparison",
	TokenTilde:    "'~'",
	TokenCaret:    "'^'",
}

// String returns a human readable token name.
func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return "unknown"
}

// Token is one lexical token. Pos is the byte offset of its first character
// and End the offset just past its last.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
	End   int
}

// Lexer splits Lucene query text into tokens.
type Lexer struct {
	input string
	pos   int
}

// NewLexer returns a lexer over input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// NextToken returns the next token, or a *SyntaxError for an unterminated
// quote or regex.
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos, End: l.pos}, nil
	}

	start := l.pos
	ch := l.input[l.pos]

	single := map[byte]TokenType{
		':': TokenColon,
		'(': TokenLParen,
		')': TokenRParen,
		'[': TokenLBracket,
		']': TokenRBracket,
		'{': TokenLBrace,
		'}': TokenRBrace,
		'+': TokenPlus,
		'-': TokenMinus,
	}
	if typ, ok := single[ch]; ok {
		l.pos++
		return Token{Type: typ, Value: string(ch), Pos: start, End: l.pos}, nil
	}

	switch ch {
	case '!':
		l.pos++
		return Token{Type: TokenNot, Value: "!", Pos: start, End: l.pos}, nil
	case '&', '|':
		if l.peekByte(1) == ch {
			l.pos += 2
			typ := TokenAnd
			if ch == '|' {
				typ = TokenOr
			}
			return Token{Type: typ, Value: l.input[start:l.pos], Pos: start, End: l.pos}, nil
		}
	case '>', '<':
		l.pos++
		if l.peekByte(0) == '=' {
			l.pos++
		}
		return Token{Type: TokenCompare, Value: l.input[start:l.pos], Pos: start, End: l.pos}, nil
	case '~', '^':
		l.pos++
		value := l.readModifier()
		typ := TokenTilde
		if ch == '^' {
			typ = TokenCaret
		}
		return Token{Type: typ, Value: value, Pos: start, End: l.pos}, nil
	case '"':
		return l.readDelimited('"', TokenQuoted, "unterminated quoted term")
	case '/':
		return l.readDelimited('/', TokenRegex, "unterminated regex")
	}

	return l.readWord(), nil
}

func (l *Lexer) peekByte(offset int) byte {
	if l.pos+offset < len(l.input) {
		return l.input[l.pos+offset]
	}
	return 0
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += size
	}
}

// readDelimited reads a quoted or regex literal. A backslash escapes the
// delimiter; other escapes are kept verbatim.
func (l *Lexer) readDelimited(delim byte, typ TokenType, unterminated string) (Token, error) {
	start := l.pos
	l.pos++ // skip opening delimiter

	var sb strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == '\\' && l.pos+1 < len(l.input):
			next := l.input[l.pos+1]
			if next != delim && next != '\\' {
				sb.WriteByte(ch)
			}
			sb.WriteByte(next)
			l.pos += 2
		case ch == delim:
			l.pos++
			return Token{Type: typ, Value: sb.String(), Pos: start, End: l.pos}, nil
		default:
			sb.WriteByte(ch)
			l.pos++
		}
	}
	return Token{}, newSyntaxError(l.input, start, "%s", unterminated)
}

// readModifier reads the text of a ~ or ^ modifier. Besides letters and
// digits it accepts the punctuation used by intervals, percentile lists and
// time zones ("1d", "25,50", "-5h", "America/Chicago", "+05:00").
func (l *Lexer) readModifier() string {
	start := l.pos
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if !isASCIIAlnum(ch) && !strings.ContainsRune(".,-+/_:", rune(ch)) {
			break
		}
		l.pos++
	}
	return l.input[start:l.pos]
}

// readWord reads a bare term. Backslash escapes any character. AND, OR and
// NOT are keywords only in upper case.
func (l *Lexer) readWord() Token {
	start := l.pos
	var sb strings.Builder
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if r == '\\' && l.pos+1 < len(l.input) {
			next, nsize := utf8.DecodeRuneInString(l.input[l.pos+1:])
			sb.WriteRune(next)
			l.pos += 1 + nsize
			continue
		}
		if unicode.IsSpace(r) || isTermBreak(r) {
			break
		}
		sb.WriteRune(r)
		l.pos += size
	}

	value := sb.String()
	tok := Token{Type: TokenTerm, Value: value, Pos: start, End: l.pos}
	switch l.input[start:l.pos] {
	case "AND":
		tok.Type = TokenAnd
	case "OR":
		tok.Type = TokenOr
	case "NOT":
		tok.Type = TokenNot
	}
	return tok
}

func isTermBreak(r rune) bool {
	switch r {
	case '(', ')', '[', ']', '{', '}', '"', ':', '^', '~':
		return true
	}
	return false
}

func isASCIIAlnum(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9'
}
