package compiler

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"int":    INT,
	"if":     IF,
	"else":   ELSE,
	"while":  WHILE,
	"for":    FOR,
	"return": RETURN,
	"sizeof": SIZEOF,
}

// twoCharOps is tried before the single-character table so that "<=" is
// never split into "<" "=".
var twoCharOps = map[string]TokenType{
	"<=": LESS_EQ,
	">=": GREATER_EQ,
	"==": EQUALS,
	"!=": NOT_EQ,
}

var oneCharOps = map[byte]TokenType{
	'+': PLUS,
	'-': MINUS,
	'*': STAR,
	'/': SLASH,
	'(': LPAREN,
	')': RPAREN,
	'<': LESS,
	'>': GREATER,
	'=': ASSIGN,
	';': SEMICOLON,
	'{': LBRACE,
	'}': RBRACE,
	',': COMMA,
	'&': AND,
	'[': LBRACKET,
	']': RBRACKET,
}

// Lexer holds the mutable state for scanning one source row.
type Lexer struct {
	src string
	pos int // byte offset of the next character to consume
	row int // 1-based
}

func newLexer(line string, row int) *Lexer {
	return &Lexer{src: line, row: row}
}

// peek returns the byte at the current position without advancing.
func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the byte one position ahead of the current position.
func (l *Lexer) peek2() byte {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

func (l *Lexer) skipSpaces() {
	for l.pos < len(l.src) && (l.src[l.pos] == ' ' || l.src[l.pos] == '\t' || l.src[l.pos] == '\r') {
		l.pos++
	}
}

func (l *Lexer) span(start int) Pos {
	return Pos{Row: l.row, ColStart: start, ColEnd: l.pos}
}

// scanIdent collects an identifier or keyword. Scanning the whole
// [A-Za-z][A-Za-z0-9_]* run before the keyword lookup keeps "returnx" an
// identifier.
func (l *Lexer) scanIdent() Token {
	start := l.pos
	for l.pos < len(l.src) && isIdentChar(l.src[l.pos]) {
		l.pos++
	}
	lexeme := l.src[start:l.pos]
	tt := IDENTIFIER
	if kw, ok := keywords[lexeme]; ok {
		tt = kw
	}
	return Token{Type: tt, Lexeme: lexeme, Pos: l.span(start)}
}

// scanInt collects a maximal run of decimal digits.
func (l *Lexer) scanInt() (Token, error) {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	lexeme := l.src[start:l.pos]
	val, err := strconv.ParseInt(lexeme, 10, 64)
	if err != nil {
		e := newError(KindLex, l.span(start), l.src, "integer literal %s out of range", lexeme)
		e.Err = err
		return Token{}, e
	}
	return Token{Type: INTEGER, Lexeme: lexeme, Value: val, Pos: l.span(start)}, nil
}

// nextToken skips spaces and returns the next Token of the row, or ok=false
// once the row is exhausted.
func (l *Lexer) nextToken() (tok Token, ok bool, err error) {
	l.skipSpaces()
	if l.pos >= len(l.src) {
		return Token{}, false, nil
	}
	if l.peek() == '/' && l.peek2() == '/' {
		l.pos = len(l.src)
		return Token{}, false, nil
	}

	ch := l.peek()
	if isAlpha(ch) {
		return l.scanIdent(), true, nil
	}

	if l.pos+1 < len(l.src) {
		if tt, found := twoCharOps[l.src[l.pos:l.pos+2]]; found {
			start := l.pos
			l.pos += 2
			return Token{Type: tt, Lexeme: l.src[start:l.pos], Pos: l.span(start)}, true, nil
		}
	}
	if tt, found := oneCharOps[ch]; found {
		start := l.pos
		l.pos++
		return Token{Type: tt, Lexeme: l.src[start:l.pos], Pos: l.span(start)}, true, nil
	}

	if isDigit(ch) {
		tok, err := l.scanInt()
		if err != nil {
			return Token{}, false, err
		}
		return tok, true, nil
	}

	_, width := utf8.DecodeRuneInString(l.src[l.pos:])
	bad := Pos{Row: l.row, ColStart: l.pos, ColEnd: l.pos + width}
	return Token{}, false, newError(KindLex, bad, l.src, "cannot tokenize %q", l.src[l.pos:l.pos+width])
}

// Lex tokenises src row by row and returns the token sequence terminated by
// a single EOF token. Lexing halts at the first position no rule matches.
func Lex(src string) (*TokenList, error) {
	lines := strings.Split(src, "\n")
	var tokens []Token
	for i, line := range lines {
		l := newLexer(line, i+1)
		for {
			tok, ok, err := l.nextToken()
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			tokens = append(tokens, tok)
		}
	}

	lastRow := len(lines)
	end := len(lines[lastRow-1])
	tokens = append(tokens, Token{Type: EOF, Pos: Pos{Row: lastRow, ColStart: end, ColEnd: end}})
	return &TokenList{tokens: tokens, lines: lines}, nil
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentChar(c byte) bool {
	return isAlpha(c) || isDigit(c) || c == '_'
}

// TokenList is the lexer's output: a randomly indexable token slice with a
// cursor that only moves forward. The last token is always EOF.
type TokenList struct {
	tokens []Token
	lines  []string
	cur    int
}

// Tokens returns every token, EOF included.
func (tl *TokenList) Tokens() []Token { return tl.tokens }

// Line returns the source text of a 1-based row, or "" when out of range.
func (tl *TokenList) Line(row int) string {
	if row < 1 || row > len(tl.lines) {
		return ""
	}
	return tl.lines[row-1]
}

// peek returns the current token without consuming it.
func (tl *TokenList) peek() Token {
	return tl.tokens[tl.cur]
}

// peekAt returns the token offset positions ahead, clamped to EOF.
func (tl *TokenList) peekAt(offset int) Token {
	if tl.cur+offset >= len(tl.tokens) {
		return tl.tokens[len(tl.tokens)-1]
	}
	return tl.tokens[tl.cur+offset]
}

func (tl *TokenList) atEOF() bool {
	return tl.peek().Type == EOF
}

// advance consumes and returns the current token. Consuming EOF is a parser
// bug, not a user error.
func (tl *TokenList) advance() Token {
	tok := tl.tokens[tl.cur]
	if tok.Type == EOF {
		panic("compiler: token cursor advanced past EOF")
	}
	tl.cur++
	return tok
}

// consume advances past the current token when it has type tt.
func (tl *TokenList) consume(tt TokenType) bool {
	if tt == EOF || tl.peek().Type != tt {
		return false
	}
	tl.cur++
	return true
}

// expect consumes the current token if it matches tt, otherwise returns a
// syntax error positioned at the offending token.
func (tl *TokenList) expect(tt TokenType) (Token, error) {
	tok := tl.peek()
	if tok.Type != tt {
		return tok, tl.errorAt(KindSyntax, tok, "expected %s, got %s", describe(tt), describeToken(tok))
	}
	return tl.advance(), nil
}

func (tl *TokenList) expectIdent() (Token, error) {
	tok := tl.peek()
	if tok.Type != IDENTIFIER {
		return tok, tl.errorAt(KindSyntax, tok, "expected an identifier, got %s", describeToken(tok))
	}
	return tl.advance(), nil
}

func (tl *TokenList) expectNumber() (Token, error) {
	tok := tl.peek()
	if tok.Type != INTEGER {
		return tok, tl.errorAt(KindSyntax, tok, "expected a number, got %s", describeToken(tok))
	}
	return tl.advance(), nil
}

// errorAt builds a positioned error carrying the row the token sits on.
func (tl *TokenList) errorAt(kind ErrorKind, tok Token, format string, args ...any) *Error {
	return newError(kind, tok.Pos, tl.Line(tok.Pos.Row), format, args...)
}

// describe renders a token type the way it is spelled in source.
func describe(tt TokenType) string {
	for lexeme, t := range keywords {
		if t == tt {
			return "'" + lexeme + "'"
		}
	}
	for lexeme, t := range twoCharOps {
		if t == tt {
			return "'" + lexeme + "'"
		}
	}
	for c, t := range oneCharOps {
		if t == tt {
			return "'" + string(c) + "'"
		}
	}
	switch tt {
	case IDENTIFIER:
		return "an identifier"
	case INTEGER:
		return "a number"
	}
	return "end of input"
}

func describeToken(tok Token) string {
	if tok.Type == EOF {
		return "end of input"
	}
	return "'" + tok.Lexeme + "'"
}
