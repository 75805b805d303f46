package compiler

import (
	"errors"
	"strings"
	"testing"
)

// tokenTypes strips positions so tests can compare the stream shape.
func tokenTypes(tokens []Token) []TokenType {
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestLex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []TokenType
	}{
		{
			name:     "Empty",
			input:    "",
			expected: []TokenType{EOF},
		},
		{
			name:  "Basic Tokens",
			input: "+ - * / & = == != < > <= >= ; , { } ( ) [ ]",
			expected: []TokenType{
				PLUS, MINUS, STAR, SLASH, AND, ASSIGN, EQUALS, NOT_EQ, LESS, GREATER,
				LESS_EQ, GREATER_EQ, SEMICOLON, COMMA, LBRACE, RBRACE, LPAREN, RPAREN,
				LBRACKET, RBRACKET, EOF,
			},
		},
		{
			name:     "Keywords and Identifiers",
			input:    "int if else while for return sizeof variableName x_1",
			expected: []TokenType{INT, IF, ELSE, WHILE, FOR, RETURN, SIZEOF, IDENTIFIER, IDENTIFIER, EOF},
		},
		{
			name:     "Keyword Prefix",
			input:    "returnx intx iff sizeof1",
			expected: []TokenType{IDENTIFIER, IDENTIFIER, IDENTIFIER, IDENTIFIER, EOF},
		},
		{
			name:     "Unspaced",
			input:    "a<=b==c;x=-1",
			expected: []TokenType{IDENTIFIER, LESS_EQ, IDENTIFIER, EQUALS, IDENTIFIER, SEMICOLON, IDENTIFIER, ASSIGN, MINUS, INTEGER, EOF},
		},
		{
			name:     "Line Comment",
			input:    "int x; // trailing words $ @\nx = 1;",
			expected: []TokenType{INT, IDENTIFIER, SEMICOLON, IDENTIFIER, ASSIGN, INTEGER, SEMICOLON, EOF},
		},
		{
			name:     "Tabs and CRLF",
			input:    "\tint\tx;\r\nreturn x;\r\n",
			expected: []TokenType{INT, IDENTIFIER, SEMICOLON, RETURN, IDENTIFIER, SEMICOLON, EOF},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, err := Lex(tt.input)
			if err != nil {
				t.Fatalf("Lex() error = %v", err)
			}
			got := tokenTypes(tl.Tokens())
			if len(got) != len(tt.expected) {
				t.Fatalf("Lex() = %v, want %v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Fatalf("token %d = %s, want %s (all: %v)", i, got[i], tt.expected[i], got)
				}
			}
		})
	}
}

func TestLexPositions(t *testing.T) {
	tl, err := Lex("int main() {\n  return 42;\n}")
	if err != nil {
		t.Fatalf("Lex() error = %v", err)
	}
	tokens := tl.Tokens()

	want := []Token{
		{Type: INT, Lexeme: "int", Pos: Pos{Row: 1, ColStart: 0, ColEnd: 3}},
		{Type: IDENTIFIER, Lexeme: "main", Pos: Pos{Row: 1, ColStart: 4, ColEnd: 8}},
		{Type: LPAREN, Lexeme: "(", Pos: Pos{Row: 1, ColStart: 8, ColEnd: 9}},
		{Type: RPAREN, Lexeme: ")", Pos: Pos{Row: 1, ColStart: 9, ColEnd: 10}},
		{Type: LBRACE, Lexeme: "{", Pos: Pos{Row: 1, ColStart: 11, ColEnd: 12}},
		{Type: RETURN, Lexeme: "return", Pos: Pos{Row: 2, ColStart: 2, ColEnd: 8}},
		{Type: INTEGER, Lexeme: "42", Value: 42, Pos: Pos{Row: 2, ColStart: 9, ColEnd: 11}},
		{Type: SEMICOLON, Lexeme: ";", Pos: Pos{Row: 2, ColStart: 11, ColEnd: 12}},
		{Type: RBRACE, Lexeme: "}", Pos: Pos{Row: 3, ColStart: 0, ColEnd: 1}},
		{Type: EOF, Pos: Pos{Row: 3, ColStart: 1, ColEnd: 1}},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(want), tokens)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d = %+v, want %+v", i, tokens[i], want[i])
		}
	}
	if got := tl.Line(2); got != "  return 42;" {
		t.Errorf("Line(2) = %q", got)
	}
	if got := tl.Line(9); got != "" {
		t.Errorf("Line(9) = %q, want empty", got)
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantPos Pos
		wantMsg string
	}{
		{"Bad Character", "int x;\nx = 3 @ 4;", Pos{Row: 2, ColStart: 6, ColEnd: 7}, `cannot tokenize "@"`},
		{"Lone Bang", "a ! b", Pos{Row: 1, ColStart: 2, ColEnd: 3}, `cannot tokenize "!"`},
		{"Multibyte", "x = é;", Pos{Row: 1, ColStart: 4, ColEnd: 6}, `cannot tokenize "é"`},
		{"Overflow", "x = 99999999999999999999;", Pos{Row: 1, ColStart: 4, ColEnd: 24}, "integer literal 99999999999999999999 out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Lex(tt.input)
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("Lex() error = %v, want *Error", err)
			}
			if e.Kind != KindLex {
				t.Errorf("Kind = %s, want lex", e.Kind)
			}
			if e.Pos != tt.wantPos {
				t.Errorf("Pos = %+v, want %+v", e.Pos, tt.wantPos)
			}
			if e.Msg != tt.wantMsg {
				t.Errorf("Msg = %q, want %q", e.Msg, tt.wantMsg)
			}
			if !strings.Contains(tt.input, e.Line) || e.Line == "" {
				t.Errorf("Line = %q is not a row of the input", e.Line)
			}
		})
	}
}

func TestTokenListCursor(t *testing.T) {
	tl, err := Lex("int x;")
	if err != nil {
		t.Fatal(err)
	}

	if tl.consume(IF) {
		t.Fatal("consume(IF) matched INT")
	}
	if tok, err := tl.expect(INT); err != nil || tok.Lexeme != "int" {
		t.Fatalf("expect(INT) = %v, %v", tok, err)
	}
	if tl.peekAt(5).Type != EOF {
		t.Fatalf("peekAt past the end = %s, want EOF", tl.peekAt(5).Type)
	}
	if _, err := tl.expectNumber(); err == nil || !strings.Contains(err.Error(), "expected a number, got 'x'") {
		t.Fatalf("expectNumber() error = %v", err)
	}
	if _, err := tl.expectIdent(); err != nil {
		t.Fatalf("expectIdent() error = %v", err)
	}
	if !tl.consume(SEMICOLON) || !tl.atEOF() {
		t.Fatal("expected to reach EOF after ';'")
	}
	if tl.consume(EOF) {
		t.Fatal("consume(EOF) must never advance")
	}
	_, err = tl.expect(RPAREN)
	if err == nil || !strings.Contains(err.Error(), "expected ')', got end of input") {
		t.Fatalf("expect at EOF error = %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("advance past EOF did not panic")
		}
	}()
	tl.advance()
}
