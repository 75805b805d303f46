package compiler

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	e := &Error{Kind: KindSyntax, Pos: Pos{Row: 2, ColStart: 4, ColEnd: 6}, Line: "\tx == ;", Msg: "expected a number, got ';'"}
	if got := e.Error(); got != "2:5: syntax error: expected a number, got ';'" {
		t.Errorf("Error() = %q", got)
	}

	bare := internalErrorf(Pos{}, "unexpected %s node", NodeArg)
	if got := bare.Error(); got != "internal error: unexpected Arg node" {
		t.Errorf("Error() = %q", got)
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		src  string
		kind ErrorKind
	}{
		{"int main() { return 1 ? 2 : 3; }", KindLex},
		{"int main() { return 1 }", KindSyntax},
		{"int main() { int *p; int *q; return p * q; }", KindSemantic},
	}
	for _, tt := range tests {
		_, err := Compile(tt.src, Options{})
		var e *Error
		if !errors.As(err, &e) || e.Kind != tt.kind {
			t.Errorf("Compile(%q) error = %v, want kind %s", tt.src, err, tt.kind)
		}
	}
	if KindInternal.String() != "internal" || ErrorKind(9).String() != "ErrorKind(9)" {
		t.Error("ErrorKind names")
	}
}

func TestErrorUnwrap(t *testing.T) {
	_, err := Compile("int main() { return 99999999999999999999; }", Options{})
	var e *Error
	if !errors.As(err, &e) || e.Err == nil {
		t.Fatalf("error = %v, want a wrapped strconv error", err)
	}
	if !strings.Contains(errors.Unwrap(err).Error(), "value out of range") {
		t.Errorf("Unwrap() = %v", errors.Unwrap(err))
	}
}

func TestCompileDumps(t *testing.T) {
	var tokens, tree bytes.Buffer
	_, err := Compile("int main() { int x; x = 2; return x * 3; }", Options{TokenDump: &tokens, ASTDump: &tree})
	if err != nil {
		t.Fatal(err)
	}

	if lines := strings.Count(tokens.String(), "\n"); lines != 19 {
		t.Errorf("token dump has %d lines, want 19:\n%s", lines, tokens.String())
	}
	if !strings.HasPrefix(tokens.String(), "INT        \"int\"           1:1\n") {
		t.Errorf("token dump starts %q", tokens.String())
	}

	for _, want := range []string{
		"Func(main(), nodes=",
		"x                     Offset: 8 (Type: int)",
		"  #0 Decl x\n",
		"  #3 Assign int\n    #1 Lvar x [rbp-8] int\n    #2 Num 2\n",
		"  #7 Return stmt\n    #6 Mul int\n",
	} {
		if !strings.Contains(tree.String(), want) {
			t.Errorf("AST dump missing %q:\n%s", want, tree.String())
		}
	}
}
