package diag

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"dcc/pkg/compiler"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeAuto, false},
		{"auto", ModeAuto, false},
		{"Always", ModeAlways, false},
		{"never", ModeNever, false},
		{"rainbow", ModeAuto, true},
	}
	for _, tc := range tests {
		got, err := ParseMode(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseMode(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestUseColor(t *testing.T) {
	if !UseColor(ModeAlways, nil) {
		t.Error("ModeAlways should colour")
	}
	if UseColor(ModeNever, nil) {
		t.Error("ModeNever should not colour")
	}
	if UseColor(ModeAuto, nil) {
		t.Error("ModeAuto without a file should not colour")
	}
}

func TestPrintCaret(t *testing.T) {
	_, err := compiler.Compile("int main() { return 1 $ 2; }", compiler.Options{})
	if err == nil {
		t.Fatal("expected a lex error")
	}

	var buf bytes.Buffer
	NewPrinter(&buf, false).Print(err)

	want := "1:23: lex error: cannot tokenize \"$\"\n" +
		"int main() { return 1 $ 2; }\n" +
		"                      ^\n"
	if buf.String() != want {
		t.Fatalf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestPrintKeepsTabs(t *testing.T) {
	err := &compiler.Error{
		Kind: compiler.KindSemantic,
		Pos:  compiler.Pos{Row: 2, ColStart: 2, ColEnd: 5},
		Line: "\t\tfoo = 1;",
		Msg:  `undefined variable "foo"`,
	}
	var buf bytes.Buffer
	NewPrinter(&buf, false).Print(err)

	lines := strings.Split(buf.String(), "\n")
	if len(lines) < 3 || lines[2] != "\t\t^^^" {
		t.Fatalf("caret line = %q, want %q", lines[2], "\t\t^^^")
	}
}

func TestPrintWideRunes(t *testing.T) {
	pad, width := caret("x = 日本;", compiler.Pos{Row: 1, ColStart: 4, ColEnd: 10})
	if pad != "    " || width != 4 {
		t.Fatalf("caret = %q, %d; want 4 spaces, 4", pad, width)
	}
}

func TestPrintColor(t *testing.T) {
	err := &compiler.Error{
		Kind: compiler.KindSyntax,
		Pos:  compiler.Pos{Row: 1, ColStart: 0, ColEnd: 1},
		Line: "}",
		Msg:  "expected 'int', got '}'",
	}
	var buf bytes.Buffer
	NewPrinter(&buf, true).Print(err)

	out := buf.String()
	if !strings.Contains(out, "\x1b[") {
		t.Fatalf("expected escape sequences in %q", out)
	}
	var plain bytes.Buffer
	NewPrinter(&plain, false).Print(err)
	if ansi.Strip(out) != plain.String() {
		t.Fatalf("stripped colour output %q differs from plain %q", ansi.Strip(out), plain.String())
	}
}

func TestPrintPlainError(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, false).Print(errors.New("reading source: no such file"))
	if got := buf.String(); got != "error: reading source: no such file\n" {
		t.Fatalf("got %q", got)
	}
}
