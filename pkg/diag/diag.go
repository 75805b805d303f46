// Package diag prints compiler errors for a terminal: the offending source
// row, a caret run under the bad span and the message, coloured when the
// output is a TTY.
package diag

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"

	"dcc/pkg/compiler"
)

// Mode selects when output is coloured.
type Mode int

const (
	ModeAuto Mode = iota
	ModeAlways
	ModeNever
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeAlways:
		return "always"
	case ModeNever:
		return "never"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return ModeAuto, nil
	case "always":
		return ModeAlways, nil
	case "never":
		return ModeNever, nil
	}
	return ModeAuto, fmt.Errorf("unknown color mode %q", s)
}

// UseColor resolves mode for f. Auto colours only a terminal, and NO_COLOR
// switches it off.
func UseColor(mode Mode, f *os.File) bool {
	switch mode {
	case ModeAlways:
		return true
	case ModeNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" || f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

var (
	errorStyle = ansi.Style{}.Bold().ForegroundColor(ansi.Red)
	caretStyle = ansi.Style{}.Bold().ForegroundColor(ansi.Green)
	posStyle   = ansi.Style{}.Bold()
)

// Printer writes diagnostics to w.
type Printer struct {
	w     io.Writer
	color bool
}

func NewPrinter(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color}
}

func (p *Printer) style(s ansi.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Styled(text)
}

// Print reports err. A *compiler.Error carrying its source row is drawn
// with a caret; anything else is printed as a single line.
func (p *Printer) Print(err error) {
	var cerr *compiler.Error
	if !errors.As(err, &cerr) {
		fmt.Fprintf(p.w, "%s %v\n", p.style(errorStyle, "error:"), err)
		return
	}

	head := fmt.Sprintf("%s error:", cerr.Kind)
	if cerr.Pos.Row > 0 {
		fmt.Fprintf(p.w, "%s %s %s\n", p.style(posStyle, cerr.Pos.String()+":"), p.style(errorStyle, head), cerr.Msg)
	} else {
		fmt.Fprintf(p.w, "%s %s\n", p.style(errorStyle, head), cerr.Msg)
	}
	if cerr.Line == "" {
		return
	}

	fmt.Fprintln(p.w, cerr.Line)
	pad, width := caret(cerr.Line, cerr.Pos)
	fmt.Fprintf(p.w, "%s%s\n", pad, p.style(caretStyle, strings.Repeat("^", width)))
}

// caret returns the padding that lines a caret up under pos and the
// caret's display width. Tabs in the row are kept so the terminal expands
// them the same way on both lines.
func caret(line string, pos compiler.Pos) (string, int) {
	start := min(max(pos.ColStart, 0), len(line))
	end := min(max(pos.ColEnd, start), len(line))

	var pad strings.Builder
	for _, r := range line[:start] {
		if r == '\t' {
			pad.WriteRune('\t')
			continue
		}
		pad.WriteString(strings.Repeat(" ", ansi.StringWidth(string(r))))
	}
	return pad.String(), max(ansi.StringWidth(line[start:end]), 1)
}
