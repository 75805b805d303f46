package compiler

import "fmt"

// ErrorKind classifies a fatal compilation error.
type ErrorKind int

const (
	KindLex      ErrorKind = iota // no token can be formed
	KindSyntax                    // expected token not found
	KindSemantic                  // well-formed but meaningless program
	KindInternal                  // compiler bug: a tree the generator cannot lower
)

var errorKindNames = [...]string{
	KindLex:      "lex",
	KindSyntax:   "syntax",
	KindSemantic: "semantic",
	KindInternal: "internal",
}

func (k ErrorKind) String() string {
	if int(k) >= 0 && int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the single fatal error a compilation reports. Line holds the
// source row the error points into so that callers can draw a caret under
// Pos without keeping the source around.
type Error struct {
	Kind ErrorKind
	Pos  Pos
	Line string
	Msg  string
	Err  error // underlying cause, if any
}

func (e *Error) Error() string {
	if e.Pos.Row == 0 {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Pos, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, pos Pos, line string, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: pos, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// internalErrorf reports a condition the parser should have made impossible.
func internalErrorf(pos Pos, format string, args ...any) *Error {
	return newError(KindInternal, pos, "", format, args...)
}
