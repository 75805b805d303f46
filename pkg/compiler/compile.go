package compiler

import (
	"fmt"
	"io"
	"log/slog"

	"dcc/pkg/asm"
)

// Options tunes a compilation. The zero value compiles with a frame sized
// from each function's locals and logs nothing.
type Options struct {
	// FrameSize > 0 reserves a fixed local area in every function; a
	// function whose locals do not fit is rejected. 0 sizes each frame from
	// its locals.
	FrameSize int
	Comments  bool // annotate the listing with # comments
	Check     bool // run asm.Check over the finished listing
	Logger    *slog.Logger

	TokenDump io.Writer // receives one line per token when set
	ASTDump   io.Writer // receives every parsed function when set
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// Compile runs Lex, Parse and Generate over src and returns the assembly
// listing. On error the listing is empty and the error is a *Error.
func Compile(src string, opts Options) (string, error) {
	log := opts.logger()

	tl, err := Lex(src)
	if err != nil {
		return "", err
	}
	log.Debug("lexed", "tokens", len(tl.Tokens()))
	if opts.TokenDump != nil {
		for _, tok := range tl.Tokens() {
			fmt.Fprintln(opts.TokenDump, tok)
		}
	}

	funcs, err := Parse(tl)
	if err != nil {
		return "", err
	}
	for _, f := range funcs {
		log.Debug("parsed function",
			"name", f.Name,
			"params", len(f.Params),
			"locals", f.Program.Locals.Len(),
			"nodes", len(f.Program.Nodes))
		if opts.ASTDump != nil {
			fmt.Fprintln(opts.ASTDump, f)
			fmt.Fprint(opts.ASTDump, f.Program.Locals)
			f.Program.Dump(opts.ASTDump)
		}
	}

	listing, err := Generate(funcs, opts)
	if err != nil {
		return "", err
	}
	log.Debug("generated", "functions", len(funcs), "bytes", len(listing))

	if opts.Check {
		l, err := asm.Check(listing)
		if err != nil {
			return "", &Error{Kind: KindInternal, Msg: fmt.Sprintf("generated listing failed to check: %v", err), Err: err}
		}
		log.Debug("listing checked", "instructions", len(l.Instructions), "labels", len(l.Labels))
	}
	return listing, nil
}
