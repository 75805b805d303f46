package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"dcc/pkg/compiler"
	"dcc/pkg/config"
	"dcc/pkg/diag"
	"dcc/pkg/utils"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is the whole driver. It returns the process exit status: 0 on
// success, 1 on a compile error, 2 on a usage or configuration error.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dcc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: dcc [flags] '<source>'")
		fs.PrintDefaults()
	}
	srcPath := fs.String("file", "", "read the program from a file instead of the argument")
	dumpTokens := fs.Bool("dump-tokens", false, "print the token stream to stderr")
	dumpAST := fs.Bool("dump-ast", false, "print every parsed function to stderr")
	check := fs.Bool("check", false, "check the generated listing before printing it")
	frameSize := fs.Int("frame-size", 0, "reserve a fixed local area per function (0: size from locals)")
	color := fs.String("color", "auto", "colour diagnostics: auto, always or never")
	comments := fs.Bool("comments", false, "annotate the listing with comments")
	verbose := fs.Bool("v", false, "log each compilation phase")
	cfgPath := fs.String("config", "", "config file (default: "+config.DefaultFilename+" if present)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}
	path, optional, err := utils.ConfigPath(*cfgPath, wd, config.DefaultFilename)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}
	cfg, err := config.Load(path, optional)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}
	cfg.ApplyEnv()

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "check":
			cfg.Check = *check
		case "frame-size":
			cfg.FrameSize = *frameSize
		case "color":
			cfg.Color = *color
		case "comments":
			cfg.Comments = *comments
		case "v":
			cfg.Verbose = *verbose
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}
	mode, err := diag.ParseMode(cfg.Color)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}
	errFile, _ := stderr.(*os.File)
	printer := diag.NewPrinter(stderr, diag.UseColor(mode, errFile))

	var src string
	switch {
	case *srcPath != "" && fs.NArg() == 0:
		src, err = utils.ReadSourceFile(*srcPath)
		if err != nil {
			printer.Print(err)
			return 1
		}
	case *srcPath == "" && fs.NArg() == 1:
		src = fs.Arg(0)
	default:
		fs.Usage()
		return 2
	}

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	opts := compiler.Options{
		FrameSize: cfg.FrameSize,
		Comments:  cfg.Comments,
		Check:     cfg.Check,
		Logger:    logger,
	}
	if *dumpTokens {
		opts.TokenDump = stderr
	}
	if *dumpAST {
		opts.ASTDump = stderr
	}

	out, err := compiler.Compile(src, opts)
	if err != nil {
		printer.Print(err)
		return 1
	}
	fmt.Fprint(stdout, out)
	return 0
}
