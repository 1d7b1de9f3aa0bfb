package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/rhedgeco/cmpe152-compiler-project/compiler"
	"github.com/rhedgeco/cmpe152-compiler-project/compiler/diag"
	"github.com/rhedgeco/cmpe152-compiler-project/compiler/format"
	"github.com/rhedgeco/cmpe152-compiler-project/compiler/lex"
)

type (
	// exitCode asks main to end the process with the given status
	// once the command has finished and cleaned up.
	exitCode int
)

var logFile *os.File

func main() {
	err := cli.Run(newApp(), os.Args, os.Environ())

	var code exitCode
	if errors.As(err, &code) {
		os.Exit(int(code))
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	lexCmd := &cli.Command{
		Name:        "lex",
		Description: "print tokens of source files",
		Action:      lexAct,
		Args:        cli.Args{},
	}

	parseCmd := &cli.Command{
		Name:        "parse",
		Description: "print syntax trees of source files",
		Action:      parseAct,
		Args:        cli.Args{},
	}

	buildCmd := &cli.Command{
		Name:        "build",
		Description: "check a source file and write its tree",
		Action:      buildAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("output,o", "", "tree output file (default FILE.ast.json)"),
		},
	}

	runCmd := &cli.Command{
		Name:        "run",
		Description: "run a tree written by build",
		Action:      runAct,
		Args:        cli.Args{},
	}

	execCmd := &cli.Command{
		Name:        "exec",
		Description: "build and run a source file",
		Action:      execAct,
		Args:        cli.Args{},
	}

	fmtCmd := &cli.Command{
		Name:        "fmt",
		Description: "format source files",
		Action:      fmtAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("write,w", false, "write result to the source file instead of stdout"),
		},
	}

	replCmd := &cli.Command{
		Name:        "repl",
		Description: "interactive session",
		Action:      replAct,
	}

	app := &cli.Command{
		Name:        "crust",
		Description: "crust is a tool for building and running crust programs",
		Before:      before,
		After:       after,
		Flags: []*cli.Flag{
			cli.NewFlag("log", "stderr", "log output file (or stderr)"),
			cli.NewFlag("verbosity,v", "", "logger verbosity topics (lex_token,parse_next,parse_recover,eval_call)"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			lexCmd,
			parseCmd,
			buildCmd,
			runCmd,
			execCmd,
			fmtCmd,
			replCmd,
		},
	}

	return app
}

func before(c *cli.Command) error {
	var w io.Writer = os.Stderr

	if q := c.String("log"); q != "" && q != "stderr" {
		f, err := os.Create(q)
		if err != nil {
			return errors.Wrap(err, "open log file")
		}

		w = f
		logFile = f
	}

	tlog.DefaultLogger = tlog.New(tlog.NewConsoleWriter(w, tlog.LstdFlags))

	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}

func after(c *cli.Command) error {
	if logFile == nil {
		return nil
	}

	f := logFile
	logFile = nil

	tlog.DefaultLogger = tlog.New(tlog.NewConsoleWriter(os.Stderr, tlog.LstdFlags))

	err := f.Close()
	if err != nil {
		return errors.Wrap(err, "close log file")
	}

	return nil
}

func rootContext() context.Context {
	return tlog.ContextWithSpan(context.Background(), tlog.Root())
}

func lexAct(c *cli.Command) (err error) {
	ctx := rootContext()

	for _, a := range c.Args {
		text, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		toks, errs := lex.Tokenize(ctx, text)

		for _, tk := range toks {
			fmt.Printf("%-10v %-12q %d..%d\n", tk.Kind, tk.String(), tk.Span.Pos, tk.Span.End)
		}

		if len(errs) != 0 {
			os.Stderr.Write(diag.AppendText(nil, a, text, errs))

			return errors.New("%v: %d lex errors", a, len(errs))
		}
	}

	return nil
}

func parseAct(c *cli.Command) (err error) {
	ctx := rootContext()

	failed := 0

	for _, a := range c.Args {
		text, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		p, err := compiler.Build(ctx, a, text)
		if err != nil {
			os.Stderr.Write(diag.AppendText(nil, a, text, err))
			failed++
		}

		err = compiler.WriteTree(os.Stdout, p)
		if err != nil {
			return errors.Wrap(err, "write tree")
		}
	}

	if failed != 0 {
		return errors.New("%d files with errors", failed)
	}

	return nil
}

func buildAct(c *cli.Command) (err error) {
	ctx := rootContext()

	if len(c.Args) != 1 {
		return errors.New("one source file expected")
	}

	name := c.Args[0]

	text, err := os.ReadFile(name)
	if err != nil {
		return errors.Wrap(err, "read file")
	}

	p, err := compiler.Build(ctx, name, text)
	if err != nil {
		os.Stderr.Write(diag.AppendText(nil, name, text, err))

		return errors.New("build failed")
	}

	out := c.String("output")
	if out == "" {
		out = strings.TrimSuffix(name, ".crust") + ".ast.json"
	}

	f, err := os.Create(out)
	if err != nil {
		return errors.Wrap(err, "create tree file")
	}

	defer func() {
		e := f.Close()
		if err == nil && e != nil {
			err = errors.Wrap(e, "close tree file")
		}
	}()

	err = compiler.WriteTree(f, p)
	if err != nil {
		return errors.Wrap(err, "write tree")
	}

	tlog.Printw("tree written", "file", out, "defs", len(p.Defs))

	return nil
}

func runAct(c *cli.Command) (err error) {
	ctx := rootContext()

	if len(c.Args) != 1 {
		return errors.New("one tree file expected")
	}

	p, err := compiler.ReadTreeFile(c.Args[0])
	if err != nil {
		return err
	}

	v, err := compiler.Run(ctx, p)

	return report(os.Stdout, os.Stderr, c.Args[0], nil, v, err)
}

func execAct(c *cli.Command) (err error) {
	ctx := rootContext()

	if len(c.Args) != 1 {
		return errors.New("one source file expected")
	}

	name := c.Args[0]

	text, err := os.ReadFile(name)
	if err != nil {
		return errors.Wrap(err, "read file")
	}

	v, err := compiler.Exec(ctx, name, text)

	return report(os.Stdout, os.Stderr, name, text, v, err)
}

// report prints the result of a run: the value goes to w and,
// truncated to a byte, becomes the process exit status.
func report(w, ew io.Writer, name string, text []byte, v int32, err error) error {
	if err != nil {
		if !diag.Is(err) {
			return err
		}

		_, _ = ew.Write(diag.AppendText(nil, name, text, err))

		if compiler.IsFatal(err) {
			return errors.New("run failed")
		}

		return errors.New("build failed")
	}

	fmt.Fprintf(w, "%d\n", v)

	if code := exitCode(uint32(v) & 0xff); code != 0 {
		return code
	}

	return nil
}

func (c exitCode) Error() string {
	return fmt.Sprintf("exit status %d", int(c))
}

func fmtAct(c *cli.Command) (err error) {
	ctx := rootContext()

	for _, a := range c.Args {
		text, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		p, err := compiler.Build(ctx, a, text)
		if err != nil {
			os.Stderr.Write(diag.AppendText(nil, a, text, err))

			return errors.New("%v: not formatted", a)
		}

		b, err := format.Format(ctx, nil, p)
		if err != nil {
			return errors.Wrap(err, "format %v", a)
		}

		if !c.Bool("write") {
			os.Stdout.Write(b)
			continue
		}

		err = os.WriteFile(a, b, 0o644)
		if err != nil {
			return errors.Wrap(err, "write %v", a)
		}
	}

	return nil
}

func replAct(c *cli.Command) error {
	ctx := rootContext()

	return repl(ctx, os.Stdout)
}
