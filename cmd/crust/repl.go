package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/rhedgeco/cmpe152-compiler-project/compiler/ast"
	"github.com/rhedgeco/cmpe152-compiler-project/compiler/diag"
	"github.com/rhedgeco/cmpe152-compiler-project/compiler/eval"
	"github.com/rhedgeco/cmpe152-compiler-project/compiler/format"
	"github.com/rhedgeco/cmpe152-compiler-project/compiler/lex"
	"github.com/rhedgeco/cmpe152-compiler-project/compiler/parse"
)

const (
	historyFile = ".crust_history"

	promptMain = "crust> "
	promptCont = "  ...> "
)

type (
	// session keeps definitions entered so far.
	// Entering a definition again replaces the previous one in place.
	session struct {
		defs []ast.Def
	}
)

func repl(ctx context.Context, w io.Writer) error {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()

	ln.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	var s session

	for {
		code, ok := readInput(ln)
		if !ok {
			fmt.Fprintln(w)
			return nil
		}

		if strings.TrimSpace(code) == "" {
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		if !s.handle(ctx, w, code) {
			return nil
		}
	}
}

// readInput reads lines until every { and ( is closed.
func readInput(ln *liner.State) (string, bool) {
	var b strings.Builder

	for {
		prompt := promptMain
		if b.Len() != 0 {
			prompt = promptCont
		}

		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() != 0 {
			b.WriteByte('\n')
		}

		b.WriteString(line)

		toks, _ := lex.Tokenize(context.Background(), []byte(b.String()))
		if !parse.Incomplete(toks) {
			return b.String(), true
		}
	}
}

// handle processes one entry and reports whether the session goes on.
func (s *session) handle(ctx context.Context, w io.Writer, code string) bool {
	if cmd := strings.TrimSpace(code); strings.HasPrefix(cmd, ":") {
		switch cmd {
		case ":quit", ":q":
			return false
		case ":reset":
			s.defs = nil
			fmt.Fprintln(w, "definitions cleared")
		case ":defs":
			b, err := format.Format(ctx, nil, s.prog())
			if err != nil {
				fmt.Fprintf(w, "error: %v\n", err)
				break
			}

			w.Write(b)
		default:
			fmt.Fprintln(w, "unknown command; try :defs, :reset or :quit")
		}

		return true
	}

	p, errs := parse.ParseSource(ctx, []byte(code))
	if len(errs) != 0 {
		w.Write(diag.AppendText(nil, "repl", []byte(code), errs))
		return true
	}

	for _, d := range p.Defs {
		s.add(d)
	}

	v, err := s.run(ctx)
	switch {
	case err != nil:
		w.Write(diag.AppendText(nil, "repl", nil, err))
	case v != nil:
		fmt.Fprintf(w, "%d\n", *v)
	default:
		fmt.Fprintf(w, "ok (%d definitions)\n", len(s.defs))
	}

	return true
}

func (s *session) add(d ast.Def) {
	for i, prev := range s.defs {
		if sameDef(prev, d) {
			tlog.V("repl").Printw("redefine", "name", defName(d), "was", prev.Bounds())

			s.defs[i] = d

			return
		}
	}

	s.defs = append(s.defs, d)
}

// run calls main if it's defined; v is nil otherwise.
func (s *session) run(ctx context.Context) (v *int32, err error) {
	p := s.prog()

	found := false
	for _, f := range p.Funcs() {
		found = found || f.Name == "main"
	}

	if !found {
		return nil, nil
	}

	r, err := eval.Run(ctx, p)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

func (s *session) prog() *ast.Prog {
	return &ast.Prog{Defs: s.defs}
}

func sameDef(a, b ast.Def) bool {
	_, af := a.(*ast.Func)
	_, bf := b.(*ast.Func)

	return af == bf && defName(a) == defName(b)
}

func defName(d ast.Def) string {
	switch d := d.(type) {
	case *ast.Func:
		return d.Name
	case *ast.Struct:
		return d.Name
	default:
		return ""
	}
}
