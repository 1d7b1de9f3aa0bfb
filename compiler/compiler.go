package compiler

import (
	"context"
	"io"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/rhedgeco/cmpe152-compiler-project/compiler/ast"
	"github.com/rhedgeco/cmpe152-compiler-project/compiler/diag"
	"github.com/rhedgeco/cmpe152-compiler-project/compiler/eval"
	"github.com/rhedgeco/cmpe152-compiler-project/compiler/lex"
	"github.com/rhedgeco/cmpe152-compiler-project/compiler/parse"
)

func BuildFile(ctx context.Context, name string) (*ast.Prog, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Build(ctx, name, text)
}

// Build lexes and parses text.
// If any errors were collected it returns the partial tree
// together with a diag.List of them in source order.
func Build(ctx context.Context, name string, text []byte) (p *ast.Prog, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "build", "name", name, "size", len(text))
	defer tr.Finish("err", &err)

	toks, errs := lex.Tokenize(ctx, text)

	tr.Printw("tokens", "count", len(toks), "errors", len(errs))

	p, perrs := parse.Parse(ctx, toks, len(text))
	errs = append(errs, perrs...)

	tr.Printw("tree", "defs", len(p.Defs), "errors", len(perrs))

	if len(errs) != 0 {
		return p, errs.Sorted()
	}

	return p, nil
}

func ExecFile(ctx context.Context, name string) (int32, error) {
	p, err := BuildFile(ctx, name)
	if err != nil {
		return 0, err
	}

	return Run(ctx, p)
}

// Exec builds and runs text in one step.
func Exec(ctx context.Context, name string, text []byte) (int32, error) {
	p, err := Build(ctx, name, text)
	if err != nil {
		return 0, err
	}

	return Run(ctx, p)
}

func Run(ctx context.Context, p *ast.Prog) (r int32, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "run")
	defer tr.Finish("result", &r, "err", &err)

	return eval.Run(ctx, p)
}

// WriteTree encodes p so RunTree can run it without the source.
func WriteTree(w io.Writer, p *ast.Prog) error {
	return ast.Encode(w, p)
}

func ReadTreeFile(name string) (*ast.Prog, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "open tree")
	}

	defer f.Close()

	return ast.Decode(f)
}

func RunTree(ctx context.Context, r io.Reader) (int32, error) {
	p, err := ast.Decode(r)
	if err != nil {
		return 0, err
	}

	return Run(ctx, p)
}

func RunTreeFile(ctx context.Context, name string) (int32, error) {
	p, err := ReadTreeFile(name)
	if err != nil {
		return 0, err
	}

	return Run(ctx, p)
}

// IsFatal reports whether err stopped evaluation, as opposed to
// a build failure or an I/O error.
func IsFatal(err error) bool {
	e, ok := diag.As(err)

	return ok && e.Fatal()
}
