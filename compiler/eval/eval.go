// Package eval executes a program tree directly.
//
// Every function call gets a fresh scope: an append-only list of bindings
// searched from the most recent one, so a later declaration of a name
// shadows earlier ones. Calls see nothing of their caller but the global
// function table, which is read-only once loaded.
package eval

import (
	"context"
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/rhedgeco/cmpe152-compiler-project/compiler/ast"
	"github.com/rhedgeco/cmpe152-compiler-project/compiler/diag"
)

type (
	Interp struct {
		funcs map[string]*ast.Func
	}

	binding struct {
		name string
		val  int32
	}

	scope []binding
)

// Run loads p and calls its main function.
func Run(ctx context.Context, p *ast.Prog) (int32, error) {
	in, err := Load(ctx, p)
	if err != nil {
		return 0, err
	}

	return in.Main(ctx)
}

// Load builds the function table.
// Duplicate function names, a missing main, or a main with parameters
// fail here, before anything is executed.
func Load(ctx context.Context, p *ast.Prog) (in *Interp, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "eval: load", "defs", len(p.Defs))
	defer tr.Finish("err", &err)

	in = &Interp{
		funcs: make(map[string]*ast.Func),
	}

	for _, f := range p.Funcs() {
		if prev, ok := in.funcs[f.Name]; ok {
			return nil, diag.New(diag.Load, diag.DuplicateFunc, f.Span, "function %q redefined (first defined at %d)", f.Name, prev.Span.Pos)
		}

		in.funcs[f.Name] = f
	}

	main, ok := in.funcs["main"]
	if !ok {
		return nil, diag.NewNoSpan(diag.Load, diag.MissingMain, "no main function")
	}

	if len(main.Params) != 0 {
		return nil, diag.New(diag.Load, diag.BadMain, main.Span, "main must take no parameters, has %d", len(main.Params))
	}

	return in, nil
}

// Main calls main with no arguments.
func (in *Interp) Main(ctx context.Context) (r int32, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "eval: main")
	defer tr.Finish("result", &r, "err", &err)

	return in.Call(ctx, "main")
}

// Call invokes the named function with already evaluated arguments.
func (in *Interp) Call(ctx context.Context, name string, args ...int32) (int32, error) {
	f, ok := in.funcs[name]
	if !ok {
		return 0, diag.NewNoSpan(diag.Runtime, diag.UnknownFunc, "unknown function %q", name)
	}

	if len(args) != len(f.Params) {
		return 0, diag.New(diag.Runtime, diag.ArityMismatch, f.Span, "function %q takes %d arguments, got %d", name, len(f.Params), len(args))
	}

	vars := make(scope, 0, len(args))

	for i, a := range args {
		vars = append(vars, binding{name: f.Params[i].Name, val: a})
	}

	return in.call(ctx, f, vars)
}

func (in *Interp) call(ctx context.Context, f *ast.Func, vars scope) (int32, error) {
	if tr := tlog.SpanFromContext(ctx); tr.If("eval_call") {
		tr.Printw("call", "name", f.Name, "args", len(vars))
	}

	for _, st := range f.Body {
		switch st := st.(type) {
		case *ast.Assign:
			v, err := in.expr(ctx, vars, st.X)
			if err != nil {
				return 0, err
			}

			vars = append(vars, binding{name: st.Name, val: v})
		case *ast.Return:
			return in.expr(ctx, vars, st.X)
		case *ast.Invalid:
			return 0, diag.New(diag.Runtime, diag.Placeholder, st.Span, "invalid statement reached in %q", f.Name)
		default:
			return 0, errors.New("unsupported statement: %T", st)
		}
	}

	return 0, diag.New(diag.Runtime, diag.FellOffEnd, f.Span, "function %q ended without return", f.Name)
}

func (in *Interp) expr(ctx context.Context, vars scope, x ast.Expr) (int32, error) {
	switch x := x.(type) {
	case *ast.Int:
		v, err := strconv.ParseUint(x.Text, 10, 32)
		if err != nil {
			return 0, diag.New(diag.Runtime, diag.BadLiteral, x.Span, "invalid integer literal %q", x.Text)
		}

		return int32(uint32(v)), nil
	case *ast.Var:
		v, ok := vars.lookup(x.Name)
		if !ok {
			return 0, diag.New(diag.Runtime, diag.Undeclared, x.Span, "undeclared variable %q", x.Name)
		}

		return v, nil
	case *ast.Neg:
		v, err := in.expr(ctx, vars, x.X)
		if err != nil {
			return 0, err
		}

		return -v, nil
	case *ast.Binary:
		return in.binary(ctx, vars, x)
	case *ast.Call:
		f, ok := in.funcs[x.Name]
		if !ok {
			return 0, diag.New(diag.Runtime, diag.UnknownFunc, x.Span, "unknown function %q", x.Name)
		}

		if len(x.Args) != len(f.Params) {
			return 0, diag.New(diag.Runtime, diag.ArityMismatch, x.Span, "function %q takes %d arguments, got %d", x.Name, len(f.Params), len(x.Args))
		}

		callee := make(scope, 0, len(x.Args))

		for i, a := range x.Args {
			v, err := in.expr(ctx, vars, a)
			if err != nil {
				return 0, err
			}

			callee = append(callee, binding{name: f.Params[i].Name, val: v})
		}

		return in.call(ctx, f, callee)
	case *ast.Err:
		return 0, diag.New(diag.Runtime, diag.Placeholder, x.Span, "invalid expression reached")
	default:
		return 0, errors.New("unsupported expression: %T", x)
	}
}

func (in *Interp) binary(ctx context.Context, vars scope, x *ast.Binary) (int32, error) {
	l, err := in.expr(ctx, vars, x.L)
	if err != nil {
		return 0, err
	}

	r, err := in.expr(ctx, vars, x.R)
	if err != nil {
		return 0, err
	}

	switch x.Op {
	case ast.Add:
		return l + r, nil
	case ast.Sub:
		return l - r, nil
	case ast.Mul:
		return l * r, nil
	case ast.Div:
		if r == 0 {
			return 0, diag.New(diag.Runtime, diag.DivByZero, x.Span, "division by zero")
		}

		return l / r, nil
	default:
		return 0, errors.New("unsupported operator: %q", x.Op)
	}
}

func (s scope) lookup(name string) (int32, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].name == name {
			return s[i].val, true
		}
	}

	return 0, false
}
