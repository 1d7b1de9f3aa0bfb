package format

import (
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/rhedgeco/cmpe152-compiler-project/compiler/ast"
)

const (
	precSum = iota + 1
	precProduct
	precUnary
	precAtom
)

// Format appends the source form of x to b.
// x is a program, a definition, a statement, or an expression.
func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	return format(ctx, b, x, 0)
}

func format(ctx context.Context, b []byte, x any, d int) ([]byte, error) {
	switch x := x.(type) {
	case *ast.Prog:
		return formatProg(ctx, b, x, d)
	case ast.Def:
		return formatDef(ctx, b, x, d)
	case ast.Stmt:
		return formatBlock(ctx, b, []ast.Stmt{x}, d)
	case ast.Expr:
		return formatExpr(ctx, b, x, 0)
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

func formatProg(ctx context.Context, b []byte, x *ast.Prog, d int) (_ []byte, err error) {
	for i, def := range x.Defs {
		if i != 0 {
			b = append(b, '\n')
		}

		b, err = formatDef(ctx, b, def, d)
		if err != nil {
			return nil, errors.Wrap(err, "def %d", i)
		}
	}

	return b, nil
}

func formatDef(ctx context.Context, b []byte, x ast.Def, d int) ([]byte, error) {
	switch x := x.(type) {
	case *ast.Struct:
		b = app(b, d, "struct %s {\n", x.Name)

		for _, p := range x.Params {
			b = app(b, d+1, "%s %s;\n", p.Type, p.Name)
		}

		b = app(b, d, "};\n")

		return b, nil
	case *ast.Func:
		return formatFunc(ctx, b, x, d)
	default:
		return nil, errors.New("unsupported def: %T", x)
	}
}

func formatFunc(ctx context.Context, b []byte, x *ast.Func, d int) ([]byte, error) {
	b = app(b, d, "%s %s(", x.Ret, x.Name)

	for i, p := range x.Params {
		if i != 0 {
			b = append(b, ", "...)
		}

		b = app(b, 0, "%s %s", p.Type, p.Name)
	}

	b = append(b, ") {\n"...)

	b, err := formatBlock(ctx, b, x.Body, d+1)
	if err != nil {
		return nil, errors.Wrap(err, "func %v", x.Name)
	}

	b = app(b, d, "}\n")

	return b, nil
}

func formatBlock(ctx context.Context, b []byte, l []ast.Stmt, d int) (_ []byte, err error) {
	for _, s := range l {
		switch s := s.(type) {
		case *ast.Return:
			b = app(b, d, "return ")

			b, err = formatExpr(ctx, b, s.X, 0)
			if err != nil {
				return nil, errors.Wrap(err, "return")
			}

			b = append(b, ";\n"...)
		case *ast.Assign:
			b = app(b, d, "%s %s = ", s.Type, s.Name)

			b, err = formatExpr(ctx, b, s.X, 0)
			if err != nil {
				return nil, errors.Wrap(err, "assign %v", s.Name)
			}

			b = append(b, ";\n"...)
		case *ast.Invalid:
			b = app(b, d, "<invalid>;\n")
		default:
			return nil, errors.New("unsupported stmt: %T", s)
		}
	}

	return b, nil
}

// formatExpr appends x, parenthesized if it binds looser than prec.
func formatExpr(ctx context.Context, b []byte, x ast.Expr, prec int) (_ []byte, err error) {
	p := precOf(x)

	if p < prec {
		b = append(b, '(')
	}

	switch x := x.(type) {
	case *ast.Int:
		b = append(b, x.Text...)
	case *ast.Var:
		b = append(b, x.Name...)
	case *ast.Err:
		b = append(b, "<error>"...)
	case *ast.Neg:
		b = append(b, '-')

		b, err = formatExpr(ctx, b, x.X, precUnary)
		if err != nil {
			return nil, errors.Wrap(err, "neg")
		}
	case *ast.Binary:
		b, err = formatExpr(ctx, b, x.L, p)
		if err != nil {
			return nil, errors.Wrap(err, "left")
		}

		b = hfmt.Appendf(b, " %v ", x.Op)

		b, err = formatExpr(ctx, b, x.R, p+1)
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}
	case *ast.Call:
		b = append(b, x.Name...)
		b = append(b, '(')

		for i, a := range x.Args {
			if i != 0 {
				b = append(b, ", "...)
			}

			b, err = formatExpr(ctx, b, a, 0)
			if err != nil {
				return nil, errors.Wrap(err, "call %v: arg %d", x.Name, i)
			}
		}

		b = append(b, ')')
	default:
		return nil, errors.New("unsupported expr: %T", x)
	}

	if p < prec {
		b = append(b, ')')
	}

	return b, nil
}

func precOf(x ast.Expr) int {
	switch x := x.(type) {
	case *ast.Binary:
		if x.Op == ast.Add || x.Op == ast.Sub {
			return precSum
		}

		return precProduct
	case *ast.Neg:
		return precUnary
	default:
		return precAtom
	}
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
