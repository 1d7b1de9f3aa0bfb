package eval

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhedgeco/cmpe152-compiler-project/compiler/ast"
	"github.com/rhedgeco/cmpe152-compiler-project/compiler/diag"
	"github.com/rhedgeco/cmpe152-compiler-project/compiler/parse"
)

func prog(t *testing.T, src string) *ast.Prog {
	t.Helper()

	p, errs := parse.ParseSource(context.Background(), []byte(src))
	require.Empty(t, errs, "errors: %v", errs)

	return p
}

func run(t *testing.T, src string) (int32, error) {
	t.Helper()

	return Run(context.Background(), prog(t, src))
}

func requireDiag(t *testing.T, err error, k diag.Kind, c diag.Code) *diag.Error {
	t.Helper()

	require.Error(t, err)

	e, ok := diag.As(err)
	require.True(t, ok, "diagnostic expected, got %v", err)
	require.Equal(t, k, e.Kind, "%v", e)
	require.Equal(t, c, e.Code, "%v", e)

	return e
}

func TestValues(t *testing.T) {
	for _, tc := range []struct {
		src string
		exp int32
	}{
		{"int main() { return 0; }", 0},
		{"int main() { return 42; }", 42},
		{"int main() { return 2 + 3 * 4; }", 14},
		{"int main() { return 10 - 4 - 5; }", 1},
		{"int main() { return -5; }", -5},
		{"int main() { return --3; }", 3},
		{"int main() { return 7 / 2; }", 3},
		{"int main() { return -7 / 2; }", -3},
		{"int main() { return (1 + 2) * (3 - 5); }", -6},
		{"int main() { return 4294967295; }", -1},
		{"int main() { return 2147483647 + 1; }", math.MinInt32},
		{"int main() { return 2147483648 / -1; }", math.MinInt32},
		{"int main() { int x = 1; int x = x + 1; return x; }", 2},
		{"int add(int a, int b) { return a + b; } int main() { return add(2, 3); }", 5},
		{"struct P { int x; }; int main() { return 9; }", 9},
	} {
		v, err := run(t, tc.src)
		if assert.NoError(t, err, "%s", tc.src) {
			assert.Equal(t, tc.exp, v, "%s", tc.src)
		}
	}
}

func TestStatementsAfterReturn(t *testing.T) {
	v, err := run(t, "int main() { return 1; return 1 / 0; }")
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)
}

func TestRecursionThroughArgs(t *testing.T) {
	v, err := run(t, `
int sq(int x) { return x * x; }
int sum(int a, int b, int c) { return a + b + c; }
int main() { return sum(sq(2), sq(3), -sq(1)); }
`)
	require.NoError(t, err)
	assert.Equal(t, int32(12), v)
}

func TestBadLiteral(t *testing.T) {
	_, err := run(t, "int main() { return 4294967296; }")
	requireDiag(t, err, diag.Runtime, diag.BadLiteral)

	_, err = run(t, "int main() { return 1.5; }")
	e := requireDiag(t, err, diag.Runtime, diag.BadLiteral)
	assert.Equal(t, `invalid integer literal "1.5"`, e.Msg)
	assert.Equal(t, &ast.Span{Pos: 20, End: 23}, e.Span)
}

func TestDivByZero(t *testing.T) {
	_, err := run(t, "int main() { int z = 0; return 1 / z; }")
	e := requireDiag(t, err, diag.Runtime, diag.DivByZero)
	assert.True(t, e.Fatal())
}

func TestUndeclared(t *testing.T) {
	_, err := run(t, "int main() { return y; }")
	e := requireDiag(t, err, diag.Runtime, diag.Undeclared)
	assert.Equal(t, `undeclared variable "y"`, e.Msg)

	_, err = run(t, "int main() { int x = x; return x; }")
	requireDiag(t, err, diag.Runtime, diag.Undeclared)
}

func TestCalleeIsolation(t *testing.T) {
	_, err := run(t, "int f() { return x; } int main() { int x = 1; return f(); }")
	requireDiag(t, err, diag.Runtime, diag.Undeclared)

	v, err := run(t, "int f(int x) { int x = 5; return x; } int main() { int x = 1; int y = f(x); return x + y; }")
	require.NoError(t, err)
	assert.Equal(t, int32(6), v)
}

func TestUnknownFunc(t *testing.T) {
	_, err := run(t, "int main() { return g(1); }")
	e := requireDiag(t, err, diag.Runtime, diag.UnknownFunc)
	assert.Equal(t, `unknown function "g"`, e.Msg)
}

func TestArity(t *testing.T) {
	_, err := run(t, "int f(int a) { return a; } int main() { return f(); }")
	requireDiag(t, err, diag.Runtime, diag.ArityMismatch)

	// Arity is checked before arguments are evaluated.
	_, err = run(t, "int f(int a) { return a; } int main() { return f(1, 1 / 0); }")
	e := requireDiag(t, err, diag.Runtime, diag.ArityMismatch)
	assert.Equal(t, `function "f" takes 1 arguments, got 2`, e.Msg)
}

func TestFellOffEnd(t *testing.T) {
	_, err := run(t, "int f() { int x = 1; } int main() { return f(); }")
	e := requireDiag(t, err, diag.Runtime, diag.FellOffEnd)
	assert.Equal(t, `function "f" ended without return`, e.Msg)

	_, err = run(t, "int main() { }")
	requireDiag(t, err, diag.Runtime, diag.FellOffEnd)
}

func TestLoad(t *testing.T) {
	_, err := run(t, "int f() { return 1; }")
	e := requireDiag(t, err, diag.Load, diag.MissingMain)
	assert.Nil(t, e.Span)

	_, err = run(t, "struct main { int x; };")
	requireDiag(t, err, diag.Load, diag.MissingMain)

	src := "int main() { return 1 / 0; } int main() { return 1; }"
	_, err = run(t, src)
	e = requireDiag(t, err, diag.Load, diag.DuplicateFunc)
	assert.Equal(t, &ast.Span{Pos: 29, End: len(src)}, e.Span)

	_, err = run(t, "int main(int a) { return a; }")
	requireDiag(t, err, diag.Load, diag.BadMain)
}

func TestPlaceholders(t *testing.T) {
	p := &ast.Prog{Defs: []ast.Def{
		&ast.Func{Name: "main", Ret: "int", Body: []ast.Stmt{
			&ast.Invalid{Span: ast.Span{Pos: 3, End: 5}},
		}},
	}}

	_, err := Run(context.Background(), p)
	e := requireDiag(t, err, diag.Runtime, diag.Placeholder)
	assert.Equal(t, &ast.Span{Pos: 3, End: 5}, e.Span)

	p = &ast.Prog{Defs: []ast.Def{
		&ast.Func{Name: "main", Ret: "int", Body: []ast.Stmt{
			&ast.Return{X: &ast.Binary{
				Op: ast.Add,
				L:  &ast.Int{Text: "1"},
				R:  &ast.Err{Span: ast.Span{Pos: 7, End: 9}},
			}},
		}},
	}}

	_, err = Run(context.Background(), p)
	e = requireDiag(t, err, diag.Runtime, diag.Placeholder)
	assert.Equal(t, &ast.Span{Pos: 7, End: 9}, e.Span)
}

func TestInterpCall(t *testing.T) {
	in, err := Load(context.Background(), prog(t, `
int mul(int a, int b) { return a * b; }
int main() { return mul(6, 7); }
`))
	require.NoError(t, err)

	v, err := in.Main(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)

	v, err = in.Call(context.Background(), "mul", -3, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(-15), v)

	_, err = in.Call(context.Background(), "mul", 1)
	requireDiag(t, err, diag.Runtime, diag.ArityMismatch)

	_, err = in.Call(context.Background(), "nope")
	requireDiag(t, err, diag.Runtime, diag.UnknownFunc)
}
