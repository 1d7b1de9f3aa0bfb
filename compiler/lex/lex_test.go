package lex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhedgeco/cmpe152-compiler-project/compiler/ast"
	"github.com/rhedgeco/cmpe152-compiler-project/compiler/diag"
)

func tokenize(t *testing.T, src string) ([]Token, diag.List) {
	t.Helper()

	return Tokenize(context.Background(), []byte(src))
}

func texts(toks []Token) (l []string) {
	for _, tk := range toks {
		l = append(l, tk.String())
	}

	return l
}

func TestFunction(t *testing.T) {
	toks, errs := tokenize(t, "int main() { return 2 + 3; }")
	require.Empty(t, errs)

	exp := []Token{
		{Kind: Ident, Text: "int", Span: ast.Span{Pos: 0, End: 3}},
		{Kind: Ident, Text: "main", Span: ast.Span{Pos: 4, End: 8}},
		{Kind: Ctrl, Char: '(', Span: ast.Span{Pos: 8, End: 9}},
		{Kind: Ctrl, Char: ')', Span: ast.Span{Pos: 9, End: 10}},
		{Kind: Ctrl, Char: '{', Span: ast.Span{Pos: 11, End: 12}},
		{Kind: Return, Span: ast.Span{Pos: 13, End: 19}},
		{Kind: Num, Text: "2", Span: ast.Span{Pos: 20, End: 21}},
		{Kind: Op, Char: '+', Span: ast.Span{Pos: 22, End: 23}},
		{Kind: Num, Text: "3", Span: ast.Span{Pos: 24, End: 25}},
		{Kind: Ctrl, Char: ';', Span: ast.Span{Pos: 25, End: 26}},
		{Kind: Ctrl, Char: '}', Span: ast.Span{Pos: 27, End: 28}},
	}

	assert.Equal(t, exp, toks)
}

func TestKeywords(t *testing.T) {
	toks, errs := tokenize(t, "return struct returns _x1 Struct")
	require.Empty(t, errs)
	require.Len(t, toks, 5)

	assert.Equal(t, Return, toks[0].Kind)
	assert.Equal(t, Struct, toks[1].Kind)

	for _, tk := range toks[2:] {
		assert.Equal(t, Ident, tk.Kind, "%v", tk)
	}

	assert.Equal(t, []string{"return", "struct", "returns", "_x1", "Struct"}, texts(toks))
}

func TestNumbers(t *testing.T) {
	toks, errs := tokenize(t, "1.5 1. 007 0.25")

	assert.Equal(t, []string{"1.5", "1", "0", "0", "7", "0.25"}, texts(toks))

	for _, tk := range toks {
		assert.Equal(t, Num, tk.Kind, "%v", tk)
	}

	require.Len(t, errs, 1)
	assert.Equal(t, diag.Lex, errs[0].Kind)
	assert.Equal(t, diag.UnexpectedChar, errs[0].Code)
	assert.Equal(t, &ast.Span{Pos: 5, End: 6}, errs[0].Span)
	assert.Equal(t, "unexpected character '.'", errs[0].Msg)
}

func TestOpsAndCtrl(t *testing.T) {
	toks, errs := tokenize(t, "+-*/!= ()[]{};,")
	require.Empty(t, errs)
	require.Len(t, toks, 14)

	for i, tk := range toks {
		if i < 6 {
			assert.Equal(t, Op, tk.Kind, "%v", tk)
		} else {
			assert.Equal(t, Ctrl, tk.Kind, "%v", tk)
		}
	}

	assert.True(t, toks[3].Is(Op, '/'))
	assert.True(t, toks[10].Is(Ctrl, '{'))
}

func TestComments(t *testing.T) {
	toks, errs := tokenize(t, "a // comment + - $\nb//x")
	require.Empty(t, errs)

	assert.Equal(t, []string{"a", "b"}, texts(toks))
	assert.Equal(t, ast.Span{Pos: 19, End: 20}, toks[1].Span)
}

func TestErrorRuns(t *testing.T) {
	toks, errs := tokenize(t, "a $$ b @c")

	assert.Equal(t, []string{"a", "b", "c"}, texts(toks))

	require.Len(t, errs, 2)
	assert.Equal(t, &ast.Span{Pos: 2, End: 4}, errs[0].Span)
	assert.Equal(t, `unexpected characters "$$"`, errs[0].Msg)
	assert.Equal(t, &ast.Span{Pos: 7, End: 8}, errs[1].Span)
	assert.Equal(t, "unexpected character '@'", errs[1].Msg)
}

func TestUnicode(t *testing.T) {
	toks, errs := tokenize(t, "x \u00e9 y")

	assert.Equal(t, []string{"x", "y"}, texts(toks))
	require.Len(t, errs, 1)
	assert.Equal(t, &ast.Span{Pos: 2, End: 4}, errs[0].Span)
	assert.Equal(t, "unexpected character '\u00e9'", errs[0].Msg)

	toks, errs = tokenize(t, "x\u00a0y")
	require.Empty(t, errs)
	require.Len(t, toks, 2)
	assert.Equal(t, ast.Span{Pos: 3, End: 4}, toks[1].Span)
}

func TestEmpty(t *testing.T) {
	toks, errs := tokenize(t, " \n\t// nothing")

	assert.Empty(t, toks)
	assert.Empty(t, errs)
}

func TestChars(t *testing.T) {
	cs := NewChars("a{~")

	assert.True(t, cs.Has('a'))
	assert.True(t, cs.Has('{'))
	assert.True(t, cs.Has('~'))
	assert.False(t, cs.Has('b'))
	assert.False(t, cs.Has(0xc3))

	assert.Panics(t, func() { NewChars("\u00e9") })
}
