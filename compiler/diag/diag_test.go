package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"github.com/rhedgeco/cmpe152-compiler-project/compiler/ast"
)

func span(p, e int) ast.Span { return ast.Span{Pos: p, End: e} }

func TestError(t *testing.T) {
	e := New(Parse, UnexpectedToken, span(3, 4), "unexpected token %q", ";")

	assert.Equal(t, `parse error: unexpected token ";"`, e.Error())
	assert.False(t, e.Fatal())
	assert.Equal(t, "unexpected_token", e.Code.String())

	e = NewNoSpan(Load, MissingMain, "no main function")

	assert.Nil(t, e.Span)
	assert.True(t, e.Fatal())
	assert.Equal(t, "load error: no main function", e.Error())

	assert.Equal(t, "Kind(9)", Kind(9).String())
	assert.Equal(t, "Code(99)", Code(99).String())
}

func TestWrapAndAs(t *testing.T) {
	base := errors.New("bad thing")
	e := Wrap(base, Runtime, DivByZero, span(1, 2))

	assert.Equal(t, "bad thing", e.Msg)
	assert.True(t, errors.Is(e, base))

	err := errors.Wrap(e, "run")

	got, ok := As(err)
	require.True(t, ok)
	assert.Same(t, e, got)
	assert.True(t, Is(err))

	_, ok = As(base)
	assert.False(t, ok)
	assert.False(t, Is(base))

	assert.True(t, Is(List{e}))
}

func TestList(t *testing.T) {
	var l List

	assert.NoError(t, l.Err())
	assert.Equal(t, "no errors", l.Error())

	l = append(l, New(Lex, UnexpectedChar, span(0, 1), "a"))
	assert.Equal(t, "lex error: a", l.Err().Error())

	l = append(l, New(Parse, UnexpectedToken, span(2, 3), "b"))
	assert.Equal(t, "2 errors:\n\tlex error: a\n\tparse error: b", l.Error())
}

func TestSorted(t *testing.T) {
	l := List{
		New(Parse, UnexpectedToken, span(10, 11), "p10"),
		NewNoSpan(Load, MissingMain, "nospan1"),
		New(Lex, UnexpectedChar, span(4, 6), "l4"),
		New(Parse, UnexpectedToken, span(4, 5), "p4"),
		NewNoSpan(Load, MissingMain, "nospan2"),
		New(Parse, UnexpectedToken, span(10, 11), "p10b"),
	}

	var msgs []string
	for _, e := range l.Sorted() {
		msgs = append(msgs, e.Msg)
	}

	assert.Equal(t, []string{"p4", "l4", "p10", "p10b", "nospan1", "nospan2"}, msgs)
	assert.Equal(t, "p10", l[0].Msg, "original list is untouched")
}

func TestPosition(t *testing.T) {
	src := []byte("ab\n\u00e9x\n\nz")

	for _, tc := range []struct {
		pos, line, col int
	}{
		{0, 1, 1},
		{2, 1, 3},
		{3, 2, 1},
		{5, 2, 2},
		{7, 3, 1},
		{8, 4, 1},
		{100, 4, 2},
	} {
		line, col := Position(src, tc.pos)

		assert.Equal(t, tc.line, line, "pos %d", tc.pos)
		assert.Equal(t, tc.col, col, "pos %d", tc.pos)
	}
}

func TestAppendText(t *testing.T) {
	src := []byte("int main() {\n\treturn 1 $ ;\n}\n")

	l := List{
		New(Parse, UnexpectedToken, span(25, 26), "second"),
		New(Lex, UnexpectedChar, span(23, 24), "first"),
	}

	b := AppendText(nil, "a.c", src, l)
	assert.Equal(t, "a.c:2:11: lex error: first\na.c:2:13: parse error: second\n", string(b))

	b = AppendText(nil, "a.c", nil, l[0])
	assert.Equal(t, "a.c:@25..26: parse error: second\n", string(b))

	b = AppendText(nil, "a.c", src, NewNoSpan(Load, MissingMain, "no main function"))
	assert.Equal(t, "a.c: load error: no main function\n", string(b))

	b = AppendText([]byte("> "), "a.c", src, errors.New("open failed"))
	assert.Equal(t, "> a.c: open failed\n", string(b))
}
