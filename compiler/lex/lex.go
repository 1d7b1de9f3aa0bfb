package lex

import (
	"context"
	"fmt"
	"unicode"
	"unicode/utf8"

	"tlog.app/go/tlog"

	"github.com/rhedgeco/cmpe152-compiler-project/compiler/ast"
	"github.com/rhedgeco/cmpe152-compiler-project/compiler/diag"
)

type (
	Kind uint8

	Token struct {
		Kind Kind

		Char byte   // Op and Ctrl
		Text string // Ident and Num

		Span ast.Span
	}

	// Chars is a set of ASCII characters.
	Chars [2]uint64
)

const (
	_ Kind = iota
	Return
	Struct
	Op
	Ident
	Ctrl
	Num
)

var (
	OpChars   = NewChars("+-*/!=")
	CtrlChars = NewChars("()[]{};,")
)

// Tokenize splits src into tokens.
// It never fails: a run of characters no token can start with
// is reported as one error and skipped.
func Tokenize(ctx context.Context, src []byte) (toks []Token, errs diag.List) {
	tr := tlog.SpanFromContext(ctx)

	bad := -1

	flush := func(i int) {
		if bad < 0 {
			return
		}

		errs = append(errs, unexpected(src, bad, i))
		bad = -1
	}

	for i := 0; i < len(src); {
		if j := skipSpaces(src, i); j != i {
			flush(i)
			i = j

			continue
		}

		tk, j := next(src, i)
		if j == i {
			if bad < 0 {
				bad = i
			}

			_, w := utf8.DecodeRune(src[i:])
			i += w

			continue
		}

		flush(i)

		if tr.If("lex_token") {
			tr.Printw("token", "tk", tk, "span", tk.Span)
		}

		toks = append(toks, tk)
		i = j
	}

	flush(len(src))

	return toks, errs
}

func next(b []byte, st int) (tk Token, i int) {
	c := b[st]

	switch {
	case c >= '0' && c <= '9':
		i = skipNum(b, st)
		tk = Token{Kind: Num, Text: string(b[st:i])}
	case OpChars.Has(c):
		i = st + 1
		tk = Token{Kind: Op, Char: c}
	case CtrlChars.Has(c):
		i = st + 1
		tk = Token{Kind: Ctrl, Char: c}
	case isIdentStart(c):
		i = skipIdent(b, st+1)

		switch s := string(b[st:i]); s {
		case "return":
			tk = Token{Kind: Return}
		case "struct":
			tk = Token{Kind: Struct}
		default:
			tk = Token{Kind: Ident, Text: s}
		}
	default:
		return Token{}, st
	}

	tk.Span = ast.Span{Pos: st, End: i}

	return tk, i
}

func unexpected(src []byte, st, end int) *diag.Error {
	r, w := utf8.DecodeRune(src[st:])

	if st+w == end {
		return diag.New(diag.Lex, diag.UnexpectedChar, ast.Span{Pos: st, End: end}, "unexpected character %q", r)
	}

	return diag.New(diag.Lex, diag.UnexpectedChar, ast.Span{Pos: st, End: end}, "unexpected characters %q", src[st:end])
}

// skipSpaces skips whitespace and line comments.
func skipSpaces(b []byte, i int) int {
	for i < len(b) {
		if b[i] == '/' && i+1 < len(b) && b[i+1] == '/' {
			i = skipLine(b, i)
			continue
		}

		if b[i] < utf8.RuneSelf {
			if !unicode.IsSpace(rune(b[i])) {
				break
			}

			i++

			continue
		}

		r, w := utf8.DecodeRune(b[i:])
		if !unicode.IsSpace(r) {
			break
		}

		i += w
	}

	return i
}

func skipLine(b []byte, i int) int {
	for i < len(b) && b[i] != '\n' {
		i++
	}

	if i < len(b) {
		i++
	}

	return i
}

// skipNum skips an integer with an optional fraction.
// A leading zero is a whole integer on its own, so 01 is two numbers.
// The fraction is taken only when a digit follows the dot.
func skipNum(b []byte, i int) int {
	if b[i] == '0' {
		i++
	} else {
		i = skipDigits(b, i)
	}

	if i+1 < len(b) && b[i] == '.' && isDigit(b[i+1]) {
		i = skipDigits(b, i+1)
	}

	return i
}

func skipDigits(b []byte, i int) int {
	for i < len(b) && isDigit(b[i]) {
		i++
	}

	return i
}

func skipIdent(b []byte, i int) int {
	for i < len(b) && (isIdentStart(b[i]) || isDigit(b[i])) {
		i++
	}

	return i
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func NewChars(s string) (cs Chars) {
	for i := 0; i < len(s); i++ {
		q := s[i]
		if q >= 128 {
			panic("non-ascii char")
		}

		cs[q/64] |= 1 << (q % 64)
	}

	return
}

func (cs Chars) Has(c byte) bool {
	return c < 128 && cs[c/64]&(1<<(c%64)) != 0
}

func (k Kind) String() string {
	switch k {
	case Return:
		return "return"
	case Struct:
		return "struct"
	case Op:
		return "operator"
	case Ident:
		return "identifier"
	case Ctrl:
		return "control"
	case Num:
		return "number"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// String returns the token as it appears in the source.
func (t Token) String() string {
	switch t.Kind {
	case Return, Struct:
		return t.Kind.String()
	case Op, Ctrl:
		return string(t.Char)
	default:
		return t.Text
	}
}

// Is reports whether t is the Op or Ctrl token for c.
func (t Token) Is(k Kind, c byte) bool {
	return t.Kind == k && t.Char == c
}
