// Package diag holds the error facts produced by every stage of the pipeline.
//
// Lex and parse errors are collected into a List and never stop their pass.
// Load and runtime errors are fatal and returned alone.
package diag

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nikandfor/hacked/hfmt"
	"nikand.dev/go/heap"
	"tlog.app/go/errors"

	"github.com/rhedgeco/cmpe152-compiler-project/compiler/ast"
)

type (
	Kind int
	Code int

	Error struct {
		Kind Kind
		Code Code

		// Span is nil when the fact has no source location, like a missing main.
		Span *ast.Span

		Msg string
		Err error
	}

	List []*Error
)

const (
	Lex Kind = iota + 1
	Parse
	Load
	Runtime
)

const (
	_ Code = iota

	UnexpectedChar

	UnexpectedToken
	UnexpectedEOF
	UnclosedDelim

	DuplicateFunc
	MissingMain
	BadMain

	FellOffEnd
	Placeholder
	Undeclared
	UnknownFunc
	DivByZero
	BadLiteral
	ArityMismatch
)

var codeNames = []string{
	UnexpectedChar:  "unexpected_char",
	UnexpectedToken: "unexpected_token",
	UnexpectedEOF:   "unexpected_eof",
	UnclosedDelim:   "unclosed_delim",
	DuplicateFunc:   "duplicate_func",
	MissingMain:     "missing_main",
	BadMain:         "bad_main",
	FellOffEnd:      "fell_off_end",
	Placeholder:     "placeholder",
	Undeclared:      "undeclared",
	UnknownFunc:     "unknown_func",
	DivByZero:       "div_by_zero",
	BadLiteral:      "bad_literal",
	ArityMismatch:   "arity_mismatch",
}

func New(k Kind, c Code, s ast.Span, format string, args ...any) *Error {
	return &Error{
		Kind: k,
		Code: c,
		Span: &s,
		Msg:  fmt.Sprintf(format, args...),
	}
}

func NewNoSpan(k Kind, c Code, format string, args ...any) *Error {
	return &Error{
		Kind: k,
		Code: c,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Wrap makes a fact out of a more detailed error, taking its message.
func Wrap(err error, k Kind, c Code, s ast.Span) *Error {
	return &Error{
		Kind: k,
		Code: c,
		Span: &s,
		Msg:  err.Error(),
		Err:  err,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v error: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Fatal reports whether the error ends evaluation.
func (e *Error) Fatal() bool {
	return e.Kind == Load || e.Kind == Runtime
}

// As extracts the first diagnostic in err's chain.
func As(err error) (*Error, bool) {
	var e *Error

	if !errors.As(err, &e) {
		return nil, false
	}

	return e, true
}

// Is reports whether err carries diagnostics, a single one or a List.
func Is(err error) bool {
	var l List

	if errors.As(err, &l) {
		return true
	}

	_, ok := As(err)

	return ok
}

func (k Kind) String() string {
	switch k {
	case Lex:
		return "lex"
	case Parse:
		return "parse"
	case Load:
		return "load"
	case Runtime:
		return "runtime"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (c Code) String() string {
	if c > 0 && int(c) < len(codeNames) {
		return codeNames[c]
	}

	return fmt.Sprintf("Code(%d)", int(c))
}

// Err returns l as an error, or nil if it is empty.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}

	return l
}

func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}

	var b strings.Builder

	fmt.Fprintf(&b, "%d errors:", len(l))

	for _, e := range l {
		b.WriteString("\n\t")
		b.WriteString(e.Error())
	}

	return b.String()
}

// Sorted returns a copy of l ordered by source position.
// Errors without a span go last in their original order.
func (l List) Sorted() List {
	h := heap.Heap[item]{Less: itemLess}

	for i, e := range l {
		h.Push(item{e: e, seq: i})
	}

	r := make(List, 0, len(l))

	for h.Len() != 0 {
		r = append(r, h.Pop().e)
	}

	return r
}

type item struct {
	e   *Error
	seq int
}

func itemLess(d []item, i, j int) bool {
	a, b := d[i].e.Span, d[j].e.Span

	switch {
	case a == nil && b == nil:
		return d[i].seq < d[j].seq
	case a == nil:
		return false
	case b == nil:
		return true
	case a.Pos != b.Pos:
		return a.Pos < b.Pos
	case a.End != b.End:
		return a.End < b.End
	default:
		return d[i].seq < d[j].seq
	}
}

// Position returns the 1-based line and column of byte offset pos in src.
// Columns count characters, not bytes.
func Position(src []byte, pos int) (line, col int) {
	if pos > len(src) {
		pos = len(src)
	}

	line, col = 1, 1

	for i := 0; i < pos; {
		r, w := utf8.DecodeRune(src[i:])
		i += w

		if r == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}

	return line, col
}

// AppendText renders err as "name:line:col: kind error: message" lines.
// A List is rendered one error per line in source order.
// Without src positions are printed as byte ranges.
func AppendText(b []byte, name string, src []byte, err error) []byte {
	var l List

	if errors.As(err, &l) {
		for _, e := range l.Sorted() {
			b = appendError(b, name, src, e)
		}

		return b
	}

	if e, ok := As(err); ok {
		return appendError(b, name, src, e)
	}

	return hfmt.Appendf(b, "%s: %v\n", name, err)
}

func appendError(b []byte, name string, src []byte, e *Error) []byte {
	switch {
	case e.Span == nil:
		b = hfmt.Appendf(b, "%s: ", name)
	case src == nil:
		b = hfmt.Appendf(b, "%s:@%d..%d: ", name, e.Span.Pos, e.Span.End)
	default:
		line, col := Position(src, e.Span.Pos)
		b = hfmt.Appendf(b, "%s:%d:%d: ", name, line, col)
	}

	return hfmt.Appendf(b, "%v error: %s\n", e.Kind, e.Msg)
}
