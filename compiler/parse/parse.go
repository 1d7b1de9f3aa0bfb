package parse

import (
	"context"
	"fmt"
	"strings"

	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/rhedgeco/cmpe152-compiler-project/compiler/ast"
	"github.com/rhedgeco/cmpe152-compiler-project/compiler/diag"
	"github.com/rhedgeco/cmpe152-compiler-project/compiler/lex"
)

type (
	State struct {
		toks []lex.Token
		i    int
		eof  int

		errs diag.List

		tr tlog.Span
	}

	// UnexpectedError describes a token (or the end of input, if Token is nil)
	// the grammar had no rule for.
	UnexpectedError struct {
		Token *lex.Token
		Want  []string
	}
)

// ParseSource tokenizes and parses src.
// Lex errors come before parse errors in the returned list.
func ParseSource(ctx context.Context, src []byte) (*ast.Prog, diag.List) {
	toks, errs := lex.Tokenize(ctx, src)

	p, perrs := Parse(ctx, toks, len(src))

	return p, append(errs, perrs...)
}

// Parse builds a program from toks.
// eof is the source length, used to locate errors at the end of input.
// Malformed blocks are recovered so one pass reports as many errors as it can.
func Parse(ctx context.Context, toks []lex.Token, eof int) (*ast.Prog, diag.List) {
	s := New(ctx, toks, eof)

	p := s.Prog()

	return p, s.errs
}

func New(ctx context.Context, toks []lex.Token, eof int) *State {
	return &State{
		toks: toks,
		eof:  eof,
		tr:   tlog.SpanFromContext(ctx),
	}
}

func (s *State) Errors() diag.List { return s.errs }

// Prog parses definitions until the end of input.
func (s *State) Prog() *ast.Prog {
	p := &ast.Prog{}

	if len(s.toks) == 0 {
		s.errs = append(s.errs, s.unexpected("definition"))
		return p
	}

	for s.i < len(s.toks) {
		st := s.i

		d, err := s.parseDef()
		if err != nil {
			s.errs = append(s.errs, err)
			s.sync(st)

			continue
		}

		p.Defs = append(p.Defs, d)
	}

	return p
}

func (s *State) parseDef() (ast.Def, *diag.Error) {
	if tk, ok := s.peek(); ok && tk.Kind == lex.Struct {
		return s.parseStruct()
	}

	return s.parseFunc()
}

func (s *State) parseStruct() (_ ast.Def, err *diag.Error) {
	kw := s.next()

	name, err := s.expectIdent("struct name")
	if err != nil {
		return nil, err
	}

	var params []ast.Param

	_, ok, err := s.delimited('{', '}', func() *diag.Error {
		for !s.peekIs(lex.Ctrl, '}') {
			p, err := s.parseParam()
			if err != nil {
				return err
			}

			_, err = s.expect(lex.Ctrl, ';')
			if err != nil {
				return err
			}

			params = append(params, p)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if !ok {
		params = nil
	}

	semi, err := s.expect(lex.Ctrl, ';')
	if err != nil {
		return nil, err
	}

	return &ast.Struct{
		Span:   kw.Span.Join(semi.Span),
		Name:   name.Text,
		Params: params,
	}, nil
}

func (s *State) parseFunc() (_ ast.Def, err *diag.Error) {
	ret, err := s.expectIdent("return type")
	if err != nil {
		return nil, err
	}

	name, err := s.expectIdent("function name")
	if err != nil {
		return nil, err
	}

	var params []ast.Param

	_, ok, err := s.delimited('(', ')', func() *diag.Error {
		if s.peekIs(lex.Ctrl, ')') {
			return nil
		}

		for {
			p, err := s.parseParam()
			if err != nil {
				return err
			}

			params = append(params, p)

			if !s.peekIs(lex.Ctrl, ',') {
				return nil
			}

			s.next()
		}
	})
	if err != nil {
		return nil, err
	}

	if !ok {
		params = nil
	}

	var body []ast.Stmt

	end, ok, err := s.delimited('{', '}', func() *diag.Error {
		for !s.peekIs(lex.Ctrl, '}') {
			st, err := s.parseStmt()
			if err != nil {
				return err
			}

			body = append(body, st)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if !ok {
		body = nil
	}

	return &ast.Func{
		Span:   ret.Span.Join(end),
		Name:   name.Text,
		Params: params,
		Ret:    ret.Text,
		Body:   body,
	}, nil
}

func (s *State) parseParam() (p ast.Param, err *diag.Error) {
	typ, err := s.expectIdent("parameter type")
	if err != nil {
		return p, err
	}

	name, err := s.expectIdent("parameter name")
	if err != nil {
		return p, err
	}

	return ast.Param{
		Span: typ.Span.Join(name.Span),
		Type: typ.Text,
		Name: name.Text,
	}, nil
}

func (s *State) parseStmt() (_ ast.Stmt, err *diag.Error) {
	tk, ok := s.peek()
	if !ok {
		return nil, s.unexpected("statement")
	}

	switch tk.Kind {
	case lex.Return:
		s.next()

		x, err := s.parseExpr()
		if err != nil {
			return nil, err
		}

		semi, err := s.expect(lex.Ctrl, ';')
		if err != nil {
			return nil, err
		}

		return &ast.Return{
			Span: tk.Span.Join(semi.Span),
			X:    x,
		}, nil
	case lex.Ident:
		s.next()

		name, err := s.expectIdent("variable name")
		if err != nil {
			return nil, err
		}

		_, err = s.expect(lex.Op, '=')
		if err != nil {
			return nil, err
		}

		x, err := s.parseExpr()
		if err != nil {
			return nil, err
		}

		semi, err := s.expect(lex.Ctrl, ';')
		if err != nil {
			return nil, err
		}

		return &ast.Assign{
			Span: tk.Span.Join(semi.Span),
			Type: tk.Text,
			Name: name.Text,
			X:    x,
		}, nil
	default:
		return nil, s.unexpected("return", "identifier")
	}
}

func (s *State) parseExpr() (ast.Expr, *diag.Error) {
	return s.parseSum()
}

func (s *State) parseSum() (ast.Expr, *diag.Error) {
	return s.leftToRight("+-", s.parseProduct)
}

func (s *State) parseProduct() (ast.Expr, *diag.Error) {
	return s.leftToRight("*/", s.parseUnary)
}

// leftToRight parses arg (op arg)* folding to the left.
func (s *State) leftToRight(ops string, arg func() (ast.Expr, *diag.Error)) (ast.Expr, *diag.Error) {
	x, err := arg()
	if err != nil {
		return nil, err
	}

	for {
		tk, ok := s.peek()
		if !ok || tk.Kind != lex.Op || strings.IndexByte(ops, tk.Char) < 0 {
			return x, nil
		}

		s.next()

		r, err := arg()
		if err != nil {
			return nil, err
		}

		x = &ast.Binary{
			Span: x.Bounds().Join(r.Bounds()),
			Op:   ast.Op(tk.Char),
			L:    x,
			R:    r,
		}
	}
}

func (s *State) parseUnary() (ast.Expr, *diag.Error) {
	var negs []lex.Token

	for s.peekIs(lex.Op, '-') {
		negs = append(negs, s.next())
	}

	x, err := s.parseAtom()
	if err != nil {
		return nil, err
	}

	for j := len(negs) - 1; j >= 0; j-- {
		x = &ast.Neg{
			Span: negs[j].Span.Join(x.Bounds()),
			X:    x,
		}
	}

	return x, nil
}

func (s *State) parseAtom() (_ ast.Expr, err *diag.Error) {
	tk, ok := s.peek()

	switch {
	case !ok:
		return nil, s.unexpected("expression")
	case tk.Kind == lex.Num:
		s.next()

		return &ast.Int{Span: tk.Span, Text: tk.Text}, nil
	case tk.Is(lex.Ctrl, '('):
		var x ast.Expr

		sp, ok, err := s.delimited('(', ')', func() (err *diag.Error) {
			x, err = s.parseExpr()
			return err
		})
		if err != nil {
			return nil, err
		}

		if !ok {
			return &ast.Err{Span: sp}, nil
		}

		return x, nil
	case tk.Kind == lex.Ident:
		s.next()

		if !s.peekIs(lex.Ctrl, '(') {
			return &ast.Var{Span: tk.Span, Name: tk.Text}, nil
		}

		var args []ast.Expr

		end, ok, err := s.delimited('(', ')', func() *diag.Error {
			if s.peekIs(lex.Ctrl, ')') {
				return nil
			}

			for {
				a, err := s.parseExpr()
				if err != nil {
					return err
				}

				args = append(args, a)

				if !s.peekIs(lex.Ctrl, ',') {
					return nil
				}

				s.next()
			}
		})
		if err != nil {
			return nil, err
		}

		if !ok {
			args = nil
		}

		return &ast.Call{
			Span: tk.Span.Join(end),
			Name: tk.Text,
			Args: args,
		}, nil
	default:
		return nil, s.unexpected("expression")
	}
}

// delimited parses open, then items, then close.
// If items fail the whole block is skipped to its matching close,
// the failure is recorded and ok is false: the caller must drop what items collected.
// err is returned only when the block can't be recovered.
func (s *State) delimited(open, close byte, items func() *diag.Error) (sp ast.Span, ok bool, err *diag.Error) {
	st := s.i

	otk, err := s.expect(lex.Ctrl, open)
	if err != nil {
		return sp, false, err
	}

	err = items()
	if err == nil {
		var ctk lex.Token

		ctk, err = s.expect(lex.Ctrl, close)
		if err == nil {
			return otk.Span.Join(ctk.Span), true, nil
		}
	}

	end, found := s.matching(st, open, close)
	if !found {
		return sp, false, diag.New(diag.Parse, diag.UnclosedDelim, otk.Span, "unclosed delimiter %q", open)
	}

	if s.tr.If("parse_recover") {
		s.tr.Printw("recover block", "open", string(open), "from", otk.Span, "to", s.toks[end].Span, "err", err)
	}

	s.errs = append(s.errs, err)
	s.i = end + 1

	return otk.Span.Join(s.toks[end].Span), false, nil
}

// matching returns the index of the close delimiter matching the open one at st.
func (s *State) matching(st int, open, close byte) (int, bool) {
	d := 0

	for j := st; j < len(s.toks); j++ {
		switch tk := s.toks[j]; {
		case tk.Is(lex.Ctrl, open):
			d++
		case tk.Is(lex.Ctrl, close):
			d--

			if d == 0 {
				return j, true
			}
		}
	}

	return -1, false
}

// sync skips the rest of a broken definition starting at st.
// It stops after a } that closes every bracket opened since st,
// or after a ; outside of brackets. At least one token is skipped.
func (s *State) sync(st int) {
	d := 0

	j := st
	for j < len(s.toks) {
		tk := s.toks[j]
		j++

		if tk.Kind != lex.Ctrl {
			continue
		}

		switch tk.Char {
		case '(', '[', '{':
			d++
		case ')', ']':
			if d > 0 {
				d--
			}
		case '}':
			if d > 0 {
				d--
			}

			if d == 0 {
				s.i = j
				return
			}
		case ';':
			if d == 0 {
				s.i = j
				return
			}
		}
	}

	s.i = j
}

// Incomplete reports whether toks leave a { or ( open.
func Incomplete(toks []lex.Token) bool {
	d := 0

	for _, tk := range toks {
		if tk.Kind != lex.Ctrl {
			continue
		}

		switch tk.Char {
		case '{', '(':
			d++
		case '}', ')':
			d--
		}
	}

	return d > 0
}

func (s *State) peek() (lex.Token, bool) {
	if s.i == len(s.toks) {
		return lex.Token{}, false
	}

	return s.toks[s.i], true
}

func (s *State) peekIs(k lex.Kind, c byte) bool {
	tk, ok := s.peek()

	return ok && tk.Is(k, c)
}

func (s *State) next() (tk lex.Token) {
	if s.tr.If("parse_next") {
		defer func(st int) {
			s.tr.Printw("next token", "st", st, "tk", tk, "from", loc.Callers(1, 3))
		}(s.i)
	}

	tk = s.toks[s.i]
	s.i++

	return tk
}

func (s *State) expect(k lex.Kind, c byte) (lex.Token, *diag.Error) {
	if !s.peekIs(k, c) {
		return lex.Token{}, s.unexpected(fmt.Sprintf("%q", c))
	}

	return s.next(), nil
}

func (s *State) expectIdent(what string) (lex.Token, *diag.Error) {
	tk, ok := s.peek()
	if !ok || tk.Kind != lex.Ident {
		return lex.Token{}, s.unexpected(what)
	}

	return s.next(), nil
}

func (s *State) unexpected(want ...string) *diag.Error {
	e := UnexpectedError{Want: want}

	if tk, ok := s.peek(); ok {
		e.Token = &tk

		return diag.Wrap(e, diag.Parse, diag.UnexpectedToken, tk.Span)
	}

	return diag.Wrap(e, diag.Parse, diag.UnexpectedEOF, ast.Span{Pos: s.eof, End: s.eof + 1})
}

func (e UnexpectedError) Error() string {
	want := strings.Join(e.Want, " or ")

	if e.Token == nil {
		return fmt.Sprintf("unexpected end of input, want %v", want)
	}

	return fmt.Sprintf("unexpected token %q, want %v", e.Token.String(), want)
}
