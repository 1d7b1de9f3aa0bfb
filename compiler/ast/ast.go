package ast

import "tlog.app/go/tlog/tlwire"

type (
	// Span is a half-open byte range [Pos, End) of the source text.
	Span struct {
		Pos int `json:"pos"`
		End int `json:"end"`
	}

	Node interface {
		Bounds() Span
	}

	Def interface {
		Node
		def()
	}

	Stmt interface {
		Node
		stmt()
	}

	Expr interface {
		Node
		expr()
	}

	Prog struct {
		Defs []Def
	}

	// Struct definitions are parsed and kept but never evaluated.
	Struct struct {
		Span Span

		Name   string
		Params []Param
	}

	Func struct {
		Span Span

		Name   string
		Params []Param
		Ret    string
		Body   []Stmt
	}

	Param struct {
		Span Span

		Type string
		Name string
	}

	// Invalid stands in for a statement that failed to parse.
	Invalid struct {
		Span Span
	}

	Return struct {
		Span Span

		X Expr
	}

	Assign struct {
		Span Span

		Type string
		Name string
		X    Expr
	}

	// Err stands in for an expression that failed to parse.
	Err struct {
		Span Span
	}

	// Int keeps the literal text as written.
	Int struct {
		Span Span

		Text string
	}

	Neg struct {
		Span Span

		X Expr
	}

	Binary struct {
		Span Span

		Op Op
		L  Expr
		R  Expr
	}

	Var struct {
		Span Span

		Name string
	}

	Call struct {
		Span Span

		Name string
		Args []Expr
	}

	Op byte
)

const (
	Add Op = '+'
	Sub Op = '-'
	Mul Op = '*'
	Div Op = '/'
)

func (x *Struct) Bounds() Span  { return x.Span }
func (x *Func) Bounds() Span    { return x.Span }
func (x *Param) Bounds() Span   { return x.Span }
func (x *Invalid) Bounds() Span { return x.Span }
func (x *Return) Bounds() Span  { return x.Span }
func (x *Assign) Bounds() Span  { return x.Span }
func (x *Err) Bounds() Span     { return x.Span }
func (x *Int) Bounds() Span     { return x.Span }
func (x *Neg) Bounds() Span     { return x.Span }
func (x *Binary) Bounds() Span  { return x.Span }
func (x *Var) Bounds() Span     { return x.Span }
func (x *Call) Bounds() Span    { return x.Span }

func (*Struct) def() {}
func (*Func) def()   {}

func (*Invalid) stmt() {}
func (*Return) stmt()  {}
func (*Assign) stmt()  {}

func (*Err) expr()    {}
func (*Int) expr()    {}
func (*Neg) expr()    {}
func (*Binary) expr() {}
func (*Var) expr()    {}
func (*Call) expr()   {}

// Join returns the smallest span covering both s and e.
func (s Span) Join(e Span) Span {
	if e.Pos < s.Pos {
		s.Pos = e.Pos
	}

	if e.End > s.End {
		s.End = e.End
	}

	return s
}

func (s Span) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 2)
	b = e.AppendKeyInt(b, "pos", s.Pos)
	b = e.AppendKeyInt(b, "end", s.End)

	return b
}

// Name returns the operator name used by the tree codec.
func (op Op) Name() string {
	switch op {
	case Add:
		return "Add"
	case Sub:
		return "Sub"
	case Mul:
		return "Mul"
	case Div:
		return "Div"
	default:
		return ""
	}
}

func (op Op) String() string {
	return string(op)
}

// Funcs returns function definitions in declaration order.
func (p *Prog) Funcs() (l []*Func) {
	for _, d := range p.Defs {
		if f, ok := d.(*Func); ok {
			l = append(l, f)
		}
	}

	return l
}
