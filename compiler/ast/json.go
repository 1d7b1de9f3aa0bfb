package ast

import (
	"encoding/json"
	"io"

	"tlog.app/go/errors"
)

type (
	// node is the wire form of every tree node.
	// Kind selects which of the other fields are meaningful.
	node struct {
		Kind string `json:"kind"`
		Span Span   `json:"span"`

		Name string `json:"name,omitempty"`
		Type string `json:"type,omitempty"`
		Ret  string `json:"ret,omitempty"`
		Text string `json:"text,omitempty"`

		Params []*node `json:"params,omitempty"`
		Body   []*node `json:"body,omitempty"`
		Args   []*node `json:"args,omitempty"`

		X *node `json:"x,omitempty"`
		L *node `json:"l,omitempty"`
		R *node `json:"r,omitempty"`
	}

	prog struct {
		Defs []*node `json:"defs"`
	}
)

// Encode writes p to w as indented JSON.
func Encode(w io.Writer, p *Prog) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(p)
}

// Decode reads a tree written by Encode.
func Decode(r io.Reader) (*Prog, error) {
	var p Prog

	err := json.NewDecoder(r).Decode(&p)
	if err != nil {
		return nil, errors.Wrap(err, "decode tree")
	}

	return &p, nil
}

func (p *Prog) MarshalJSON() ([]byte, error) {
	w := prog{Defs: []*node{}}

	for _, d := range p.Defs {
		n, err := toNode(d)
		if err != nil {
			return nil, err
		}

		w.Defs = append(w.Defs, n)
	}

	return json.Marshal(w)
}

func (p *Prog) UnmarshalJSON(data []byte) error {
	var w prog

	err := json.Unmarshal(data, &w)
	if err != nil {
		return err
	}

	p.Defs = nil

	for i, n := range w.Defs {
		d, err := n.def()
		if err != nil {
			return errors.Wrap(err, "def %d", i)
		}

		p.Defs = append(p.Defs, d)
	}

	return nil
}

func toNode(x Node) (n *node, err error) {
	switch x := x.(type) {
	case *Struct:
		return &node{Kind: "Struct", Span: x.Span, Name: x.Name, Params: paramNodes(x.Params)}, nil
	case *Func:
		n = &node{Kind: "Func", Span: x.Span, Name: x.Name, Ret: x.Ret, Params: paramNodes(x.Params)}

		for _, s := range x.Body {
			sn, err := toNode(s)
			if err != nil {
				return nil, errors.Wrap(err, "func %v", x.Name)
			}

			n.Body = append(n.Body, sn)
		}

		return n, nil
	case *Invalid:
		return &node{Kind: "Invalid", Span: x.Span}, nil
	case *Return:
		n = &node{Kind: "Return", Span: x.Span}
		n.X, err = toNode(x.X)

		return n, err
	case *Assign:
		n = &node{Kind: "Assign", Span: x.Span, Type: x.Type, Name: x.Name}
		n.X, err = toNode(x.X)

		return n, err
	case *Err:
		return &node{Kind: "Err", Span: x.Span}, nil
	case *Int:
		return &node{Kind: "Int", Span: x.Span, Text: x.Text}, nil
	case *Neg:
		n = &node{Kind: "Neg", Span: x.Span}
		n.X, err = toNode(x.X)

		return n, err
	case *Binary:
		n = &node{Kind: x.Op.Name(), Span: x.Span}
		if n.Kind == "" {
			return nil, errors.New("unsupported operator: %q", x.Op)
		}

		n.L, err = toNode(x.L)
		if err != nil {
			return nil, errors.Wrap(err, "left")
		}

		n.R, err = toNode(x.R)
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}

		return n, nil
	case *Var:
		return &node{Kind: "Var", Span: x.Span, Name: x.Name}, nil
	case *Call:
		n = &node{Kind: "Call", Span: x.Span, Name: x.Name}

		for i, a := range x.Args {
			an, err := toNode(a)
			if err != nil {
				return nil, errors.Wrap(err, "arg %d", i)
			}

			n.Args = append(n.Args, an)
		}

		return n, nil
	default:
		return nil, errors.New("unsupported node: %T", x)
	}
}

func paramNodes(ps []Param) (l []*node) {
	for _, p := range ps {
		l = append(l, &node{Kind: "Param", Span: p.Span, Type: p.Type, Name: p.Name})
	}

	return l
}

func (n *node) def() (Def, error) {
	if n == nil {
		return nil, errors.New("definition expected")
	}

	switch n.Kind {
	case "Struct":
		ps, err := n.params()
		if err != nil {
			return nil, err
		}

		return &Struct{Span: n.Span, Name: n.Name, Params: ps}, nil
	case "Func":
		ps, err := n.params()
		if err != nil {
			return nil, err
		}

		f := &Func{Span: n.Span, Name: n.Name, Params: ps, Ret: n.Ret}

		for i, s := range n.Body {
			st, err := s.stmt()
			if err != nil {
				return nil, errors.Wrap(err, "func %v: stmt %d", n.Name, i)
			}

			f.Body = append(f.Body, st)
		}

		return f, nil
	default:
		return nil, errors.New("unexpected definition kind: %q", n.Kind)
	}
}

func (n *node) params() (l []Param, err error) {
	for _, p := range n.Params {
		if p == nil || p.Kind != "Param" {
			return nil, errors.New("param expected")
		}

		l = append(l, Param{Span: p.Span, Type: p.Type, Name: p.Name})
	}

	return l, nil
}

func (n *node) stmt() (Stmt, error) {
	if n == nil {
		return nil, errors.New("statement expected")
	}

	switch n.Kind {
	case "Invalid":
		return &Invalid{Span: n.Span}, nil
	case "Return":
		x, err := n.X.expr()
		if err != nil {
			return nil, errors.Wrap(err, "return")
		}

		return &Return{Span: n.Span, X: x}, nil
	case "Assign":
		x, err := n.X.expr()
		if err != nil {
			return nil, errors.Wrap(err, "assign %v", n.Name)
		}

		return &Assign{Span: n.Span, Type: n.Type, Name: n.Name, X: x}, nil
	default:
		return nil, errors.New("unexpected statement kind: %q", n.Kind)
	}
}

func (n *node) expr() (Expr, error) {
	if n == nil {
		return nil, errors.New("expression expected")
	}

	switch n.Kind {
	case "Err":
		return &Err{Span: n.Span}, nil
	case "Int":
		return &Int{Span: n.Span, Text: n.Text}, nil
	case "Neg":
		x, err := n.X.expr()
		if err != nil {
			return nil, errors.Wrap(err, "neg")
		}

		return &Neg{Span: n.Span, X: x}, nil
	case "Add", "Sub", "Mul", "Div":
		l, err := n.L.expr()
		if err != nil {
			return nil, errors.Wrap(err, "left")
		}

		r, err := n.R.expr()
		if err != nil {
			return nil, errors.Wrap(err, "right")
		}

		return &Binary{Span: n.Span, Op: opByName[n.Kind], L: l, R: r}, nil
	case "Var":
		return &Var{Span: n.Span, Name: n.Name}, nil
	case "Call":
		c := &Call{Span: n.Span, Name: n.Name}

		for i, a := range n.Args {
			x, err := a.expr()
			if err != nil {
				return nil, errors.Wrap(err, "call %v: arg %d", n.Name, i)
			}

			c.Args = append(c.Args, x)
		}

		return c, nil
	default:
		return nil, errors.New("unexpected expression kind: %q", n.Kind)
	}
}

var opByName = map[string]Op{
	"Add": Add,
	"Sub": Sub,
	"Mul": Mul,
	"Div": Div,
}
