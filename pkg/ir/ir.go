// Package ir defines the typed intermediate representation consumed by the
// symbolic rewriting engine: a tree of operator applications over literals,
// names, and cell references, where every node carries a unique integer id.
package ir

import (
	"fmt"
	"strings"

	"github.com/vhavlena/veritla/pkg/types"
)

// ExprKind discriminates the payload of an Expr node.
type ExprKind string

const (
	KindBool ExprKind = "bool"
	KindInt  ExprKind = "int"
	KindStr  ExprKind = "str"
	KindName ExprKind = "name"
	KindCell ExprKind = "cell"
	KindOper ExprKind = "oper"
)

// Oper enumerates the operators of the specification language fragment the
// rewriter understands.
type Oper string

const (
	OpAnd     Oper = "and"
	OpOr      Oper = "or"
	OpNot     Oper = "not"
	OpImplies Oper = "implies"
	OpIff     Oper = "iff"

	OpEq Oper = "eq"
	OpNe Oper = "ne"
	OpIn Oper = "in"

	OpLt Oper = "lt"
	OpLe Oper = "le"
	OpGt Oper = "gt"
	OpGe Oper = "ge"

	OpPlus   Oper = "plus"
	OpMinus  Oper = "minus"
	OpMult   Oper = "mult"
	OpUminus Oper = "uminus"

	OpIte     Oper = "ite"
	OpEnumSet Oper = "enumSet"
	OpTuple   Oper = "tuple"
	OpRecord  Oper = "record"
	OpSeq     Oper = "seq"
	OpFunCtor Oper = "funCtor"
	OpDomain  Oper = "domain"

	OpExists Oper = "exists"
	OpForall Oper = "forall"

	OpPrime Oper = "prime"
)

// IdGen issues unique non-negative ids for IR nodes. A single generator is
// created at startup and threaded as a capability into every component that
// allocates IR nodes; it is not safe for concurrent use.
type IdGen struct {
	next int
}

// NewIdGen creates a generator whose first issued id is 0.
func NewIdGen() *IdGen {
	return &IdGen{}
}

// Next returns a fresh unique id.
func (g *IdGen) Next() int {
	id := g.next
	g.next++
	return id
}

// Expr is a node of the typed IR. Exactly one payload field is meaningful,
// selected by Kind. The optional Tp annotation records the cell type of the
// value the node denotes; the rewriter reads it on enumSet, tuple, record and
// seq nodes in preference to the type inferred from the arguments, and
// ignores it on every other node, which may leave it nil.
type Expr struct {
	id   int
	Kind ExprKind

	BoolVal bool
	IntVal  int64
	StrVal  string
	Name    string
	Cell    int

	Op   Oper
	Args []*Expr

	Tp *types.CellType
}

// ID returns the unique id of the node.
func (e *Expr) ID() int {
	return e.id
}

// WithType attaches a cell type annotation and returns the same node.
func (e *Expr) WithType(tp types.CellType) *Expr {
	e.Tp = &tp
	return e
}

// NewBool creates a boolean literal node.
func NewBool(g *IdGen, v bool) *Expr {
	return &Expr{id: g.Next(), Kind: KindBool, BoolVal: v}
}

// NewInt creates an integer literal node.
func NewInt(g *IdGen, v int64) *Expr {
	return &Expr{id: g.Next(), Kind: KindInt, IntVal: v}
}

// NewStr creates a string literal node.
func NewStr(g *IdGen, v string) *Expr {
	return &Expr{id: g.Next(), Kind: KindStr, StrVal: v}
}

// NewName creates a reference to a specification variable or bound name.
func NewName(g *IdGen, name string) *Expr {
	return &Expr{id: g.Next(), Kind: KindName, Name: name}
}

// NewCellRef creates a reference to an arena cell. Cell references only
// appear as rewriting results, never in input modules.
func NewCellRef(g *IdGen, cell int) *Expr {
	return &Expr{id: g.Next(), Kind: KindCell, Cell: cell}
}

// NewOper creates an operator application node.
func NewOper(g *IdGen, op Oper, args ...*Expr) *Expr {
	return &Expr{id: g.Next(), Kind: KindOper, Op: op, Args: args}
}

// NewPrime wraps a variable name into a primed (next-state) reference.
func NewPrime(g *IdGen, name string) *Expr {
	return NewOper(g, OpPrime, NewName(g, name))
}

// IsBoolLit reports whether the node is a boolean literal with the given
// value.
func (e *Expr) IsBoolLit(v bool) bool {
	return e.Kind == KindBool && e.BoolVal == v
}

// IsOper reports whether the node applies the given operator.
func (e *Expr) IsOper(op Oper) bool {
	return e.Kind == KindOper && e.Op == op
}

// PrimedName returns the variable name when the node has the shape
// prime(name), and false otherwise.
func (e *Expr) PrimedName() (string, bool) {
	if !e.IsOper(OpPrime) || len(e.Args) != 1 {
		return "", false
	}
	if e.Args[0].Kind != KindName {
		return "", false
	}
	return e.Args[0].Name, true
}

// String renders the expression as an s-expression; intended for diagnostics
// only, the rendering is not parsed back.
func (e *Expr) String() string {
	switch e.Kind {
	case KindBool:
		return fmt.Sprintf("%v", e.BoolVal)
	case KindInt:
		return fmt.Sprintf("%d", e.IntVal)
	case KindStr:
		return fmt.Sprintf("%q", e.StrVal)
	case KindName:
		return e.Name
	case KindCell:
		return fmt.Sprintf("$c%d", e.Cell)
	case KindOper:
		parts := make([]string, 0, len(e.Args)+1)
		parts = append(parts, string(e.Op))
		for _, a := range e.Args {
			parts = append(parts, a.String())
		}
		return "(" + strings.Join(parts, " ") + ")"
	}
	return "<invalid>"
}
