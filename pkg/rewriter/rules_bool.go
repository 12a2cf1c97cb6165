package rewriter

import (
	"github.com/vhavlena/veritla/pkg/arena"
	"github.com/vhavlena/veritla/pkg/ir"
	"github.com/vhavlena/veritla/pkg/types"
)

// boolOpRule rewrites the boolean connectives: the arguments are rewritten
// left to right, then a fresh predicate cell is constrained to the
// connective over the argument cells.
type boolOpRule struct{ rw *Rewriter }

func (r *boolOpRule) Name() string { return "BoolOp" }

func (r *boolOpRule) Applicable(s *SymbState) bool {
	if s.Ex.Kind != ir.KindOper {
		return false
	}
	switch s.Ex.Op {
	case ir.OpAnd, ir.OpOr, ir.OpNot, ir.OpImplies, ir.OpIff:
		return true
	}
	return false
}

func (r *boolOpRule) Apply(s *SymbState) (*SymbState, error) {
	rw := r.rw
	state := s
	argRefs := make([]*ir.Expr, 0, len(s.Ex.Args))
	for _, arg := range s.Ex.Args {
		var cell arena.Cell
		var err error
		state, cell, err = rw.RewriteToCell(state, arg)
		if err != nil {
			return nil, err
		}
		argRefs = append(argRefs, rw.CellRef(cell.ID()))
	}

	p := rw.NewCell(types.NewBoolType())
	def := ir.NewOper(rw.ids, s.Ex.Op, argRefs...)
	iff := ir.NewOper(rw.ids, ir.OpIff, rw.CellRef(p.ID()), def)
	if err := rw.Gw.AssertGround(iff); err != nil {
		return nil, err
	}
	return state.WithEx(rw.CellRef(p.ID())), nil
}
