package rewriter

import (
	"github.com/vhavlena/veritla/pkg/arena"
	"github.com/vhavlena/veritla/pkg/ir"
	"github.com/vhavlena/veritla/pkg/types"
)

// intOpRule rewrites integer arithmetic and comparisons. Arithmetic yields
// a fresh integer cell constrained to the operation; comparisons yield a
// fresh predicate cell.
type intOpRule struct{ rw *Rewriter }

func (r *intOpRule) Name() string { return "IntOp" }

func (r *intOpRule) Applicable(s *SymbState) bool {
	if s.Ex.Kind != ir.KindOper {
		return false
	}
	switch s.Ex.Op {
	case ir.OpPlus, ir.OpMinus, ir.OpMult, ir.OpUminus,
		ir.OpLt, ir.OpLe, ir.OpGt, ir.OpGe:
		return true
	}
	return false
}

func (r *intOpRule) Apply(s *SymbState) (*SymbState, error) {
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

	def := ir.NewOper(rw.ids, s.Ex.Op, argRefs...)
	switch s.Ex.Op {
	case ir.OpLt, ir.OpLe, ir.OpGt, ir.OpGe:
		p := rw.NewCell(types.NewBoolType())
		iff := ir.NewOper(rw.ids, ir.OpIff, rw.CellRef(p.ID()), def)
		if err := rw.Gw.AssertGround(iff); err != nil {
			return nil, err
		}
		return state.WithEx(rw.CellRef(p.ID())), nil
	default:
		c := rw.NewCell(types.NewIntType())
		eqDef := ir.NewOper(rw.ids, ir.OpEq, rw.CellRef(c.ID()), def)
		if err := rw.Gw.AssertGround(eqDef); err != nil {
			return nil, err
		}
		return state.WithEx(rw.CellRef(c.ID())), nil
	}
}
