package rewriter

import (
	"github.com/vhavlena/veritla/pkg/arena"
	verr "github.com/vhavlena/veritla/pkg/err"
	"github.com/vhavlena/veritla/pkg/ir"
	"github.com/vhavlena/veritla/pkg/types"
)

// eqRule rewrites equality by caching the structural constraints and
// materialising the equality term into a predicate cell. Incomparable
// operand types short-circuit to the false cell without touching the
// solver.
type eqRule struct{ rw *Rewriter }

func (r *eqRule) Name() string { return "Eq" }

func (r *eqRule) Applicable(s *SymbState) bool {
	return s.Ex.IsOper(ir.OpEq)
}

func (r *eqRule) Apply(s *SymbState) (*SymbState, error) {
	rw := r.rw
	state, left, err := rw.RewriteToCell(s, s.Ex.Args[0])
	if err != nil {
		return nil, err
	}
	state, right, err := rw.RewriteToCell(state, s.Ex.Args[1])
	if err != nil {
		return nil, err
	}

	ltp, rtp := left.Type(), right.Type()
	if left.ID() != right.ID() && !types.Comparable(&ltp, &rtp) {
		return state.WithEx(rw.CellRef(rw.Arena.CellFalse().ID())), nil
	}
	if err := rw.Eq.CacheEq(left, right); err != nil {
		return nil, err
	}
	eqEx, err := rw.Eq.SafeEq(left, right)
	if err != nil {
		return nil, err
	}
	p, err := rw.predOf(eqEx)
	if err != nil {
		return nil, err
	}
	return state.WithEx(rw.CellRef(p.ID())), nil
}

// neRule rewrites disequality as the negated equality.
type neRule struct{ rw *Rewriter }

func (r *neRule) Name() string { return "Neq" }

func (r *neRule) Applicable(s *SymbState) bool {
	return s.Ex.IsOper(ir.OpNe)
}

func (r *neRule) Apply(s *SymbState) (*SymbState, error) {
	rw := r.rw
	eqNode := ir.NewOper(rw.ids, ir.OpEq, s.Ex.Args[0], s.Ex.Args[1])
	state, eqCell, err := rw.RewriteToCell(s, eqNode)
	if err != nil {
		return nil, err
	}
	p, err := rw.predOf(ir.NewOper(rw.ids, ir.OpNot, rw.CellRef(eqCell.ID())))
	if err != nil {
		return nil, err
	}
	return state.WithEx(rw.CellRef(p.ID())), nil
}

// iteRule rewrites if-then-else over scalar branches: the result cell is
// tied to the branch cells under the condition and its negation.
type iteRule struct{ rw *Rewriter }

func (r *iteRule) Name() string { return "Ite" }

func (r *iteRule) Applicable(s *SymbState) bool {
	return s.Ex.IsOper(ir.OpIte)
}

func (r *iteRule) Apply(s *SymbState) (*SymbState, error) {
	rw := r.rw
	if len(s.Ex.Args) != 3 {
		return nil, verr.ErrBadIR(s.Ex.ID(), "ite requires three arguments")
	}
	state, cond, err := rw.RewriteToCell(s, s.Ex.Args[0])
	if err != nil {
		return nil, err
	}
	state, thenCell, err := rw.RewriteToCell(state, s.Ex.Args[1])
	if err != nil {
		return nil, err
	}
	state, elseCell, err := rw.RewriteToCell(state, s.Ex.Args[2])
	if err != nil {
		return nil, err
	}

	ttp := thenCell.Type()
	etp := elseCell.Type()
	if !ttp.IsScalar() || !etp.IsScalar() {
		return nil, verr.ErrBadIR(s.Ex.ID(), "ite over non-scalar branches")
	}
	if !types.Comparable(&ttp, &etp) {
		return nil, verr.ErrBadIR(s.Ex.ID(), "ite branches have incomparable types")
	}

	result := rw.NewCell(ttp)
	if err := rw.assertGuardedEq(cond, result, thenCell, false); err != nil {
		return nil, err
	}
	if err := rw.assertGuardedEq(cond, result, elseCell, true); err != nil {
		return nil, err
	}
	return state.WithEx(rw.CellRef(result.ID())), nil
}

// assertGuardedEq asserts cond => result = branch (or the negated guard).
func (r *Rewriter) assertGuardedEq(cond, result, branch arena.Cell, negate bool) error {
	if err := r.Eq.CacheEq(result, branch); err != nil {
		return err
	}
	branchEq, err := r.Eq.SafeEq(result, branch)
	if err != nil {
		return err
	}
	guard := r.CellRef(cond.ID())
	if negate {
		guard = ir.NewOper(r.ids, ir.OpNot, guard)
	}
	return r.Gw.AssertGround(ir.NewOper(r.ids, ir.OpImplies, guard, branchEq))
}
