package rewriter

import (
	verr "github.com/vhavlena/veritla/pkg/err"
	"github.com/vhavlena/veritla/pkg/ir"
	"github.com/vhavlena/veritla/pkg/types"
)

// assignRule rewrites an assignment candidate v' ∈ B chosen by the
// strategy: the right-hand side is rewritten to a set cell, a fresh cell of
// the element type is constrained to be one of its members, and the primed
// variable is bound to it. The rewriting result is the true cell — an
// assignment always holds along the branch that takes it.
//
// Assignments pick from sets of scalar elements. Structured elements would
// require copying the picked cell's structure into the fresh cell, which
// the membership oracle below does not do.
type assignRule struct{ rw *Rewriter }

func (r *assignRule) Name() string { return "Assign" }

func (r *assignRule) Applicable(s *SymbState) bool {
	if !s.Ex.IsOper(ir.OpIn) || len(s.Ex.Args) != 2 || !r.rw.assignIDs[s.Ex.ID()] {
		return false
	}
	name, ok := s.Ex.Args[0].PrimedName()
	if !ok {
		return false
	}
	_, bound := s.Binding[PrimedKey(name)]
	return !bound
}

func (r *assignRule) Apply(s *SymbState) (*SymbState, error) {
	rw := r.rw
	name, _ := s.Ex.Args[0].PrimedName()

	state, set, err := rw.RewriteToCell(s, s.Ex.Args[1])
	if err != nil {
		return nil, err
	}
	stp := set.Type()
	if stp.Kind != types.KindFinSet {
		return nil, verr.ErrBadIR(s.Ex.ID(), "assignment requires a finite set on the right-hand side")
	}

	elemType := *stp.Elem
	if elemType.IsUnknown() {
		if vt, ok := rw.varTypes[name]; ok && vt.Kind == types.KindFinSet {
			elemType = *vt.Elem
		}
	}
	if !elemType.IsScalar() {
		return nil, verr.ErrBadIR(s.Ex.ID(), "assignment from a set of non-scalar elements")
	}

	fresh := rw.NewCell(elemType)
	has := rw.Arena.Has(set.ID())
	if len(has) == 0 {
		// Assigning from an empty set makes the transition infeasible.
		if err := rw.Gw.AssertGround(rw.CellRef(rw.Arena.CellFalse().ID())); err != nil {
			return nil, err
		}
	} else {
		terms := make([]*ir.Expr, 0, len(has))
		for _, x := range has {
			xc, _ := rw.Arena.CellOf(x)
			if err := rw.Eq.CacheEq(fresh, xc); err != nil {
				return nil, err
			}
			eqEx, err := rw.Eq.SafeEq(fresh, xc)
			if err != nil {
				return nil, err
			}
			terms = append(terms, ir.NewOper(rw.ids, ir.OpAnd, rw.InExpr(set.ID(), x), eqEx))
		}
		if err := rw.Gw.AssertGround(ir.NewOper(rw.ids, ir.OpOr, terms...)); err != nil {
			return nil, err
		}
	}

	binding := state.Binding.Copy()
	binding[PrimedKey(name)] = fresh.ID()
	next := &SymbState{Ex: rw.CellRef(rw.Arena.CellTrue().ID()), Arena: state.Arena, Binding: binding}
	return next, nil
}
