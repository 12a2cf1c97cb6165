package rewriter

import (
	verr "github.com/vhavlena/veritla/pkg/err"
	"github.com/vhavlena/veritla/pkg/ir"
)

// quantRule rewrites bounded quantifiers ∃x ∈ S: P and ∀x ∈ S: P by
// expanding over the static element list of S with membership guards.
type quantRule struct{ rw *Rewriter }

func (r *quantRule) Name() string { return "BoundedQuant" }

func (r *quantRule) Applicable(s *SymbState) bool {
	return s.Ex.IsOper(ir.OpExists) || s.Ex.IsOper(ir.OpForall)
}

func (r *quantRule) Apply(s *SymbState) (*SymbState, error) {
	rw := r.rw
	if len(s.Ex.Args) != 3 || s.Ex.Args[0].Kind != ir.KindName {
		return nil, verr.ErrBadIR(s.Ex.ID(), "quantifier requires a bound name, a set, and a predicate")
	}
	bound := s.Ex.Args[0].Name
	exists := s.Ex.IsOper(ir.OpExists)

	state, set, err := rw.RewriteToCell(s, s.Ex.Args[1])
	if err != nil {
		return nil, err
	}
	has := rw.Arena.Has(set.ID())
	if len(has) == 0 {
		c := rw.Arena.CellTrue()
		if exists {
			c = rw.Arena.CellFalse()
		}
		return state.WithEx(rw.CellRef(c.ID())), nil
	}

	terms := make([]*ir.Expr, 0, len(has))
	for _, x := range has {
		inner := &SymbState{Ex: s.Ex.Args[2], Arena: state.Arena, Binding: state.Binding.Copy()}
		inner.Binding[bound] = x
		done, err := rw.Rewrite(inner)
		if err != nil {
			return nil, err
		}
		pred, ok := done.AsCell()
		if !ok {
			return nil, verr.ErrBadIR(s.Ex.Args[2].ID(), "quantifier body did not rewrite to a cell")
		}
		guard := rw.InExpr(set.ID(), x)
		if exists {
			terms = append(terms, ir.NewOper(rw.ids, ir.OpAnd, guard, rw.CellRef(pred.ID())))
		} else {
			terms = append(terms, ir.NewOper(rw.ids, ir.OpImplies, guard, rw.CellRef(pred.ID())))
		}
	}

	op := ir.OpAnd
	if exists {
		op = ir.OpOr
	}
	p, err := rw.predOf(ir.NewOper(rw.ids, op, terms...))
	if err != nil {
		return nil, err
	}
	return state.WithEx(rw.CellRef(p.ID())), nil
}
